package views

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

const seriesNameWidth = 16

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Point is one sample of a series
type Point struct {
	Time   time.Time
	Metric float64
}

// Series is the points of one service in arrival order
type Series struct {
	Service string
	Points  []Point
}

// Latest returns the newest point
func (s Series) Latest() Point {
	return s.Points[len(s.Points)-1]
}

// Bounds returns the smallest and largest metric
func (s Series) Bounds() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range s.Points {
		lo = math.Min(lo, p.Metric)
		hi = math.Max(hi, p.Metric)
	}
	return lo, hi
}

// Flot plots the metric of each service over time
type Flot struct {
	base
}

func (v *Flot) Kind() Kind { return KindFlot }

// Series groups the buffered events by service, sorted by service name.
// Events without a service, metric or time are skipped.
func (v *Flot) Series() []Series {
	byService := make(map[string]*Series)
	for _, entry := range v.controller.Snapshot() {
		ev := entry.Event
		if ev == nil || ev.Service == "" || ev.Metric == nil || ev.Time == nil {
			continue
		}
		s, ok := byService[ev.Service]
		if !ok {
			s = &Series{Service: ev.Service}
			byService[ev.Service] = s
		}
		s.Points = append(s.Points, Point{Time: *ev.Time, Metric: *ev.Metric})
	}

	out := make([]Series, 0, len(byService))
	for _, s := range byService {
		sort.SliceStable(s.Points, func(i, j int) bool { return s.Points[i].Time.Before(s.Points[j].Time) })
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out
}

func (v *Flot) Render(width, height int) string {
	if height <= 0 || width <= 0 {
		return ""
	}

	series := v.Series()
	if len(series) == 0 {
		return placeholder(v.theme, "no series yet", width)
	}
	if len(series) > height {
		series = series[:height]
	}

	lines := make([]string, 0, len(series))
	for i, s := range series {
		lo, hi := s.Bounds()
		stats := fmt.Sprintf(" %.2f [%.2f..%.2f]", s.Latest().Metric, lo, hi)
		sparkWidth := width - seriesNameWidth - 1 - len(stats)

		var b strings.Builder
		b.WriteString(fit(s.Service, seriesNameWidth))
		b.WriteByte(' ')
		if sparkWidth > 0 {
			b.WriteString(fit(Sparkline(s.Points, sparkWidth), sparkWidth))
			b.WriteString(stats)
		}
		lines = append(lines, styleFor(v.theme.SeriesColor(i)).Render(fit(b.String(), width)))
	}
	return strings.Join(lines, "\n")
}

// Sparkline renders the last width points as block characters scaled
// between their own minimum and maximum.
func Sparkline(points []Point, width int) string {
	if width <= 0 || len(points) == 0 {
		return ""
	}
	if len(points) > width {
		points = points[len(points)-width:]
	}

	lo, hi := Series{Points: points}.Bounds()
	span := hi - lo

	out := make([]rune, len(points))
	for i, p := range points {
		level := len(sparkBlocks) / 2
		if span > 0 {
			level = int((p.Metric - lo) / span * float64(len(sparkBlocks)-1))
		}
		out[i] = sparkBlocks[level]
	}
	return string(out)
}
