package devserver

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/rmacdonaldsmith/streamdash/pkg/event"
)

// Publisher accepts events
type Publisher interface {
	Publish(ev *event.Event) (int, error)
}

// Thresholds map a metric to a state
type Thresholds struct {
	Warning  float64
	Critical float64
}

// State returns ok, warning, or critical for metric
func (t Thresholds) State(metric float64) string {
	switch {
	case metric >= t.Critical:
		return "critical"
	case metric >= t.Warning:
		return "warning"
	default:
		return event.StateOK
	}
}

var (
	cpuThresholds    = Thresholds{Warning: 0.8, Critical: 0.95}
	memoryThresholds = Thresholds{Warning: 0.85, Critical: 0.95}
)

// Emitter samples host telemetry and publishes it as events
type Emitter struct {
	host      string
	interval  time.Duration
	publisher Publisher
	logger    *slog.Logger
}

// NewEmitter creates an emitter. An empty host uses the machine hostname.
func NewEmitter(host string, interval time.Duration, publisher Publisher, logger *slog.Logger) *Emitter {
	if host == "" {
		host, _ = os.Hostname()
	}
	if host == "" {
		host = "localhost"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Emitter{host: host, interval: interval, publisher: publisher, logger: logger}
}

// Run publishes a sample every interval until ctx is done
func (e *Emitter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		e.emit(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (e *Emitter) emit(ctx context.Context) {
	for _, ev := range e.Collect(ctx) {
		if _, err := e.publisher.Publish(ev); err != nil {
			e.logger.Warn("publishing host telemetry", "service", ev.Service, "error", err)
		}
	}
}

// Collect samples cpu, memory, and load once. Sources that fail are
// skipped.
func (e *Emitter) Collect(ctx context.Context) []*event.Event {
	now := time.Now().UTC()
	ttl := 3 * e.interval.Seconds()

	var events []*event.Event
	add := func(service string, metric float64, state, description string) {
		m := metric
		t := ttl
		ts := now
		events = append(events, &event.Event{
			Time:        &ts,
			Host:        e.host,
			Service:     service,
			State:       state,
			Metric:      &m,
			TTL:         &t,
			Description: description,
			Tags:        []string{"streamdash", "host"},
		})
	}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		usage := percents[0] / 100
		add("cpu", usage, cpuThresholds.State(usage), "")
	} else if err != nil {
		e.logger.Debug("sampling cpu", "error", err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		used := vm.UsedPercent / 100
		add("memory", used, memoryThresholds.State(used), "")
	} else {
		e.logger.Debug("sampling memory", "error", err)
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		add("load", avg.Load1, event.StateOK, "1-minute load average")
	} else {
		e.logger.Debug("sampling load", "error", err)
	}

	return events
}
