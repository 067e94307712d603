package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/streamdash/internal/config"
	"github.com/rmacdonaldsmith/streamdash/internal/controller"
	"github.com/rmacdonaldsmith/streamdash/internal/wsconn"
	"github.com/rmacdonaldsmith/streamdash/pkg/endpoint"
	"github.com/rmacdonaldsmith/streamdash/pkg/event"
)

const (
	formatText = "text"
	formatJSON = "json"
)

type tailOptions struct {
	query    string
	capacity int
	format   string
	count    int
}

func newTailCommand(opts *rootOptions) *cobra.Command {
	tail := &tailOptions{}

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print events matching a query",
		Long: `Subscribe with one query and print every event as it arrives, as text
or JSON lines. Press Ctrl+C to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runTail(ctx, opts, tail, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&tail.query, "query", config.DefaultQuery, "Query text")
	cmd.Flags().IntVar(&tail.capacity, "capacity", controller.DefaultCapacity, "Events kept between ticks")
	cmd.Flags().StringVar(&tail.format, "format", formatText, "Output format: text or json")
	cmd.Flags().IntVar(&tail.count, "count", 0, "Exit after this many entries (0 runs until interrupted)")

	return cmd
}

func runTail(ctx context.Context, opts *rootOptions, tail *tailOptions, out io.Writer) error {
	if tail.format != formatText && tail.format != formatJSON {
		return fmt.Errorf("unknown format %q (want text or json)", tail.format)
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	base, err := endpoint.Parse(cfg.BaseURL)
	if err != nil {
		return err
	}

	logger, cleanup, err := opts.newLogger()
	if err != nil {
		return err
	}
	defer cleanup()

	wake := make(chan struct{}, 1)
	c := controller.New(
		wsconn.NewDialer(wsconn.Config{HandshakeTimeout: cfg.HandshakeTimeout.Duration}.WithBearerToken(cfg.Token), logger),
		controller.Options{
			Base:     base,
			Query:    tail.query,
			Capacity: tail.capacity,
			Logger:   logger.With("query", tail.query),
			Wakeup: func() {
				select {
				case wake <- struct{}{}:
				default:
				}
			},
		},
	)
	defer c.Close()

	ticker := time.NewTicker(cfg.FrameInterval.Duration)
	defer ticker.Stop()

	var (
		lastSeq uint64
		printed int
	)
	for {
		c.Tick()

		for _, entry := range c.Snapshot() {
			if entry.Seq <= lastSeq {
				continue
			}
			lastSeq = entry.Seq
			if err := writeEntry(out, tail.format, entry); err != nil {
				return err
			}
			printed++
			if tail.count > 0 && printed >= tail.count {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-wake:
		}
	}
}

func writeEntry(out io.Writer, format string, entry controller.Entry) error {
	if format == formatJSON {
		var line []byte
		var err error
		if entry.Err != nil {
			line, err = json.Marshal(map[string]string{"error": entry.Err.Error()})
		} else {
			line, err = entry.Event.MarshalJSON()
		}
		if err != nil {
			return fmt.Errorf("encode entry %d: %w", entry.Seq, err)
		}
		_, err = fmt.Fprintf(out, "%s\n", line)
		return err
	}

	_, err := fmt.Fprintln(out, formatEntry(entry))
	return err
}

// formatEntry renders one entry as a single line of text
func formatEntry(entry controller.Entry) string {
	if entry.Err != nil {
		return fmt.Sprintf("%s ! %v", entry.Received.Format(time.RFC3339), entry.Err)
	}
	ev := entry.Event

	stamp := entry.Received
	if ev.Time != nil {
		stamp = *ev.Time
	}

	fields := []string{stamp.Format(time.RFC3339), orDash(ev.Host), orDash(ev.Service), orDash(ev.State), metricText(ev)}
	if ev.Description != "" {
		fields = append(fields, ev.Description)
	}
	return strings.Join(fields, " ")
}

func metricText(ev *event.Event) string {
	if metric, ok := ev.MetricValue(); ok {
		return fmt.Sprintf("%g", metric)
	}
	return "-"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
