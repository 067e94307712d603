package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/streamdash/pkg/event"
	"github.com/rmacdonaldsmith/streamdash/pkg/httpclient"
)

type publishOptions struct {
	server      string
	host        string
	service     string
	state       string
	metric      float64
	description string
	tags        []string
	ttl         float64
	timeout     time.Duration
}

func newPublishCommand(opts *rootOptions) *cobra.Command {
	publish := &publishOptions{}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish one event to the event server",
		Long: `Publish one event to the event server started with 'serve'. The server
URL defaults to the configured base URL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ev := publish.event(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), publish.timeout)
			defer cancel()

			resp, err := runPublish(ctx, opts, publish, ev)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Event published to %d subscriber(s)\n", resp.Subscribers)
			return nil
		},
	}

	cmd.Flags().StringVar(&publish.server, "server", "", "Event server URL (default: configured base URL)")
	cmd.Flags().StringVar(&publish.host, "host", "", "Event host")
	cmd.Flags().StringVar(&publish.service, "service", "", "Event service (required)")
	cmd.Flags().StringVar(&publish.state, "state", event.StateOK, "Event state")
	cmd.Flags().Float64Var(&publish.metric, "metric", 0, "Event metric")
	cmd.Flags().StringVar(&publish.description, "description", "", "Event description")
	cmd.Flags().StringSliceVar(&publish.tags, "tag", nil, "Event tag (repeatable)")
	cmd.Flags().Float64Var(&publish.ttl, "ttl", 0, "Seconds before the event expires")
	cmd.Flags().DurationVar(&publish.timeout, "timeout", 10*time.Second, "Request timeout")
	if err := cmd.MarkFlagRequired("service"); err != nil {
		panic(fmt.Sprintf("Failed to mark service as required: %v", err))
	}

	return cmd
}

// event builds the event from flags; metric and ttl are only set when given
func (p *publishOptions) event(cmd *cobra.Command) *event.Event {
	ev := &event.Event{
		Host:        p.host,
		Service:     p.service,
		State:       p.state,
		Description: p.description,
		Tags:        p.tags,
	}
	if ev.Tags == nil {
		ev.Tags = []string{}
	}
	if cmd.Flags().Changed("metric") {
		metric := p.metric
		ev.Metric = &metric
	}
	if cmd.Flags().Changed("ttl") {
		ttl := p.ttl
		ev.TTL = &ttl
	}
	return ev
}

func runPublish(ctx context.Context, opts *rootOptions, publish *publishOptions, ev *event.Event) (*httpclient.PublishResponse, error) {
	server := publish.server
	token := opts.token
	if server == "" || token == "" {
		cfg, err := opts.loadConfig()
		if err != nil {
			return nil, err
		}
		if server == "" {
			server = cfg.BaseURL
		}
		if token == "" {
			token = cfg.Token
		}
	}

	client, err := httpclient.NewClient(httpclient.Config{ServerURL: server, Token: token, Timeout: publish.timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client.PublishEvent(ctx, ev)
}
