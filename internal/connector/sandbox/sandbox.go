// Package sandbox reads raw events from the SAP sandbox logs HTTP API.
package sandbox

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crimson-sun/healthguard/internal/connector"
	"github.com/crimson-sun/healthguard/internal/connector/httpclient"
	"github.com/crimson-sun/healthguard/internal/model"
)

const logsPath = "/sap/sandbox/logs"
const defaultPollInterval = 30 * time.Second

// defaultStreamLimit is the page size requested by each stream poll.
const defaultStreamLimit = 200

func init() {
	connector.Register("sandbox", func() connector.Connector {
		return &Connector{}
	})
}

// Connector implements connector.Connector for the sandbox logs API.
type Connector struct {
	Logger *zap.Logger

	// HTTPOptions are applied to every client the connector builds.
	HTTPOptions []httpclient.Option
}

type logsResponse struct {
	Count int              `json:"count"`
	Logs  []model.RawEvent `json:"logs"`
}

func (c *Connector) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Connector) client(cfg connector.ConnectorConfig) (*httpclient.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("sandbox connector: endpoint is required")
	}
	return httpclient.New(strings.TrimRight(cfg.Endpoint, "/"), cfg.APIKey, c.HTTPOptions...), nil
}

func queryValues(params connector.QueryParams) url.Values {
	q := url.Values{}
	if params.Module != "" {
		q.Set("module", params.Module)
	}
	if params.Severity != "" {
		q.Set("severity", params.Severity)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	return q
}

// Query fetches one page of events. Module, severity and limit are sent to the
// server; the time window is applied client-side.
func (c *Connector) Query(ctx context.Context, cfg connector.ConnectorConfig, params connector.QueryParams) ([]model.RawEvent, error) {
	client, err := c.client(cfg)
	if err != nil {
		return nil, err
	}

	var resp logsResponse
	if err := client.GetJSON(ctx, logsPath, queryValues(params), &resp); err != nil {
		return nil, fmt.Errorf("sandbox connector: %w", err)
	}
	return connector.Filter(resp.Logs, params), nil
}

// Get fetches a single event by log id.
func (c *Connector) Get(ctx context.Context, cfg connector.ConnectorConfig, logID string) (model.RawEvent, error) {
	client, err := c.client(cfg)
	if err != nil {
		return model.RawEvent{}, err
	}
	var ev model.RawEvent
	if err := client.GetJSON(ctx, logsPath+"/"+url.PathEscape(logID), nil, &ev); err != nil {
		return model.RawEvent{}, fmt.Errorf("sandbox connector: get %s: %w", logID, err)
	}
	return ev, nil
}

// Post creates an event on the sandbox and returns it as stored, with the
// server-assigned log id and timestamp.
func (c *Connector) Post(ctx context.Context, cfg connector.ConnectorConfig, ev model.RawEvent) (model.RawEvent, error) {
	client, err := c.client(cfg)
	if err != nil {
		return model.RawEvent{}, err
	}
	var created model.RawEvent
	if err := client.PostJSON(ctx, logsPath, ev, &created); err != nil {
		return model.RawEvent{}, fmt.Errorf("sandbox connector: post: %w", err)
	}
	return created, nil
}

// Stream polls the sandbox at the configured interval and sends events whose
// log id has not been seen before.
func (c *Connector) Stream(ctx context.Context, cfg connector.ConnectorConfig) (<-chan model.RawEvent, error) {
	client, err := c.client(cfg)
	if err != nil {
		return nil, err
	}
	pollInterval := connector.PollInterval(cfg, defaultPollInterval)
	log := c.logger().With(zap.String("connector", "sandbox"))

	ch := make(chan model.RawEvent, 64)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		seen := map[string]bool{}
		poll(ctx, client, log, seen, ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				poll(ctx, client, log, seen, ch)
			}
		}
	}()
	return ch, nil
}

func poll(ctx context.Context, client *httpclient.Client, log *zap.Logger, seen map[string]bool, ch chan<- model.RawEvent) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(defaultStreamLimit))

	var resp logsResponse
	if err := client.GetJSON(ctx, logsPath, q, &resp); err != nil {
		if ctx.Err() == nil {
			log.Warn("poll error", zap.Error(err))
		}
		return
	}

	for _, ev := range resp.Logs {
		if ev.LogID != "" && seen[ev.LogID] {
			continue
		}
		select {
		case ch <- ev:
			if ev.LogID != "" {
				seen[ev.LogID] = true
			}
		case <-ctx.Done():
			return
		}
	}
}
