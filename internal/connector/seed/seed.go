// Package seed serves a fixed set of realistic SAP sandbox events.
// It backs demos, tests and the default CLI configuration.
package seed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/healthguard/internal/connector"
	"github.com/crimson-sun/healthguard/internal/model"
)

const defaultPollInterval = 30 * time.Second

// eventsPerDay spreads the templates over days and hours: template i is
// i/eventsPerDay days and i%eventsPerDay hours old.
const eventsPerDay = 6

func init() {
	connector.Register("seed", func() connector.Connector {
		return New()
	})
}

// Connector serves the built-in events plus any added at runtime.
//
// Built-in events carry stable ids (LOG-000, LOG-001, ...) and timestamps
// relative to the clock, regenerated on every call.
type Connector struct {
	now func() time.Time

	mu    sync.Mutex
	added []model.RawEvent
}

// Option configures a Connector.
type Option func(*Connector)

// WithClock sets the clock timestamps are relative to.
func WithClock(now func() time.Time) Option {
	return func(c *Connector) {
		c.now = now
	}
}

// New creates a seed connector.
func New(opts ...Option) *Connector {
	c := &Connector{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add appends an event. A missing LogID or Timestamp is filled in.
func (c *Connector) Add(ev model.RawEvent) (model.RawEvent, error) {
	if ev.Module == "" || ev.Message == "" || !ev.Severity.Valid() {
		return model.RawEvent{}, fmt.Errorf("seed connector: module, message and a valid severity are required")
	}
	if ev.LogID == "" {
		ev.LogID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = c.now()
	}
	c.mu.Lock()
	c.added = append(c.added, ev)
	c.mu.Unlock()
	return ev, nil
}

// Reset drops every event added at runtime.
func (c *Connector) Reset() {
	c.mu.Lock()
	c.added = nil
	c.mu.Unlock()
}

// Events returns the built-in events followed by the added ones.
func (c *Connector) Events() []model.RawEvent {
	now := c.now()
	out := make([]model.RawEvent, 0, len(templates))
	for i, tpl := range templates {
		ev := tpl
		ev.LogID = fmt.Sprintf("LOG-%03d", i)
		ev.Timestamp = now.AddDate(0, 0, -(i / eventsPerDay)).Add(-time.Duration(i%eventsPerDay) * time.Hour)
		ev.ChangedObjects = append([]string{}, tpl.ChangedObjects...)
		ev.RecentDeploys = append([]string{}, tpl.RecentDeploys...)
		out = append(out, ev)
	}
	c.mu.Lock()
	out = append(out, c.added...)
	c.mu.Unlock()
	return out
}

func (c *Connector) Query(ctx context.Context, _ connector.ConnectorConfig, params connector.QueryParams) ([]model.RawEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return connector.Filter(c.Events(), params), nil
}

// Stream sends every current event, then the events added since the previous
// poll at each poll interval.
func (c *Connector) Stream(ctx context.Context, cfg connector.ConnectorConfig) (<-chan model.RawEvent, error) {
	pollInterval := connector.PollInterval(cfg, defaultPollInterval)

	ch := make(chan model.RawEvent, 64)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		evs := c.Events()
		sent := len(evs)
		if !send(ctx, ch, evs) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				start := sent - len(templates)
				fresh := append([]model.RawEvent(nil), c.added[min(start, len(c.added)):]...)
				c.mu.Unlock()
				sent += len(fresh)
				if !send(ctx, ch, fresh) {
					return
				}
			}
		}
	}()
	return ch, nil
}

func send(ctx context.Context, ch chan<- model.RawEvent, evs []model.RawEvent) bool {
	for _, ev := range evs {
		select {
		case ch <- ev:
		case <-ctx.Done():
			return false
		}
	}
	return true
}
