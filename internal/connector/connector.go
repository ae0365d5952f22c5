package connector

import (
	"context"
	"strings"
	"time"

	"github.com/crimson-sun/healthguard/internal/model"
)

// Connector defines the interface all log source connectors must implement.
type Connector interface {
	// Stream sends raw events as they become available until ctx is done.
	Stream(ctx context.Context, cfg ConnectorConfig) (<-chan model.RawEvent, error)

	// Query fetches a batch of raw events matching the given parameters.
	Query(ctx context.Context, cfg ConnectorConfig, params QueryParams) ([]model.RawEvent, error)
}

// ConnectorConfig holds provider-specific connection settings.
// Extra carries provider keys such as "path" and "poll_interval".
type ConnectorConfig struct {
	Provider string
	APIKey   string
	Endpoint string
	Extra    map[string]string
}

// QueryParams defines filters for raw event queries.
type QueryParams struct {
	Module   string
	Severity string
	Limit    int
	Start    time.Time
	End      time.Time
}

// Match reports whether ev passes the module, severity and time filters.
// Limit is not considered.
func (p QueryParams) Match(ev model.RawEvent) bool {
	if p.Module != "" && !strings.EqualFold(p.Module, ev.Module) {
		return false
	}
	if p.Severity != "" && !strings.EqualFold(p.Severity, string(ev.Severity)) {
		return false
	}
	if !p.Start.IsZero() && ev.Timestamp.Before(p.Start) {
		return false
	}
	if !p.End.IsZero() && !ev.Timestamp.Before(p.End) {
		return false
	}
	return true
}

// Filter returns the events matching p, in their original order, truncated to p.Limit when positive.
func Filter(events []model.RawEvent, p QueryParams) []model.RawEvent {
	out := make([]model.RawEvent, 0, len(events))
	for _, ev := range events {
		if !p.Match(ev) {
			continue
		}
		out = append(out, ev)
		if p.Limit > 0 && len(out) >= p.Limit {
			break
		}
	}
	return out
}

// PollInterval parses cfg.Extra["poll_interval"], returning def when absent or invalid.
func PollInterval(cfg ConnectorConfig, def time.Duration) time.Duration {
	if raw := cfg.Extra["poll_interval"]; raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
	}
	return def
}
