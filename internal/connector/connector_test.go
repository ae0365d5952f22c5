package connector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/healthguard/internal/model"
)

type nopConnector struct{}

func (nopConnector) Stream(context.Context, ConnectorConfig) (<-chan model.RawEvent, error) {
	return nil, nil
}

func (nopConnector) Query(context.Context, ConnectorConfig, QueryParams) ([]model.RawEvent, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	Register("test-nop", func() Connector { return nopConnector{} })

	ctor, err := Get("test-nop")
	require.NoError(t, err)
	assert.NotNil(t, ctor())
	assert.Contains(t, Providers(), "test-nop")

	_, err = Get("nope")
	assert.ErrorContains(t, err, `unknown provider "nope"`)
}

func TestFilter(t *testing.T) {
	base := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	events := []model.RawEvent{
		{LogID: "1", Module: "FI", Severity: model.SeverityError, Timestamp: base},
		{LogID: "2", Module: "MM", Severity: model.SeverityError, Timestamp: base.Add(time.Hour)},
		{LogID: "3", Module: "FI", Severity: model.SeverityWarning, Timestamp: base.Add(2 * time.Hour)},
		{LogID: "4", Module: "FI", Severity: model.SeverityError, Timestamp: base.Add(3 * time.Hour)},
	}

	ids := func(evs []model.RawEvent) []string {
		out := make([]string, len(evs))
		for i, ev := range evs {
			out[i] = ev.LogID
		}
		return out
	}

	tests := []struct {
		name   string
		params QueryParams
		want   []string
	}{
		{"no filter", QueryParams{}, []string{"1", "2", "3", "4"}},
		{"module case-insensitive", QueryParams{Module: "fi"}, []string{"1", "3", "4"}},
		{"severity", QueryParams{Severity: "error"}, []string{"1", "2", "4"}},
		{"module and severity", QueryParams{Module: "FI", Severity: "ERROR"}, []string{"1", "4"}},
		{"limit after filter", QueryParams{Module: "FI", Limit: 2}, []string{"1", "3"}},
		{"time window end exclusive", QueryParams{Start: base.Add(time.Hour), End: base.Add(3 * time.Hour)}, []string{"2", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(events, tt.params)))
		})
	}
}

func TestPollInterval(t *testing.T) {
	def := 30 * time.Second
	assert.Equal(t, def, PollInterval(ConnectorConfig{}, def))
	assert.Equal(t, def, PollInterval(ConnectorConfig{Extra: map[string]string{"poll_interval": "bogus"}}, def))
	assert.Equal(t, def, PollInterval(ConnectorConfig{Extra: map[string]string{"poll_interval": "-1s"}}, def))
	assert.Equal(t, 50*time.Millisecond, PollInterval(ConnectorConfig{Extra: map[string]string{"poll_interval": "50ms"}}, def))
}
