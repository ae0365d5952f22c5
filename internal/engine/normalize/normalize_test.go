package normalize

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/healthguard/internal/engine/taxonomy"
	"github.com/crimson-sun/healthguard/internal/model"
)

var fixedNow = time.Date(2026, 1, 31, 22, 0, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return New(taxonomy.New(taxonomy.DefaultModules()),
		WithClock(func() time.Time { return fixedNow }),
		WithIDFunc(func() string { return "INC-TEST0001" }))
}

func TestNormalize(t *testing.T) {
	n := newTestNormalizer()
	ts := fixedNow.Add(-2 * time.Hour)
	raw := model.RawEvent{
		LogID:          "log-1",
		Module:         "fi",
		Severity:       "error",
		Message:        "BAPI_ACC_DOCUMENT_POST failed: Lock timeout on table BSEG",
		Timestamp:      ts,
		MonthEnd:       true,
		ChangedObjects: []string{"BSEG", "BKPF"},
		RecentDeploys:  []string{"FI-GL-2024.01.15"},
	}

	inc, err := n.Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "INC-TEST0001", inc.ID)
	assert.Equal(t, "BAPI_ACC_DOCUMENT_POST failed", inc.Title)
	assert.Equal(t, raw.Message, inc.Description)
	assert.Equal(t, "FI", inc.Module)
	assert.Equal(t, model.SeverityError, inc.Severity)
	assert.Equal(t, ts, inc.Timestamp)
	assert.True(t, inc.MonthEnd)
	assert.Equal(t, model.StatusOpen, inc.Status)
	assert.Equal(t, fixedNow, inc.CreatedAt)
	assert.Equal(t, []string{"BSEG", "BKPF"}, inc.RawLog.ChangedObjects)
	assert.Contains(t, inc.Tags, "month-end")
	assert.Contains(t, inc.Tags, "recent-change")
	assert.Contains(t, inc.Tags, "FI")
}

func TestNormalizeDefaultsTimestamp(t *testing.T) {
	n := newTestNormalizer()
	inc, err := n.Normalize(model.RawEvent{Module: "MM", Severity: model.SeverityInfo, Message: "Stock updated"})
	require.NoError(t, err)
	assert.Equal(t, fixedNow, inc.Timestamp)
	assert.Equal(t, fixedNow, inc.RawLog.Timestamp)
}

func TestNormalizeValidation(t *testing.T) {
	n := newTestNormalizer()
	tests := []struct {
		name  string
		raw   model.RawEvent
		field string
	}{
		{"missing module", model.RawEvent{Severity: "ERROR", Message: "x"}, "module"},
		{"missing message", model.RawEvent{Module: "FI", Severity: "ERROR"}, "message"},
		{"missing severity", model.RawEvent{Module: "FI", Message: "x"}, "severity"},
		{"unknown severity", model.RawEvent{Module: "FI", Severity: "FATAL", Message: "x"}, "severity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.raw)
			var fe *FieldError
			require.True(t, errors.As(err, &fe), "expected *FieldError, got %v", err)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"Transaction FB50: Posting period 01/2026 is not open", "Transaction FB50"},
		{"no colon here", "FI: no colon here"},
		{":leading colon", "FI: :leading colon"},
		{strings.Repeat("a", 60), "FI: " + strings.Repeat("a", 47) + "..."},
		{strings.Repeat("b", 55) + ": late colon", "FI: " + strings.Repeat("b", 47) + "..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractTitle(tt.message, "FI"), "message %q", tt.message)
	}
}

func TestSearchableText(t *testing.T) {
	inc := model.Incident{
		Title:       "Lock timeout",
		Description: "Lock timeout on BSEG",
		Module:      "FI",
		Severity:    model.SeverityError,
		MonthEnd:    true,
		RawLog: model.RawEvent{
			ChangedObjects: []string{"BSEG", "BKPF"},
			RecentDeploys:  []string{"FI-GL-2024.01.15"},
		},
	}
	assert.Equal(t,
		"lock timeout lock timeout on bseg module:fi severity:error month-end closing period bseg bkpf fi-gl-2024.01.15",
		SearchableText(inc))

	inc.MonthEnd = false
	inc.RawLog = model.RawEvent{}
	assert.Equal(t, "lock timeout lock timeout on bseg module:fi severity:error", SearchableText(inc))
}

func TestQueryText(t *testing.T) {
	inc := model.Incident{Title: "T", Description: "D", Module: "SD"}
	assert.Equal(t, "T D SD", QueryText(inc))
}
