package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/healthguard/internal/model"
)

func TestRecordsByIncident(t *testing.T) {
	out := New()
	ctx := context.Background()
	require.NoError(t, out.Write(ctx, model.AuditRecord{ID: "1", IncidentID: "INC-A", ToolName: "analyze_incident"}))
	require.NoError(t, out.Write(ctx, model.AuditRecord{ID: "2", IncidentID: "INC-B", ToolName: "analyze_incident"}))
	require.NoError(t, out.Write(ctx, model.AuditRecord{ID: "3", IncidentID: "INC-A", ToolName: "predict_risk"}))

	assert.Len(t, out.Records(), 3)

	a := out.ByIncident("INC-A")
	require.Len(t, a, 2)
	assert.Equal(t, "analyze_incident", a[0].ToolName)
	assert.Equal(t, "predict_risk", a[1].ToolName)
	assert.Empty(t, out.ByIncident("INC-C"))

	rec, ok := out.Get("2")
	require.True(t, ok)
	assert.Equal(t, "INC-B", rec.IncidentID)
	_, ok = out.Get("9")
	assert.False(t, ok)
}

func TestRecordsReturnsCopy(t *testing.T) {
	out := New()
	require.NoError(t, out.Write(context.Background(), model.AuditRecord{ID: "1"}))
	recs := out.Records()
	recs[0].ID = "changed"
	assert.Equal(t, "1", out.Records()[0].ID)
}
