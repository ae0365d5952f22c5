package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crimson-sun/healthguard/internal/audit"
	"github.com/crimson-sun/healthguard/internal/connector"
	"github.com/crimson-sun/healthguard/internal/connector/sandbox"
	"github.com/crimson-sun/healthguard/internal/connector/seed"
	"github.com/crimson-sun/healthguard/internal/model"
	"github.com/crimson-sun/healthguard/internal/output/file"
	"github.com/crimson-sun/healthguard/internal/store"
	"github.com/crimson-sun/healthguard/internal/store/jsonfile"
)

func TestIntegration_SeedThroughFileBackedPipeline(t *testing.T) {
	dir := t.TempDir()
	auditPath := filepath.Join(dir, "audit.ndjson")

	repo, err := jsonfile.New(filepath.Join(dir, "data"))
	require.NoError(t, err)
	sink, err := file.New(auditPath)
	require.NoError(t, err)
	trail := audit.NewTrail(sink, audit.WithLogger(zaptest.NewLogger(t)))
	svc := New(repo, trail, WithLogger(zaptest.NewLogger(t)))

	ctx := context.Background()
	src := seed.New(seed.WithClock(func() time.Time { return fixedNow }))
	incs, err := svc.Pull(ctx, src, connector.ConnectorConfig{Provider: "seed"}, connector.QueryParams{})
	require.NoError(t, err)
	require.Len(t, incs, len(src.Events()))

	// The three MIGO failures are recurrences of each other.
	var migo []string
	for _, inc := range incs {
		if inc.Module == "MM" {
			migo = append(migo, inc.ID)
		}
	}
	require.Len(t, migo, 3)

	out, err := svc.Analyze(ctx, migo[0], nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(out.SimilarIncidents), 2)
	assert.Equal(t, migo[1], out.SimilarIncidents[0].IncidentID)
	assert.Equal(t, model.DecisionEscalate, out.Decision)

	ack, err := svc.Acknowledge(ctx, out.Escalation.ID, "basis-oncall")
	require.NoError(t, err)
	assert.Equal(t, model.EscalationAcknowledged, ack.Status)
	require.NoError(t, svc.Close())

	report := audit.VerifyFiles(file.Segments(auditPath)...)
	assert.True(t, report.OK, report.Errors)
	assert.EqualValues(t, 6, report.Total)

	// A restarted service sees the same incidents after rebuilding its index.
	reopened, err := jsonfile.New(filepath.Join(dir, "data"))
	require.NoError(t, err)
	restarted := New(reopened, audit.NewTrail(sink))
	require.NoError(t, restarted.Rebuild(ctx))
	assert.Equal(t, len(incs), restarted.Index().Len())

	pending, err := restarted.ListEscalations(ctx, store.EscalationFilter{Status: model.EscalationPending})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestIntegration_SandboxStreamThroughPipeline(t *testing.T) {
	src := seed.New(seed.WithClock(func() time.Time { return fixedNow }))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		evs, _ := src.Query(r.Context(), connector.ConnectorConfig{}, connector.QueryParams{
			Module:   r.URL.Query().Get("module"),
			Severity: r.URL.Query().Get("severity"),
			Limit:    50,
		})
		json.NewEncoder(w).Encode(map[string]any{"count": len(evs), "logs": evs})
	}))
	defer srv.Close()

	h := newHarness(t, WithStreamBuffer(20*time.Millisecond, 0))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- h.svc.Stream(ctx, &sandbox.Connector{}, connector.ConnectorConfig{
			Endpoint: srv.URL,
			Extra:    map[string]string{"poll_interval": "20ms"},
		})
	}()

	require.Eventually(t, func() bool {
		return h.svc.Index().Len() == len(src.Events())
	}, 3*time.Second, 10*time.Millisecond)

	// Repeated polls return the same log ids and must not create duplicates.
	time.Sleep(80 * time.Millisecond)
	cancel()
	// Depending on which side notices first the loop sees ctx.Done or a closed channel.
	if err := <-done; err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, len(src.Events()), h.svc.Index().Len())
}
