// Package storetest holds the behaviour every store.Repository must share.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/healthguard/internal/model"
	"github.com/crimson-sun/healthguard/internal/store"
)

var base = time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)

func incident(id, module string, offset time.Duration) model.Incident {
	return model.Incident{
		ID:          id,
		Title:       "Posting failed",
		Description: "Posting failed: period locked",
		Module:      module,
		Severity:    model.SeverityError,
		Timestamp:   base.Add(offset),
		MonthEnd:    true,
		RawLog:      model.RawEvent{Module: module, RecentDeploys: []string{"FI-GL-1"}},
		Tags:        []string{module, "error"},
		Status:      model.StatusOpen,
		CreatedAt:   base.Add(offset),
	}
}

// Run exercises repo against the repository contract.
func Run(t *testing.T, newRepo func(t *testing.T) store.Repository) {
	t.Run("IncidentRoundTrip", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		in := incident("INC-00000001", "FI", 0)
		require.NoError(t, repo.Put(ctx, in))

		got, err := repo.Get(ctx, in.ID)
		require.NoError(t, err)
		assert.Equal(t, in.ID, got.ID)
		assert.Equal(t, in.RawLog.RecentDeploys, got.RawLog.RecentDeploys)
		assert.True(t, in.CreatedAt.Equal(got.CreatedAt))
		assert.True(t, got.MonthEnd)
	})

	t.Run("GetMissing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Get(context.Background(), "INC-MISSING0")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = repo.GetEscalation(context.Background(), "ESC-MISSING0")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Put(ctx, incident("INC-00000001", "FI", 0)))
		require.NoError(t, repo.UpdateStatus(ctx, "INC-00000001", model.StatusEscalated))

		got, err := repo.Get(ctx, "INC-00000001")
		require.NoError(t, err)
		assert.Equal(t, model.StatusEscalated, got.Status)
		assert.Equal(t, "Posting failed", got.Title)

		assert.ErrorIs(t, repo.UpdateStatus(ctx, "INC-MISSING0", model.StatusEscalated), store.ErrNotFound)
	})

	t.Run("ListNewestFirstWithFilters", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Put(ctx, incident("INC-00000001", "FI", 0)))
		require.NoError(t, repo.Put(ctx, incident("INC-00000002", "MM", time.Minute)))
		require.NoError(t, repo.Put(ctx, incident("INC-00000003", "FI", 2*time.Minute)))

		all, err := repo.List(ctx, store.ListOptions{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "INC-00000003", all[0].ID)
		assert.Equal(t, "INC-00000001", all[2].ID)

		fi, err := repo.List(ctx, store.ListOptions{Module: "fi", Limit: 1})
		require.NoError(t, err)
		require.Len(t, fi, 1)
		assert.Equal(t, "INC-00000003", fi[0].ID)
	})

	t.Run("PutReplaces", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		in := incident("INC-00000001", "FI", 0)
		require.NoError(t, repo.Put(ctx, in))
		in.Title = "Updated"
		require.NoError(t, repo.Put(ctx, in))

		all, err := repo.List(ctx, store.ListOptions{})
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "Updated", all[0].Title)
	})

	t.Run("Escalations", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		first := model.EscalationRecord{
			ID: "ESC-00000001", IncidentID: "INC-00000001", Reason: "High risk score (0.8) requires human review",
			RequiredRole: "SAP_ADMIN", Requester: "agent", Status: model.EscalationPending,
			Snapshot: map[string]any{"risk_score": 0.8}, Timestamp: base,
		}
		second := first
		second.ID = "ESC-00000002"
		second.IncidentID = "INC-00000002"
		second.Timestamp = base.Add(time.Minute)
		require.NoError(t, repo.PutEscalation(ctx, first))
		require.NoError(t, repo.PutEscalation(ctx, second))

		got, err := repo.GetEscalation(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.8, got.Snapshot["risk_score"])

		at := base.Add(time.Hour)
		got.Status = model.EscalationAcknowledged
		got.AcknowledgedBy = "admin"
		got.AcknowledgedAt = &at
		require.NoError(t, repo.PutEscalation(ctx, got))

		pending, err := repo.ListEscalations(ctx, store.EscalationFilter{Status: model.EscalationPending})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, second.ID, pending[0].ID)

		byIncident, err := repo.ListEscalations(ctx, store.EscalationFilter{IncidentID: "INC-00000001"})
		require.NoError(t, err)
		require.Len(t, byIncident, 1)
		assert.Equal(t, "admin", byIncident[0].AcknowledgedBy)
		require.NotNil(t, byIncident[0].AcknowledgedAt)
		assert.True(t, at.Equal(*byIncident[0].AcknowledgedAt))

		all, err := repo.ListEscalations(ctx, store.EscalationFilter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, second.ID, all[0].ID)
	})

	t.Run("ReturnedValuesAreCopies", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		in := incident("INC-00000001", "FI", 0)
		require.NoError(t, repo.Put(ctx, in))
		in.Tags[0] = "mutated-after-put"
		in.RawLog.RecentDeploys[0] = "mutated-after-put"

		got, err := repo.Get(ctx, in.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"FI", "error"}, got.Tags)
		got.Tags[1] = "mutated-after-get"
		got.RawLog.RecentDeploys[0] = "mutated-after-get"

		listed, err := repo.List(ctx, store.ListOptions{})
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, []string{"FI", "error"}, listed[0].Tags)
		assert.Equal(t, []string{"FI-GL-1"}, listed[0].RawLog.RecentDeploys)

		esc := model.EscalationRecord{
			ID: "ESC-00000001", IncidentID: in.ID, Status: model.EscalationPending, Timestamp: base,
			Snapshot: map[string]any{"risk_score": 0.8, "contributing_factors": []any{"Month-end closing period"}},
		}
		require.NoError(t, repo.PutEscalation(ctx, esc))
		esc.Snapshot["risk_score"] = 0.1

		gotEsc, err := repo.GetEscalation(ctx, esc.ID)
		require.NoError(t, err)
		gotEsc.Snapshot["contributing_factors"].([]any)[0] = "mutated-after-get"

		again, err := repo.GetEscalation(ctx, esc.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.8, again.Snapshot["risk_score"])
		assert.Equal(t, []any{"Month-end closing period"}, again.Snapshot["contributing_factors"])
	})

	t.Run("ConcurrentPuts", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := "INC-" + string(rune('A'+i)) + "0000000"
				assert.NoError(t, repo.Put(ctx, incident(id, "SD", time.Duration(i)*time.Second)))
			}(i)
		}
		wg.Wait()
		all, err := repo.List(ctx, store.ListOptions{Limit: 100})
		require.NoError(t, err)
		assert.Len(t, all, 20)
	})
}
