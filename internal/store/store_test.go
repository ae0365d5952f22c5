package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/crimson-sun/healthguard/internal/model"
)

var t0 = time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)

func inc(id, module string, sev model.Severity, created time.Time) model.Incident {
	return model.Incident{ID: id, Module: module, Severity: sev, Status: model.StatusOpen, CreatedAt: created}
}

func ids(incs []model.Incident) []string {
	var out []string
	for _, i := range incs {
		out = append(out, i.ID)
	}
	return out
}

func TestSelectIncidentsOrderAndLimit(t *testing.T) {
	all := []model.Incident{
		inc("a", "FI", model.SeverityError, t0),
		inc("b", "MM", model.SeverityWarning, t0.Add(time.Hour)),
		inc("c", "FI", model.SeverityInfo, t0),
	}
	assert.Equal(t, []string{"b", "c", "a"}, ids(SelectIncidents(all, ListOptions{})))
	assert.Equal(t, []string{"b"}, ids(SelectIncidents(all, ListOptions{Limit: 1})))
	assert.Equal(t, []string{"c", "a"}, ids(SelectIncidents(all, ListOptions{Module: "fi"})))
	assert.Equal(t, []string{"a"}, ids(SelectIncidents(all, ListOptions{Module: "FI", Severity: "error"})))
	assert.Empty(t, SelectIncidents(all, ListOptions{Status: model.StatusEscalated}))
}

func TestSelectIncidentsFiltersBeforeLimit(t *testing.T) {
	all := []model.Incident{
		inc("fi", "FI", model.SeverityError, t0),
		inc("mm", "MM", model.SeverityError, t0.Add(time.Hour)),
	}
	assert.Equal(t, []string{"fi"}, ids(SelectIncidents(all, ListOptions{Limit: 1, Module: "FI"})))
}

func TestSelectIncidentsDefaultLimit(t *testing.T) {
	var all []model.Incident
	for i := 0; i < DefaultLimit+10; i++ {
		all = append(all, inc("x", "FI", model.SeverityInfo, t0))
	}
	assert.Len(t, SelectIncidents(all, ListOptions{}), DefaultLimit)
}

func TestSelectEscalations(t *testing.T) {
	recs := []model.EscalationRecord{
		{ID: "e1", IncidentID: "INC-1", Status: model.EscalationPending, Timestamp: t0},
		{ID: "e2", IncidentID: "INC-2", Status: model.EscalationAcknowledged, Timestamp: t0.Add(time.Minute)},
		{ID: "e3", IncidentID: "INC-1", Status: model.EscalationPending, Timestamp: t0.Add(2 * time.Minute)},
	}
	got := SelectEscalations(recs, EscalationFilter{Status: model.EscalationPending})
	assert.Equal(t, "e3", got[0].ID)
	assert.Equal(t, "e1", got[1].ID)
	assert.Len(t, SelectEscalations(recs, EscalationFilter{IncidentID: "INC-2"}), 1)
	assert.Len(t, SelectEscalations(recs, EscalationFilter{}), 3)
}
