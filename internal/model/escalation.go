package model

import (
	"slices"
	"time"
)

// EscalationStatus is the acknowledgment state of an escalation record.
type EscalationStatus string

const (
	EscalationPending      EscalationStatus = "pending"
	EscalationAcknowledged EscalationStatus = "acknowledged"
)

// EscalationRecord requests human intervention with a specific role.
// Only the acknowledgment fields change after creation.
type EscalationRecord struct {
	ID             string           `json:"escalation_id"`
	IncidentID     string           `json:"incident_id"`
	Reason         string           `json:"reason"`
	RequiredRole   string           `json:"required_role"`
	Requester      string           `json:"requester"`
	Status         EscalationStatus `json:"status"`
	Snapshot       map[string]any   `json:"snapshot,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
	AcknowledgedBy string           `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time       `json:"acknowledged_at,omitempty"`
}

// Clone returns a copy of rec that shares no mutable state with it.
func (rec EscalationRecord) Clone() EscalationRecord {
	if rec.Snapshot != nil {
		rec.Snapshot = cloneValue(rec.Snapshot).(map[string]any)
	}
	if rec.AcknowledgedAt != nil {
		at := *rec.AcknowledgedAt
		rec.AcknowledgedAt = &at
	}
	return rec
}

// cloneValue deep-copies the container types a snapshot may hold.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return slices.Clone(val)
	}
	return v
}
