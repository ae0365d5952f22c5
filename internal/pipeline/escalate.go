package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crimson-sun/healthguard/internal/audit"
	"github.com/crimson-sun/healthguard/internal/engine/decision"
	"github.com/crimson-sun/healthguard/internal/model"
)

const (
	defaultRequester = "api_user"
	defaultAckActor  = "admin"
)

// EscalateRequest is a manual request for human intervention.
type EscalateRequest struct {
	IncidentID   string `json:"incident_id"`
	Reason       string `json:"reason"`
	RequiredRole string `json:"required_role"`
	Requester    string `json:"requester,omitempty"`
}

// EscalateResult acknowledges a created escalation.
type EscalateResult struct {
	Ack           bool   `json:"ack"`
	EscalationID  string `json:"escalation_id"`
	AuditID       string `json:"audit_id"`
	AuditDegraded bool   `json:"audit_degraded,omitempty"`
}

// AckResult confirms an acknowledgment.
type AckResult struct {
	EscalationID   string                 `json:"escalation_id"`
	Status         model.EscalationStatus `json:"status"`
	AcknowledgedBy string                 `json:"acknowledged_by"`
	Timestamp      time.Time              `json:"timestamp"`
	AuditDegraded  bool                   `json:"audit_degraded,omitempty"`
}

// Escalate opens a pending escalation for an incident and marks it escalated.
func (s *Service) Escalate(ctx context.Context, req EscalateRequest) (res EscalateResult, err error) {
	defer recoverInternal(s.logger, "escalate", &err)

	var missing []string
	if strings.TrimSpace(req.IncidentID) == "" {
		missing = append(missing, "incident_id")
	}
	if strings.TrimSpace(req.Reason) == "" {
		missing = append(missing, "reason")
	}
	if strings.TrimSpace(req.RequiredRole) == "" {
		missing = append(missing, "required_role")
	}
	if len(missing) > 0 {
		return EscalateResult{}, missingFields(missing...)
	}
	if req.Requester == "" {
		req.Requester = defaultRequester
	}

	if _, err := s.repo.Get(ctx, req.IncidentID); err != nil {
		return EscalateResult{}, fmt.Errorf("pipeline: escalate: %w", err)
	}

	cycle := decision.NewCycle(req.IncidentID)
	outcome, err := cycle.Escalate(req.Reason, req.RequiredRole)
	if err != nil {
		return EscalateResult{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	if err := s.repo.UpdateStatus(ctx, req.IncidentID, cycle.IncidentStatus()); err != nil {
		return EscalateResult{}, fmt.Errorf("pipeline: escalate %s: update status: %w", req.IncidentID, err)
	}
	r := &run{s: s, incidentID: req.IncidentID}
	rec, err := s.openEscalation(ctx, r, req.IncidentID, outcome.Reason, outcome.RequiredRole, req.Requester, map[string]any{"source": "api_request"})
	if err != nil {
		return EscalateResult{}, err
	}
	return EscalateResult{
		Ack:           true,
		EscalationID:  rec.ID,
		AuditID:       r.calls[len(r.calls)-1].AuditID,
		AuditDegraded: r.degraded,
	}, nil
}

// openEscalation stores a pending escalation record and audits it.
func (s *Service) openEscalation(ctx context.Context, r *run, incidentID, reason, role, requester string, snapshot map[string]any) (model.EscalationRecord, error) {
	rec := model.EscalationRecord{
		ID:           s.newEscalationID(),
		IncidentID:   incidentID,
		Reason:       reason,
		RequiredRole: role,
		Requester:    requester,
		Status:       model.EscalationPending,
		Snapshot:     snapshot,
		Timestamp:    s.now(),
	}

	s.escMu.Lock()
	err := s.repo.PutEscalation(ctx, rec)
	s.escMu.Unlock()
	if err != nil {
		return model.EscalationRecord{}, fmt.Errorf("pipeline: escalation %s: %w", rec.ID, err)
	}

	r.record(ctx, audit.Entry{
		Tool: audit.ToolEscalateToHuman,
		Input: escalationInput{
			IncidentID:      incidentID,
			Reason:          reason,
			RequiredRole:    role,
			Requester:       requester,
			ContextSnapshot: snapshot,
		},
		Summary: fmt.Sprintf("Escalation %s created for %s", rec.ID, role),
		Output:  escalationOutput{EscalationID: rec.ID, Reason: reason},
	})

	source := "api"
	if requester == requesterAgent {
		source = requesterAgent
	}
	s.metrics.EscalationCreated(source)
	s.logger.Info("escalation created",
		zap.String("escalation_id", rec.ID),
		zap.String("incident_id", incidentID),
		zap.String("required_role", role),
		zap.String("requester", requester),
	)
	return rec, nil
}

// Acknowledge records that a human has taken over a pending escalation.
// Acknowledging twice returns ErrAlreadyAcknowledged.
func (s *Service) Acknowledge(ctx context.Context, escalationID, acknowledgedBy string) (res AckResult, err error) {
	defer recoverInternal(s.logger, "acknowledge", &err)

	if strings.TrimSpace(escalationID) == "" {
		return AckResult{}, missingFields("escalation_id")
	}
	if acknowledgedBy == "" {
		acknowledgedBy = defaultAckActor
	}

	s.escMu.Lock()
	rec, err := s.acknowledgeLocked(ctx, escalationID, acknowledgedBy)
	s.escMu.Unlock()
	if err != nil {
		return AckResult{}, err
	}

	res = AckResult{
		EscalationID:   rec.ID,
		Status:         rec.Status,
		AcknowledgedBy: rec.AcknowledgedBy,
		Timestamp:      *rec.AcknowledgedAt,
	}
	r := &run{s: s, incidentID: rec.IncidentID}
	r.record(ctx, audit.Entry{
		Tool:    audit.ToolAcknowledgeEscalation,
		Input:   map[string]any{"escalation_id": rec.ID, "acknowledged_by": acknowledgedBy},
		Summary: fmt.Sprintf("Escalation %s acknowledged by %s", rec.ID, acknowledgedBy),
		Output:  res,
	})
	res.AuditDegraded = r.degraded
	s.logger.Info("escalation acknowledged",
		zap.String("escalation_id", rec.ID),
		zap.String("incident_id", rec.IncidentID),
		zap.String("acknowledged_by", acknowledgedBy),
		zap.Bool("audit_degraded", r.degraded),
	)
	return res, nil
}

func (s *Service) acknowledgeLocked(ctx context.Context, escalationID, actor string) (model.EscalationRecord, error) {
	rec, err := s.repo.GetEscalation(ctx, escalationID)
	if err != nil {
		return model.EscalationRecord{}, fmt.Errorf("pipeline: acknowledge: %w", err)
	}
	cycle := decision.Resume(rec.IncidentID, rec)
	at := s.now()
	if err := cycle.Acknowledge(actor, at); err != nil {
		if errors.Is(err, decision.ErrInvalidTransition) {
			return model.EscalationRecord{}, fmt.Errorf("%w: %s", ErrAlreadyAcknowledged, escalationID)
		}
		return model.EscalationRecord{}, err
	}

	rec.Status = model.EscalationAcknowledged
	rec.AcknowledgedBy = actor
	rec.AcknowledgedAt = &at
	if err := s.repo.PutEscalation(ctx, rec); err != nil {
		return model.EscalationRecord{}, fmt.Errorf("pipeline: acknowledge %s: %w", escalationID, err)
	}
	return rec, nil
}
