// Package decision holds the escalation state machine of one triage cycle.
//
// A Cycle starts OPEN, becomes ANALYZED once every analysis stage has run,
// then branches to PROCEED_WITH_PLAYBOOK or ESCALATED. An escalation leaves
// ESCALATED only through Acknowledge.
package decision

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/crimson-sun/healthguard/internal/model"
)

// RequiredRole is the operator role every automatic escalation asks for.
const RequiredRole = "SAP_ADMIN"

// ReasonElevatedSteps is the escalation reason when the playbook, not the risk, forces review.
const ReasonElevatedSteps = "Playbook contains steps requiring elevated permissions"

// ErrInvalidTransition is returned when a transition is not allowed from the current state.
var ErrInvalidTransition = errors.New("decision: invalid transition")

// State is a position in the triage cycle.
type State string

const (
	StateOpen         State = "OPEN"
	StateAnalyzed     State = "ANALYZED"
	StateProceed      State = "PROCEED_WITH_PLAYBOOK"
	StateEscalated    State = "ESCALATED"
	StateAcknowledged State = "ACKNOWLEDGED"
)

// Stage is one analysis step that must complete before a decision.
type Stage string

const (
	StageClassification Stage = "classification"
	StageSimilarity     Stage = "similarity"
	StageRisk           Stage = "risk"
	StagePlaybook       Stage = "playbook"
)

var requiredStages = []Stage{StageClassification, StageSimilarity, StageRisk, StagePlaybook}

// Outcome is the result of evaluating a risk assessment and a playbook.
type Outcome struct {
	Decision     model.Decision
	Reason       string
	RequiredRole string
}

// Escalates reports whether the outcome asks for a human.
func (o Outcome) Escalates() bool { return o.Decision == model.DecisionEscalate }

// Evaluate decides without touching any state. It escalates iff the risk
// requires it or any playbook step is marked escalate_required.
func Evaluate(risk model.RiskAssessment, playbook model.Playbook) Outcome {
	switch {
	case risk.RequiresEscalation:
		return Outcome{
			Decision:     model.DecisionEscalate,
			Reason:       RiskReason(risk.Score),
			RequiredRole: RequiredRole,
		}
	case playbook.RequiresEscalation():
		return Outcome{
			Decision:     model.DecisionEscalate,
			Reason:       ReasonElevatedSteps,
			RequiredRole: RequiredRole,
		}
	}
	return Outcome{Decision: model.DecisionProceed}
}

// RiskReason formats the escalation reason for a high risk score.
func RiskReason(score float64) string {
	return fmt.Sprintf("High risk score (%s) requires human review", strconv.FormatFloat(score, 'f', -1, 64))
}

// Cycle tracks one incident through analysis, decision and acknowledgment.
// It is not safe for concurrent use; each Analyze call owns its own Cycle.
type Cycle struct {
	incidentID string
	state      State
	stages     map[Stage]bool
	outcome    Outcome

	acknowledgedBy string
	acknowledgedAt time.Time
}

// NewCycle starts a cycle at OPEN.
func NewCycle(incidentID string) *Cycle {
	return &Cycle{
		incidentID: incidentID,
		state:      StateOpen,
		stages:     make(map[Stage]bool, len(requiredStages)),
	}
}

// Resume reconstructs a cycle already escalated, for example from a stored escalation record.
func Resume(incidentID string, rec model.EscalationRecord) *Cycle {
	c := NewCycle(incidentID)
	c.state = StateEscalated
	c.outcome = Outcome{Decision: model.DecisionEscalate, Reason: rec.Reason, RequiredRole: rec.RequiredRole}
	if rec.Status == model.EscalationAcknowledged {
		c.state = StateAcknowledged
		c.acknowledgedBy = rec.AcknowledgedBy
		if rec.AcknowledgedAt != nil {
			c.acknowledgedAt = *rec.AcknowledgedAt
		}
	}
	return c
}

func (c *Cycle) IncidentID() string { return c.incidentID }
func (c *Cycle) State() State       { return c.state }
func (c *Cycle) Outcome() Outcome   { return c.outcome }

// Acknowledged returns who acknowledged the escalation and when.
func (c *Cycle) Acknowledged() (string, time.Time) {
	return c.acknowledgedBy, c.acknowledgedAt
}

func (c *Cycle) invalid(op string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, c.state)
}

// MarkAnalyzed records the completed stages and moves OPEN -> ANALYZED.
// Every required stage must be present.
func (c *Cycle) MarkAnalyzed(stages ...Stage) error {
	if c.state != StateOpen {
		return c.invalid("mark analyzed")
	}
	for _, s := range stages {
		c.stages[s] = true
	}
	var missing []string
	for _, s := range requiredStages {
		if !c.stages[s] {
			missing = append(missing, string(s))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: mark analyzed: missing stages %s", ErrInvalidTransition, strings.Join(missing, ", "))
	}
	c.state = StateAnalyzed
	return nil
}

// Decide moves ANALYZED -> PROCEED_WITH_PLAYBOOK or ESCALATED.
func (c *Cycle) Decide(risk model.RiskAssessment, playbook model.Playbook) (Outcome, error) {
	if c.state != StateAnalyzed {
		return Outcome{}, c.invalid("decide")
	}
	c.outcome = Evaluate(risk, playbook)
	if c.outcome.Escalates() {
		c.state = StateEscalated
	} else {
		c.state = StateProceed
	}
	return c.outcome, nil
}

// Escalate is the manual entry into ESCALATED. Any state other than
// ESCALATED may be escalated by an operator; a new record is opened each time.
func (c *Cycle) Escalate(reason, role string) (Outcome, error) {
	if c.state == StateEscalated {
		return Outcome{}, c.invalid("escalate")
	}
	c.outcome = Outcome{Decision: model.DecisionEscalate, Reason: reason, RequiredRole: role}
	c.state = StateEscalated
	c.acknowledgedBy = ""
	c.acknowledgedAt = time.Time{}
	return c.outcome, nil
}

// Acknowledge moves ESCALATED -> ACKNOWLEDGED. It is the only exit from ESCALATED.
func (c *Cycle) Acknowledge(actor string, at time.Time) error {
	if c.state != StateEscalated {
		return c.invalid("acknowledge")
	}
	c.state = StateAcknowledged
	c.acknowledgedBy = actor
	c.acknowledgedAt = at
	return nil
}

// IncidentStatus maps the cycle state to the status stored on the incident.
func (c *Cycle) IncidentStatus() model.IncidentStatus {
	return StatusFor(c.state)
}

// StatusFor maps a cycle state to an incident status.
func StatusFor(s State) model.IncidentStatus {
	switch s {
	case StateAnalyzed, StateProceed:
		return model.StatusAnalyzing
	case StateEscalated, StateAcknowledged:
		return model.StatusEscalated
	}
	return model.StatusOpen
}
