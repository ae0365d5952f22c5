package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/healthguard/internal/audit"
	"github.com/crimson-sun/healthguard/internal/engine/classifier"
	"github.com/crimson-sun/healthguard/internal/engine/decision"
	"github.com/crimson-sun/healthguard/internal/engine/normalize"
	"github.com/crimson-sun/healthguard/internal/engine/risk"
	"github.com/crimson-sun/healthguard/internal/model"
)

const (
	requesterAgent = "agent"

	resolutionResolved = "Resolved via standard procedure"
	resolutionPending  = "Pending resolution"
	unknownTitle       = "Unknown"
)

type analyzeInput struct {
	Incident model.Incident `json:"incident"`
}

type similarInput struct {
	Incident model.Incident `json:"incident"`
	TopK     int            `json:"top_k"`
}

type playbookInput struct {
	Incident         model.Incident          `json:"incident"`
	Classification   string                  `json:"classification"`
	SimilarIncidents []model.SimilarIncident `json:"similar_incidents"`
}

type escalationInput struct {
	IncidentID      string         `json:"incident_id"`
	Reason          string         `json:"reason"`
	RequiredRole    string         `json:"required_role"`
	Requester       string         `json:"requester"`
	ContextSnapshot map[string]any `json:"context_snapshot"`
}

type escalationOutput struct {
	EscalationID string `json:"escalation_id"`
	Reason       string `json:"reason"`
}

// run records audit entries for one operation and remembers whether any failed.
type run struct {
	s          *Service
	incidentID string
	calls      []model.ToolCall
	degraded   bool
}

func (r *run) record(ctx context.Context, e audit.Entry) model.AuditRecord {
	e.IncidentID = r.incidentID
	rec, err := r.s.trail.Append(ctx, e)
	if err != nil {
		r.degraded = true
		r.s.metrics.AuditFailure()
		if !errors.Is(err, audit.ErrSink) {
			r.s.logger.Error("audit record not built", zap.String("tool", e.Tool), zap.Error(err))
		}
	}
	r.calls = append(r.calls, model.ToolCall{Tool: e.Tool, AuditID: rec.ID, InputHash: rec.InputHash})
	return rec
}

// recoverInternal turns a panic into an ErrInternal failure.
func recoverInternal(log *zap.Logger, op string, err *error) {
	if r := recover(); r != nil {
		log.Error("recovered panic", zap.String("op", op), zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
		*err = fmt.Errorf("%w: %s: %v", ErrInternal, op, r)
	}
}

// Analyze runs the full triage of one stored incident. Classification and
// the similarity lookup run concurrently; risk, playbook and decision follow,
// and the audit records are appended in stage order. A nil m uses the
// configured metrics source.
//
// Generator problems never fail an analysis; they produce fallback sections.
// Audit sink failures set AuditDegraded on the result.
func (s *Service) Analyze(ctx context.Context, incidentID string, m *model.SystemMetrics) (out model.AnalysisOutput, err error) {
	defer func() {
		if err != nil {
			out = model.AnalysisOutput{}
		}
	}()
	defer recoverInternal(s.logger, "analyze", &err)

	if incidentID == "" {
		return out, missingFields("incident_id")
	}
	inc, err := s.repo.Get(ctx, incidentID)
	if err != nil {
		return out, fmt.Errorf("pipeline: analyze: %w", err)
	}

	sys := s.source.Current(ctx)
	if m != nil {
		sys = *m
	}

	var (
		analysis classifier.Analysis
		similar  []model.SimilarIncident
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer recoverInternal(s.logger, "classification", &err)
		analysis = s.classifier.Analyze(gctx, inc)
		return nil
	})
	g.Go(func() (err error) {
		defer recoverInternal(s.logger, "similarity", &err)
		similar, err = s.findSimilar(gctx, inc)
		return err
	})
	if err := g.Wait(); err != nil {
		return out, err
	}

	r := &run{s: s, incidentID: inc.ID}
	cycle := decision.NewCycle(inc.ID)

	summary := analysis.Result.Classification
	if analysis.Fallback {
		summary = audit.FallbackPrefix + summary
		s.metrics.Fallback(string(decision.StageClassification))
	}
	r.record(ctx, audit.Entry{
		Tool:    audit.ToolAnalyzeIncident,
		Input:   analyzeInput{Incident: inc},
		Summary: summary,
		Output:  analysis.Result,
	})

	r.record(ctx, audit.Entry{
		Tool:    audit.ToolFindSimilarIncidents,
		Input:   similarInput{Incident: inc, TopK: s.topK},
		Summary: fmt.Sprintf("Found %d similar incidents", len(similar)),
		Output:  similar,
	})

	riskIn := risk.Input{Incident: inc, Metrics: sys, SimilarCount: len(similar)}
	assessment := risk.Assess(riskIn)
	r.record(ctx, audit.Entry{
		Tool:    audit.ToolPredictRisk,
		Input:   riskIn,
		Summary: risk.Summary(assessment),
		Output:  assessment,
	})

	pb := s.classifier.SuggestPlaybook(ctx, inc, analysis.Result.Classification, similar)
	summary = fmt.Sprintf("Generated %d step playbook", len(pb.Playbook.Steps))
	if pb.Fallback {
		summary = audit.FallbackPrefix + "Generated default playbook"
		s.metrics.Fallback(string(decision.StagePlaybook))
	}
	r.record(ctx, audit.Entry{
		Tool:    audit.ToolSuggestPlaybook,
		Input:   playbookInput{Incident: inc, Classification: analysis.Result.Classification, SimilarIncidents: similar},
		Summary: summary,
		Output:  pb.Playbook,
	})

	if err := cycle.MarkAnalyzed(decision.StageClassification, decision.StageSimilarity, decision.StageRisk, decision.StagePlaybook); err != nil {
		return out, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	outcome, err := cycle.Decide(assessment, pb.Playbook)
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	out = model.AnalysisOutput{
		IncidentID:       inc.ID,
		AgentVersion:     AgentVersion,
		Analysis:         analysis.Result,
		SimilarIncidents: similar,
		Risk:             assessment,
		Playbook:         pb.Playbook,
		Decision:         outcome.Decision,
	}

	// Status first: a failed write must not leave an escalation or audit
	// record behind for an incident that still reads as open.
	if err := s.repo.UpdateStatus(ctx, inc.ID, cycle.IncidentStatus()); err != nil {
		return out, fmt.Errorf("pipeline: analyze %s: update status: %w", inc.ID, err)
	}

	if outcome.Escalates() {
		snapshot := map[string]any{
			"classification":       analysis.Result.Classification,
			"risk_score":           assessment.Score,
			"contributing_factors": assessment.ContributingFactors,
		}
		rec, err := s.openEscalation(ctx, r, inc.ID, outcome.Reason, outcome.RequiredRole, requesterAgent, snapshot)
		if err != nil {
			return out, err
		}
		out.Escalation = &model.EscalationRef{ID: rec.ID, Reason: rec.Reason, RequiredRole: rec.RequiredRole}
	}

	out.AuditTrail = model.AuditTrail{
		ToolCalls: r.calls,
		PromptHashes: model.PromptHashes{
			Analysis: analysis.Result.PromptHash,
			Playbook: pb.Playbook.PromptHash,
		},
	}
	out.AuditDegraded = r.degraded
	s.metrics.AnalysisCompleted(string(outcome.Decision))
	s.logger.Info("incident analyzed",
		zap.String("incident_id", inc.ID),
		zap.String("decision", string(outcome.Decision)),
		zap.Float64("risk_score", assessment.Score),
		zap.Bool("audit_degraded", r.degraded),
	)
	return out, nil
}

// findSimilar queries the index and enriches each match from the repository.
func (s *Service) findSimilar(ctx context.Context, inc model.Incident) ([]model.SimilarIncident, error) {
	start := time.Now()
	matches := s.index.Query(normalize.QueryText(inc), s.topK, inc.ID)
	s.metrics.ObserveSimilarityQuery(time.Since(start))

	out := make([]model.SimilarIncident, 0, len(matches))
	for _, m := range matches {
		sim := model.SimilarIncident{
			IncidentID:      m.IncidentID,
			SimilarityScore: m.Score,
			Title:           unknownTitle,
			Resolution:      resolutionPending,
		}
		other, err := s.repo.Get(ctx, m.IncidentID)
		switch {
		case err == nil:
			sim.Title = other.Title
			sim.MonthEndFlag = other.MonthEnd
			if other.Status == model.StatusResolved {
				sim.Resolution = resolutionResolved
			}
		case errors.Is(err, ErrNotFound):
			// Indexed but no longer stored; keep the placeholder title.
		default:
			return nil, fmt.Errorf("pipeline: similar %s: %w", m.IncidentID, err)
		}
		out = append(out, sim)
	}
	return out, nil
}
