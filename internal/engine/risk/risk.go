// Package risk computes a deterministic, explainable operational-risk score.
package risk

import (
	"fmt"
	"math"

	"github.com/crimson-sun/healthguard/internal/model"
)

const (
	// Divisor normalizes raw points. The rules can sum to 120, so scores clamp at 1.
	Divisor = 100

	HighThreshold       = 0.7
	MediumThreshold     = 0.4
	EscalationThreshold = 0.8

	dbLatencyLimitMS = 200
	cpuLimitPercent  = 75
	recurrenceCount  = 3
)

// Input is everything a risk assessment depends on.
type Input struct {
	Incident     model.Incident      `json:"incident"`
	Metrics      model.SystemMetrics `json:"system_metrics"`
	SimilarCount int                 `json:"similar_count"`
}

// Rule is one independent additive contribution to the raw score.
type Rule struct {
	Name   string
	Points int
	// Applies returns the factor and preventive action when the rule fires.
	Applies func(in Input) (factor, action string, ok bool)
}

// Rules returns the scoring rules in evaluation order.
func Rules() []Rule {
	return []Rule{
		{Name: "month_end", Points: 40, Applies: func(in Input) (string, string, bool) {
			return "Month-end processing period - historically high incident rate",
				"Enable enhanced monitoring during month-end close",
				in.Incident.MonthEnd
		}},
		{Name: "db_latency", Points: 20, Applies: func(in Input) (string, string, bool) {
			return fmt.Sprintf("Elevated database latency: %sms (threshold: %dms)", formatNumber(in.Metrics.DBLatencyMS), dbLatencyLimitMS),
				"Review database performance and consider index optimization",
				in.Metrics.DBLatencyMS > dbLatencyLimitMS
		}},
		{Name: "cpu_load", Points: 20, Applies: func(in Input) (string, string, bool) {
			return fmt.Sprintf("High CPU utilization: %s%% (threshold: %d%%)", formatNumber(in.Metrics.CPUPercent), cpuLimitPercent),
				"Scale compute resources or optimize batch job scheduling",
				in.Metrics.CPUPercent > cpuLimitPercent
		}},
		{Name: "recurrence", Points: 20, Applies: func(in Input) (string, string, bool) {
			return fmt.Sprintf("Recurring issue pattern: %d similar incidents found", in.SimilarCount),
				"Conduct root cause analysis to address underlying issue",
				in.SimilarCount >= recurrenceCount
		}},
		{Name: "severity", Points: 10, Applies: func(in Input) (string, string, bool) {
			return "Error severity level indicates potential business impact",
				"Prioritize resolution to prevent further escalation",
				in.Incident.Severity == model.SeverityError
		}},
		{Name: "recent_change", Points: 10, Applies: func(in Input) (string, string, bool) {
			deploys := in.Incident.RawLog.RecentDeploys
			if len(deploys) == 0 {
				return "", "", false
			}
			return "Recent deployment detected: " + deploys[0],
				"Review recent changes for potential regression",
				true
		}},
	}
}

var defaultRules = Rules()

// Assess scores in with the default rules.
func Assess(in Input) model.RiskAssessment {
	return AssessWith(defaultRules, in)
}

// AssessWith scores in with the given rules. It has no side effects: the same
// input always yields the same assessment.
func AssessWith(rules []Rule, in Input) model.RiskAssessment {
	points := 0
	factors := []string{}
	actions := []string{}
	for _, r := range rules {
		factor, action, ok := r.Applies(in)
		if !ok {
			continue
		}
		points += r.Points
		factors = append(factors, factor)
		actions = append(actions, action)
	}

	score := Normalize(points)
	return model.RiskAssessment{
		Score:               math.Round(score*100) / 100,
		Level:               Level(score),
		ContributingFactors: factors,
		PreventiveActions:   actions,
		RequiresEscalation:  score >= EscalationThreshold,
	}
}

// Normalize maps raw points onto [0, 1].
func Normalize(points int) float64 {
	if points <= 0 {
		return 0
	}
	return math.Min(float64(points)/Divisor, 1)
}

// Level buckets a normalized score.
func Level(score float64) model.RiskLevel {
	switch {
	case score >= HighThreshold:
		return model.RiskHigh
	case score >= MediumThreshold:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// Summary is the short audit description of an assessment.
func Summary(a model.RiskAssessment) string {
	return fmt.Sprintf("Risk: %s (%s)", a.Level, formatNumber(a.Score))
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%g", v)
}
