// Package classifier produces the incident classification and the
// remediation playbook through a text generator. Generator output is
// untrusted: it is decoded into typed structs and shape-checked, and any
// failure yields the deterministic rule-based result instead of an error.
package classifier

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crimson-sun/healthguard/internal/llm"
	"github.com/crimson-sun/healthguard/internal/model"
)

// FallbackPromptHash marks results produced without a generator.
const FallbackPromptHash = "fallback_no_llm"

const defaultTimeout = 15 * time.Second

var (
	//go:embed prompts/analyze.txt
	analyzePrompt string
	//go:embed prompts/playbook.txt
	playbookPrompt string
)

// ErrInvalidOutput is wrapped when generator output fails decoding or validation.
var ErrInvalidOutput = errors.New("classifier: invalid generator output")

// Option configures a Classifier.
type Option func(*Classifier)

// WithTimeout bounds each generator call. Default: 15s.
func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) { c.timeout = d }
}

// WithLogger sets the logger used to report fallbacks.
func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) { c.logger = l }
}

// Classifier calls the generator and validates what comes back.
type Classifier struct {
	gen     llm.Generator
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a Classifier. A nil generator always uses the fallback.
func New(gen llm.Generator, opts ...Option) *Classifier {
	c := &Classifier{
		gen:     gen,
		timeout: defaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analysis is a classification plus how it was produced.
type Analysis struct {
	Result   model.AnalysisResult
	Fallback bool
	Reason   error // why the fallback was used
}

// PlaybookResult is a playbook plus how it was produced.
type PlaybookResult struct {
	Playbook model.Playbook
	Fallback bool
	Reason   error
}

// PromptHash is the first 16 hex characters of sha256 over prompt.
func PromptHash(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])[:16]
}

// AnalyzePromptHash identifies the classification prompt.
func AnalyzePromptHash() string { return PromptHash(analyzePrompt) }

// PlaybookPromptHash identifies the playbook prompt.
func PlaybookPromptHash() string { return PromptHash(playbookPrompt) }

type analyzeInput struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Module      string        `json:"module"`
	Severity    string        `json:"severity"`
	MonthEnd    bool          `json:"month_end"`
	RawLog      analyzeRawLog `json:"raw_log"`
}

type analyzeRawLog struct {
	ChangedObjects []string `json:"changed_objects"`
	RecentDeploys  []string `json:"recent_deploys"`
}

type playbookInput struct {
	IncidentSummary  string           `json:"incident_summary"`
	Classification   string           `json:"classification"`
	Module           string           `json:"module"`
	SimilarIncidents []similarSummary `json:"similar_incidents"`
}

type similarSummary struct {
	IncidentID string `json:"incident_id"`
	Resolution string `json:"resolution"`
}

// Analyze classifies inc. It never fails; on any generator problem the
// rule-based classification is returned with Fallback set.
func (c *Classifier) Analyze(ctx context.Context, inc model.Incident) Analysis {
	in := analyzeInput{
		Title:       inc.Title,
		Description: inc.Description,
		Module:      inc.Module,
		Severity:    string(inc.Severity),
		MonthEnd:    inc.MonthEnd,
		RawLog: analyzeRawLog{
			ChangedObjects: nonNil(inc.RawLog.ChangedObjects),
			RecentDeploys:  nonNil(inc.RawLog.RecentDeploys),
		},
	}
	raw, err := c.generate(ctx, analyzePrompt, in)
	if err == nil {
		var res model.AnalysisResult
		if res, err = decodeAnalysis(raw); err == nil {
			res.PromptHash = AnalyzePromptHash()
			return Analysis{Result: res}
		}
	}
	c.logger.Warn("classification fallback", zap.String("incident_id", inc.ID), zap.Error(err))
	return Analysis{Result: FallbackAnalysis(inc), Fallback: true, Reason: err}
}

// SuggestPlaybook produces a remediation plan. Like Analyze it never fails.
func (c *Classifier) SuggestPlaybook(ctx context.Context, inc model.Incident, classification string, similar []model.SimilarIncident) PlaybookResult {
	in := playbookInput{
		IncidentSummary:  inc.Title + ": " + inc.Description,
		Classification:   classification,
		Module:           inc.Module,
		SimilarIncidents: make([]similarSummary, 0, len(similar)),
	}
	for _, s := range similar {
		res := s.Resolution
		if res == "" {
			res = "Standard resolution procedure"
		}
		in.SimilarIncidents = append(in.SimilarIncidents, similarSummary{IncidentID: s.IncidentID, Resolution: res})
	}
	raw, err := c.generate(ctx, playbookPrompt, in)
	if err == nil {
		var pb model.Playbook
		if pb, err = decodePlaybook(raw); err == nil {
			pb.PromptHash = PlaybookPromptHash()
			return PlaybookResult{Playbook: pb}
		}
	}
	c.logger.Warn("playbook fallback", zap.String("incident_id", inc.ID), zap.Error(err))
	return PlaybookResult{Playbook: FallbackPlaybook(inc), Fallback: true, Reason: err}
}

func (c *Classifier) generate(ctx context.Context, system string, input any) (string, error) {
	if c.gen == nil {
		return "", llm.ErrUnavailable
	}
	user, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return "", fmt.Errorf("classifier: marshal input: %w", err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.gen.Generate(ctx, system, string(user))
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[3:]
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func decodeAnalysis(raw string) (model.AnalysisResult, error) {
	var res model.AnalysisResult
	if err := json.Unmarshal([]byte(stripFences(raw)), &res); err != nil {
		return res, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	if strings.TrimSpace(res.Classification) == "" {
		return res, fmt.Errorf("%w: empty classification", ErrInvalidOutput)
	}
	if len(res.ProbableRootCauses) == 0 {
		return res, fmt.Errorf("%w: no root causes", ErrInvalidOutput)
	}
	res.RelevantLogsSnippet = nonNil(res.RelevantLogsSnippet)
	res.Tags = nonNil(res.Tags)
	return res, nil
}

func decodePlaybook(raw string) (model.Playbook, error) {
	var pb model.Playbook
	if err := json.Unmarshal([]byte(stripFences(raw)), &pb); err != nil {
		return pb, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	if strings.TrimSpace(pb.Title) == "" {
		return pb, fmt.Errorf("%w: empty title", ErrInvalidOutput)
	}
	if len(pb.Steps) == 0 {
		return pb, fmt.Errorf("%w: no steps", ErrInvalidOutput)
	}
	for i := range pb.Steps {
		if strings.TrimSpace(pb.Steps[i].Action) == "" {
			return pb, fmt.Errorf("%w: step %d has no action", ErrInvalidOutput, i+1)
		}
		if pb.Steps[i].StepID == "" {
			pb.Steps[i].StepID = fmt.Sprint(i + 1)
		}
	}
	if pb.Confidence < 0 || pb.Confidence > 1 {
		return pb, fmt.Errorf("%w: confidence %v out of range", ErrInvalidOutput, pb.Confidence)
	}
	if pb.EstimatedTimeMinutes < 0 {
		return pb, fmt.Errorf("%w: negative estimated time", ErrInvalidOutput)
	}
	pb.RequiredPermissions = nonNil(pb.RequiredPermissions)
	return pb, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
