package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crimson-sun/healthguard/internal/llm"
	"github.com/crimson-sun/healthguard/internal/model"
)

type fakeGenerator struct {
	reply  string
	err    error
	delay  time.Duration
	system []string
	user   []string
}

func (f *fakeGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	f.system = append(f.system, system)
	f.user = append(f.user, user)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.reply, f.err
}

func fiIncident() model.Incident {
	return model.Incident{
		ID:          "INC-0A1B2C3D",
		Title:       "Posting period 01/2024 locked",
		Description: "Posting period 01/2024 locked: document BKPF 4711 rejected",
		Module:      "FI",
		Severity:    model.SeverityError,
		MonthEnd:    true,
		RawLog: model.RawEvent{
			ChangedObjects: []string{"BKPF"},
			RecentDeploys:  []string{"FI-GL-2024.01.15"},
		},
	}
}

const goodAnalysis = "```json\n" + `{"classification":"FI period lock","probable_root_causes":["period closed early"],"relevant_logs_snippet":["BKPF 4711"],"tags":["fi","period"]}` + "\n```"

const goodPlaybook = `{"title":"Reopen posting period","steps":[{"action":"Check OB52","command_or_API":"OB52","expected_result":"period open","verification":"post test doc","rollback":"close period"}],"required_permissions":["F_BKPF_BUK"],"estimated_time_minutes":15,"confidence":0.8}`

func TestAnalyzeUsesGenerator(t *testing.T) {
	gen := &fakeGenerator{reply: goodAnalysis}
	c := New(gen, WithLogger(zaptest.NewLogger(t)))

	got := c.Analyze(context.Background(), fiIncident())
	require.False(t, got.Fallback, got.Reason)
	assert.Equal(t, "FI period lock", got.Result.Classification)
	assert.Equal(t, []string{"period closed early"}, got.Result.ProbableRootCauses)
	assert.Equal(t, AnalyzePromptHash(), got.Result.PromptHash)
	assert.Len(t, got.Result.PromptHash, 16)

	require.Len(t, gen.user, 1)
	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(gen.user[0]), &sent))
	assert.Equal(t, "FI", sent["module"])
	assert.Equal(t, true, sent["month_end"])
	assert.Equal(t, analyzePrompt, gen.system[0])
}

func TestAnalyzeFallback(t *testing.T) {
	tests := []struct {
		name string
		gen  llm.Generator
	}{
		{"nil generator", nil},
		{"unavailable", &fakeGenerator{err: llm.ErrUnavailable}},
		{"transport error", &fakeGenerator{err: errors.New("connection reset")}},
		{"not json", &fakeGenerator{reply: "I think it is a lock problem"}},
		{"wrong shape", &fakeGenerator{reply: `{"classification":42}`}},
		{"empty classification", &fakeGenerator{reply: `{"classification":"","probable_root_causes":["x"]}`}},
		{"no causes", &fakeGenerator{reply: `{"classification":"x","probable_root_causes":[]}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.gen).Analyze(context.Background(), fiIncident())
			require.True(t, got.Fallback)
			assert.Error(t, got.Reason)
			assert.Equal(t, FallbackAnalysis(fiIncident()), got.Result)
		})
	}
}

func TestAnalyzeTimeoutFallsBack(t *testing.T) {
	gen := &fakeGenerator{reply: goodAnalysis, delay: time.Second}
	got := New(gen, WithTimeout(20*time.Millisecond)).Analyze(context.Background(), fiIncident())
	require.True(t, got.Fallback)
	assert.ErrorIs(t, got.Reason, context.DeadlineExceeded)
}

func TestFallbackAnalysis(t *testing.T) {
	got := FallbackAnalysis(fiIncident())
	assert.Equal(t, "FI ERROR", got.Classification)
	assert.Equal(t, []string{
		"Month-end processing load may be contributing to the issue",
		"Recent deployment may have introduced changes: FI-GL-2024.01.15",
	}, got.ProbableRootCauses)
	assert.Equal(t, []string{fiIncident().Description}, got.RelevantLogsSnippet)
	assert.Equal(t, []string{"FI", "error"}, got.Tags)
	assert.Equal(t, FallbackPromptHash, got.PromptHash)

	quiet := fiIncident()
	quiet.MonthEnd = false
	quiet.RawLog.RecentDeploys = nil
	got = FallbackAnalysis(quiet)
	assert.Equal(t, []string{
		"System resource contention or configuration issue",
		"No recent deployments detected",
	}, got.ProbableRootCauses)
}

func TestSuggestPlaybookUsesGenerator(t *testing.T) {
	gen := &fakeGenerator{reply: goodPlaybook}
	similar := []model.SimilarIncident{{IncidentID: "INC-11111111", SimilarityScore: 0.7}}

	got := New(gen).SuggestPlaybook(context.Background(), fiIncident(), "FI period lock", similar)
	require.False(t, got.Fallback, got.Reason)
	assert.Equal(t, "Reopen posting period", got.Playbook.Title)
	require.Len(t, got.Playbook.Steps, 1)
	assert.Equal(t, "1", got.Playbook.Steps[0].StepID)
	assert.Equal(t, PlaybookPromptHash(), got.Playbook.PromptHash)
	assert.False(t, got.Playbook.RequiresEscalation())

	var sent playbookInput
	require.NoError(t, json.Unmarshal([]byte(gen.user[0]), &sent))
	assert.Equal(t, "FI period lock", sent.Classification)
	assert.True(t, strings.HasPrefix(sent.IncidentSummary, "Posting period 01/2024 locked: "))
	require.Len(t, sent.SimilarIncidents, 1)
	assert.Equal(t, "Standard resolution procedure", sent.SimilarIncidents[0].Resolution)
}

func TestSuggestPlaybookFallback(t *testing.T) {
	for name, reply := range map[string]string{
		"no steps":       `{"title":"x","steps":[],"confidence":0.5}`,
		"no title":       `{"title":"","steps":[{"action":"a"}]}`,
		"step no action": `{"title":"x","steps":[{"step_id":"1"}]}`,
		"bad confidence": `{"title":"x","steps":[{"action":"a"}],"confidence":3}`,
		"negative time":  `{"title":"x","steps":[{"action":"a"}],"estimated_time_minutes":-5}`,
		"garbage":        "```\nnot json\n```",
	} {
		t.Run(name, func(t *testing.T) {
			got := New(&fakeGenerator{reply: reply}).SuggestPlaybook(context.Background(), fiIncident(), "c", nil)
			require.True(t, got.Fallback)
			assert.ErrorIs(t, got.Reason, ErrInvalidOutput)
			assert.Equal(t, FallbackPlaybook(fiIncident()), got.Playbook)
		})
	}
}

func TestFallbackPlaybook(t *testing.T) {
	pb := FallbackPlaybook(fiIncident())
	assert.Equal(t, "Investigate FI ERROR", pb.Title)
	require.Len(t, pb.Steps, 3)
	assert.Equal(t, "Transaction SM21 or SE16 for table BKPF", pb.Steps[0].CommandOrAPI)
	assert.True(t, pb.Steps[2].EscalateRequired)
	assert.True(t, pb.RequiresEscalation())
	assert.Equal(t, []string{"SAP_ALL", "S_ADMI_FCD"}, pb.RequiredPermissions)
	assert.Equal(t, 30, pb.EstimatedTimeMinutes)
	assert.Equal(t, 0.5, pb.Confidence)
	assert.Equal(t, FallbackPromptHash, pb.PromptHash)

	mm := fiIncident()
	mm.Module = "MM"
	assert.Equal(t, "Transaction SM21 or SE16 for table relevant table", FallbackPlaybook(mm).Steps[0].CommandOrAPI)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripFences("  {\"a\":1}  "))
}

func TestPromptHash(t *testing.T) {
	assert.Len(t, PromptHash("x"), 16)
	assert.Equal(t, PromptHash("x"), PromptHash("x"))
	assert.NotEqual(t, AnalyzePromptHash(), PlaybookPromptHash())
}
