package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/healthguard/internal/engine/taxonomy"
	"github.com/crimson-sun/healthguard/internal/model"
)

const (
	maxTitleColon = 50
	maxTitleLen   = 50
)

// FieldError reports a missing or malformed field on a raw event.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("normalize: %s: %s", e.Field, e.Reason)
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock overrides the time source used for CreatedAt and missing timestamps.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// WithIDFunc overrides incident id generation.
func WithIDFunc(f func() string) Option {
	return func(n *Normalizer) { n.newID = f }
}

// Normalizer turns raw events into incidents.
type Normalizer struct {
	taxonomy *taxonomy.Taxonomy
	now      func() time.Time
	newID    func() string
}

// New creates a Normalizer that tags incidents using tax.
func New(tax *taxonomy.Taxonomy, opts ...Option) *Normalizer {
	n := &Normalizer{
		taxonomy: tax,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    NewIncidentID,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NewIncidentID returns an id of the form INC-XXXXXXXX.
func NewIncidentID() string {
	return "INC-" + strings.ToUpper(uuid.NewString()[:8])
}

// Normalize validates raw and converts it into an open incident.
func (n *Normalizer) Normalize(raw model.RawEvent) (model.Incident, error) {
	raw.Module = strings.ToUpper(strings.TrimSpace(raw.Module))
	raw.Severity = model.Severity(strings.ToUpper(string(raw.Severity)))
	if err := Validate(raw); err != nil {
		return model.Incident{}, err
	}

	now := n.now()
	ts := raw.Timestamp
	if ts.IsZero() {
		ts = now
		raw.Timestamp = now
	}

	return model.Incident{
		ID:          n.newID(),
		Title:       ExtractTitle(raw.Message, raw.Module),
		Description: raw.Message,
		Module:      raw.Module,
		Severity:    raw.Severity,
		Timestamp:   ts,
		MonthEnd:    raw.MonthEnd,
		RawLog:      raw,
		Tags:        n.taxonomy.Tags(raw.Module, raw.Severity, raw.MonthEnd, len(raw.RecentDeploys) > 0),
		Status:      model.StatusOpen,
		CreatedAt:   now,
	}, nil
}

// Validate checks the fields every raw event must carry.
func Validate(raw model.RawEvent) error {
	if strings.TrimSpace(raw.Module) == "" {
		return &FieldError{Field: "module", Reason: "required"}
	}
	if strings.TrimSpace(raw.Message) == "" {
		return &FieldError{Field: "message", Reason: "required"}
	}
	if raw.Severity == "" {
		return &FieldError{Field: "severity", Reason: "required"}
	}
	if !raw.Severity.Valid() {
		return &FieldError{Field: "severity", Reason: fmt.Sprintf("unknown value %q", raw.Severity)}
	}
	return nil
}

// ExtractTitle returns the text before the first colon when it is short enough,
// otherwise the module code followed by the (truncated) message.
func ExtractTitle(message, module string) string {
	if i := strings.Index(message, ":"); i > 0 && i < maxTitleColon {
		return strings.TrimSpace(message[:i])
	}
	return module + ": " + truncate(message, maxTitleLen)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// SearchableText is the lower-cased document text indexed for an incident.
func SearchableText(inc model.Incident) string {
	parts := []string{
		inc.Title,
		inc.Description,
		"module:" + inc.Module,
		"severity:" + string(inc.Severity),
	}
	if inc.MonthEnd {
		parts = append(parts, "month-end closing period")
	}
	parts = append(parts, strings.Join(inc.RawLog.ChangedObjects, " "))
	parts = append(parts, strings.Join(inc.RawLog.RecentDeploys, " "))

	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.ToLower(strings.Join(kept, " "))
}

// QueryText is the text used to look up incidents similar to inc.
func QueryText(inc model.Incident) string {
	return inc.Title + " " + inc.Description + " " + inc.Module
}
