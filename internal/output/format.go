package output

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/crimson-sun/healthguard/internal/model"
)

// Verbosity controls how much of a record a display sink shows.
// Persistent sinks always write the full record so the chain stays verifiable.
type Verbosity int

const (
	Minimal  Verbosity = iota // drop full_output
	Standard                  // truncate full_output
	Full                      // everything
)

const standardOutputLen = 2000

// ParseVerbosity maps a config string to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(s) {
	case "minimal":
		return Minimal, nil
	case "", "standard":
		return Standard, nil
	case "full":
		return Full, nil
	}
	return Standard, fmt.Errorf("output: unknown verbosity %q", s)
}

func (v Verbosity) String() string {
	switch v {
	case Minimal:
		return "minimal"
	case Full:
		return "full"
	}
	return "standard"
}

// FormatRecord returns a copy of the record with fields stripped according to verbosity.
func FormatRecord(r model.AuditRecord, verbosity Verbosity) model.AuditRecord {
	switch verbosity {
	case Minimal:
		r.FullOutput = ""
	case Standard:
		r.FullOutput = truncate(r.FullOutput, standardOutputLen)
	}
	return r
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}
