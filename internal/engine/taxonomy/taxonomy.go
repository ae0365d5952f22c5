package taxonomy

import (
	"sort"
	"strings"

	"github.com/crimson-sun/healthguard/internal/model"
)

// Taxonomy is the catalogue of application modules used to tag incidents.
type Taxonomy struct {
	modules []*model.ModuleNode
	byCode  map[string]int // upper-case code -> index into modules
}

// New creates a Taxonomy from the given module nodes. Codes are matched case-insensitively;
// a later node with the same code replaces an earlier one in place.
func New(modules []*model.ModuleNode) *Taxonomy {
	t := &Taxonomy{byCode: make(map[string]int, len(modules))}
	for _, m := range modules {
		if m == nil || m.Code == "" {
			continue
		}
		code := strings.ToUpper(m.Code)
		if i, dup := t.byCode[code]; dup {
			t.modules[i] = m
			continue
		}
		t.byCode[code] = len(t.modules)
		t.modules = append(t.modules, m)
	}
	return t
}

// Lookup returns the module node for code.
func (t *Taxonomy) Lookup(code string) (*model.ModuleNode, bool) {
	i, ok := t.byCode[strings.ToUpper(code)]
	if !ok {
		return nil, false
	}
	return t.modules[i], true
}

// Modules returns the catalogue in declaration order.
func (t *Taxonomy) Modules() []*model.ModuleNode {
	return t.modules
}

// Tags returns the sorted, de-duplicated tags for an incident of the given module
// and severity. Unknown modules still get the module code and severity tags.
func (t *Taxonomy) Tags(code string, severity model.Severity, monthEnd, recentChange bool) []string {
	set := map[string]struct{}{}
	if code != "" {
		set[strings.ToUpper(code)] = struct{}{}
	}
	if severity != "" {
		set[strings.ToLower(string(severity))] = struct{}{}
	}
	if m, ok := t.Lookup(code); ok {
		for _, kw := range m.Keywords {
			set[kw] = struct{}{}
		}
	}
	if monthEnd {
		set["month-end"] = struct{}{}
	}
	if recentChange {
		set["recent-change"] = struct{}{}
	}

	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
