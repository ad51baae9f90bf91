package visibility

import (
	"fmt"
	"sort"
	"strings"

	"deskglue/internal/domain"
)

// RuleSet maps a controlling value to the dependent fields visible for it.
// Every field named by any rule is a dependent field; a value with no rule
// leaves all of them hidden.
type RuleSet struct {
	values   []string
	visible  map[string]map[string]bool
	universe []string
}

// NewRuleSet validates rules and builds a lookup table.
// extra names dependent fields that no rule shows.
func NewRuleSet(rules []domain.FieldVisibilityRule, extra ...string) (*RuleSet, error) {
	rs := &RuleSet{visible: make(map[string]map[string]bool, len(rules))}
	all := make(map[string]bool)

	for _, rule := range rules {
		if _, dup := rs.visible[rule.ControllingValue]; dup {
			return nil, fmt.Errorf("duplicate rule for value %q", rule.ControllingValue)
		}
		set := make(map[string]bool, len(rule.VisibleFields))
		for _, f := range rule.VisibleFields {
			f = strings.TrimSpace(f)
			if f == "" {
				return nil, fmt.Errorf("rule %q: empty field name", rule.ControllingValue)
			}
			set[f] = true
			all[f] = true
		}
		rs.values = append(rs.values, rule.ControllingValue)
		rs.visible[rule.ControllingValue] = set
	}
	for _, f := range extra {
		if f = strings.TrimSpace(f); f != "" {
			all[f] = true
		}
	}

	for f := range all {
		rs.universe = append(rs.universe, f)
	}
	sort.Strings(rs.universe)
	return rs, nil
}

// VisibleFields returns the sorted dependent fields visible for value
func (r *RuleSet) VisibleFields(value string) []string {
	set := r.visible[value]
	out := make([]string, 0, len(set))
	for _, f := range r.universe {
		if set[f] {
			out = append(out, f)
		}
	}
	return out
}

// IsVisible reports whether field is visible for value
func (r *RuleSet) IsVisible(value, field string) bool {
	return r.visible[value][field]
}

// Fields returns every dependent field, sorted
func (r *RuleSet) Fields() []string {
	out := make([]string, len(r.universe))
	copy(out, r.universe)
	return out
}

// Values returns the controlling values in configuration order
func (r *RuleSet) Values() []string {
	out := make([]string, len(r.values))
	copy(out, r.values)
	return out
}

// Has reports whether field is a dependent field
func (r *RuleSet) Has(field string) bool {
	i := sort.SearchStrings(r.universe, field)
	return i < len(r.universe) && r.universe[i] == field
}
