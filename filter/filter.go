// Package filter implements the expression language used to narrow the set
// of questions a conversation draws from. An expression is a semicolon
// separated list of groups combined with AND; each group is a comma separated
// list of literals combined with OR. A literal matches a question when it is
// a case-insensitive substring of any attribute value.
package filter

import (
	"sort"
	"strings"

	"github.com/korjavin/padezbot/models"
)

// Expression is a parsed, immutable filter. The zero value (no groups)
// matches every question.
type Expression struct {
	groups []group
}

type group struct {
	literals []string
}

// Info describes one attribute name and the values seen for it across the
// corpus, for the /filter help text.
type Info struct {
	Name           string
	PossibleValues []string
}

// Parse turns the textual form into an Expression. There is no escaping
// syntax: a literal containing ',' or ';' cannot be expressed. Parse never
// fails; empty input yields an expression that matches everything.
func Parse(text string) Expression {
	text = strings.TrimSpace(text)
	if text == "" {
		return Expression{}
	}

	var groups []group
	for _, part := range strings.Split(text, ";") {
		var literals []string
		for _, literal := range strings.Split(part, ",") {
			literals = append(literals, strings.ToLower(strings.TrimSpace(literal)))
		}
		groups = append(groups, group{literals: literals})
	}
	return Expression{groups: groups}
}

// Matches reports whether the attribute set satisfies the expression: every
// group must have at least one literal contained in some attribute value.
// Attribute names are ignored here.
func Matches(attributes []models.AttributeValue, expr Expression) bool {
	for _, g := range expr.groups {
		if !matchGroup(attributes, g) {
			return false
		}
	}
	return true
}

func matchGroup(attributes []models.AttributeValue, g group) bool {
	for _, literal := range g.literals {
		for _, attr := range attributes {
			if strings.Contains(strings.ToLower(attr.Value), literal) {
				return true
			}
		}
	}
	return false
}

// CollectInfo groups all distinct attribute values by attribute name.
// Values are deduplicated case-insensitively, keeping the first-seen
// original casing, and both values and names come back sorted.
func CollectInfo(questions []models.Question) []Info {
	byName := make(map[string]map[string]string)
	for i := range questions {
		for _, attr := range questions[i].Attributes {
			values, ok := byName[attr.Name]
			if !ok {
				values = make(map[string]string)
				byName[attr.Name] = values
			}
			key := strings.ToLower(attr.Value)
			if _, seen := values[key]; !seen {
				values[key] = attr.Value
			}
		}
	}

	result := make([]Info, 0, len(byName))
	for name, values := range byName {
		possible := make([]string, 0, len(values))
		for _, v := range values {
			possible = append(possible, v)
		}
		sort.Strings(possible)
		result = append(result, Info{Name: name, PossibleValues: possible})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
