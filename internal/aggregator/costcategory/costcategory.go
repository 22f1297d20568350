// Package costcategory implements spec.md §4.7: assigning each row a cost
// category id by matching its namespace against a list of SQL-LIKE
// patterns, taking the max id among every pattern that matches.
package costcategory

import (
	"regexp"
	"strings"

	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/model"
)

// Matcher holds the compiled form of a cost-category pattern set fetched
// from reporting_ocp_cost_category_namespace.
type Matcher struct {
	patterns []compiledPattern
}

type compiledPattern struct {
	categoryID int64
	re         *regexp.Regexp
}

// NewMatcher compiles every pattern once so Match is cheap to call per row.
func NewMatcher(patterns []model.CostCategoryPattern) *Matcher {
	m := &Matcher{patterns: make([]compiledPattern, 0, len(patterns))}
	for _, p := range patterns {
		m.patterns = append(m.patterns, compiledPattern{
			categoryID: p.CategoryID,
			re:         compileLike(p.Pattern),
		})
	}
	return m
}

// Match returns the max category id among every pattern matching
// namespace, or nil if none match.
func (m *Matcher) Match(namespace string) *int64 {
	var best *int64
	for _, p := range m.patterns {
		if !p.re.MatchString(namespace) {
			continue
		}
		if best == nil || p.categoryID > *best {
			id := p.categoryID
			best = &id
		}
	}
	return best
}

// compileLike translates a SQL-LIKE pattern (`_` = one char, `%` = any run
// of chars, `\` escapes the next char) into an anchored regular
// expression.
func compileLike(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteByte('^')
	escaped := false
	for _, r := range pattern {
		if escaped {
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '_':
			b.WriteString(".")
		case '%':
			b.WriteString(".*")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	// A malformed pattern (should not occur for stored patterns) falls
	// back to one that matches nothing, rather than panicking mid-run.
	re, err := regexp.Compile(b.String())
	if err != nil {
		return regexp.MustCompile(`$^`)
	}
	return re
}
