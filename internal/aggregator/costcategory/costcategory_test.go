package costcategory

import (
	"testing"

	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/model"
)

func TestMatch_NoPatterns_ReturnsNil(t *testing.T) {
	m := NewMatcher(nil)
	if got := m.Match("any-namespace"); got != nil {
		t.Fatalf("Match() = %v, want nil", got)
	}
}

func TestMatch_PercentWildcard(t *testing.T) {
	m := NewMatcher([]model.CostCategoryPattern{{Pattern: "kube-%", CategoryID: 1}})
	if got := m.Match("kube-system"); got == nil || *got != 1 {
		t.Fatalf("Match(kube-system) = %v, want 1", got)
	}
	if got := m.Match("openshift-monitoring"); got != nil {
		t.Fatalf("Match(openshift-monitoring) = %v, want nil", got)
	}
}

func TestMatch_UnderscoreWildcard(t *testing.T) {
	m := NewMatcher([]model.CostCategoryPattern{{Pattern: "app_", CategoryID: 2}})
	if got := m.Match("app1"); got == nil || *got != 2 {
		t.Fatalf("Match(app1) = %v, want 2", got)
	}
	if got := m.Match("app12"); got != nil {
		t.Fatalf("Match(app12) = %v, want nil (single-char wildcard)", got)
	}
}

func TestMatch_MultipleMatches_ReturnsMaxID(t *testing.T) {
	m := NewMatcher([]model.CostCategoryPattern{
		{Pattern: "kube-%", CategoryID: 1},
		{Pattern: "%", CategoryID: 5},
		{Pattern: "kube-system", CategoryID: 3},
	})
	got := m.Match("kube-system")
	if got == nil || *got != 5 {
		t.Fatalf("Match(kube-system) = %v, want 5 (max of 1, 5, 3)", got)
	}
}

func TestMatch_NoMatch_ReturnsNil(t *testing.T) {
	m := NewMatcher([]model.CostCategoryPattern{{Pattern: "kube-%", CategoryID: 1}})
	if got := m.Match("myapp"); got != nil {
		t.Fatalf("Match(myapp) = %v, want nil", got)
	}
}
