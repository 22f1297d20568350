package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/model"
)

type fakeSource struct {
	keysCalls     int
	patternsCalls int
	keys          []string
	patterns      []model.CostCategoryPattern
}

func (f *fakeSource) FetchEnabledKeys(ctx context.Context) ([]string, error) {
	f.keysCalls++
	return f.keys, nil
}

func (f *fakeSource) FetchCostCategoryPatterns(ctx context.Context) ([]model.CostCategoryPattern, error) {
	f.patternsCalls++
	return f.patterns, nil
}

func TestCache_RefetchesOnceThenServesFromCache(t *testing.T) {
	src := &fakeSource{keys: []string{"app", "team"}}
	c := New(src, time.Hour)

	if _, err := c.EnabledKeys(context.Background()); err != nil {
		t.Fatalf("EnabledKeys() error: %v", err)
	}
	if _, err := c.EnabledKeys(context.Background()); err != nil {
		t.Fatalf("EnabledKeys() error: %v", err)
	}
	if src.keysCalls != 1 {
		t.Fatalf("keysCalls = %d, want 1 (second call should hit cache)", src.keysCalls)
	}
}

func TestCache_ZeroTTLAlwaysRefetches(t *testing.T) {
	src := &fakeSource{keys: []string{"app"}}
	c := New(src, 0)

	c.EnabledKeys(context.Background())
	c.EnabledKeys(context.Background())
	if src.keysCalls != 2 {
		t.Fatalf("keysCalls = %d, want 2 (zero TTL disables caching)", src.keysCalls)
	}
}

func TestCache_PatternsCachedIndependentlyOfKeys(t *testing.T) {
	src := &fakeSource{
		keys:     []string{"app"},
		patterns: []model.CostCategoryPattern{{Pattern: "kube-%", CategoryID: 1}},
	}
	c := New(src, time.Hour)

	c.EnabledKeys(context.Background())
	if _, err := c.CostCategoryPatterns(context.Background()); err != nil {
		t.Fatalf("CostCategoryPatterns() error: %v", err)
	}
	if src.patternsCalls != 1 {
		t.Fatalf("patternsCalls = %d, want 1", src.patternsCalls)
	}
}
