package labels

import "testing"

func TestParse_JSONStringAndMapAgree(t *testing.T) {
	fromString, err := Parse(`{"env":"prod","tier":"infra"}`)
	if err != nil {
		t.Fatalf("Parse(string) error: %v", err)
	}
	fromMap, err := Parse(map[string]any{"env": "prod", "tier": "infra"})
	if err != nil {
		t.Fatalf("Parse(map) error: %v", err)
	}
	if len(fromString) != len(fromMap) || fromString["env"] != fromMap["env"] {
		t.Fatalf("Parse paths disagree: %v vs %v", fromString, fromMap)
	}
}

func TestParse_NilIsEmptyNotNil(t *testing.T) {
	m, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error: %v", err)
	}
	if m == nil {
		t.Fatal("Parse(nil) returned nil map, want empty map")
	}
	if len(m) != 0 {
		t.Fatalf("Parse(nil) = %v, want empty", m)
	}
}

func TestFilter_DropsDisabledKeys(t *testing.T) {
	pod := map[string]string{"env": "dev", "app": "w", "secret": "x"}
	enabled := NewEnabledKeySet([]string{"env", "app"})
	got := Filter(pod, enabled)
	if len(got) != 2 {
		t.Fatalf("Filter() = %v, want 2 keys", got)
	}
	if _, ok := got["secret"]; ok {
		t.Fatal("Filter() kept a disabled key")
	}
}

func TestFilter_EmptyEnabledSetDropsEverything(t *testing.T) {
	pod := map[string]string{"env": "dev"}
	got := Filter(pod, NewEnabledKeySet(nil))
	if len(got) != 0 {
		t.Fatalf("Filter() with empty enabled set = %v, want empty", got)
	}
}

// TestMerge_Precedence is spec.md §8 Scenario C.
func TestMerge_Precedence(t *testing.T) {
	node := map[string]string{"env": "prod", "tier": "infra"}
	namespace := map[string]string{"env": "staging", "team": "x"}
	pod := map[string]string{"env": "dev", "app": "w"}
	enabled := NewEnabledKeySet([]string{"env", "tier", "team", "app"})

	merged := Merge(node, namespace, Filter(pod, enabled))
	want := `{"app":"w","env":"dev","team":"x","tier":"infra"}`
	got := Canonical(merged)
	if got != want {
		t.Fatalf("Canonical(Merge(...)) = %s, want %s", got, want)
	}
}

func TestMerge_AllPodKeysDisabled_KeepsOtherTiers(t *testing.T) {
	node := map[string]string{"tier": "infra"}
	namespace := map[string]string{"team": "x"}
	pod := map[string]string{"env": "dev", "app": "w"}
	merged := Merge(node, namespace, Filter(pod, NewEnabledKeySet(nil)))
	want := `{"team":"x","tier":"infra"}`
	if got := Canonical(merged); got != want {
		t.Fatalf("Canonical = %s, want %s", got, want)
	}
}

func TestCanonical_EmptyMapIsEmptyObject(t *testing.T) {
	if got := Canonical(map[string]string{}); got != "{}" {
		t.Fatalf("Canonical(empty) = %s, want {}", got)
	}
	if got := Canonical(nil); got != "{}" {
		t.Fatalf("Canonical(nil) = %s, want {}", got)
	}
}

func TestCanonical_RoundTripsThroughParse(t *testing.T) {
	m := map[string]string{"b": "2", "a": "1", "c": "3"}
	s := Canonical(m)
	back, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(Canonical(m)) error: %v", err)
	}
	if len(back) != len(m) {
		t.Fatalf("round trip lost keys: %v -> %s -> %v", m, s, back)
	}
	for k, v := range m {
		if back[k] != v {
			t.Fatalf("round trip mismatch for %q: got %q want %q", k, back[k], v)
		}
	}
}

func TestCanonical_KeysAreSorted(t *testing.T) {
	m := map[string]string{"z": "1", "a": "2", "m": "3"}
	want := `{"a":"2","m":"3","z":"1"}`
	if got := Canonical(m); got != want {
		t.Fatalf("Canonical() = %s, want %s", got, want)
	}
}
