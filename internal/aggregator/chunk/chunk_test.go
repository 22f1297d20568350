package chunk

import (
	"math"
	"testing"
	"time"

	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/labels"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/model"
)

func usageRow(node, namespace string, podLabels map[string]string, usage, request float64) model.UsageRecord {
	return model.UsageRecord{
		IntervalStart:         time.Date(2025, 10, 1, 3, 0, 0, 0, time.UTC),
		Namespace:             namespace,
		Node:                  node,
		Pod:                   "pod-1",
		PodLabelsRaw:          podLabels,
		UsageCPUCoreSeconds:   usage,
		RequestCPUCoreSeconds: request,
	}
}

func TestProcess_DropsEmptyNodeRows(t *testing.T) {
	rows := []model.UsageRecord{
		usageRow("", "ns", nil, 10, 5),
		usageRow("node-a", "ns", nil, 10, 5),
	}
	groups, err := Process(rows, Snapshot{EnabledKeys: labels.NewEnabledKeySet(nil)})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1 (empty-node row dropped)", len(groups))
	}
}

func TestProcess_LabelPrecedence_PodOverridesNamespaceOverridesNode(t *testing.T) {
	snap := Snapshot{
		NodeLabels:      labels.NodeIndex{"node-a": {"tier": "infra", "team": "x"}},
		NamespaceLabels: labels.NamespaceIndex{"ns": {"team": "y", "env": "dev"}},
		EnabledKeys:     labels.NewEnabledKeySet([]string{"team", "app"}),
	}
	rows := []model.UsageRecord{
		usageRow("node-a", "ns", map[string]string{"team": "z", "app": "w"}, 1, 1),
	}
	groups, err := Process(rows, snap)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	for _, g := range groups {
		want := `{"app":"w","env":"dev","team":"z","tier":"infra"}`
		if g.Key.LabelJSON != want {
			t.Fatalf("LabelJSON = %s, want %s", g.Key.LabelJSON, want)
		}
	}
}

func TestProcess_SumsConsumptionWithinGroup(t *testing.T) {
	rows := []model.UsageRecord{
		usageRow("node-a", "ns", nil, 10, 2),
		usageRow("node-a", "ns", nil, 5, 8),
	}
	groups, err := Process(rows, Snapshot{EnabledKeys: labels.NewEnabledKeySet(nil)})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	for _, g := range groups {
		if g.SumUsageCPUCoreSeconds != 15 {
			t.Fatalf("SumUsageCPUCoreSeconds = %v, want 15", g.SumUsageCPUCoreSeconds)
		}
		if g.SumRequestCPUCoreSeconds != 10 {
			t.Fatalf("SumRequestCPUCoreSeconds = %v, want 10", g.SumRequestCPUCoreSeconds)
		}
	}
}

func TestProcess_MaxResourceIDIsLexicographic(t *testing.T) {
	a, b := "res-a", "res-b"
	rows := []model.UsageRecord{
		{Node: "node-a", Namespace: "ns", ResourceID: &a},
		{Node: "node-a", Namespace: "ns", ResourceID: &b},
	}
	groups, err := Process(rows, Snapshot{EnabledKeys: labels.NewEnabledKeySet(nil)})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	for _, g := range groups {
		if g.MaxResourceID == nil || *g.MaxResourceID != "res-b" {
			t.Fatalf("MaxResourceID = %v, want res-b", g.MaxResourceID)
		}
	}
}

func TestProcess_NaNConsumptionTreatedAsZero(t *testing.T) {
	nan := math.NaN()
	rows := []model.UsageRecord{
		usageRow("node-a", "ns", nil, nan, 4),
	}
	groups, err := Process(rows, Snapshot{EnabledKeys: labels.NewEnabledKeySet(nil)})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	for _, g := range groups {
		if g.SumUsageCPUCoreSeconds != 0 {
			t.Fatalf("SumUsageCPUCoreSeconds = %v, want 0", g.SumUsageCPUCoreSeconds)
		}
	}
}
