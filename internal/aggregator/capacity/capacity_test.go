package capacity

import (
	"testing"
	"time"

	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/model"
)

func hourlyRow(node string, hour int, cpu, mem float64) model.CapacityIntervalRow {
	return model.CapacityIntervalRow{
		Node:           node,
		IntervalStart:  time.Date(2025, 10, 1, hour, 0, 0, 0, time.UTC),
		CPUCoreSeconds: cpu,
		MemByteSeconds: mem,
	}
}

func TestReduce_DailyIsSumOfHourlyMaxima(t *testing.T) {
	rows := []model.CapacityIntervalRow{
		// Two readings within hour 0: the 3600-second max should win, not
		// the 5400 sum of both readings.
		hourlyRow("node-a", 0, 3600, 0),
		hourlyRow("node-a", 0, 1800, 0),
		hourlyRow("node-a", 1, 3600, 0),
	}

	daily := Reduce(rows)
	if len(daily) != 1 {
		t.Fatalf("got %d daily rows, want 1", len(daily))
	}
	// Two hourly maxima of 3600 core-seconds each = 7200s = 2 core-hours.
	if got, want := daily[0].CPUCoreHours, 2.0; got != want {
		t.Fatalf("CPUCoreHours = %v, want %v", got, want)
	}
}

func TestReduce_UnitConversion(t *testing.T) {
	const gib = 1 << 30
	rows := []model.CapacityIntervalRow{
		hourlyRow("node-a", 0, 3600, gib*3600),
	}
	daily := Reduce(rows)
	if got, want := daily[0].CPUCoreHours, 1.0; got != want {
		t.Fatalf("CPUCoreHours = %v, want %v", got, want)
	}
	if got, want := daily[0].MemGBHours, 1.0; got != want {
		t.Fatalf("MemGBHours = %v, want %v", got, want)
	}
}

func TestReduce_SeparatesNodesAndDates(t *testing.T) {
	rows := []model.CapacityIntervalRow{
		hourlyRow("node-a", 0, 3600, 0),
		hourlyRow("node-b", 0, 3600, 0),
		{
			Node:           "node-a",
			IntervalStart:  time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC),
			CPUCoreSeconds: 3600,
		},
	}
	daily := Reduce(rows)
	if len(daily) != 3 {
		t.Fatalf("got %d daily rows, want 3 (two nodes, node-a across two dates)", len(daily))
	}
}

func TestReduceCluster_SumsAcrossNodesPerDate(t *testing.T) {
	date := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	daily := []NodeDaily{
		{Node: "node-a", Date: date, CPUCoreHours: 2, MemGBHours: 1},
		{Node: "node-b", Date: date, CPUCoreHours: 3, MemGBHours: 4},
	}
	cluster := ReduceCluster(daily)
	if len(cluster) != 1 {
		t.Fatalf("got %d cluster rows, want 1", len(cluster))
	}
	if cluster[0].CPUCoreHours != 5 {
		t.Fatalf("CPUCoreHours = %v, want 5", cluster[0].CPUCoreHours)
	}
	if cluster[0].MemGBHours != 5 {
		t.Fatalf("MemGBHours = %v, want 5", cluster[0].MemGBHours)
	}
}
