// Package capacity implements spec.md §4.4's two-level capacity reducer:
// node capacity is reported as a running maximum over the hour, so a
// day's total is the sum of 24 hourly maxima, never the max of all raw
// readings.
package capacity

import (
	"time"

	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/model"
)

const (
	secondsPerHour = 3600.0
	bytesPerGiB    = 1 << 30
)

// NodeDay identifies one node's capacity on one calendar date.
type NodeDay struct {
	Node string
	Date time.Time // truncated to the day
}

// NodeDaily is one node's daily capacity in hours-adjusted units.
type NodeDaily struct {
	Node            string
	Date            time.Time
	CPUCoreHours    float64
	MemGBHours      float64
}

// ClusterDaily is the cluster-wide capacity for one date: the sum of every
// node's daily capacity.
type ClusterDaily struct {
	Date         time.Time
	CPUCoreHours float64
	MemGBHours   float64
}

// Reduce runs the full two-level reduction: hourly max per (node, hour),
// summed into daily totals per node, with units converted from
// core-seconds/byte-seconds into core-hours/GB-hours.
func Reduce(rows []model.CapacityIntervalRow) []NodeDaily {
	hourly := reduceHourlyMax(rows)
	return sumDaily(hourly)
}

// ReduceCluster derives the per-date cluster capacity from the already
// per-node daily values (spec.md §4.4 step 4): sum every node's daily
// value for a given date.
func ReduceCluster(daily []NodeDaily) []ClusterDaily {
	type key struct {
		date time.Time
	}
	totals := make(map[key]*ClusterDaily)
	var order []key
	for _, d := range daily {
		k := key{date: d.Date}
		cd, ok := totals[k]
		if !ok {
			cd = &ClusterDaily{Date: d.Date}
			totals[k] = cd
			order = append(order, k)
		}
		cd.CPUCoreHours += d.CPUCoreHours
		cd.MemGBHours += d.MemGBHours
	}
	out := make([]ClusterDaily, 0, len(order))
	for _, k := range order {
		out = append(out, *totals[k])
	}
	return out
}

type hourlyMax struct {
	node   string
	hour   time.Time
	cpu    float64
	mem    float64
	seen   bool
}

// reduceHourlyMax groups raw readings by (node, hour) and keeps the
// maximum of each capacity column within the group (spec.md §4.4 step 1).
func reduceHourlyMax(rows []model.CapacityIntervalRow) []hourlyMax {
	type key struct {
		node string
		hour time.Time
	}
	buckets := make(map[key]*hourlyMax)
	var order []key
	for _, r := range rows {
		hour := r.IntervalStart.Truncate(time.Hour)
		k := key{node: r.Node, hour: hour}
		b, ok := buckets[k]
		if !ok {
			b = &hourlyMax{node: r.Node, hour: hour}
			buckets[k] = b
			order = append(order, k)
		}
		if !b.seen || r.CPUCoreSeconds > b.cpu {
			b.cpu = r.CPUCoreSeconds
		}
		if !b.seen || r.MemByteSeconds > b.mem {
			b.mem = r.MemByteSeconds
		}
		b.seen = true
	}
	out := make([]hourlyMax, 0, len(order))
	for _, k := range order {
		out = append(out, *buckets[k])
	}
	return out
}

// sumDaily groups hourly maxima by (node, date) and sums within the group,
// converting units as it goes (spec.md §4.4 steps 2–3).
func sumDaily(hourly []hourlyMax) []NodeDaily {
	type key struct {
		node string
		date time.Time
	}
	totals := make(map[key]*NodeDaily)
	var order []key
	for _, h := range hourly {
		date := h.hour.Truncate(24 * time.Hour)
		k := key{node: h.node, date: date}
		d, ok := totals[k]
		if !ok {
			d = &NodeDaily{Node: h.node, Date: date}
			totals[k] = d
			order = append(order, k)
		}
		d.CPUCoreHours += h.cpu / secondsPerHour
		d.MemGBHours += h.mem / secondsPerHour / bytesPerGiB
	}
	out := make([]NodeDaily, 0, len(order))
	for _, k := range order {
		out = append(out, *totals[k])
	}
	return out
}
