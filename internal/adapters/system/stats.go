// Package system reports host resource usage for the dashboard widgets.
package system

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Stats is a point-in-time host resource snapshot.
type Stats struct {
	Timestamp     int64       `json:"timestamp"`
	CPU           CPUStats    `json:"cpu"`
	Memory        MemoryStats `json:"memory"`
	UptimeSeconds uint64      `json:"uptime_seconds"`
}

type CPUStats struct {
	Percent float64   `json:"percent"`
	Cores   int       `json:"cores"`
	LoadAvg []float64 `json:"load_avg,omitempty"`
}

type MemoryStats struct {
	TotalBytes     uint64  `json:"total_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	UsedBytes      uint64  `json:"used_bytes"`
	Percent        float64 `json:"percent"`
}

// Process is one entry of the top-processes list.
type Process struct {
	PID        int32   `json:"pid"`
	Name       string  `json:"name"`
	CPUPercent float64 `json:"cpu_percent"`
	MemPercent float64 `json:"mem_percent"`
	MemRSS     uint64  `json:"mem_rss_bytes"`
}

// Collector samples host resources. CPU percentages are measured against the
// previous call, so the first sample after startup reads zero.
type Collector struct{}

// NewCollector returns a host stats collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Stats returns the current host snapshot.
func (c *Collector) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Timestamp: time.Now().Unix()}

	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return Stats{}, fmt.Errorf("sampling cpu: %w", err)
	}
	if len(percents) > 0 {
		stats.CPU.Percent = percents[0]
	}
	if cores, err := cpu.CountsWithContext(ctx, true); err == nil {
		stats.CPU.Cores = cores
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		stats.CPU.LoadAvg = []float64{avg.Load1, avg.Load5, avg.Load15}
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("reading memory: %w", err)
	}
	stats.Memory = MemoryStats{
		TotalBytes:     vm.Total,
		AvailableBytes: vm.Available,
		UsedBytes:      vm.Used,
		Percent:        vm.UsedPercent,
	}

	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		stats.UptimeSeconds = uptime
	}
	return stats, nil
}

// TopProcesses lists the heaviest host processes by cpu or mem.
func (c *Collector) TopProcesses(ctx context.Context, sortKey string, limit int) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	items := make([]Process, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		item := Process{PID: p.Pid, Name: name}
		if cpuPct, err := p.CPUPercentWithContext(ctx); err == nil {
			item.CPUPercent = cpuPct
		}
		if memPct, err := p.MemoryPercentWithContext(ctx); err == nil {
			item.MemPercent = float64(memPct)
		}
		if info, err := p.MemoryInfoWithContext(ctx); err == nil && info != nil {
			item.MemRSS = info.RSS
		}
		items = append(items, item)
	}

	if sortKey == "mem" {
		sort.Slice(items, func(i, j int) bool { return items[i].MemRSS > items[j].MemRSS })
	} else {
		sort.Slice(items, func(i, j int) bool { return items[i].CPUPercent > items[j].CPUPercent })
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
