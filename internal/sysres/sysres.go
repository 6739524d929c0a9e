// internal/sysres/sysres.go
package sysres

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/ratio1/r1nodectl/internal/constants"
	"github.com/ratio1/r1nodectl/internal/logging"
)

// cpuSampleInterval is the window cpu usage is measured over. Short enough
// not to stall a refresh, long enough for a stable reading.
const cpuSampleInterval = 100 * time.Millisecond

// Memory is the host RAM sample.
type Memory struct {
	Total       uint64  `json:"total"`
	Available   uint64  `json:"available"`
	UsedPercent float64 `json:"used_percent"`
}

// CPU is the host processor sample.
type CPU struct {
	Count        int     `json:"count"`
	UsagePercent float64 `json:"usage_percent"`
}

// Disk is the root filesystem sample.
type Disk struct {
	Total       uint64  `json:"total"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
}

// Snapshot is one point-in-time sample of host resources.
type Snapshot struct {
	Memory  Memory    `json:"memory"`
	CPU     CPU       `json:"cpu"`
	Disk    Disk      `json:"disk"`
	TakenAt time.Time `json:"taken_at"`
}

// Monitor samples host resources with a short-lived cache so refresh loops
// do not hammer the kernel.
type Monitor struct {
	mu       sync.Mutex
	ttl      time.Duration
	cached   *Snapshot
	sampleFn func(context.Context) (*Snapshot, error)
}

// NewMonitor returns a Monitor with the default cache duration.
func NewMonitor() *Monitor {
	m := &Monitor{ttl: constants.ResourceCacheDuration}
	m.sampleFn = m.sample
	return m
}

// Snapshot returns the current resource sample, reusing the cached one
// while it is fresh.
func (m *Monitor) Snapshot(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	if m.cached != nil && time.Since(m.cached.TakenAt) < m.ttl {
		snap := *m.cached
		m.mu.Unlock()
		return &snap, nil
	}
	m.mu.Unlock()
	return m.Refresh(ctx)
}

// Refresh samples unconditionally and replaces the cache.
func (m *Monitor) Refresh(ctx context.Context) (*Snapshot, error) {
	snap, err := m.sampleFn(ctx)
	if err != nil {
		return nil, err
	}
	snap.TakenAt = time.Now()

	m.mu.Lock()
	m.cached = snap
	m.mu.Unlock()

	out := *snap
	return &out, nil
}

// sample reads the host. Memory is required (the admission gate depends on
// it); cpu and disk failures degrade to zero values with a warning.
func (m *Monitor) sample(ctx context.Context) (*Snapshot, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "sample system memory")
	}
	snap := &Snapshot{
		Memory: Memory{Total: vm.Total, Available: vm.Available, UsedPercent: vm.UsedPercent},
	}

	if count, err := cpu.CountsWithContext(ctx, true); err != nil {
		logging.Warning("Could not count CPUs: %v", err)
	} else {
		snap.CPU.Count = count
	}
	if usage, err := cpu.PercentWithContext(ctx, cpuSampleInterval, false); err != nil {
		logging.Warning("Could not sample CPU usage: %v", err)
	} else if len(usage) > 0 {
		snap.CPU.UsagePercent = usage[0]
	}

	if du, err := disk.UsageWithContext(ctx, diskRoot()); err != nil {
		logging.Warning("Could not sample disk usage: %v", err)
	} else {
		snap.Disk = Disk{Total: du.Total, Free: du.Free, UsedPercent: du.UsedPercent}
	}

	return snap, nil
}

func diskRoot() string {
	if runtime.GOOS == "windows" {
		return `C:\`
	}
	return "/"
}

// Capacity is the node admission verdict derived from host RAM.
type Capacity struct {
	TotalRAMGB   float64 `json:"total_ram_gb"`
	MinPerNodeGB int     `json:"min_per_node_gb"`
	MaxNodes     int     `json:"max_nodes"`
	Current      int     `json:"current"`
	CanAdd       bool    `json:"can_add"`
}

// CapacityFor computes the admission gate: a host supports
// floor(total_ram_gb / min_gb_per_node) nodes in total.
func CapacityFor(totalRAM uint64, existing, minGBPerNode int) Capacity {
	if minGBPerNode <= 0 {
		minGBPerNode = constants.MinNodeRAMGB
	}
	totalGB := float64(totalRAM) / (1 << 30)
	maxNodes := int(totalGB / float64(minGBPerNode))
	return Capacity{
		TotalRAMGB:   totalGB,
		MinPerNodeGB: minGBPerNode,
		MaxNodes:     maxNodes,
		Current:      existing,
		CanAdd:       existing < maxNodes,
	}
}

// Message renders the admission verdict for operators.
func (c Capacity) Message() string {
	if c.CanAdd {
		return fmt.Sprintf("node can be created: system supports %d node(s) total (%.1f GB at %d GB per node), currently running %d",
			c.MaxNodes, c.TotalRAMGB, c.MinPerNodeGB, c.Current)
	}
	return fmt.Sprintf("maximum node capacity reached: system supports %d node(s) total (%.1f GB at %d GB per node), currently running %d",
		c.MaxNodes, c.TotalRAMGB, c.MinPerNodeGB, c.Current)
}

// MaxNodes returns how many nodes the host RAM supports at minGB per node.
func (m *Monitor) MaxNodes(ctx context.Context, minGB int) (int, error) {
	snap, err := m.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return CapacityFor(snap.Memory.Total, 0, minGB).MaxNodes, nil
}

// CanAddNode reports whether one more node fits beside the existing ones.
func (m *Monitor) CanAddNode(ctx context.Context, existing, minGB int) (Capacity, error) {
	snap, err := m.Snapshot(ctx)
	if err != nil {
		return Capacity{}, err
	}
	return CapacityFor(snap.Memory.Total, existing, minGB), nil
}
