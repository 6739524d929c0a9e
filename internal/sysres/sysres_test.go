package sysres

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const gb = uint64(1) << 30

func TestCapacityFor(t *testing.T) {
	tests := []struct {
		name     string
		totalRAM uint64
		existing int
		minGB    int
		maxNodes int
		canAdd   bool
	}{
		{"16gb_empty", 16 * gb, 0, 4, 4, true},
		{"16gb_at_capacity", 16 * gb, 4, 4, 4, false},
		{"16gb_over", 16 * gb, 5, 4, 4, false},
		{"15gb_rounds_down", 15 * gb, 3, 4, 3, false},
		{"8gb_one_running", 8 * gb, 1, 4, 2, true},
		{"tiny_host", 2 * gb, 0, 4, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CapacityFor(tt.totalRAM, tt.existing, tt.minGB)
			if c.MaxNodes != tt.maxNodes {
				t.Errorf("MaxNodes = %d, want %d", c.MaxNodes, tt.maxNodes)
			}
			if c.CanAdd != tt.canAdd {
				t.Errorf("CanAdd = %v, want %v", c.CanAdd, tt.canAdd)
			}
		})
	}
}

func TestCapacityForDefaultsMinRAM(t *testing.T) {
	c := CapacityFor(16*gb, 0, 0)
	if c.MinPerNodeGB != 4 {
		t.Errorf("Expected the 4 GB default, got %d", c.MinPerNodeGB)
	}
	if c.MaxNodes != 4 {
		t.Errorf("MaxNodes = %d, want 4", c.MaxNodes)
	}
}

func TestCapacityMessage(t *testing.T) {
	ok := CapacityFor(16*gb, 1, 4)
	if msg := ok.Message(); !strings.Contains(msg, "can be created") {
		t.Errorf("Unexpected admit message: %s", msg)
	}
	full := CapacityFor(16*gb, 4, 4)
	if msg := full.Message(); !strings.Contains(msg, "capacity reached") {
		t.Errorf("Unexpected refuse message: %s", msg)
	}
}

func TestSnapshotUsesCache(t *testing.T) {
	var samples atomic.Int32
	m := &Monitor{ttl: time.Minute}
	m.sampleFn = func(context.Context) (*Snapshot, error) {
		samples.Add(1)
		return &Snapshot{Memory: Memory{Total: 16 * gb}}, nil
	}

	for i := 0; i < 3; i++ {
		snap, err := m.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		if snap.Memory.Total != 16*gb {
			t.Errorf("Unexpected sample: %+v", snap)
		}
	}
	if samples.Load() != 1 {
		t.Errorf("Expected a single underlying sample within the cache window, got %d", samples.Load())
	}
}

func TestSnapshotResamplesAfterTTL(t *testing.T) {
	var samples atomic.Int32
	m := &Monitor{ttl: 10 * time.Millisecond}
	m.sampleFn = func(context.Context) (*Snapshot, error) {
		samples.Add(1)
		return &Snapshot{}, nil
	}

	if _, err := m.Snapshot(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := m.Snapshot(context.Background()); err != nil {
		t.Fatal(err)
	}
	if samples.Load() != 2 {
		t.Errorf("Expected a resample after the ttl, got %d", samples.Load())
	}
}

func TestRefreshBypassesCache(t *testing.T) {
	var samples atomic.Int32
	m := &Monitor{ttl: time.Minute}
	m.sampleFn = func(context.Context) (*Snapshot, error) {
		samples.Add(1)
		return &Snapshot{}, nil
	}

	if _, err := m.Snapshot(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if samples.Load() != 2 {
		t.Errorf("Refresh must resample, got %d samples", samples.Load())
	}
}

func TestCanAddNodeThroughMonitor(t *testing.T) {
	m := &Monitor{ttl: time.Minute}
	m.sampleFn = func(context.Context) (*Snapshot, error) {
		return &Snapshot{Memory: Memory{Total: 12 * gb}}, nil
	}

	c, err := m.CanAddNode(context.Background(), 2, 4)
	if err != nil {
		t.Fatalf("CanAddNode: %v", err)
	}
	if c.MaxNodes != 3 || !c.CanAdd {
		t.Errorf("Unexpected capacity: %+v", c)
	}

	c, err = m.CanAddNode(context.Background(), 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	if c.CanAdd {
		t.Error("Expected the gate closed at capacity")
	}
}

func TestRealSample(t *testing.T) {
	m := NewMonitor()
	snap, err := m.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Memory.Total == 0 {
		t.Error("Expected nonzero total memory on a real host")
	}
	if snap.CPU.Count == 0 {
		t.Error("Expected at least one CPU")
	}
}
