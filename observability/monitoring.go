// Package observability collects runtime telemetry for the forum process:
// delivery counters from the realtime path and system metrics sampled from
// the process itself. The debug server serves the latest snapshot as JSON.
package observability

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Stats is one snapshot of the process, refreshed every tick.
type Stats struct {
	// Realtime delivery counters, cumulative since start.
	EventsPublished uint64 `json:"events_published"`
	SinksReached    uint64 `json:"sinks_reached"`
	DeliveryErrors  uint64 `json:"delivery_errors"`

	// System metrics.
	AllocMemMb uint64  `json:"alloc_mem_mb"`
	NumGC      uint32  `json:"num_gc"`
	CpuPercent float64 `json:"cpu_percent"`
	RamPercent float32 `json:"ram_percent"`
	Goroutines int     `json:"goroutines"`
}

// Monitor aggregates counters from the hot paths without locking them: the
// increment side is atomic, the snapshot side runs on a ticker.
type Monitor struct {
	log  *slog.Logger
	mu   sync.RWMutex
	last Stats

	eventsPublished uint64
	sinksReached    uint64
	deliveryErrors  uint64
}

func NewMonitor(log *slog.Logger) *Monitor {
	return &Monitor{log: log}
}

func (m *Monitor) IncrEventsPublished() {
	atomic.AddUint64(&m.eventsPublished, 1)
}

func (m *Monitor) IncrSinksReached() {
	atomic.AddUint64(&m.sinksReached, 1)
}

func (m *Monitor) IncrDeliveryErrors() {
	atomic.AddUint64(&m.deliveryErrors, 1)
}

// Listen refreshes the snapshot until the context is cancelled.
func (m *Monitor) Listen(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	self, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.log.Error("cannot observe own process, system metrics disabled", "error", err)
		self = nil
	}

	for {
		select {
		case <-ctx.Done():
			m.log.Debug("stopping monitor")
			return
		case <-ticker.C:
			m.refresh(self)
		}
	}
}

func (m *Monitor) refresh(self *process.Process) {
	stats := Stats{
		EventsPublished: atomic.LoadUint64(&m.eventsPublished),
		SinksReached:    atomic.LoadUint64(&m.sinksReached),
		DeliveryErrors:  atomic.LoadUint64(&m.deliveryErrors),
		Goroutines:      runtime.NumGoroutine(),
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	stats.AllocMemMb = mem.Alloc / 1024 / 1024
	stats.NumGC = mem.NumGC

	if self != nil {
		if cpu, err := self.CPUPercent(); err == nil {
			stats.CpuPercent = cpu
		} else {
			m.log.Debug("cpu usage unavailable", "error", err)
		}
		if ram, err := self.MemoryPercent(); err == nil {
			stats.RamPercent = ram
		} else {
			m.log.Debug("ram usage unavailable", "error", err)
		}
	}

	m.mu.Lock()
	m.last = stats
	m.mu.Unlock()

	m.log.Debug("stats refreshed",
		"events_published", stats.EventsPublished,
		"sinks_reached", stats.SinksReached,
		"mem_mb", stats.AllocMemMb,
		"goroutines", stats.Goroutines)
}

// GetLatest returns the most recent snapshot, counters read live.
func (m *Monitor) GetLatest() Stats {
	m.mu.RLock()
	stats := m.last
	m.mu.RUnlock()

	stats.EventsPublished = atomic.LoadUint64(&m.eventsPublished)
	stats.SinksReached = atomic.LoadUint64(&m.sinksReached)
	stats.DeliveryErrors = atomic.LoadUint64(&m.deliveryErrors)
	return stats
}
