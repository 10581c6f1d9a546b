// Package monitor samples process and host resource usage after each scan
// cycle so operators can watch the engine's footprint over time.
package monitor

import (
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"

	"github.com/avolkov/arbiscan/internal/models"
)

// Sample is one resource measurement.
type Sample struct {
	CycleID        string  `json:"cycle_id"`
	Goroutines     int     `json:"goroutines"`
	HeapAllocMB    float64 `json:"heap_alloc_mb"`
	HeapSysMB      float64 `json:"heap_sys_mb"`
	NumGC          uint32  `json:"num_gc"`
	HostMemUsedPct float64 `json:"host_mem_used_pct"`
	HostCPUPct     float64 `json:"host_cpu_pct"`
}

// PerformanceMonitor observes completed cycles and logs a resource sample
// for each. The latest sample is kept for the status API.
type PerformanceMonitor struct {
	logger *logrus.Logger

	mu   sync.Mutex
	last *Sample
}

func NewPerformanceMonitor(logger *logrus.Logger) *PerformanceMonitor {
	return &PerformanceMonitor{logger: logger}
}

// ObserveCycle implements the coordinator's cycle observer hook.
func (m *PerformanceMonitor) ObserveCycle(summary models.CycleSummary) {
	sample := m.sample(summary.CycleID)

	m.mu.Lock()
	m.last = &sample
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"cycle_id":          sample.CycleID,
		"goroutines":        sample.Goroutines,
		"heap_alloc_mb":     sample.HeapAllocMB,
		"num_gc":            sample.NumGC,
		"host_mem_used_pct": sample.HostMemUsedPct,
		"host_cpu_pct":      sample.HostCPUPct,
	}).Debug("Resource usage after cycle")
}

// LastSample returns the most recent measurement, or nil before the first
// cycle completes.
func (m *PerformanceMonitor) LastSample() *Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return nil
	}
	s := *m.last
	return &s
}

func (m *PerformanceMonitor) sample(cycleID string) Sample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	sample := Sample{
		CycleID:     cycleID,
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: float64(ms.HeapAlloc) / 1024 / 1024,
		HeapSysMB:   float64(ms.HeapSys) / 1024 / 1024,
		NumGC:       ms.NumGC,
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		sample.HostMemUsedPct = vm.UsedPercent
	}
	// Instantaneous reading; interval 0 compares against the previous call.
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		sample.HostCPUPct = pcts[0]
	}
	return sample
}
