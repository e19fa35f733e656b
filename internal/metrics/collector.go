// Package metrics logs periodic system snapshots during long-running
// conversions. Purely observational.
package metrics

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// Collector periodically collects and logs CPU and memory usage.
type Collector struct {
	interval time.Duration
	logger   *zap.Logger
	proc     *process.Process
}

// NewCollector creates a collector logging every interval (min 1s).
func NewCollector(interval time.Duration, logger *zap.Logger) *Collector {
	if interval < time.Second {
		interval = 30 * time.Second
	}
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &Collector{
		interval: interval,
		logger:   logger,
		proc:     proc,
	}
}

// Start runs collection until ctx is cancelled.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

func (c *Collector) collect() {
	fields := make([]zap.Field, 0, 4)

	if cpuPercent, err := cpu.Percent(0, false); err == nil && len(cpuPercent) > 0 {
		fields = append(fields, zap.Float64("cpu_pct", cpuPercent[0]))
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		fields = append(fields,
			zap.Float64("mem_used_gb", float64(vm.Used)/(1024*1024*1024)),
			zap.Float64("mem_pct", vm.UsedPercent))
	}
	if c.proc != nil {
		if mi, err := c.proc.MemoryInfo(); err == nil {
			fields = append(fields, zap.Float64("rss_gb", float64(mi.RSS)/(1024*1024*1024)))
		}
	}

	c.logger.Debug("System metrics", fields...)
}
