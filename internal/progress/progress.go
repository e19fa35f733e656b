package progress

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Reporter receives named counters at a bounded cadence during a
// conversion pass. Implementations must be cheap; they run synchronously
// on the conversion goroutine.
type Reporter interface {
	Report(counters map[string]int64)
}

// Nop is a Reporter that discards everything.
type Nop struct{}

func (Nop) Report(map[string]int64) {}

// LogReporter logs counter snapshots with overall throughput.
type LogReporter struct {
	log   *zap.Logger
	start time.Time
}

// NewLogReporter creates a reporter that writes snapshots to log.
func NewLogReporter(log *zap.Logger) *LogReporter {
	return &LogReporter{log: log, start: time.Now()}
}

// Report logs the counters in stable order plus items/s since start.
func (r *LogReporter) Report(counters map[string]int64) {
	keys := make([]string, 0, len(counters))
	var total int64
	for k, v := range counters {
		keys = append(keys, k)
		total += v
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(keys)+1)
	for _, k := range keys {
		fields = append(fields, zap.Int64(k, counters[k]))
	}

	elapsed := time.Since(r.start).Seconds()
	if elapsed > 0 {
		fields = append(fields, zap.String("rate", FormatThroughput(float64(total)/elapsed)))
	}

	r.log.Info("Conversion progress", fields...)
}

// FormatThroughput formats items per second in a compact form.
func FormatThroughput(itemsPerSec float64) string {
	if itemsPerSec >= 1_000_000 {
		return fmt.Sprintf("%.1fM/s", itemsPerSec/1_000_000)
	}
	if itemsPerSec >= 1_000 {
		return fmt.Sprintf("%.1fK/s", itemsPerSec/1_000)
	}
	return fmt.Sprintf("%.0f/s", itemsPerSec)
}

// FormatBytes formats a byte count in a human-readable form.
func FormatBytes(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/mb)
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kb)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
