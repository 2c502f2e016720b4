package coordinator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/kcaldas/blockfit/pkg/events"
)

// HighPressureUsage is the usage above which a crossing is classified high.
const HighPressureUsage = 0.9

// PressureLevel classifies a threshold crossing.
type PressureLevel string

const (
	PressureModerate PressureLevel = "moderate"
	PressureHigh     PressureLevel = "high"
)

// ThresholdRecord describes the first observed crossing of a threshold.
type ThresholdRecord struct {
	Usage         float64       `json:"usage"`
	Threshold     float64       `json:"threshold"`
	Timestamp     time.Time     `json:"timestamp"`
	PressureLevel PressureLevel `json:"pressure_level"`
}

// UsageSource reports a usage fraction in [0, 1].
type UsageSource interface {
	Usage(ctx context.Context) (float64, error)
}

// UsageFunc adapts a function to UsageSource.
type UsageFunc func(ctx context.Context) (float64, error)

func (f UsageFunc) Usage(ctx context.Context) (float64, error) {
	return f(ctx)
}

// Watch polls the coordinator's usage source every checkInterval and returns
// as soon as usage reaches threshold. It fails with a *TimeoutError when the
// threshold is not reached within timeout.
func (c *Coordinator) Watch(ctx context.Context, threshold float64, checkInterval, timeout time.Duration) (ThresholdRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	desc := fmt.Sprintf("usage >= %.2f", threshold)
	rec, err := WaitFor(ctx, desc, timeout, checkInterval, func() (ThresholdRecord, bool, error) {
		usage, err := c.usage.Usage(ctx)
		if err != nil {
			return ThresholdRecord{}, false, err
		}
		if usage < threshold {
			return ThresholdRecord{}, false, nil
		}
		return ThresholdRecord{
			Usage:         usage,
			Threshold:     threshold,
			Timestamp:     time.Now(),
			PressureLevel: classifyPressure(usage),
		}, true, nil
	})
	if err != nil {
		return ThresholdRecord{}, err
	}

	c.logger.Warn("usage threshold crossed", "usage", rec.Usage, "threshold", threshold, "pressure", string(rec.PressureLevel))
	events.Emit(c.publisher, events.ThresholdCrossedEvent{
		Usage:         rec.Usage,
		Threshold:     rec.Threshold,
		PressureLevel: string(rec.PressureLevel),
		At:            rec.Timestamp,
	})
	return rec, nil
}

func classifyPressure(usage float64) PressureLevel {
	if usage > HighPressureUsage {
		return PressureHigh
	}
	return PressureModerate
}

// MemInfoUsage reads the used-memory fraction from a /proc/meminfo style file.
type MemInfoUsage struct {
	Path string
}

func (m MemInfoUsage) Usage(_ context.Context) (float64, error) {
	path := m.Path
	if path == "" {
		path = "/proc/meminfo"
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	fields, err := parseMemInfo(f)
	if err != nil {
		return 0, err
	}
	return usedFraction(fields)
}

// RuntimeHeapUsage reports in-use heap as a fraction of memory obtained from the OS.
type RuntimeHeapUsage struct{}

func (RuntimeHeapUsage) Usage(_ context.Context) (float64, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	if ms.Sys == 0 {
		return 0, nil
	}
	return float64(ms.HeapInuse) / float64(ms.Sys), nil
}

// SystemMemoryUsage prefers /proc/meminfo and falls back to runtime heap
// stats where it is unavailable (non-Linux hosts).
func SystemMemoryUsage() UsageSource {
	proc := MemInfoUsage{}
	heap := RuntimeHeapUsage{}
	return UsageFunc(func(ctx context.Context) (float64, error) {
		if u, err := proc.Usage(ctx); err == nil {
			return u, nil
		}
		return heap.Usage(ctx)
	})
}

// usedFraction computes (MemTotal-MemAvailable)/MemTotal.
func usedFraction(fields map[string]uint64) (float64, error) {
	total, ok := fields["MemTotal"]
	if !ok {
		return 0, fmt.Errorf("meminfo: MemTotal missing")
	}
	available, ok := fields["MemAvailable"]
	if !ok {
		return 0, fmt.Errorf("meminfo: MemAvailable missing")
	}
	if total == 0 {
		return 0, fmt.Errorf("meminfo: MemTotal is zero")
	}
	if available > total {
		return 0, fmt.Errorf("meminfo: MemAvailable %d exceeds MemTotal %d", available, total)
	}
	return float64(total-available) / float64(total), nil
}

// parseMemInfo reads "Key:  value [kB]" lines into bytes per key.
// Lines that do not carry a number are skipped.
func parseMemInfo(r io.Reader) (map[string]uint64, error) {
	fields := make(map[string]uint64)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, rest, found := strings.Cut(scanner.Text(), ":")
		if !found {
			continue
		}
		parts := strings.Fields(rest)
		if len(parts) == 0 {
			continue
		}
		n, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			continue
		}
		if len(parts) > 1 && strings.EqualFold(parts[1], "kB") {
			n *= 1024
		}
		fields[strings.TrimSpace(key)] = n
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("meminfo: %w", err)
	}
	return fields, nil
}
