package coordinator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcaldas/blockfit/pkg/events"
)

func sequenceUsage(values ...float64) UsageSource {
	var i atomic.Int32
	return UsageFunc(func(context.Context) (float64, error) {
		n := int(i.Add(1)) - 1
		if n >= len(values) {
			n = len(values) - 1
		}
		return values[n], nil
	})
}

func TestWatch_HighPressure(t *testing.T) {
	c := quietCoordinator(WithUsageSource(sequenceUsage(0.5, 0.7, 0.95)))

	rec, err := c.Watch(context.Background(), 0.8, time.Millisecond, time.Second)

	require.NoError(t, err)
	assert.Equal(t, 0.95, rec.Usage)
	assert.Equal(t, 0.8, rec.Threshold)
	assert.Equal(t, PressureHigh, rec.PressureLevel)
	assert.False(t, rec.Timestamp.IsZero())
}

func TestWatch_ModeratePressureAtThreshold(t *testing.T) {
	c := quietCoordinator(WithUsageSource(sequenceUsage(0.8)))

	rec, err := c.Watch(context.Background(), 0.8, time.Millisecond, time.Second)

	require.NoError(t, err)
	assert.Equal(t, PressureModerate, rec.PressureLevel)
}

func TestWatch_ExactlyHighBoundaryIsModerate(t *testing.T) {
	c := quietCoordinator(WithUsageSource(sequenceUsage(0.9)))

	rec, err := c.Watch(context.Background(), 0.5, time.Millisecond, time.Second)

	require.NoError(t, err)
	assert.Equal(t, PressureModerate, rec.PressureLevel)
}

func TestWatch_TimesOut(t *testing.T) {
	c := quietCoordinator(WithUsageSource(sequenceUsage(0.1)))

	_, err := c.Watch(context.Background(), 0.8, 5*time.Millisecond, 30*time.Millisecond)

	assert.ErrorIs(t, err, ErrTimeout)
}

func TestWatch_SourceErrorsAreRetried(t *testing.T) {
	var calls atomic.Int32
	src := UsageFunc(func(context.Context) (float64, error) {
		if calls.Add(1) == 1 {
			return 0, errors.New("sensor offline")
		}
		return 0.99, nil
	})
	c := quietCoordinator(WithUsageSource(src))

	rec, err := c.Watch(context.Background(), 0.8, time.Millisecond, time.Second)

	require.NoError(t, err)
	assert.Equal(t, 0.99, rec.Usage)
}

func TestWatch_PublishesThresholdEvent(t *testing.T) {
	bus := events.NewEventBus()
	var (
		mu  sync.Mutex
		got []events.ThresholdCrossedEvent
	)
	bus.Subscribe(events.TopicThresholdCrossed, func(e any) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.(events.ThresholdCrossedEvent))
	})
	c := quietCoordinator(WithPublisher(bus), WithUsageSource(sequenceUsage(0.92)))

	_, err := c.Watch(context.Background(), 0.8, time.Millisecond, time.Second)
	require.NoError(t, err)
	bus.Shutdown()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "high", got[0].PressureLevel)
	assert.Equal(t, 0.92, got[0].Usage)
}

const sampleMemInfo = `MemTotal:        8000000 kB
MemFree:         1000000 kB
MemAvailable:    2000000 kB
Buffers:          100000 kB
`

func TestParseMemInfo(t *testing.T) {
	fields, err := parseMemInfo(strings.NewReader(sampleMemInfo + "HugePages_Total:       0\nbogus line\nKey: notanumber\n"))

	require.NoError(t, err)
	assert.Equal(t, uint64(8000000*1024), fields["MemTotal"])
	assert.Equal(t, uint64(2000000*1024), fields["MemAvailable"])
	assert.Equal(t, uint64(0), fields["HugePages_Total"])
	assert.NotContains(t, fields, "Key")
}

func TestUsedFraction(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]uint64
		want    float64
		wantErr string
	}{
		{"normal", map[string]uint64{"MemTotal": 100, "MemAvailable": 25}, 0.75, ""},
		{"missing available", map[string]uint64{"MemTotal": 100}, 0, "MemAvailable missing"},
		{"missing total", map[string]uint64{"MemAvailable": 100}, 0, "MemTotal missing"},
		{"zero total", map[string]uint64{"MemTotal": 0, "MemAvailable": 0}, 0, "zero"},
		{"available above total", map[string]uint64{"MemTotal": 100, "MemAvailable": 150}, 0, "exceeds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := usedFraction(tt.fields)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestMemInfoUsage_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meminfo")
	require.NoError(t, os.WriteFile(path, []byte("MemTotal: 100 kB\nMemAvailable: 200 kB\n"), 0o600))

	_, err := MemInfoUsage{Path: path}.Usage(context.Background())
	assert.ErrorContains(t, err, "exceeds")
}

func TestMemInfoUsage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meminfo")
	require.NoError(t, os.WriteFile(path, []byte(sampleMemInfo), 0o600))

	u, err := MemInfoUsage{Path: path}.Usage(context.Background())

	require.NoError(t, err)
	assert.InDelta(t, 0.75, u, 1e-9)
}

func TestSystemMemoryUsage_InRange(t *testing.T) {
	u, err := SystemMemoryUsage().Usage(context.Background())

	require.NoError(t, err)
	assert.GreaterOrEqual(t, u, 0.0)
	assert.LessOrEqual(t, u, 1.0)
}
