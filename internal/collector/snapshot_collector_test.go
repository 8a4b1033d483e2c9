package collector

import (
	"sync"
	"testing"
	"time"

	"notchbar/sysmonitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type batchSink struct {
	mu      sync.Mutex
	batches [][]models.Snapshot
}

func (b *batchSink) receive(batch []models.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batches = append(b.batches, batch)
}

func (b *batchSink) sizes() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	sizes := make([]int, 0, len(b.batches))
	for _, batch := range b.batches {
		sizes = append(sizes, len(batch))
	}
	return sizes
}

func TestAddFlushesAtBatchSize(t *testing.T) {
	sink := &batchSink{}
	c := NewSnapshotCollector(3, time.Hour, zap.NewNop())
	c.Start(sink.receive)
	defer c.Stop()

	for i := 0; i < 7; i++ {
		c.Add(models.Snapshot{CPUPercent: float64(i)})
	}

	assert.Equal(t, []int{3, 3}, sink.sizes())
	assert.Equal(t, 1, c.PendingCount())
}

func TestStopFlushesRemainder(t *testing.T) {
	sink := &batchSink{}
	c := NewSnapshotCollector(10, time.Hour, zap.NewNop())
	c.Start(sink.receive)

	c.Add(models.Snapshot{SampledAt: 1})
	c.Add(models.Snapshot{SampledAt: 2})
	c.Stop()
	c.Stop()

	require.Equal(t, []int{2}, sink.sizes())
	assert.Equal(t, int64(2), sink.batches[0][1].SampledAt)
	assert.Zero(t, c.PendingCount())
}

func TestFlushOnEmptyBufferIsNoop(t *testing.T) {
	sink := &batchSink{}
	c := NewSnapshotCollector(5, time.Hour, zap.NewNop())
	c.Start(sink.receive)
	defer c.Stop()

	c.Flush()

	assert.Empty(t, sink.sizes())
}

func TestAutoFlush(t *testing.T) {
	sink := &batchSink{}
	c := NewSnapshotCollector(100, 20*time.Millisecond, zap.NewNop())
	c.Start(sink.receive)
	defer c.Stop()

	c.Add(models.Snapshot{})

	assert.Eventually(t, func() bool {
		return len(sink.sizes()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestBatchIsDetachedFromBuffer(t *testing.T) {
	sink := &batchSink{}
	c := NewSnapshotCollector(1, time.Hour, zap.NewNop())
	c.Start(sink.receive)
	defer c.Stop()

	c.Add(models.Snapshot{HostID: "a"})
	c.Add(models.Snapshot{HostID: "b"})

	require.Len(t, sink.batches, 2)
	assert.Equal(t, "a", sink.batches[0][0].HostID)
	assert.Equal(t, "b", sink.batches[1][0].HostID)
}
