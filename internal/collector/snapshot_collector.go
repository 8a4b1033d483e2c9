package collector

import (
	"sync"
	"time"

	"notchbar/sysmonitor/internal/models"

	"go.uber.org/zap"
)

// SnapshotCollector buffers recorded snapshots and hands them off in batches
type SnapshotCollector struct {
	snapshots     []models.Snapshot
	batchSize     int
	flushInterval time.Duration
	onBatchReady  func([]models.Snapshot)
	logger        *zap.Logger
	mu            sync.Mutex
	flushTicker   *time.Ticker
	stopChan      chan struct{}
	wg            sync.WaitGroup
}

// NewSnapshotCollector creates a new snapshot collector
func NewSnapshotCollector(
	batchSize int,
	flushInterval time.Duration,
	logger *zap.Logger,
) *SnapshotCollector {
	if batchSize < 1 {
		batchSize = 1
	}
	return &SnapshotCollector{
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the collector with auto-flush
func (sc *SnapshotCollector) Start(onBatchReady func([]models.Snapshot)) {
	sc.onBatchReady = onBatchReady
	sc.flushTicker = time.NewTicker(sc.flushInterval)

	sc.wg.Add(1)
	go sc.autoFlushLoop()

	sc.logger.Info("Snapshot collector started",
		zap.Int("batch_size", sc.batchSize),
		zap.Duration("flush_interval", sc.flushInterval),
	)
}

// Stop stops the auto-flush loop and flushes whatever is still buffered
func (sc *SnapshotCollector) Stop() {
	sc.mu.Lock()
	select {
	case <-sc.stopChan:
		sc.mu.Unlock()
		return
	default:
		close(sc.stopChan)
	}
	sc.mu.Unlock()

	sc.wg.Wait()
	if sc.flushTicker != nil {
		sc.flushTicker.Stop()
	}

	sc.Flush()
	sc.logger.Info("Snapshot collector stopped")
}

// Add buffers a snapshot, flushing when the batch is full
func (sc *SnapshotCollector) Add(snapshot models.Snapshot) {
	sc.mu.Lock()
	sc.snapshots = append(sc.snapshots, snapshot)
	if len(sc.snapshots) < sc.batchSize {
		sc.mu.Unlock()
		return
	}
	batch := sc.drainLocked()
	sc.mu.Unlock()

	sc.logger.Debug("Batch size reached, flushing snapshots",
		zap.Int("count", len(batch)),
	)
	sc.deliver(batch)
}

// Flush hands off all buffered snapshots
func (sc *SnapshotCollector) Flush() {
	sc.mu.Lock()
	if len(sc.snapshots) == 0 {
		sc.mu.Unlock()
		return
	}
	batch := sc.drainLocked()
	sc.mu.Unlock()

	sc.logger.Debug("Flushing snapshots", zap.Int("count", len(batch)))
	sc.deliver(batch)
}

// PendingCount returns the number of buffered snapshots
func (sc *SnapshotCollector) PendingCount() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.snapshots)
}

func (sc *SnapshotCollector) drainLocked() []models.Snapshot {
	batch := make([]models.Snapshot, len(sc.snapshots))
	copy(batch, sc.snapshots)
	sc.snapshots = sc.snapshots[:0]
	return batch
}

func (sc *SnapshotCollector) deliver(batch []models.Snapshot) {
	if sc.onBatchReady != nil {
		sc.onBatchReady(batch)
	}
}

func (sc *SnapshotCollector) autoFlushLoop() {
	defer sc.wg.Done()

	for {
		select {
		case <-sc.flushTicker.C:
			sc.Flush()
		case <-sc.stopChan:
			return
		}
	}
}
