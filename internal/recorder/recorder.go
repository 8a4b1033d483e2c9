package recorder

import (
	"sync"
	"time"

	"notchbar/sysmonitor/internal/collector"
	"notchbar/sysmonitor/internal/models"
	"notchbar/sysmonitor/internal/sampler"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// pruneInterval is how often the retention pass runs.
const pruneInterval = time.Hour

// SnapshotWriter persists batches and enforces retention
type SnapshotWriter interface {
	Insert(snapshots []models.Snapshot) error
	Prune(olderThan time.Duration) (int64, error)
}

// Options configures a Recorder
type Options struct {
	Interval      time.Duration
	Retention     time.Duration
	RetryAttempts int
	DiskPath      string
	HostID        string
}

// Recorder samples the host at a fixed cadence and hands snapshots to the collector
type Recorder struct {
	sampler   *sampler.Sampler
	collector *collector.SnapshotCollector
	writer    SnapshotWriter
	opts      Options
	sessionID string
	logger    *zap.Logger

	latest   *models.Snapshot
	mu       sync.RWMutex
	stopChan chan struct{}
	wg       sync.WaitGroup
	now      func() time.Time
}

// NewRecorder creates a new recorder
func NewRecorder(
	s *sampler.Sampler,
	c *collector.SnapshotCollector,
	writer SnapshotWriter,
	opts Options,
	logger *zap.Logger,
) *Recorder {
	return &Recorder{
		sampler:   s,
		collector: c,
		writer:    writer,
		opts:      opts,
		sessionID: uuid.NewString(),
		logger:    logger,
		stopChan:  make(chan struct{}),
		now:       time.Now,
	}
}

// SessionID identifies this recorder run in stored rows
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Start begins recording
func (r *Recorder) Start() {
	r.collector.Start(r.persist)

	r.wg.Add(1)
	go r.recordLoop()

	r.logger.Info("Recorder started",
		zap.String("session_id", r.sessionID),
		zap.String("host_id", r.opts.HostID),
		zap.Duration("interval", r.opts.Interval),
		zap.Duration("retention", r.opts.Retention),
		zap.Int("retry_attempts", r.opts.RetryAttempts),
		zap.Duration("retry_delay", r.sampler.RetryDelay()),
	)
}

// Stop stops recording and flushes buffered snapshots
func (r *Recorder) Stop() {
	r.mu.Lock()
	select {
	case <-r.stopChan:
		r.mu.Unlock()
		return
	default:
		close(r.stopChan)
	}
	r.mu.Unlock()

	r.wg.Wait()
	r.collector.Stop()
	r.logger.Info("Recorder stopped")
}

// Latest returns the most recent snapshot, or nil before the first capture
func (r *Recorder) Latest() *models.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.latest == nil {
		return nil
	}
	snapshot := *r.latest
	return &snapshot
}

func (r *Recorder) recordLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()
	pruneTicker := time.NewTicker(pruneInterval)
	defer pruneTicker.Stop()

	r.prune()
	r.capture()

	for {
		select {
		case <-ticker.C:
			r.capture()
		case <-pruneTicker.C:
			r.prune()
		case <-r.stopChan:
			return
		}
	}
}

// capture takes one snapshot
func (r *Recorder) capture() {
	cpu := r.sampler.SampleCPUWithRetry(r.opts.RetryAttempts)
	mem := r.sampler.SampleMemoryWithRetry(r.opts.RetryAttempts)
	disk := r.sampler.SampleDisk(r.opts.DiskPath)

	snapshot := models.Snapshot{
		HostID:           r.opts.HostID,
		SessionID:        r.sessionID,
		CPUPercent:       cpu.Usage,
		MemoryPercent:    mem.Usage,
		MemoryUsedBytes:  mem.UsedBytes,
		MemoryTotalBytes: mem.TotalBytes,
		DiskPercent:      disk.Usage,
		SampledAt:        r.now().UnixMilli(),
	}

	r.mu.Lock()
	r.latest = &snapshot
	r.mu.Unlock()

	r.logger.Debug("Snapshot captured",
		zap.Float64("cpu_percent", snapshot.CPUPercent),
		zap.Float64("memory_percent", snapshot.MemoryPercent),
		zap.String("memory_used", sampler.FormatBytes(snapshot.MemoryUsedBytes)),
		zap.Float64("disk_percent", snapshot.DiskPercent),
	)

	r.collector.Add(snapshot)
}

func (r *Recorder) persist(batch []models.Snapshot) {
	if err := r.writer.Insert(batch); err != nil {
		r.logger.Error("Failed to store snapshots",
			zap.Int("count", len(batch)),
			zap.Error(err),
		)
	}
}

func (r *Recorder) prune() {
	if r.opts.Retention <= 0 {
		return
	}
	if _, err := r.writer.Prune(r.opts.Retention); err != nil {
		r.logger.Error("Failed to prune snapshots", zap.Error(err))
	}
}
