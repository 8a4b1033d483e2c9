package server

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"notchbar/sysmonitor/internal/models"
	"notchbar/sysmonitor/internal/sampler"

	"go.uber.org/zap"
)

// ErrMethodNotImplemented is returned for method names the dispatcher does not know.
var ErrMethodNotImplemented = errors.New("method not implemented")

const (
	defaultHistoryLimit = 60
	maxHistoryLimit     = 1000
)

// Params carries optional arguments of a call
type Params struct {
	Limit int    `json:"limit,omitempty"`
	Path  string `json:"path,omitempty"`
}

// HistoryReader is the read side of the snapshot history
type HistoryReader interface {
	Recent(limit int) ([]models.Snapshot, error)
	Count() (int, error)
}

// LatestSource exposes the recorder's most recent capture
type LatestSource interface {
	Latest() *models.Snapshot
	SessionID() string
}

// Options configures a Dispatcher. History and Latest may be nil when recording is disabled.
type Options struct {
	History       HistoryReader
	Latest        LatestSource
	RetryAttempts int
	DiskPath      string
	// HomeDir selects the volume for getDiskUsagePercentage; empty resolves the user's home.
	HomeDir string
}

// LatestSnapshot is the getLatestSnapshot result; Snapshot is nil before the first capture
type LatestSnapshot struct {
	SessionID string           `json:"sessionId"`
	Snapshot  *models.Snapshot `json:"snapshot"`
}

type handlerFunc func(Params) (any, error)

var userHomeDir = os.UserHomeDir

// Dispatcher maps widget method names to sampler queries
type Dispatcher struct {
	sampler *sampler.Sampler
	opts    Options
	methods map[string]handlerFunc
	logger  *zap.Logger
}

// NewDispatcher creates a dispatcher over the sampler
func NewDispatcher(s *sampler.Sampler, opts Options, logger *zap.Logger) *Dispatcher {
	if opts.HomeDir == "" {
		home, err := userHomeDir()
		if err != nil || home == "" {
			logger.Warn("Failed to resolve home directory, using disk path",
				zap.String("disk_path", opts.DiskPath),
				zap.Error(err),
			)
			home = opts.DiskPath
		}
		opts.HomeDir = home
	}

	d := &Dispatcher{
		sampler: s,
		opts:    opts,
		logger:  logger,
	}
	d.methods = map[string]handlerFunc{
		"getSystemInfo":          d.getSystemInfo,
		"getCpuUsage":            d.getCPUUsage,
		"getMemoryInfo":          d.getMemoryInfo,
		"getDiskInfo":            d.getDiskInfo,
		"getDiskUsagePercentage": d.getDiskUsagePercentage,
		"getHostInfo":            d.getHostInfo,
	}
	if opts.History != nil {
		d.methods["getHistory"] = d.getHistory
	}
	if opts.Latest != nil {
		d.methods["getLatestSnapshot"] = d.getLatestSnapshot
	}
	return d
}

// Call runs the named method
func (d *Dispatcher) Call(method string, params Params) (any, error) {
	handler, ok := d.methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotImplemented, method)
	}
	return handler(params)
}

// Methods lists the method names in sorted order
func (d *Dispatcher) Methods() []string {
	names := make([]string, 0, len(d.methods))
	for name := range d.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Dispatcher) getSystemInfo(Params) (any, error) {
	cpu := d.sampler.SampleCPUWithRetry(d.opts.RetryAttempts)
	mem := d.sampler.SampleMemoryWithRetry(d.opts.RetryAttempts)
	return map[string]float64{
		"cpu":         cpu.Usage,
		"memoryUsage": mem.Usage,
		"totalMemory": mem.TotalGB,
		"usedMemory":  mem.UsedGB,
	}, nil
}

func (d *Dispatcher) getCPUUsage(Params) (any, error) {
	return d.sampler.CPUUsageWithRetry(d.opts.RetryAttempts), nil
}

func (d *Dispatcher) getMemoryInfo(Params) (any, error) {
	return d.sampler.MemoryInfoWithRetry(d.opts.RetryAttempts), nil
}

func (d *Dispatcher) getDiskInfo(p Params) (any, error) {
	path := d.opts.DiskPath
	if p.Path != "" {
		path = p.Path
	}
	disk := d.sampler.SampleDisk(path)
	return map[string]any{
		"path":    path,
		"usage":   disk.Usage,
		"totalGB": disk.TotalGB,
		"usedGB":  disk.UsedGB,
		"freeGB":  disk.FreeGB,
	}, nil
}

// getDiskUsagePercentage reports the home volume as a bare percentage
func (d *Dispatcher) getDiskUsagePercentage(Params) (any, error) {
	return d.sampler.DiskUsagePercentage(d.opts.HomeDir), nil
}

func (d *Dispatcher) getHostInfo(Params) (any, error) {
	return d.sampler.SystemInfo(), nil
}

func (d *Dispatcher) getHistory(p Params) (any, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	snapshots, err := d.opts.History.Recent(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	total, err := d.opts.History.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count history: %w", err)
	}
	return models.HistoryResponse{Snapshots: snapshots, Total: total}, nil
}

func (d *Dispatcher) getLatestSnapshot(Params) (any, error) {
	return LatestSnapshot{
		SessionID: d.opts.Latest.SessionID(),
		Snapshot:  d.opts.Latest.Latest(),
	}, nil
}
