// Package sampler derives CPU, memory and disk utilization from raw host counters.
//
// Every query reads absolute counters afresh and never returns an error: a failed
// read is logged and degrades to a zero-valued sample.
package sampler

import (
	"math"
	"time"

	"notchbar/sysmonitor/internal/platform"

	"go.uber.org/zap"
)

// DefaultRetryDelay is the fixed pause between retry attempts.
const DefaultRetryDelay = 10 * time.Millisecond

// Sampler reads host counters on demand
type Sampler struct {
	stats      platform.HostStats
	logger     *zap.Logger
	retryDelay time.Duration
	sleep      func(time.Duration)
}

// NewSampler creates a sampler over the given counter source
func NewSampler(stats platform.HostStats, retryDelay time.Duration, logger *zap.Logger) *Sampler {
	if retryDelay < 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Sampler{
		stats:      stats,
		logger:     logger,
		retryDelay: retryDelay,
		sleep:      time.Sleep,
	}
}

// SampleCPU returns aggregate CPU utilization since boot
func (s *Sampler) SampleCPU() CPUSample {
	load, err := s.stats.CPULoad()
	if err != nil {
		s.logger.Warn("Failed to read CPU counters", zap.Error(err))
		return CPUSample{}
	}
	return newCPUSample(load)
}

// SampleMemory returns physical memory utilization
func (s *Sampler) SampleMemory() MemorySample {
	vm, err := s.stats.VMStats()
	if err != nil {
		s.logger.Warn("Failed to read memory statistics", zap.Error(err))
		return MemorySample{}
	}

	total, err := s.stats.PhysicalMemory()
	if err != nil {
		s.logger.Warn("Failed to read physical memory size", zap.Error(err))
		return MemorySample{}
	}

	return newMemorySample(vm, total)
}

// SampleDisk returns capacity usage of the volume holding path
func (s *Sampler) SampleDisk(path string) DiskSample {
	usage, err := s.stats.DiskUsage(path)
	if err != nil {
		s.logger.Warn("Failed to read disk usage",
			zap.String("path", path),
			zap.Error(err),
		)
		return DiskSample{Path: path}
	}
	return newDiskSample(usage)
}

// SystemInfo returns live usage together with host facts
func (s *Sampler) SystemInfo() SystemInfo {
	info := SystemInfo{
		CPU:    s.SampleCPU().Usage,
		Memory: s.SampleMemory(),
	}
	info.PhysicalMemory = info.Memory.TotalBytes

	host, err := s.stats.HostInfo()
	if err != nil {
		s.logger.Warn("Failed to read host info", zap.Error(err))
		return info
	}
	info.OSVersion = host.OSVersion
	info.Hostname = host.Hostname
	info.ProcessorCount = host.ProcessorCount
	info.ActiveProcessorCount = host.ActiveProcessorCount
	info.SystemUptime = host.Uptime
	info.SystemUptimeSeconds = host.Uptime.Seconds()
	return info
}

func newCPUSample(load *platform.CPULoad) CPUSample {
	sample := CPUSample{
		User:   load.User,
		System: load.System,
		Idle:   load.Idle,
		Nice:   load.Nice,
	}

	active := load.User + load.System + load.Nice
	total := active + load.Idle
	if total == 0 {
		return sample
	}
	sample.Usage = clampPercent(float64(active) / float64(total) * 100)
	return sample
}

func newMemorySample(vm *platform.VMStats, total uint64) MemorySample {
	used := (vm.Active + vm.Inactive + vm.Wired + vm.Compressed) * vm.PageSize
	// Kernel page accounting can briefly exceed hw.memsize.
	if used > total {
		used = total
	}

	sample := MemorySample{
		TotalBytes: total,
		UsedBytes:  used,
		FreeBytes:  total - used,
		TotalGB:    toGB(total),
		UsedGB:     toGB(used),
		FreeGB:     toGB(total - used),
	}
	if total > 0 {
		sample.Usage = clampPercent(float64(used) / float64(total) * 100)
	}
	return sample
}

func newDiskSample(usage *platform.DiskUsage) DiskSample {
	sample := DiskSample{
		Path:       usage.Path,
		TotalBytes: usage.Total,
		UsedBytes:  usage.Used,
		FreeBytes:  usage.Free,
		TotalGB:    toGB(usage.Total),
		UsedGB:     toGB(usage.Used),
		FreeGB:     toGB(usage.Free),
	}
	if usage.Total > 0 {
		sample.Usage = clampPercent(float64(usage.Used) / float64(usage.Total) * 100)
	}
	return sample
}

func toGB(bytes uint64) float64 {
	return float64(bytes) / bytesPerGB
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
