package sampler

import (
	"github.com/dustin/go-humanize"
)

// CPUUsage answers getCpuUsage with a single read.
func (s *Sampler) CPUUsage() float64 {
	return s.CPUUsageWithRetry(1)
}

// CPUUsageWithRetry answers getCpuUsage, retrying a zero reading.
func (s *Sampler) CPUUsageWithRetry(maxAttempts int) float64 {
	return s.SampleCPUWithRetry(maxAttempts).Usage
}

// MemoryInfo answers getMemoryInfo with a single read.
func (s *Sampler) MemoryInfo() map[string]float64 {
	return s.MemoryInfoWithRetry(1)
}

// MemoryInfoWithRetry answers getMemoryInfo, retrying a zero reading.
func (s *Sampler) MemoryInfoWithRetry(maxAttempts int) map[string]float64 {
	return s.SampleMemoryWithRetry(maxAttempts).Info()
}

// DiskUsagePercentage answers getDiskUsagePercentage for the volume holding path.
func (s *Sampler) DiskUsagePercentage(path string) float64 {
	return s.SampleDisk(path).Usage
}

// Info flattens the sample into the keys the widget reads.
func (m MemorySample) Info() map[string]float64 {
	return map[string]float64{
		"usage":   m.Usage,
		"totalGB": m.TotalGB,
		"usedGB":  m.UsedGB,
		"freeGB":  m.FreeGB,
	}
}

// FormatBytes renders a byte count in binary units, e.g. "16 GiB".
func FormatBytes(bytes uint64) string {
	return humanize.IBytes(bytes)
}
