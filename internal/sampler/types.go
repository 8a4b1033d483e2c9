package sampler

import "time"

// bytesPerGB converts byte counts to the GiB figures the widget displays.
const bytesPerGB = 1 << 30

// CPUSample is one observation of cumulative CPU ticks and the utilization derived from them.
type CPUSample struct {
	User   uint64  `json:"user"`
	System uint64  `json:"system"`
	Idle   uint64  `json:"idle"`
	Nice   uint64  `json:"nice"`
	Usage  float64 `json:"usage"`
}

// MemorySample is one observation of physical memory use.
type MemorySample struct {
	TotalBytes uint64  `json:"totalBytes"`
	UsedBytes  uint64  `json:"usedBytes"`
	FreeBytes  uint64  `json:"freeBytes"`
	Usage      float64 `json:"usage"`
	TotalGB    float64 `json:"totalGB"`
	UsedGB     float64 `json:"usedGB"`
	FreeGB     float64 `json:"freeGB"`
}

// DiskSample is one observation of a volume's capacity.
type DiskSample struct {
	Path       string  `json:"path"`
	TotalBytes uint64  `json:"totalBytes"`
	UsedBytes  uint64  `json:"usedBytes"`
	FreeBytes  uint64  `json:"freeBytes"`
	Usage      float64 `json:"usage"`
	TotalGB    float64 `json:"totalGB"`
	UsedGB     float64 `json:"usedGB"`
	FreeGB     float64 `json:"freeGB"`
}

// SystemInfo combines live usage with static host facts.
type SystemInfo struct {
	CPU                  float64       `json:"cpu"`
	Memory               MemorySample  `json:"memory"`
	OSVersion            string        `json:"osVersion"`
	Hostname             string        `json:"hostname"`
	ProcessorCount       int           `json:"processorCount"`
	ActiveProcessorCount int           `json:"activeProcessorCount"`
	PhysicalMemory       uint64        `json:"physicalMemory"`
	SystemUptime         time.Duration `json:"-"`
	SystemUptimeSeconds  float64       `json:"systemUptime"`
}
