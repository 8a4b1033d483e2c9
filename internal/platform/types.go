package platform

import "time"

// HostStats defines the interface for reading raw host counters
type HostStats interface {
	// CPULoad returns cumulative CPU ticks since boot, summed across all logical processors
	CPULoad() (*CPULoad, error)

	// VMStats returns virtual-memory page counts and the host page size
	VMStats() (*VMStats, error)

	// PhysicalMemory returns the total physical memory in bytes
	PhysicalMemory() (uint64, error)

	// DiskUsage returns capacity information for the volume holding path
	DiskUsage(path string) (*DiskUsage, error)

	// HostInfo returns static host information
	HostInfo() (*HostInfo, error)
}

// CPULoad contains aggregate tick counters per CPU state
type CPULoad struct {
	User   uint64
	System uint64
	Idle   uint64
	Nice   uint64
}

// VMStats contains page counts reported by the host
type VMStats struct {
	Free        uint64
	Active      uint64
	Inactive    uint64
	Wired       uint64
	Compressed  uint64
	Speculative uint64
	PageSize    uint64
}

// DiskUsage contains capacity information for one volume
type DiskUsage struct {
	Path  string
	Total uint64
	Used  uint64
	Free  uint64
}

// HostInfo contains host information
type HostInfo struct {
	OS                   string
	OSVersion            string
	Arch                 string
	Hostname             string
	ProcessorCount       int
	ActiveProcessorCount int
	Uptime               time.Duration
}
