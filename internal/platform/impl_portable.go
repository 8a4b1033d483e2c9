package platform

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"
)

// ticksPerSecond converts gopsutil CPU seconds back into kernel clock ticks (USER_HZ).
const ticksPerSecond = 100

// portableHostStats reads counters through gopsutil on hosts without a Mach kernel.
type portableHostStats struct {
	logger *zap.Logger
}

func newPortableHostStats(logger *zap.Logger) *portableHostStats {
	return &portableHostStats{logger: logger}
}

func (p *portableHostStats) CPULoad() (*CPULoad, error) {
	times, err := cpu.Times(false)
	if err != nil {
		return nil, fmt.Errorf("failed to read cpu times: %w", err)
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("failed to read cpu times: no aggregate entry")
	}
	return cpuLoadFromTimes(times[0]), nil
}

// cpuLoadFromTimes folds the extra Linux states into the four Mach-style buckets.
func cpuLoadFromTimes(t cpu.TimesStat) *CPULoad {
	return &CPULoad{
		User:   secondsToTicks(t.User),
		System: secondsToTicks(t.System + t.Irq + t.Softirq + t.Steal),
		Idle:   secondsToTicks(t.Idle + t.Iowait),
		Nice:   secondsToTicks(t.Nice),
	}
}

func secondsToTicks(seconds float64) uint64 {
	if seconds <= 0 {
		return 0
	}
	return uint64(seconds * ticksPerSecond)
}

func (p *portableHostStats) VMStats() (*VMStats, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to read virtual memory: %w", err)
	}
	return vmStatsFromVirtualMemory(vm, uint64(os.Getpagesize())), nil
}

func vmStatsFromVirtualMemory(vm *mem.VirtualMemoryStat, pageSize uint64) *VMStats {
	if pageSize == 0 {
		pageSize = 4096
	}
	return &VMStats{
		Free:     vm.Free / pageSize,
		Active:   vm.Active / pageSize,
		Inactive: vm.Inactive / pageSize,
		Wired:    vm.Wired / pageSize,
		PageSize: pageSize,
	}
}

func (p *portableHostStats) PhysicalMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("failed to read physical memory: %w", err)
	}
	return vm.Total, nil
}

func (p *portableHostStats) DiskUsage(path string) (*DiskUsage, error) {
	return readDiskUsage(path)
}

func (p *portableHostStats) HostInfo() (*HostInfo, error) {
	return readHostInfo(p.logger)
}

func readDiskUsage(path string) (*DiskUsage, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read disk usage for %s: %w", path, err)
	}
	return &DiskUsage{
		Path:  usage.Path,
		Total: usage.Total,
		Used:  usage.Used,
		Free:  usage.Free,
	}, nil
}

// readHostInfo is shared by every implementation; missing pieces are logged and left empty.
func readHostInfo(logger *zap.Logger) (*HostInfo, error) {
	info := &HostInfo{
		OS:                   runtime.GOOS,
		Arch:                 runtime.GOARCH,
		ActiveProcessorCount: runtime.NumCPU(),
	}

	hostInfo, err := host.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to read host info: %w", err)
	}
	info.Hostname = hostInfo.Hostname
	info.OSVersion = hostInfo.PlatformVersion
	info.Uptime = time.Duration(hostInfo.Uptime) * time.Second

	count, err := cpu.Counts(true)
	if err != nil {
		logger.Debug("Failed to read logical processor count", zap.Error(err))
		count = runtime.NumCPU()
	}
	info.ProcessorCount = count

	return info, nil
}
