//go:build darwin
// +build darwin

package platform

import (
	"fmt"

	"notchbar/sysmonitor/internal/platform/mach"

	"go.uber.org/zap"
)

type darwinHostStats struct {
	lib    *mach.Library
	logger *zap.Logger
}

func newDarwinHostStats(logger *zap.Logger) (HostStats, error) {
	lib, err := mach.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load mach host interface: %w", err)
	}
	return &darwinHostStats{lib: lib, logger: logger}, nil
}

func (p *darwinHostStats) CPULoad() (*CPULoad, error) {
	ticks, err := p.lib.CPULoad()
	if err != nil {
		return nil, err
	}
	return &CPULoad{
		User:   ticks.User,
		System: ticks.System,
		Idle:   ticks.Idle,
		Nice:   ticks.Nice,
	}, nil
}

func (p *darwinHostStats) VMStats() (*VMStats, error) {
	vm, err := p.lib.VMStatistics()
	if err != nil {
		return nil, err
	}
	return &VMStats{
		Free:        vm.Free,
		Active:      vm.Active,
		Inactive:    vm.Inactive,
		Wired:       vm.Wired,
		Compressed:  vm.Compressed,
		Speculative: vm.Speculative,
		PageSize:    vm.PageSize,
	}, nil
}

func (p *darwinHostStats) PhysicalMemory() (uint64, error) {
	return mach.PhysicalMemory()
}

func (p *darwinHostStats) DiskUsage(path string) (*DiskUsage, error) {
	return readDiskUsage(path)
}

func (p *darwinHostStats) HostInfo() (*HostInfo, error) {
	return readHostInfo(p.logger)
}
