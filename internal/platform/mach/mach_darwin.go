//go:build darwin

// Package mach reads host-wide CPU and virtual-memory counters through the Mach host
// interface. libSystem is loaded with purego so the package builds without cgo.
package mach

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/unix"
)

const (
	systemLibPath = "/usr/lib/libSystem.B.dylib"

	// mach/processor_info.h
	processorCPULoadInfo = 2

	// mach/host_info.h
	hostVMInfo64 = 4
)

// vmStatistics64 mirrors struct vm_statistics64 from mach/vm_statistics.h.
type vmStatistics64 struct {
	FreeCount                          uint32
	ActiveCount                        uint32
	InactiveCount                      uint32
	WireCount                          uint32
	ZeroFillCount                      uint64
	Reactivations                      uint64
	Pageins                            uint64
	Pageouts                           uint64
	Faults                             uint64
	CowFaults                          uint64
	Lookups                            uint64
	Hits                               uint64
	Purges                             uint64
	PurgeableCount                     uint32
	SpeculativeCount                   uint32
	Decompressions                     uint64
	Compressions                       uint64
	Swapins                            uint64
	Swapouts                           uint64
	CompressorPageCount                uint32
	ThrottledCount                     uint32
	ExternalPageCount                  uint32
	InternalPageCount                  uint32
	TotalUncompressedPagesInCompressor uint64
}

// HOST_VM_INFO64_COUNT
var hostVMInfo64Count = uint32(unsafe.Sizeof(vmStatistics64{}) / unsafe.Sizeof(int32(0)))

// VMStatistics holds the page counts the sampler needs.
type VMStatistics struct {
	Free        uint64
	Active      uint64
	Inactive    uint64
	Wired       uint64
	Compressed  uint64
	Speculative uint64
	PageSize    uint64
}

// Library holds the libSystem entry points.
type Library struct {
	handle uintptr

	machHostSelf       func() uint32
	machTaskSelf       func() uint32
	machPortDeallocate func(task, name uint32) int32
	hostProcessorInfo  func(host uint32, flavor int32, outProcessorCount *uint32,
		outProcessorInfo *unsafe.Pointer, outProcessorInfoCnt *uint32) int32
	hostStatistics64 func(host uint32, flavor int32, hostInfoOut unsafe.Pointer, hostInfoOutCnt *uint32) int32
	hostPageSize     func(host uint32, pageSize *uintptr) int32
	vmDeallocate     func(task uint32, address, size uintptr) int32
}

var (
	loadOnce sync.Once
	loaded   *Library
	loadErr  error
)

// Load opens libSystem once per process.
func Load() (*Library, error) {
	loadOnce.Do(func() {
		loaded, loadErr = open()
	})
	return loaded, loadErr
}

func open() (*Library, error) {
	handle, err := purego.Dlopen(systemLibPath, purego.RTLD_LAZY|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", systemLibPath, err)
	}

	lib := &Library{handle: handle}
	purego.RegisterLibFunc(&lib.machHostSelf, handle, "mach_host_self")
	purego.RegisterLibFunc(&lib.machTaskSelf, handle, "mach_task_self")
	purego.RegisterLibFunc(&lib.machPortDeallocate, handle, "mach_port_deallocate")
	purego.RegisterLibFunc(&lib.hostProcessorInfo, handle, "host_processor_info")
	purego.RegisterLibFunc(&lib.hostStatistics64, handle, "host_statistics64")
	purego.RegisterLibFunc(&lib.hostPageSize, handle, "host_page_size")
	purego.RegisterLibFunc(&lib.vmDeallocate, handle, "vm_deallocate")

	return lib, nil
}

// withHost acquires a host port for the duration of fn and always releases it.
func (l *Library) withHost(fn func(host uint32) error) error {
	host := l.machHostSelf()
	defer l.machPortDeallocate(l.machTaskSelf(), host)
	return fn(host)
}

// CPULoad returns CPU ticks since boot summed over every processor.
func (l *Library) CPULoad() (Ticks, error) {
	var ticks Ticks
	err := l.withHost(func(host uint32) error {
		var processors, infoCount uint32
		var info unsafe.Pointer
		code := l.hostProcessorInfo(host, processorCPULoadInfo, &processors, &info, &infoCount)
		if err := check("host_processor_info", code); err != nil {
			return err
		}
		defer l.vmDeallocate(l.machTaskSelf(), uintptr(info), uintptr(infoCount)*unsafe.Sizeof(int32(0)))

		if info == nil || infoCount == 0 {
			return nil
		}
		ticks = sumProcessorTicks(unsafe.Slice((*uint32)(info), infoCount), int(processors))
		return nil
	})
	return ticks, err
}

// VMStatistics returns HOST_VM_INFO64 page counts and the host page size.
func (l *Library) VMStatistics() (VMStatistics, error) {
	var stats VMStatistics
	err := l.withHost(func(host uint32) error {
		var vm vmStatistics64
		count := hostVMInfo64Count
		if err := check("host_statistics64", l.hostStatistics64(host, hostVMInfo64, unsafe.Pointer(&vm), &count)); err != nil {
			return err
		}

		var pageSize uintptr
		if err := check("host_page_size", l.hostPageSize(host, &pageSize)); err != nil {
			return err
		}

		stats = VMStatistics{
			Free:        uint64(vm.FreeCount),
			Active:      uint64(vm.ActiveCount),
			Inactive:    uint64(vm.InactiveCount),
			Wired:       uint64(vm.WireCount),
			Compressed:  uint64(vm.CompressorPageCount),
			Speculative: uint64(vm.SpeculativeCount),
			PageSize:    uint64(pageSize),
		}
		return nil
	})
	return stats, err
}

// PhysicalMemory returns hw.memsize.
func PhysicalMemory() (uint64, error) {
	size, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return 0, fmt.Errorf("failed to read hw.memsize: %w", err)
	}
	return size, nil
}
