package mach

// Indexes into processor_cpu_load_info.cpu_ticks.
const (
	cpuStateUser = iota
	cpuStateSystem
	cpuStateIdle
	cpuStateNice
	cpuStateMax
)

// Ticks holds cumulative CPU ticks summed across processors.
type Ticks struct {
	User   uint64
	System uint64
	Idle   uint64
	Nice   uint64
}

// sumProcessorTicks folds a flat processor_info_array_t of CPU_STATE_MAX entries per
// processor into one aggregate. Entries past len(info) are ignored.
func sumProcessorTicks(info []uint32, processors int) Ticks {
	var t Ticks
	for i := 0; i < processors; i++ {
		base := i * cpuStateMax
		if base+cpuStateMax > len(info) {
			break
		}
		t.User += uint64(info[base+cpuStateUser])
		t.System += uint64(info[base+cpuStateSystem])
		t.Idle += uint64(info[base+cpuStateIdle])
		t.Nice += uint64(info[base+cpuStateNice])
	}
	return t
}
