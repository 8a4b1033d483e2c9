package main

import (
	"encoding/json"
	"fmt"
	"io"

	"notchbar/sysmonitor/internal/config"
	"notchbar/sysmonitor/internal/sampler"
)

// printSample writes one CPU, memory and disk reading to w
func printSample(w io.Writer, s *sampler.Sampler, cfg config.SamplerConfig, asJSON bool) error {
	cpu := s.SampleCPUWithRetry(cfg.RetryAttempts)
	mem := s.SampleMemoryWithRetry(cfg.RetryAttempts)
	disk := s.SampleDisk(cfg.DiskPath)

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"cpu":    cpu,
			"memory": mem,
			"disk":   disk,
		})
	}

	_, err := fmt.Fprintf(w,
		"cpu     %5.1f%%\nmemory  %5.1f%%  %s of %s\ndisk    %5.1f%%  %s free on %s\n",
		cpu.Usage,
		mem.Usage,
		sampler.FormatBytes(mem.UsedBytes),
		sampler.FormatBytes(mem.TotalBytes),
		disk.Usage,
		sampler.FormatBytes(disk.FreeBytes),
		disk.Path,
	)
	return err
}
