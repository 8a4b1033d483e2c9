package sampler

import (
	"time"

	"go.uber.org/zap"
)

// SampleCPUWithRetry samples CPU usage up to maxAttempts times, retrying while usage is <= 0.
// A genuinely idle host cannot be told apart from a failed read; the last attempt is returned either way.
func (s *Sampler) SampleCPUWithRetry(maxAttempts int) CPUSample {
	return retry(s, "cpu", maxAttempts, s.SampleCPU, func(c CPUSample) float64 { return c.Usage })
}

// SampleMemoryWithRetry samples memory up to maxAttempts times, retrying while usage is <= 0.
func (s *Sampler) SampleMemoryWithRetry(maxAttempts int) MemorySample {
	return retry(s, "memory", maxAttempts, s.SampleMemory, func(m MemorySample) float64 { return m.Usage })
}

func retry[T any](s *Sampler, kind string, maxAttempts int, sample func() T, usage func(T) float64) T {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var result T
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result = sample()
		if usage(result) > 0 || attempt == maxAttempts {
			if attempt > 1 {
				s.logger.Debug("Sample retried",
					zap.String("kind", kind),
					zap.Int("attempts", attempt),
					zap.Float64("usage", usage(result)),
				)
			}
			return result
		}
		s.sleep(s.retryDelay)
	}
	return result
}

// RetryDelay returns the fixed pause between attempts.
func (s *Sampler) RetryDelay() time.Duration {
	return s.retryDelay
}
