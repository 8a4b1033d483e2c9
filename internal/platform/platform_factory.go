package platform

import (
	"runtime"

	"go.uber.org/zap"
)

// NewHostStats creates a platform-specific counter reader based on the current OS
func NewHostStats(logger *zap.Logger) (HostStats, error) {
	switch runtime.GOOS {
	case "darwin":
		return newDarwinHostStats(logger)
	case "linux", "windows", "freebsd":
		return newPortableHostStats(logger), nil
	default:
		return nil, &UnsupportedPlatformError{OS: runtime.GOOS}
	}
}

// UnsupportedPlatformError represents an error for unsupported platforms
type UnsupportedPlatformError struct {
	OS string
}

func (e *UnsupportedPlatformError) Error() string {
	return "unsupported platform: " + e.OS
}
