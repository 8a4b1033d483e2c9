//go:build !darwin
// +build !darwin

package platform

import (
	"go.uber.org/zap"
)

func newDarwinHostStats(logger *zap.Logger) (HostStats, error) {
	return nil, &UnsupportedPlatformError{OS: "darwin (not compiled for this platform)"}
}
