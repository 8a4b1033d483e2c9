package device

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// Resolver determines the host ID that tags recorded history
type Resolver struct {
	readFile func(string) ([]byte, error)
	command  func(name string, args ...string) ([]byte, error)
	hostname func() (string, error)
	goos     string
}

// NewResolver creates a resolver backed by the real OS
func NewResolver() *Resolver {
	return &Resolver{
		readFile: os.ReadFile,
		command: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).Output()
		},
		hostname: os.Hostname,
		goos:     runtime.GOOS,
	}
}

// HostID returns the configured ID, else a platform identifier, else a random UUID
func (r *Resolver) HostID(configured string) string {
	if id := strings.TrimSpace(configured); id != "" {
		return id
	}

	if id, err := r.platformID(); err == nil && id != "" {
		return id
	}

	return uuid.NewString()
}

func (r *Resolver) platformID() (string, error) {
	switch r.goos {
	case "darwin":
		return r.darwinID()
	case "linux":
		return r.linuxID()
	default:
		return r.hostnameID()
	}
}

// darwinID reads IOPlatformUUID from the IORegistry
func (r *Resolver) darwinID() (string, error) {
	output, err := r.command("ioreg", "-rd1", "-c", "IOPlatformExpertDevice")
	if err == nil {
		if id := parseIORegUUID(string(output)); id != "" {
			return id, nil
		}
	}
	return r.hostnameID()
}

func (r *Resolver) linuxID() (string, error) {
	for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		machineID, err := r.readFile(path)
		if err == nil && len(strings.TrimSpace(string(machineID))) > 0 {
			return strings.TrimSpace(string(machineID)), nil
		}
	}
	return r.hostnameID()
}

func (r *Resolver) hostnameID() (string, error) {
	hostname, err := r.hostname()
	if err == nil && hostname != "" {
		return r.goos + "-" + hostname, nil
	}
	return "", fmt.Errorf("could not determine %s host ID", r.goos)
}

// parseIORegUUID extracts the value of a line like
// `"IOPlatformUUID" = "7A1B2C3D-..."`.
func parseIORegUUID(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "IOPlatformUUID") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		return strings.Trim(strings.TrimSpace(parts[1]), `"`)
	}
	return ""
}
