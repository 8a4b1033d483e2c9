package device

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

const ioregOutput = `+-o Mac14,3  <class IOPlatformExpertDevice, id 0x100000220, registered, matched, active, busy 0 (0 ms), retain 34>
    {
      "IOPlatformSerialNumber" = "C02XXXXXXX"
      "IOPlatformUUID" = "7A1B2C3D-4E5F-6071-8293-A4B5C6D7E8F9"
    }
`

var errMissing = errors.New("missing")

func testResolver(goos string) *Resolver {
	return &Resolver{
		readFile: func(string) ([]byte, error) { return nil, errMissing },
		command:  func(string, ...string) ([]byte, error) { return nil, errMissing },
		hostname: func() (string, error) { return "", errMissing },
		goos:     goos,
	}
}

func TestHostIDPrefersConfigured(t *testing.T) {
	r := testResolver("darwin")
	assert.Equal(t, "studio", r.HostID("  studio "))
}

func TestHostIDDarwinUsesIORegistry(t *testing.T) {
	r := testResolver("darwin")
	r.command = func(name string, args ...string) ([]byte, error) {
		assert.Equal(t, "ioreg", name)
		return []byte(ioregOutput), nil
	}

	assert.Equal(t, "7A1B2C3D-4E5F-6071-8293-A4B5C6D7E8F9", r.HostID(""))
}

func TestHostIDLinuxMachineID(t *testing.T) {
	r := testResolver("linux")
	r.readFile = func(path string) ([]byte, error) {
		if path == "/var/lib/dbus/machine-id" {
			return []byte("abc123\n"), nil
		}
		return nil, errMissing
	}

	assert.Equal(t, "abc123", r.HostID(""))
}

func TestHostIDFallsBackToHostname(t *testing.T) {
	r := testResolver("darwin")
	r.hostname = func() (string, error) { return "mbp", nil }

	assert.Equal(t, "darwin-mbp", r.HostID(""))
}

func TestHostIDFallsBackToUUID(t *testing.T) {
	r := testResolver("windows")

	id := r.HostID("")

	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}
