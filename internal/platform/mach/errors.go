package mach

import "fmt"

// KernSuccess is the kern_return_t value of a successful Mach call.
const KernSuccess = 0

// KernError wraps a non-success kern_return_t.
type KernError struct {
	Call string
	Code int32
}

func (e *KernError) Error() string {
	return fmt.Sprintf("%s failed: kern_return_t %d", e.Call, e.Code)
}

func check(call string, code int32) error {
	if code == KernSuccess {
		return nil
	}
	return &KernError{Call: call, Code: code}
}
