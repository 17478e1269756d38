package media

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProbeFailed is returned when the probe process fails or exits non-zero.
	ErrProbeFailed = errors.New("probe failed")
	// ErrRemuxFailed is returned when the remux process fails or exits non-zero.
	ErrRemuxFailed = errors.New("remux failed")
	// ErrMalformedProbeOutput is returned when the probe succeeded but its
	// output carries no usable geometry.
	ErrMalformedProbeOutput = errors.New("malformed probe output")
)

// ToolError describes a failed external tool invocation. It matches
// ErrProbeFailed or ErrRemuxFailed through errors.Is.
type ToolError struct {
	Op       string
	ExitCode int
	Stderr   string
	Err      error

	kind error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	} else {
		fmt.Fprintf(&b, ": exit status %d", e.ExitCode)
	}
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		fmt.Fprintf(&b, ": %s", msg)
	}
	return b.String()
}

// Unwrap exposes both the failure class and the underlying cause.
func (e *ToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.Err}
}

func toolError(kind error, op string, res Result, err error) *ToolError {
	return &ToolError{
		Op:       op,
		ExitCode: res.ExitCode,
		Stderr:   string(res.Stderr),
		Err:      err,
		kind:     kind,
	}
}
