// Package glerr holds the error taxonomy shared by the device, cache,
// and frame-executor packages: structured, recoverable shader errors
// that flow back to the caller, plus assertion helpers for the fatal
// programmer-error class that GPU API misuse belongs to.
package glerr

import "fmt"

// ShaderStage identifies which compilation stage a ShaderError occurred in.
type ShaderStage int

const (
	// StageCompilation indicates a single-stage (vertex or fragment) compile failure.
	StageCompilation ShaderStage = iota
	// StageLink indicates a program link failure.
	StageLink
)

// String returns the human-readable stage name.
func (s ShaderStage) String() string {
	switch s {
	case StageCompilation:
		return "compilation"
	case StageLink:
		return "link"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ShaderError is the structured, recoverable error returned from shader
// compilation or program linking. It is returned, never panicked; it
// surfaces from device.Device.CompileShader and CreateProgram, and,
// because shaders compile lazily on first bind, also from a frame's
// render call.
type ShaderError struct {
	Stage ShaderStage
	Name  string
	Log   string
}

func (e *ShaderError) Error() string {
	return fmt.Sprintf("shader %s %q failed: %s", e.Stage, e.Name, e.Log)
}

// InitReason enumerates the ways device/backend initialization can fail
// before any frame is ever rendered.
type InitReason int

const (
	// ReasonThread indicates the backend thread failed to start.
	ReasonThread InitReason = iota
	// ReasonMaxTextureSize indicates the driver's maximum texture size is
	// below config.Tunables.MinDeviceTextureSize.
	ReasonMaxTextureSize
)

// InitError reports a failure that occurs before the render loop begins.
type InitError struct {
	Reason InitReason
	Detail string
}

func (e *InitError) Error() string {
	switch e.Reason {
	case ReasonMaxTextureSize:
		return fmt.Sprintf("init: max texture size too small: %s", e.Detail)
	case ReasonThread:
		return fmt.Sprintf("init: backend thread failed to start: %s", e.Detail)
	default:
		return fmt.Sprintf("init: %s", e.Detail)
	}
}

// Assertf panics with a formatted message when cond is false. It is the
// single chokepoint for the fatal programmer-error class: missing
// textures, binding outside a frame, malformed composite batches. These
// are never recoverable and the library does not attempt to continue
// past them.
func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
