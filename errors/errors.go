package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseRead    Phase = "read"    // byte source and tokenizing
	PhaseParse   Phase = "parse"   // token to typed value
	PhaseCompare Phase = "compare" // tolerant comparison
	PhaseBridge  Phase = "bridge"  // handle registry and buffer protocol
	PhaseHost    Phase = "host"    // host module registration
	PhaseLoad    Phase = "load"    // guest module loading
	PhaseRuntime Phase = "runtime" // guest execution
	PhaseConfig  Phase = "config"  // configuration and arguments
)

// Kind categorizes the error
type Kind string

const (
	KindIO             Kind = "io"
	KindInvalidUTF8    Kind = "invalid_utf8"
	KindParse          Kind = "parse"
	KindNaNTolerance   Kind = "nan_tolerance"
	KindInvalidHandle  Kind = "invalid_handle"
	KindTypeMismatch   Kind = "type_mismatch"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindMissingImport  Kind = "missing_import"
	KindInstantiation  Kind = "instantiation"
	KindInvalidInput   Kind = "invalid_input"
	KindNotFound       Kind = "not_found"
	KindRegistration   Kind = "registration"
	KindUnexpectedExit Kind = "unexpected_exit"
)

// Error is the structured fault type. A fault means the checker itself is broken
// (or its inputs are unreadable), never that the candidate is wrong.
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Target string
	Detail string
	Handle uint32
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Handle != 0 {
		fmt.Fprintf(&b, " at handle %d", e.Handle)
	}

	if e.Target != "" {
		b.WriteString(": type ")
		b.WriteString(e.Target)
	}

	if e.Detail != "" {
		if e.Target != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Target sets the name of the type being produced
func (b *Builder) Target(t string) *Builder {
	b.err.Target = t
	return b
}

// Handle sets the bridge handle involved
func (b *Builder) Handle(h uint32) *Builder {
	b.err.Handle = h
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// IO creates a read failure other than end-of-stream
func IO(cause error) *Error {
	return &Error{
		Phase:  PhaseRead,
		Kind:   KindIO,
		Detail: "unexpected error while reading",
		Cause:  cause,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// ParseFailed creates a conversion error for a token that is not a valid target value
func ParseFailed(token, target string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindParse,
		Target: target,
		Detail: fmt.Sprintf("failed to convert token %q", token),
		Value:  token,
		Cause:  cause,
	}
}

// NaNTolerance creates the error raised when a comparison is given a NaN tolerance
func NaNTolerance() *Error {
	return &Error{
		Phase:  PhaseCompare,
		Kind:   KindNaNTolerance,
		Detail: "tolerance cannot be NaN",
	}
}

// InvalidHandle creates an error for an unknown or released handle
func InvalidHandle(h uint32, what string) *Error {
	return &Error{
		Phase:  PhaseBridge,
		Kind:   KindInvalidHandle,
		Handle: h,
		Detail: fmt.Sprintf("%s handle is not live", what),
	}
}

// TypeMismatch creates an error for a handle used as the wrong instance type
func TypeMismatch(h uint32, want, got string) *Error {
	return &Error{
		Phase:  PhaseBridge,
		Kind:   KindTypeMismatch,
		Handle: h,
		Target: want,
		Detail: fmt.Sprintf("handle refers to %s", got),
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, offset, length, size uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("range [%d, %d) out of bounds (size %d)", offset, offset+length, size),
		Value:  offset,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingImport represents a single unresolved import
type MissingImport struct {
	Module   string // e.g., "wave"
	Function string // e.g., "wave_read_token"
}

// MissingImportsError is returned when a guest module imports functions the host does not provide
type MissingImportsError struct {
	Imports []MissingImport
}

// NewMissingImportsError creates an error from a list of "module#function" strings
func NewMissingImportsError(imports []string) *MissingImportsError {
	result := &MissingImportsError{
		Imports: make([]MissingImport, 0, len(imports)),
	}
	for _, imp := range imports {
		mod, fn := parseImportKey(imp)
		result.Imports = append(result.Imports, MissingImport{
			Module:   mod,
			Function: fn,
		})
	}
	return result
}

func parseImportKey(key string) (module, function string) {
	mod, fn, found := strings.Cut(key, "#")
	if found {
		return mod, fn
	}
	return key, ""
}

func (e *MissingImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "[load] missing_import: no imports specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("missing %d host function(s):\n", len(e.Imports)))

	// Group by module for cleaner output
	byMod := make(map[string][]string)
	var modOrder []string
	for _, imp := range e.Imports {
		if _, exists := byMod[imp.Module]; !exists {
			modOrder = append(modOrder, imp.Module)
		}
		byMod[imp.Module] = append(byMod[imp.Module], imp.Function)
	}

	for _, mod := range modOrder {
		b.WriteString("\n  ")
		b.WriteString(mod)
		b.WriteString(":\n")
		for _, fn := range byMod[mod] {
			b.WriteString("    - ")
			b.WriteString(fn)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingImportsError) Is(target error) bool {
	_, ok := target.(*MissingImportsError)
	return ok
}

// Runtime package convenience constructors

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a host function registration error
func Registration(module, name string, cause error) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s#%s", module, name),
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}

// UnexpectedExit creates an error for a guest that exited with a non-zero status
// without producing a verdict
func UnexpectedExit(code uint32) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindUnexpectedExit,
		Detail: fmt.Sprintf("guest exited with status %d", code),
		Value:  code,
	}
}
