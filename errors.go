package labpbr

import (
	"errors"
	"strings"
)

var (
	// ErrDecode indicates a malformed, truncated or unsupported image.
	ErrDecode = errors.New("decode error")

	// ErrConfig indicates a material configuration that cannot be parsed.
	ErrConfig = errors.New("config error")

	// ErrIO indicates a file that could not be found, read or written.
	ErrIO = errors.New("io error")

	// ErrValidation indicates arguments that do not fit the input image.
	ErrValidation = errors.New("validation error")
)

// Error records a failed operation together with the file it touched.
type Error struct {
	Op   string // Operation, e.g. "decode" or "extract"
	Path string // File or directory, may be empty
	Kind error  // One of the Err* sentinels
	Err  error  // Underlying cause, may be nil
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	if e.Path != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Path)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Kind.Error())
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap exposes both the sentinel kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op, path string, kind, err error) *Error {
	return &Error{Op: op, Path: path, Kind: kind, Err: err}
}

// withPath fills in the path of err when it is an *Error without one.
func withPath(err error, path string) error {
	var e *Error
	if errors.As(err, &e) && e.Path == "" {
		e.Path = path
	}
	return err
}
