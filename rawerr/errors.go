// Package rawerr defines the error kinds reported by the decode core.
package rawerr

import (
	"errors"
	"fmt"
)

// Kind classifies a decode failure.
type Kind string

const (
	KindToolNotFound         Kind = "tool_not_found"
	KindToolInvocationFailed Kind = "tool_invocation_failed"
	KindOutputTooSmall       Kind = "output_too_small"
	KindOutputUndecodable    Kind = "output_undecodable"
	KindSensorDataTruncated  Kind = "sensor_data_truncated"
	KindUnsupportedSensor    Kind = "unsupported_sensor"
	KindChainTimeout         Kind = "chain_timeout"
	KindChainExhausted       Kind = "chain_exhausted"
	KindShapeMismatch        Kind = "shape_mismatch"
	KindIO                   Kind = "io_error"
	KindDecodeSupport        Kind = "decode_support"
)

// Sentinel errors, one per kind, for use with errors.Is.
var (
	ErrToolNotFound         = errors.New("external tool not found")
	ErrToolInvocationFailed = errors.New("external tool failed")
	ErrOutputTooSmall       = errors.New("output below minimum size")
	ErrOutputUndecodable    = errors.New("output is not a decodable raster")
	ErrSensorDataTruncated  = errors.New("sensor data shorter than width*height")
	ErrUnsupportedSensor    = errors.New("unsupported sensor layout")
	ErrChainTimeout         = errors.New("decode chain exceeded its time budget")
	ErrChainExhausted       = errors.New("all decode strategies failed")
	ErrShapeMismatch        = errors.New("image has wrong dimensions")
	ErrIO                   = errors.New("i/o failure")
	ErrDecodeSupport        = errors.New("decoded raster cannot be processed")
)

var sentinels = map[Kind]error{
	KindToolNotFound:         ErrToolNotFound,
	KindToolInvocationFailed: ErrToolInvocationFailed,
	KindOutputTooSmall:       ErrOutputTooSmall,
	KindOutputUndecodable:    ErrOutputUndecodable,
	KindSensorDataTruncated:  ErrSensorDataTruncated,
	KindUnsupportedSensor:    ErrUnsupportedSensor,
	KindChainTimeout:         ErrChainTimeout,
	KindChainExhausted:       ErrChainExhausted,
	KindShapeMismatch:        ErrShapeMismatch,
	KindIO:                   ErrIO,
	KindDecodeSupport:        ErrDecodeSupport,
}

// Error is the structured error type returned by the decode core.
type Error struct {
	Kind Kind
	Op   string // operation or strategy name
	Path string // file the operation was working on, if any
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Op)
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind, so errors.Is(err,
// ErrChainTimeout) works without unwrapping by hand.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// New creates an Error of the given kind.
func New(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Wrap wraps err with a kind, returning nil when err is nil.
func Wrap(kind Kind, op, path string, err error) error {
	if err == nil {
		return nil
	}
	return New(kind, op, path, err)
}

// KindOf returns the kind of the outermost *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err's outermost *Error has the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
