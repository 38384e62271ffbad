package ndvi

import "github.com/pkg/errors"

var (
	// ErrDimensionMismatch is returned when the input grids, or the bands they
	// are read from, do not share the requested rows x cols extent.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrUnsupportedEncoding is returned for an Encoding outside ScaledByte and NativeFloat.
	ErrUnsupportedEncoding = errors.New("unsupported output encoding")

	// ErrWriteFailure wraps any error raised by the raster sink.
	ErrWriteFailure = errors.New("write failure")
)

// writeFailure keeps both ErrWriteFailure and the sink's error reachable
// through errors.Is.
type writeFailure struct {
	op    string
	cause error
}

func (e *writeFailure) Error() string {
	return ErrWriteFailure.Error() + ": " + e.op + ": " + e.cause.Error()
}

func (e *writeFailure) Is(target error) bool {
	return target == ErrWriteFailure
}

func (e *writeFailure) Unwrap() error {
	return e.cause
}
