package bookcoder

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// CoderError is the error type returned by the encoding and decoding sessions.
// Every CoderError unwraps to one of the package-level sentinel errors, so
// callers can dispatch with errors.Is regardless of the extra context attached
// along the way.
type CoderError interface {
	error
	WithMessage(message string) CoderError
	Wrap(err error) CoderError
}

type baseCoderError string

const rootError = baseCoderError("")

// ErrInsufficientEntropy is returned when an input byte value cannot be found
// anywhere in the book: the book has been scanned through to its end (or
// through the only window the reset-at-window-end policy will ever visit)
// without that value being matched once.
var ErrInsufficientEntropy = rootError.WithMessage("not enough entropy in book file or book buffer")

// ErrTruncatedCode is returned when the book code stream ends partway through
// a 4-byte offset code.
var ErrTruncatedCode = rootError.WithMessage("book code is truncated")

// ErrOffsetRange is returned when a decoded offset code points at or past the
// end of the book.
var ErrOffsetRange = rootError.WithMessage("offset beyond end of book file")

// ErrMemoryLimit is returned when the requested buffer sizes exceed the
// configured memory budget. The session fails before allocating anything;
// there is no automatic downsizing.
var ErrMemoryLimit = rootError.WithMessage("not enough available memory for specified buffer size")

// ErrInvalidBufferSize is returned for nonpositive or otherwise unusable
// window, chunk, or page-cache sizes.
var ErrInvalidBufferSize = rootError.WithMessage("invalid buffer size")

// ErrNotSeekable is returned when the stream supplied as the book does not
// support seeking. Both directions need it: the encoder rewinds on wraparound
// and the decoder reads at arbitrary offsets.
var ErrNotSeekable = rootError.WithMessage("book file is not seekable")

func (e baseCoderError) Error() string {
	return string(e)
}

func (e baseCoderError) WithMessage(message string) CoderError {
	return customCoderError{
		message:       message,
		originalError: e,
	}
}

func (e baseCoderError) Wrap(err error) CoderError {
	return customCoderError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// -----------------------------------------------------------------------------

type customCoderError struct {
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a
// string describing the error.
func (e customCoderError) Error() string {
	return e.message
}

func (e customCoderError) WithMessage(message string) CoderError {
	return customCoderError{
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e customCoderError) Wrap(err error) CoderError {
	return customCoderError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

func (e customCoderError) Unwrap() error {
	return e.originalError
}
