package bookcoder

import (
	"fmt"
	"io"
)

// DefaultBufferSize is the default size for every window and chunk buffer.
const DefaultBufferSize = 1 << 20

// Default geometry for the decoder's book page cache. The product is the
// cache's worst-case memory footprint, kept at one DefaultBufferSize.
const (
	DefaultPageSize  = 64 << 10
	DefaultPageCount = 16
)

// EncodeOptions configures an encoding session. The zero value of any size
// field means "use the default"; negative sizes are rejected.
type EncodeOptions struct {
	// WindowSize is how many book bytes are held in memory at a time while
	// scanning for matches. It is clamped to the book length. Small windows
	// combined with ResetAtWindowEnd can starve rare byte values; see
	// ErrInsufficientEntropy.
	WindowSize int

	// ChunkSize is how many input bytes are read at a time.
	ChunkSize int

	// CodeChunkSize is how many book code bytes are buffered before being
	// flushed to the output.
	CodeChunkSize int

	// AllowDuplicates permits mapping an input byte value to the same book
	// offset it was mapped to last time. The default (false) skips such
	// repeats while scanning, which costs time but varies the code stream.
	AllowDuplicates bool

	// ResetAtWindowEnd rewinds the book to offset 0 every time a window is
	// exhausted instead of advancing to the next window. All emitted offsets
	// then fall inside the first window, which keeps the high bytes of the
	// codes zero and the book code highly compressible.
	ResetAtWindowEnd bool

	// MemoryBudget, when positive, is the number of bytes the session's
	// buffers may collectively occupy. Exceeding it fails the session with
	// ErrMemoryLimit before anything is allocated.
	MemoryBudget int64

	// Diag receives progress diagnostics when non-nil; Verbosity selects how
	// much (1 = session summary, 2 = chunk progress, 3 = per-offset detail).
	// Diagnostics are separate from the code stream and never mix with it.
	Diag      io.Writer
	Verbosity int
}

// DefaultEncodeOptions returns the options an encoding session runs with when
// none are supplied.
func DefaultEncodeOptions() *EncodeOptions {
	return &EncodeOptions{
		WindowSize:    DefaultBufferSize,
		ChunkSize:     DefaultBufferSize,
		CodeChunkSize: DefaultBufferSize,
	}
}

// normalized returns a copy with defaults filled in, or an error describing
// the first unusable field.
func (opts *EncodeOptions) normalized() (EncodeOptions, error) {
	out := *opts
	if out.WindowSize == 0 {
		out.WindowSize = DefaultBufferSize
	}
	if out.ChunkSize == 0 {
		out.ChunkSize = DefaultBufferSize
	}
	if out.CodeChunkSize == 0 {
		out.CodeChunkSize = DefaultBufferSize
	}
	if out.WindowSize < 0 {
		return out, ErrInvalidBufferSize.WithMessage(
			fmt.Sprintf("book window size %d is negative", out.WindowSize))
	}
	if out.ChunkSize < 0 {
		return out, ErrInvalidBufferSize.WithMessage(
			fmt.Sprintf("chunk size %d is negative", out.ChunkSize))
	}
	if out.CodeChunkSize < 0 {
		return out, ErrInvalidBufferSize.WithMessage(
			fmt.Sprintf("book code chunk size %d is negative", out.CodeChunkSize))
	}
	return out, nil
}

// bufferBytes is the total the session will allocate: one book window, one
// input chunk, and one code chunk.
func (opts *EncodeOptions) bufferBytes() int64 {
	return int64(opts.WindowSize) + int64(opts.ChunkSize) + int64(opts.CodeChunkSize)
}

// DecodeOptions configures a decoding session. The zero value of any size
// field means "use the default"; negative sizes are rejected.
type DecodeOptions struct {
	// CodeChunkSize is how many book code bytes are read at a time. It is
	// rounded down to a whole number of offset codes and must fit at least
	// one.
	CodeChunkSize int

	// OutputChunkSize is how many reconstructed bytes are buffered before
	// being flushed to the destination.
	OutputChunkSize int

	// PageSize and PageCount set the geometry of the cache of book pages
	// serving random-access lookups: at most PageCount pages of PageSize
	// bytes are resident at once.
	PageSize  int
	PageCount int

	// MemoryBudget, when positive, caps the session's collective buffer
	// bytes; see EncodeOptions.MemoryBudget.
	MemoryBudget int64

	// Diag and Verbosity behave as in EncodeOptions.
	Diag      io.Writer
	Verbosity int
}

// DefaultDecodeOptions returns the options a decoding session runs with when
// none are supplied.
func DefaultDecodeOptions() *DecodeOptions {
	return &DecodeOptions{
		CodeChunkSize:   DefaultBufferSize,
		OutputChunkSize: DefaultBufferSize,
		PageSize:        DefaultPageSize,
		PageCount:       DefaultPageCount,
	}
}

func (opts *DecodeOptions) normalized() (DecodeOptions, error) {
	out := *opts
	if out.CodeChunkSize == 0 {
		out.CodeChunkSize = DefaultBufferSize
	}
	if out.OutputChunkSize == 0 {
		out.OutputChunkSize = DefaultBufferSize
	}
	if out.PageSize == 0 {
		out.PageSize = DefaultPageSize
	}
	if out.PageCount == 0 {
		out.PageCount = DefaultPageCount
	}

	if out.CodeChunkSize < 0 {
		return out, ErrInvalidBufferSize.WithMessage(
			fmt.Sprintf("book code chunk size %d is negative", out.CodeChunkSize))
	}
	if out.OutputChunkSize < 0 {
		return out, ErrInvalidBufferSize.WithMessage(
			fmt.Sprintf("output chunk size %d is negative", out.OutputChunkSize))
	}
	if out.PageSize < 0 || out.PageCount < 0 {
		return out, ErrInvalidBufferSize.WithMessage(
			fmt.Sprintf("page cache geometry %d x %d is negative",
				out.PageCount, out.PageSize))
	}

	// Whole codes only. A chunk that cannot hold even one code can never
	// make progress.
	out.CodeChunkSize -= out.CodeChunkSize % OffsetCodeSize
	if out.CodeChunkSize < OffsetCodeSize {
		return out, ErrInvalidBufferSize.WithMessage(fmt.Sprintf(
			"book code chunk size %d is smaller than one %d-byte offset code",
			opts.CodeChunkSize, OffsetCodeSize))
	}
	return out, nil
}

// bufferBytes is the total the session will allocate: one code chunk, one
// output chunk, and the full page cache.
func (opts *DecodeOptions) bufferBytes() int64 {
	return int64(opts.CodeChunkSize) + int64(opts.OutputChunkSize) +
		int64(opts.PageSize)*int64(opts.PageCount)
}

// checkMemoryBudget fails with ErrMemoryLimit when a positive budget is
// smaller than the bytes a session is about to allocate. Sessions run it
// before any allocation: there is no partial fallback to clean up after.
func checkMemoryBudget(budget, needed int64) error {
	if budget > 0 && needed > budget {
		return ErrMemoryLimit.WithMessage(fmt.Sprintf(
			"buffers need %d bytes but only %d are available", needed, budget))
	}
	return nil
}

// diag is the session-side handle for verbosity-gated progress output.
type diag struct {
	w     io.Writer
	level int
}

func (d diag) logf(level int, format string, args ...interface{}) {
	if d.w == nil || d.level < level {
		return
	}
	fmt.Fprintf(d.w, format+"\n", args...)
}
