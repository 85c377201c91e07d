package bookcoder

import (
	"bufio"
	"fmt"
	"io"
)

// Decode reverses Encode: it reads 4-byte little-endian offset codes from
// input, looks each offset up in bk, and writes the recovered bytes to
// output. It returns the number of bytes written.
//
// A code pointing past the end of the book fails with ErrOffsetRange. A code
// stream whose length is not a multiple of the code size fails with
// ErrTruncatedCode once every whole code before the stray bytes has been
// extracted.
func Decode(bk *Book, input io.Reader, output io.Writer, opts *DecodeOptions) (int64, error) {
	if opts == nil {
		opts = DefaultDecodeOptions()
	}
	o, err := opts.normalized()
	if err != nil {
		return 0, err
	}
	if err := checkMemoryBudget(o.MemoryBudget, o.bufferBytes()); err != nil {
		return 0, err
	}
	if err := bk.configurePages(o.PageSize, o.PageCount); err != nil {
		return 0, err
	}
	d := diag{w: o.Diag, level: o.Verbosity}
	d.logf(1, "extracting with %d-byte code chunks and %d x %d-byte book pages",
		o.CodeChunkSize, o.PageCount, o.PageSize)

	out := bufio.NewWriterSize(output, o.OutputChunkSize)
	chunk := make([]byte, o.CodeChunkSize)
	var written, codeBytes int64
	for {
		n, readErr := io.ReadFull(input, chunk)
		if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
			return written, fmt.Errorf("reading book code: %w", readErr)
		}
		whole := n - n%OffsetCodeSize
		for i := 0; i < whole; i += OffsetCodeSize {
			off := getOffsetCode(chunk[i:])
			v, err := bk.ByteAt(int64(off))
			if err != nil {
				out.Flush()
				return written, err
			}
			if err := out.WriteByte(v); err != nil {
				return written, fmt.Errorf("writing extracted bytes: %w", err)
			}
			written++
			d.logf(3, "offset %d holds byte %#02x", off, v)
		}
		codeBytes += int64(n)
		if whole > 0 {
			d.logf(2, "extracted %d bytes so far", written)
		}
		if stray := n % OffsetCodeSize; stray != 0 {
			if err := out.Flush(); err != nil {
				return written, fmt.Errorf("writing extracted bytes: %w", err)
			}
			return written, ErrTruncatedCode.WithMessage(fmt.Sprintf(
				"%d stray bytes at end of book code", stray))
		}
		if readErr != nil {
			break
		}
	}
	if err := out.Flush(); err != nil {
		return written, fmt.Errorf("writing extracted bytes: %w", err)
	}
	d.logf(1, "extracted %d bytes from %d code bytes", written, codeBytes)
	return written, nil
}
