// Package codepack shrinks book codes for storage or transport.
//
// A book code spends four bytes on every offset, but most offsets are small:
// books are rarely gigabytes long, and mapping with reset-at-window-end keeps
// every offset inside the first window. Packing rewrites each code as a
// variable-length integer and then gzips the result, so the dead high bytes
// cost nothing. Unpacking restores the exact original book code.
package codepack

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/kennbr34/bookcoder"
)

// PackWriter packs the book code written to it and forwards the result to
// the underlying writer. Close must be called to flush the gzip stream.
type PackWriter struct {
	gz     *gzip.Writer
	part   [bookcoder.OffsetCodeSize]byte
	have   int
	packed int64
}

// NewPackWriter returns a PackWriter in front of w. The gzip stage runs at
// the highest compression level; the varint stage has already done most of
// the work, so the stream being squeezed is small.
func NewPackWriter(w io.Writer) (*PackWriter, error) {
	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	return &PackWriter{gz: gz}, nil
}

// Write consumes book code bytes. Writes do not need to line up with code
// boundaries; partial codes are carried over to the next call.
func (pw *PackWriter) Write(p []byte) (int, error) {
	consumed := len(p)
	for len(p) > 0 {
		n := copy(pw.part[pw.have:], p)
		pw.have += n
		p = p[n:]
		if pw.have < len(pw.part) {
			break
		}

		var buf [binary.MaxVarintLen32]byte
		packed := binary.PutUvarint(buf[:], uint64(binary.LittleEndian.Uint32(pw.part[:])))
		if _, err := pw.gz.Write(buf[:packed]); err != nil {
			return consumed - len(p), fmt.Errorf("writing packed code: %w", err)
		}
		pw.packed += int64(packed)
		pw.have = 0
	}
	return consumed, nil
}

// PackedBytes returns how many bytes the varint stage has produced so far,
// before the gzip stage compresses them further.
func (pw *PackWriter) PackedBytes() int64 {
	return pw.packed
}

// Close flushes the gzip stream. A partial code left in the buffer means the
// book code ended mid-code, which fails with ErrTruncatedCode.
func (pw *PackWriter) Close() error {
	if pw.have != 0 {
		pw.gz.Close()
		return bookcoder.ErrTruncatedCode.WithMessage(fmt.Sprintf(
			"%d stray bytes at end of book code", pw.have))
	}
	if err := pw.gz.Close(); err != nil {
		return fmt.Errorf("flushing packed stream: %w", err)
	}
	return nil
}

// UnpackReader turns a packed stream back into the original book code.
type UnpackReader struct {
	gz      *gzip.Reader
	source  *bufio.Reader
	pending [bookcoder.OffsetCodeSize]byte
	fill    int
	pos     int
}

// NewUnpackReader returns an UnpackReader over r. It fails immediately when
// r does not start with a packed stream.
func NewUnpackReader(r io.Reader) (*UnpackReader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading packed stream header: %w", err)
	}
	return &UnpackReader{gz: gz, source: bufio.NewReader(gz)}, nil
}

// Read produces book code bytes. The stream ends cleanly only on a packed
// value boundary; anything else surfaces as an unexpected-EOF error.
func (ur *UnpackReader) Read(p []byte) (int, error) {
	produced := 0
	for produced < len(p) {
		if ur.pos == ur.fill {
			raw, err := binary.ReadUvarint(ur.source)
			if err == io.EOF {
				if produced > 0 {
					return produced, nil
				}
				return 0, io.EOF
			}
			if err != nil {
				return produced, fmt.Errorf("reading packed code: %w", err)
			}
			if raw > math.MaxUint32 {
				return produced, fmt.Errorf(
					"packed value %d does not fit a %d-byte offset code",
					raw, bookcoder.OffsetCodeSize)
			}
			binary.LittleEndian.PutUint32(ur.pending[:], uint32(raw))
			ur.pos = 0
			ur.fill = len(ur.pending)
		}
		n := copy(p[produced:], ur.pending[ur.pos:ur.fill])
		ur.pos += n
		produced += n
	}
	return produced, nil
}

// Close releases the gzip stage.
func (ur *UnpackReader) Close() error {
	return ur.gz.Close()
}

// Pack packs a whole book code stream. It returns the number of bytes the
// varint stage produced, before gzip.
func Pack(input io.Reader, output io.Writer) (int64, error) {
	pw, err := NewPackWriter(output)
	if err != nil {
		return 0, err
	}
	if _, err := io.Copy(pw, input); err != nil {
		pw.Close()
		return pw.PackedBytes(), err
	}
	if err := pw.Close(); err != nil {
		return pw.PackedBytes(), err
	}
	return pw.PackedBytes(), nil
}

// Unpack restores a packed stream to the original book code. It returns the
// number of book code bytes written.
func Unpack(input io.Reader, output io.Writer) (int64, error) {
	ur, err := NewUnpackReader(input)
	if err != nil {
		return 0, err
	}
	defer ur.Close()

	written, err := io.Copy(output, ur)
	if err != nil {
		return written, err
	}
	return written, nil
}
