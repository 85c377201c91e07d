package bookcoder

import (
	"bufio"
	"fmt"
	"io"

	"github.com/boljen/go-bitmap"
)

// maxSoftRepeats bounds how often the encoder may refuse a candidate offset
// for being the same one it used last time for that value. After two refusals
// the scan has already been around the book without finding an alternative,
// so the next candidate is taken as is.
const maxSoftRepeats = 2

// Encode maps every byte of input to the offset of an occurrence of the same
// byte value in bk, writing each offset to output as a 4-byte little-endian
// code. The book code is therefore exactly four times the size of the input.
// It returns the number of code bytes written.
//
// The book is scanned window by window, never moving backwards until the end
// is reached, and rewinds to the start only for values that have already been
// mapped at least once. A value whose only occurrences lie behind the scan
// position on the first pass therefore fails with ErrInsufficientEntropy,
// exactly as if the book did not contain it at all.
func Encode(bk *Book, input io.Reader, output io.Writer, opts *EncodeOptions) (int64, error) {
	if opts == nil {
		opts = DefaultEncodeOptions()
	}
	o, err := opts.normalized()
	if err != nil {
		return 0, err
	}

	// Offsets must fit in a code, so books past the addressable range are
	// used only up to it.
	effective := bk.Size()
	if effective > AddressableBookBytes {
		effective = AddressableBookBytes
	}
	if effective > 0 && int64(o.WindowSize) > effective {
		o.WindowSize = int(effective)
	}

	if err := checkMemoryBudget(o.MemoryBudget, o.bufferBytes()); err != nil {
		return 0, err
	}

	bk.Rewind()
	enc := &encoder{
		bk:        bk,
		out:       bufio.NewWriterSize(output, o.CodeChunkSize),
		opts:      o,
		d:         diag{w: o.Diag, level: o.Verbosity},
		buf:       make([]byte, o.WindowSize),
		effective: effective,
	}
	enc.d.logf(1, "mapping with %d-byte book windows, %d-byte input chunks, %d-byte code chunks",
		o.WindowSize, o.ChunkSize, o.CodeChunkSize)
	return enc.run(input)
}

type encoder struct {
	bk   *Book
	out  *bufio.Writer
	opts EncodeOptions
	d    diag

	buf       []byte // window backing store
	win       []byte // loaded part of buf; nil until the first load
	winStart  int64  // book offset of win[0]
	cur       int    // scan position within win
	present   bitmap.Bitmap
	effective int64 // book bytes the encoder may address

	digest      offsetDigest
	softRepeats int
	written     int64
}

func (e *encoder) run(input io.Reader) (int64, error) {
	chunk := make([]byte, e.opts.ChunkSize)
	var consumed int64
	for {
		n, readErr := io.ReadFull(input, chunk)
		if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
			return e.written, fmt.Errorf("reading input: %w", readErr)
		}
		for _, v := range chunk[:n] {
			off, err := e.mapByte(v)
			if err != nil {
				e.out.Flush()
				return e.written, err
			}
			if err := e.emit(off); err != nil {
				return e.written, err
			}
			e.d.logf(3, "mapped byte %#02x to offset %d", v, off)
		}
		consumed += int64(n)
		if n > 0 {
			e.d.logf(2, "mapped %d bytes so far", consumed)
		}
		if readErr != nil {
			break
		}
	}
	if err := e.out.Flush(); err != nil {
		return e.written, fmt.Errorf("writing book code: %w", err)
	}
	e.d.logf(1, "mapped %d bytes to %d code bytes", consumed, e.written)
	return e.written, nil
}

// mapByte finds an acceptable offset for v, loading further windows and
// wrapping around the book as needed.
func (e *encoder) mapByte(v byte) (OffsetCode, error) {
	for {
		if e.win != nil {
			if e.present.Get(int(v)) {
				if off, ok := e.scanWindow(v); ok {
					return off, nil
				}
			} else {
				e.cur = len(e.win)
			}
		}
		if err := e.advanceWindow(v); err != nil {
			return 0, err
		}
	}
}

// scanWindow looks for v from the cursor onward. On success the cursor stays
// on the match, so runs of equal input bytes keep probing the same offset and
// fan out through the digest check. ok=false means the rest of the window has
// no acceptable occurrence.
func (e *encoder) scanWindow(v byte) (OffsetCode, bool) {
	for ; e.cur < len(e.win); e.cur++ {
		if e.win[e.cur] != v {
			continue
		}
		off := OffsetCode(e.winStart + int64(e.cur))
		if !e.opts.AllowDuplicates {
			if last, ok := e.digest.lookup(v); ok && last == off && e.softRepeats < maxSoftRepeats {
				e.softRepeats++
				e.d.logf(3, "refusing repeat of offset %d for byte %#02x", off, v)
				continue
			}
		}
		e.digest.record(v, off)
		e.softRepeats = 0
		return off, true
	}
	return 0, false
}

// advanceWindow loads the next window, rewinding to the start of the book
// when nothing is left ahead or when every window restarts the scan. Rewinds
// are only allowed for values the digest has an offset for; anything else
// could never terminate.
func (e *encoder) advanceWindow(v byte) error {
	if e.bk.Position() >= e.effective || (e.win != nil && e.opts.ResetAtWindowEnd) {
		if _, ok := e.digest.lookup(v); !ok {
			return ErrInsufficientEntropy.WithMessage(fmt.Sprintf(
				"no occurrence of byte value %#02x to map", v))
		}
		e.bk.Rewind()
		e.d.logf(2, "rewinding book for byte %#02x", v)
	}

	e.winStart = e.bk.Position()
	dst := e.buf
	if remaining := e.effective - e.winStart; remaining < int64(len(dst)) {
		dst = dst[:remaining]
	}
	n, err := e.bk.LoadWindow(dst)
	if err != nil {
		return err
	}
	e.win = dst[:n]
	e.cur = 0
	e.indexWindow()
	return nil
}

// indexWindow rebuilds the bitmap of byte values present in the current
// window. A miss lets mapByte skip the window without scanning it.
func (e *encoder) indexWindow() {
	e.present = bitmap.New(byteAlphabetSize)
	for _, c := range e.win {
		e.present.Set(int(c), true)
	}
}

func (e *encoder) emit(off OffsetCode) error {
	var code [OffsetCodeSize]byte
	putOffsetCode(code[:], off)
	if _, err := e.out.Write(code[:]); err != nil {
		return fmt.Errorf("writing book code: %w", err)
	}
	e.written += OffsetCodeSize
	return nil
}
