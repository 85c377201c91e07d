// Package analyze surveys a book's byte-value coverage. A book can only
// encode values it contains, so running a survey before committing to a book
// tells you whether a mapping session can succeed at all, and how much
// variety each value has to draw on.
package analyze

import (
	"fmt"
	"io"
	"unicode"

	"github.com/gocarina/gocsv"

	"github.com/kennbr34/bookcoder"
)

// byteAlphabetSize is the number of distinct byte values a survey tallies.
const byteAlphabetSize = 256

// Options configures a survey. The zero value of ChunkSize means
// bookcoder.DefaultBufferSize.
type Options struct {
	// ChunkSize is how many book bytes are read per scan step.
	ChunkSize int

	// MemoryBudget, when positive, caps the scan buffer; see
	// bookcoder.EncodeOptions.MemoryBudget.
	MemoryBudget int64
}

// Report holds the outcome of a survey over one book.
type Report struct {
	// BookSize is the size of the surveyed book in bytes.
	BookSize int64

	// SurveyedBytes is how much of the book the survey covered. It is less
	// than BookSize only for books larger than the addressable range.
	SurveyedBytes int64

	counts [byteAlphabetSize]int64
	first  [byteAlphabetSize]int64
}

// Survey scans the book once and tallies, for every byte value, how often it
// occurs and where it occurs first. Only the part of the book an encoder can
// address is scanned.
func Survey(bk *bookcoder.Book, opts *Options) (*Report, error) {
	if opts == nil {
		opts = &Options{}
	}
	chunkSize := opts.ChunkSize
	if chunkSize == 0 {
		chunkSize = bookcoder.DefaultBufferSize
	}
	if chunkSize < 0 {
		return nil, bookcoder.ErrInvalidBufferSize.WithMessage(
			fmt.Sprintf("scan chunk size %d is negative", chunkSize))
	}
	if opts.MemoryBudget > 0 && int64(chunkSize) > opts.MemoryBudget {
		return nil, bookcoder.ErrMemoryLimit.WithMessage(fmt.Sprintf(
			"scan buffer needs %d bytes but only %d are available",
			chunkSize, opts.MemoryBudget))
	}

	effective := bk.Size()
	if effective > bookcoder.AddressableBookBytes {
		effective = bookcoder.AddressableBookBytes
	}

	rep := &Report{BookSize: bk.Size()}
	bk.Rewind()
	chunk := make([]byte, chunkSize)
	for rep.SurveyedBytes < effective {
		dst := chunk
		if remaining := effective - rep.SurveyedBytes; remaining < int64(len(dst)) {
			dst = dst[:remaining]
		}
		base := bk.Position()
		n, err := bk.LoadWindow(dst)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for i, v := range dst[:n] {
			if rep.counts[v] == 0 {
				rep.first[v] = base + int64(i)
			}
			rep.counts[v]++
		}
		rep.SurveyedBytes += int64(n)
	}
	return rep, nil
}

// Count returns how many times the value occurs in the surveyed part of the
// book.
func (r *Report) Count(v byte) int64 {
	return r.counts[v]
}

// FirstOffset returns the offset of the value's first occurrence. ok is
// false when the book does not contain the value.
func (r *Report) FirstOffset(v byte) (offset int64, ok bool) {
	if r.counts[v] == 0 {
		return 0, false
	}
	return r.first[v], true
}

// Distinct returns how many of the 256 byte values occur at least once.
func (r *Report) Distinct() int {
	distinct := 0
	for _, c := range r.counts {
		if c > 0 {
			distinct++
		}
	}
	return distinct
}

// Missing returns, in ascending order, the byte values the book does not
// contain.
func (r *Report) Missing() []byte {
	var missing []byte
	for v, c := range r.counts {
		if c == 0 {
			missing = append(missing, byte(v))
		}
	}
	return missing
}

// Uncovered returns, in ascending order, the distinct values of data the
// book does not contain. Encoding data against this book fails unless the
// result is empty.
func (r *Report) Uncovered(data []byte) []byte {
	var seen [byteAlphabetSize]bool
	for _, v := range data {
		seen[v] = true
	}
	var uncovered []byte
	for v := 0; v < byteAlphabetSize; v++ {
		if seen[v] && r.counts[v] == 0 {
			uncovered = append(uncovered, byte(v))
		}
	}
	return uncovered
}

// Covers reports whether the book contains every distinct value of data.
func (r *Report) Covers(data []byte) bool {
	return len(r.Uncovered(data)) == 0
}

// coverageRow is one CSV line of a report.
type coverageRow struct {
	Value       int    `csv:"value"`
	Char        string `csv:"char"`
	Count       int64  `csv:"count"`
	FirstOffset int64  `csv:"first_offset"`
}

// WriteCSV writes the survey as CSV, one row per byte value. Values the book
// lacks get a first_offset of -1.
func (r *Report) WriteCSV(w io.Writer) error {
	rows := make([]coverageRow, byteAlphabetSize)
	for v := 0; v < byteAlphabetSize; v++ {
		row := coverageRow{Value: v, Count: r.counts[v], FirstOffset: -1}
		if r.counts[v] > 0 {
			row.FirstOffset = r.first[v]
		}
		if unicode.IsPrint(rune(v)) && v < 128 {
			row.Char = string(rune(v))
		}
		rows[v] = row
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("writing coverage CSV: %w", err)
	}
	return nil
}
