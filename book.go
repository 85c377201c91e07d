package bookcoder

import (
	"fmt"
	"io"
	"os"
)

// Book is a reference corpus that byte values are located in. It serves two
// access patterns over one underlying reader: sequential window loads for
// encoding, and cached random-access byte lookups for decoding. A Book is not
// safe for concurrent use.
type Book struct {
	r      io.ReadSeeker
	closer io.Closer
	size   int64
	pos    int64
	pages  *pageCache
}

// NewBook wraps an open reader as a Book. The reader must support seeking;
// anything else fails with ErrNotSeekable. The read position is left at the
// start.
func NewBook(r io.ReadSeeker) (*Book, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, ErrNotSeekable.Wrap(err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, ErrNotSeekable.Wrap(err)
	}
	return &Book{r: r, size: size}, nil
}

// OpenBook opens the file at path as a Book. Close releases the file.
func OpenBook(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening book file: %w", err)
	}
	bk, err := NewBook(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	bk.closer = f
	return bk, nil
}

// Close releases the underlying file if the Book owns one. Books created
// with NewBook own nothing and Close is a no-op.
func (b *Book) Close() error {
	if b.closer == nil {
		return nil
	}
	err := b.closer.Close()
	b.closer = nil
	return err
}

// Size returns the length of the book in bytes.
func (b *Book) Size() int64 {
	return b.size
}

// Position returns the offset the next window load starts at.
func (b *Book) Position() int64 {
	return b.pos
}

// LoadWindow fills dst with book bytes starting at the current position and
// advances the position by the number of bytes read. A short count with a nil
// error means the book ended inside the window. At the end of the book it
// reads nothing and returns io.EOF.
func (b *Book) LoadWindow(dst []byte) (int, error) {
	if b.pos >= b.size {
		return 0, io.EOF
	}
	if _, err := b.r.Seek(b.pos, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seeking book to offset %d: %w", b.pos, err)
	}
	n, err := io.ReadFull(b.r, dst)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		err = nil
	}
	if err != nil {
		return n, fmt.Errorf("loading book window at offset %d: %w", b.pos, err)
	}
	b.pos += int64(n)
	return n, nil
}

// Rewind moves the position back to the start of the book.
func (b *Book) Rewind() {
	b.pos = 0
}

// configurePages replaces the page cache with one of the given geometry.
// Lookups through ByteAt use it from then on.
func (b *Book) configurePages(pageSize, pageCount int) error {
	pages, err := newPageCache(pageSize, pageCount, b.readPage)
	if err != nil {
		return err
	}
	b.pages = pages
	return nil
}

// ByteAt returns the book byte at the given offset, reading through a page
// cache so that clustered offsets do not each cost a disk seek. Offsets
// outside the book fail with ErrOffsetRange.
func (b *Book) ByteAt(offset int64) (byte, error) {
	if offset < 0 || offset >= b.size {
		return 0, ErrOffsetRange.WithMessage(fmt.Sprintf(
			"offset %d is outside the %d-byte book", offset, b.size))
	}
	if b.pages == nil {
		if err := b.configurePages(DefaultPageSize, DefaultPageCount); err != nil {
			return 0, err
		}
	}
	return b.pages.byteAt(offset)
}

// readPage fills dst with the book bytes of the page starting at offset
// start. The final page of the book comes back short.
func (b *Book) readPage(start int64, dst []byte) (int, error) {
	if remaining := b.size - start; remaining < int64(len(dst)) {
		dst = dst[:remaining]
	}
	if _, err := b.r.Seek(start, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seeking book to page at offset %d: %w", start, err)
	}
	n, err := io.ReadFull(b.r, dst)
	if err != nil {
		return n, fmt.Errorf("reading book page at offset %d: %w", start, err)
	}
	return n, nil
}
