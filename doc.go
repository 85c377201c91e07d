// Package bookcoder implements a reversible byte-for-offset substitution
// against a reference file called the book.
//
// Mapping replaces every byte of an input stream with the offset of some
// occurrence of the same byte value in the book. Each offset is written as a
// fixed 4-byte little-endian code, so a book code is exactly four times the
// size of the original and carries no header or checksum. Extraction needs
// nothing but the code and the same book: every code names an offset whose
// byte is read back out.
//
// The book is consumed through bounded windows and the streams through
// bounded chunks, so arbitrarily large books and inputs run in constant
// memory. By default the mapper refuses to give a byte value the same offset
// it was given last time, trading scan time for codes that do not betray
// repeated input bytes as repeated codes.
//
// A book can only map byte values it contains. Mapping fails with
// ErrInsufficientEntropy when an input value cannot be matched; package
// analyze surveys a book's coverage ahead of time so that the failure is
// predictable.
package bookcoder
