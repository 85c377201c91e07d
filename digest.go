package bookcoder

// offsetDigest records, per byte value, the offset most recently accepted for
// that value. The encoder consults it to refuse mapping the same input byte
// value to the same book offset twice in a row, which is what keeps the book
// code from collapsing into runs of one repeated offset.
//
// The never-recorded state is an explicit flag rather than a sentinel offset,
// so offset 0 needs no special casing. The digest is session state: it starts
// empty, is mutated only by the encoder that owns it, and is never persisted.
type offsetDigest struct {
	last     [byteAlphabetSize]OffsetCode
	recorded [byteAlphabetSize]bool
}

// lookup returns the offset last recorded for value and whether any offset
// has been recorded for it this session.
func (d *offsetDigest) lookup(value byte) (OffsetCode, bool) {
	return d.last[value], d.recorded[value]
}

// record stores offset as the most recent acceptance for value.
func (d *offsetDigest) record(value byte, offset OffsetCode) {
	d.last[value] = offset
	d.recorded[value] = true
}
