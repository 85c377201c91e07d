package bookcoder_test

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/noxer/bytewriter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kennbr34/bookcoder"
	booktesting "github.com/kennbr34/bookcoder/testing"
)

type mapVectorTestCase struct {
	Name    string
	Book    string
	Input   string
	Opts    bookcoder.EncodeOptions
	Offsets []uint32
}

func TestEncode__KnownOffsets(t *testing.T) {
	tests := []mapVectorTestCase{
		{
			Name:    "single byte",
			Book:    "abcabc",
			Input:   "a",
			Offsets: []uint32{0},
		},
		{
			Name:    "distinct values",
			Book:    "abcabc",
			Input:   "abc",
			Offsets: []uint32{0, 1, 2},
		},
		{
			Name:    "repeated value moves to the next occurrence",
			Book:    "abcabc",
			Input:   "aa",
			Offsets: []uint32{0, 3},
		},
		{
			Name:    "repeated value with duplicates allowed",
			Book:    "abcabc",
			Input:   "aa",
			Opts:    bookcoder.EncodeOptions{AllowDuplicates: true},
			Offsets: []uint32{0, 0},
		},
		{
			Name:    "sole occurrence is reused after wrapping around",
			Book:    "ab",
			Input:   "aba",
			Offsets: []uint32{0, 1, 0},
		},
		{
			Name:    "value past the first windows is found",
			Book:    "bbbba",
			Input:   "a",
			Opts:    bookcoder.EncodeOptions{WindowSize: 2},
			Offsets: []uint32{4},
		},
		{
			Name:    "reset keeps offsets inside the first window",
			Book:    "abab",
			Input:   "aaa",
			Opts:    bookcoder.EncodeOptions{WindowSize: 2, ResetAtWindowEnd: true},
			Offsets: []uint32{0, 0, 0},
		},
	}

	for _, test := range tests {
		t.Run(
			test.Name,
			func(t *testing.T) {
				runMapVectorTestCase(t, test)
			},
		)
	}
}

func TestEncode__EmptyInput(t *testing.T) {
	bk := booktesting.NewMemoryBook(t, []byte("abc"))
	output := bytes.Buffer{}

	n, err := bookcoder.Encode(bk, strings.NewReader(""), &output, nil)
	require.NoError(t, err, "unexpected error while mapping")
	assert.Zero(t, n, "nothing should have been written")
	assert.Zero(t, output.Len(), "output should be empty")
}

func TestEncode__ValueMissingFromBook(t *testing.T) {
	bk := booktesting.NewMemoryBook(t, []byte("abc"))
	output := bytes.Buffer{}

	_, err := bookcoder.Encode(bk, strings.NewReader("x"), &output, nil)
	assert.ErrorIs(t, err, bookcoder.ErrInsufficientEntropy)
}

func TestEncode__EmptyBook(t *testing.T) {
	bk := booktesting.NewMemoryBook(t, []byte{})
	output := bytes.Buffer{}

	_, err := bookcoder.Encode(bk, strings.NewReader("a"), &output, nil)
	assert.ErrorIs(t, err, bookcoder.ErrInsufficientEntropy)
}

// The scan never moves backwards for a value it has not mapped yet. Mapping
// 'b' first moves it past the book's only 'a', so the 'a' cannot be reached
// even though the book contains one.
func TestEncode__ValueBehindScanPosition(t *testing.T) {
	bk := booktesting.NewMemoryBook(t, []byte("ab"))
	output := bytes.Buffer{}

	n, err := bookcoder.Encode(bk, strings.NewReader("ba"), &output, nil)
	assert.ErrorIs(t, err, bookcoder.ErrInsufficientEntropy)
	assert.EqualValues(t, bookcoder.OffsetCodeSize, n, "the leading 'b' should have been mapped")
	assert.Equal(t, []uint32{1}, offsetsOf(t, output.Bytes()), "flushed codes are wrong")
}

// Reset-at-window-end never leaves the first window, so a value outside it
// might as well not be in the book.
func TestEncode__ResetStarvesValuesPastTheWindow(t *testing.T) {
	bk := booktesting.NewMemoryBook(t, []byte("bbba"))
	output := bytes.Buffer{}
	opts := bookcoder.EncodeOptions{WindowSize: 2, ResetAtWindowEnd: true}

	_, err := bookcoder.Encode(bk, strings.NewReader("a"), &output, &opts)
	assert.ErrorIs(t, err, bookcoder.ErrInsufficientEntropy)
}

func TestEncode__InvalidWindowSize(t *testing.T) {
	bk := booktesting.NewMemoryBook(t, []byte("abc"))
	output := bytes.Buffer{}
	opts := bookcoder.EncodeOptions{WindowSize: -1}

	_, err := bookcoder.Encode(bk, strings.NewReader("a"), &output, &opts)
	assert.ErrorIs(t, err, bookcoder.ErrInvalidBufferSize)
}

func TestEncode__MemoryBudgetExceeded(t *testing.T) {
	bk := booktesting.NewMemoryBook(t, []byte("abc"))
	output := bytes.Buffer{}
	opts := bookcoder.EncodeOptions{MemoryBudget: 64}

	_, err := bookcoder.Encode(bk, strings.NewReader("a"), &output, &opts)
	assert.ErrorIs(t, err, bookcoder.ErrMemoryLimit)
}

// The window is clamped to the book before the budget is applied, so a tiny
// book fits in a budget the default window size would blow.
func TestEncode__MemoryBudgetSeesClampedWindow(t *testing.T) {
	bk := booktesting.NewMemoryBook(t, []byte("abc"))
	output := bytes.Buffer{}
	opts := bookcoder.EncodeOptions{ChunkSize: 16, CodeChunkSize: 16, MemoryBudget: 64}

	n, err := bookcoder.Encode(bk, strings.NewReader("a"), &output, &opts)
	require.NoError(t, err, "unexpected error while mapping")
	assert.EqualValues(t, bookcoder.OffsetCodeSize, n, "code size is wrong")
	assert.Equal(t, []uint32{0}, offsetsOf(t, output.Bytes()), "mapped offsets are wrong")
}

// Every emitted offset must point at a book byte equal to the input byte,
// and consecutive equal input bytes must not get the same offset while
// duplicates are disallowed.
func TestEncode__OffsetsHoldInputValues(t *testing.T) {
	book := booktesting.AlphabetBook(t, 4)
	bk := booktesting.NewMemoryBook(t, book)
	input := booktesting.RandomBytes(t, 1234, 3000)
	output := bytes.Buffer{}
	opts := bookcoder.EncodeOptions{WindowSize: 300, ChunkSize: 512}

	n, err := bookcoder.Encode(bk, bytes.NewReader(input), &output, &opts)
	require.NoError(t, err, "unexpected error while mapping")
	require.EqualValues(t, len(input)*bookcoder.OffsetCodeSize, n, "code size is wrong")

	offsets := offsetsOf(t, output.Bytes())
	for i, off := range offsets {
		if int64(off) >= int64(len(book)) {
			t.Fatalf("offset %d of input byte %d is past the end of the book", off, i)
		}
		if book[off] != input[i] {
			t.Fatalf(
				"input byte %d is %#02x but offset %d holds %#02x",
				i, input[i], off, book[off])
		}
		if i > 0 && input[i] == input[i-1] && off == offsets[i-1] {
			t.Fatalf("input bytes %d and %d repeat offset %d", i-1, i, off)
		}
	}
}

////////////////////////////////////////////////////////////////////////////////
// Helper functions

func runMapVectorTestCase(t *testing.T, test mapVectorTestCase) {
	bk := booktesting.NewMemoryBook(t, []byte(test.Book))
	outputBuffer := make([]byte, (len(test.Offsets)+1)*bookcoder.OffsetCodeSize)
	outputWriter := bytewriter.New(outputBuffer)

	n, err := bookcoder.Encode(bk, strings.NewReader(test.Input), outputWriter, &test.Opts)
	require.NoError(t, err, "unexpected error while mapping")
	require.EqualValues(
		t,
		len(test.Input)*bookcoder.OffsetCodeSize,
		n,
		"book code size is wrong")
	assert.Equal(t, test.Offsets, offsetsOf(t, outputBuffer[:n]), "mapped offsets are wrong")
}

// offsetsOf splits a book code back into its offsets.
func offsetsOf(t *testing.T, code []byte) []uint32 {
	require.Zero(
		t,
		len(code)%bookcoder.OffsetCodeSize,
		"book code length %d is not a whole number of codes",
		len(code))

	offsets := make([]uint32, 0, len(code)/bookcoder.OffsetCodeSize)
	for i := 0; i < len(code); i += bookcoder.OffsetCodeSize {
		offsets = append(offsets, binary.LittleEndian.Uint32(code[i:]))
	}
	return offsets
}
