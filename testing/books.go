package testing

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/kennbr34/bookcoder"
)

// NewMemoryBook returns a Book backed by an in-memory copy of contents.
func NewMemoryBook(t *testing.T, contents []byte) *bookcoder.Book {
	buf := make([]byte, len(contents))
	copy(buf, contents)

	bk, err := bookcoder.NewBook(bytesextra.NewReadWriteSeeker(buf))
	require.NoError(t, err, "wrapping in-memory book")
	return bk
}

// NewFileBook writes contents to a file in a test-scoped temporary directory
// and opens it as a Book. The Book is closed when the test finishes.
func NewFileBook(t *testing.T, contents []byte) *bookcoder.Book {
	path := filepath.Join(t.TempDir(), "book")
	require.NoError(t, os.WriteFile(path, contents, 0o644), "writing book file")

	bk, err := bookcoder.OpenBook(path)
	require.NoError(t, err, "opening book file")
	t.Cleanup(func() { bk.Close() })
	return bk
}

// AlphabetBook returns the 256 byte values in order, repeated the given
// number of times. Every possible input byte can be encoded against it.
func AlphabetBook(t *testing.T, repeats int) []byte {
	require.Greater(t, repeats, 0, "alphabet book needs at least one repeat")

	contents := make([]byte, 0, repeats*256)
	for i := 0; i < repeats; i++ {
		for v := 0; v < 256; v++ {
			contents = append(contents, byte(v))
		}
	}
	return contents
}

// RandomBytes returns n pseudo-random bytes. The same seed always yields the
// same bytes, so failures reproduce.
func RandomBytes(t *testing.T, seed int64, n int) []byte {
	require.GreaterOrEqual(t, n, 0, "byte count is negative")

	rng := rand.New(rand.NewSource(seed))
	data := make([]byte, n)
	_, err := rng.Read(data)
	require.NoError(t, err, "generating random bytes")
	return data
}
