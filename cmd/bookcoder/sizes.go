package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/docker/go-units"
)

// bufferSizes carries the four tunable buffer sizes of a run. A zero field
// means the default size.
type bufferSizes struct {
	original  int // the file being mapped
	book      int // book windows while mapping, book page cache while extracting
	code      int // the book code
	extracted int // the reconstructed file
}

// parseBufferSizes parses a comma-separated suboption list such as
// "book_file_buffer=4m,book_code_buffer=512k". Sizes take the usual
// b/k/m/g suffixes in powers of 1024. Names listed in idle are accepted
// but do nothing for the current command; each one given gets a warning
// on warn naming the mode that ignores it.
func parseBufferSizes(spec string, warn io.Writer, mode string, idle ...string) (bufferSizes, error) {
	var sizes bufferSizes
	if spec == "" {
		return sizes, nil
	}
	for _, field := range strings.Split(spec, ",") {
		name, value, found := strings.Cut(field, "=")
		if !found {
			return sizes, fmt.Errorf("buffer size %q is not in name=size form", field)
		}
		n, err := units.RAMInBytes(value)
		if err != nil {
			return sizes, fmt.Errorf("buffer size %q: %w", field, err)
		}
		if n > math.MaxInt {
			return sizes, fmt.Errorf("buffer size %q is too large", field)
		}
		switch name {
		case "original_file_buffer":
			sizes.original = int(n)
		case "book_file_buffer":
			sizes.book = int(n)
		case "book_code_buffer":
			sizes.code = int(n)
		case "extracted_file_buffer":
			sizes.extracted = int(n)
		default:
			return sizes, fmt.Errorf("unknown buffer name %q", name)
		}
		for _, unused := range idle {
			if name == unused {
				fmt.Fprintf(warn, "%s will have no effect when %s\n", name, mode)
			}
		}
	}
	return sizes, nil
}
