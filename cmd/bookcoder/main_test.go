package main

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestOpenEnds__StdioMapsCodeToStdout(t *testing.T) {
	dir := t.TempDir()
	originalPath := filepath.Join(dir, "original.bin")
	outputPath := filepath.Join(dir, "code.bin")
	require.NoError(t, os.WriteFile(originalPath, []byte("plain bytes"), 0o644))

	c := endsContext(t,
		"--stdio", "--original-file", originalPath, "--output-file", outputPath)
	input, output, closeEnds, err := openEnds(c, "original-file", "output-file", true)
	require.NoError(t, err)

	assert.Same(t, os.Stdout, output, "the book code should go to standard output")
	contents, err := io.ReadAll(input)
	require.NoError(t, err)
	assert.Equal(t, []byte("plain bytes"), contents, "the original file is still read")

	require.NoError(t, closeEnds())
	assert.NoFileExists(t, outputPath, "no code file should be created")
}

func TestOpenEnds__StdioExtractsCodeFromStdin(t *testing.T) {
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "extracted.bin")

	c := endsContext(t,
		"--stdio", "--book-code", filepath.Join(dir, "missing.code"),
		"--output-file", outputPath)
	input, output, closeEnds, err := openEnds(c, "book-code", "output-file", false)
	require.NoError(t, err, "the code file should not be opened at all")

	assert.Same(t, os.Stdin, input, "the book code should come from standard input")
	_, err = output.Write([]byte("recovered"))
	require.NoError(t, err)
	require.NoError(t, closeEnds())

	written, err := os.ReadFile(outputPath)
	require.NoError(t, err, "the extracted file is still created")
	assert.Equal(t, []byte("recovered"), written)
}

func TestOpenEnds__StdioStillRequiresTheFileEnd(t *testing.T) {
	tests := []struct {
		Name    string
		InFlag  string
		CodeOut bool
		Missing string
	}{
		{"mapping needs the original file", "original-file", true, "--original-file"},
		{"extracting needs the output file", "book-code", false, "--output-file"},
	}

	for _, test := range tests {
		t.Run(
			test.Name,
			func(t *testing.T) {
				c := endsContext(t, "--stdio")
				_, _, _, err := openEnds(c, test.InFlag, "output-file", test.CodeOut)
				require.Error(t, err)
				assert.Contains(t, err.Error(), test.Missing)
			},
		)
	}
}

func TestOpenEnds__FilesOnBothEnds(t *testing.T) {
	dir := t.TempDir()
	originalPath := filepath.Join(dir, "original.bin")
	outputPath := filepath.Join(dir, "code.bin")
	require.NoError(t, os.WriteFile(originalPath, []byte("on disk"), 0o644))

	c := endsContext(t, "--original-file", originalPath, "--output-file", outputPath)
	input, output, closeEnds, err := openEnds(c, "original-file", "output-file", true)
	require.NoError(t, err)

	contents, err := io.ReadAll(input)
	require.NoError(t, err)
	assert.Equal(t, []byte("on disk"), contents)

	_, err = output.Write([]byte("a code"))
	require.NoError(t, err)
	require.NoError(t, closeEnds())

	written, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("a code"), written)
}

func TestOpenEnds__MissingFlagsWithoutStdio(t *testing.T) {
	c := endsContext(t)
	_, _, _, err := openEnds(c, "original-file", "output-file", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--original-file")
}

////////////////////////////////////////////////////////////////////////////////
// Helper functions

// endsContext builds a CLI context carrying the stream flags parsed from args.
func endsContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()

	set := flag.NewFlagSet("bookcoder", flag.ContinueOnError)
	set.Bool("stdio", false, "")
	set.String("original-file", "", "")
	set.String("book-code", "", "")
	set.String("output-file", "", "")
	require.NoError(t, set.Parse(args))
	return cli.NewContext(nil, set, nil)
}
