package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/docker/go-units"
	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"

	"github.com/kennbr34/bookcoder"
	"github.com/kennbr34/bookcoder/analyze"
	"github.com/kennbr34/bookcoder/codepack"
	"github.com/kennbr34/bookcoder/sysmem"
)

func main() {
	app := cli.App{
		Name:  "bookcoder",
		Usage: "Map files to offsets into a book file and extract them back",
		Commands: []*cli.Command{
			mapCommand(),
			extractCommand(),
			analyzeCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func bookFileFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "book-file",
		Aliases:  []string{"b"},
		Usage:    "book `FILE` that offsets refer into",
		Required: true,
	}
}

func bufferSizeFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "buffer-size",
		Aliases: []string{"s"},
		Usage: "comma-separated buffer `SIZES` with b/k/m/g suffixes; names are " +
			"original_file_buffer, book_file_buffer, book_code_buffer, extracted_file_buffer",
	}
}

func stdioFlag(usage string) *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:    "stdio",
		Aliases: []string{"p"},
		Usage:   usage,
	}
}

func packFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:    "pack",
		Aliases: []string{"z"},
		Usage:   "treat the book code as packed (see the codepack package)",
	}
}

func verboseFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "print progress to standard error; repeat for more detail",
	}
}

func mapCommand() *cli.Command {
	return &cli.Command{
		Name:   "map",
		Usage:  "Map a file to offsets of matching bytes in the book",
		Action: runMap,
		Flags: []cli.Flag{
			bookFileFlag(),
			&cli.StringFlag{
				Name:    "original-file",
				Aliases: []string{"o"},
				Usage:   "`FILE` to map against the book",
			},
			&cli.StringFlag{
				Name:    "output-file",
				Aliases: []string{"f"},
				Usage:   "`FILE` the book code is written to",
			},
			&cli.BoolFlag{
				Name:    "duplicates",
				Aliases: []string{"d"},
				Usage:   "allow mapping a byte value to the same offset it got last time",
			},
			&cli.BoolFlag{
				Name:    "reset-after-buffer",
				Aliases: []string{"r"},
				Usage:   "rewind the book after every window instead of reading onward",
			},
			bufferSizeFlag(),
			packFlag(),
			stdioFlag("write the book code to standard output instead of a file"),
			verboseFlag(),
		},
	}
}

func runMap(c *cli.Context) error {
	sizes, err := parseBufferSizes(
		c.String("buffer-size"), os.Stderr, "mapping offsets", "extracted_file_buffer")
	if err != nil {
		return err
	}
	input, output, closeEnds, err := openEnds(c, "original-file", "output-file", true)
	if err != nil {
		return err
	}
	bk, err := bookcoder.OpenBook(c.String("book-file"))
	if err != nil {
		closeEnds()
		return err
	}

	var packer *codepack.PackWriter
	if c.Bool("pack") {
		packer, err = codepack.NewPackWriter(output)
		if err != nil {
			closeEnds()
			bk.Close()
			return err
		}
		output = packer
	}

	opts := &bookcoder.EncodeOptions{
		WindowSize:       sizes.book,
		ChunkSize:        sizes.original,
		CodeChunkSize:    sizes.code,
		AllowDuplicates:  c.Bool("duplicates"),
		ResetAtWindowEnd: c.Bool("reset-after-buffer"),
		MemoryBudget:     memoryBudget(),
		Diag:             os.Stderr,
		Verbosity:        c.Count("verbose"),
	}
	_, err = bookcoder.Encode(bk, input, output, opts)

	var result *multierror.Error
	result = multierror.Append(result, err)
	if packer != nil {
		result = multierror.Append(result, packer.Close())
	}
	result = multierror.Append(result, bk.Close(), closeEnds())
	return result.ErrorOrNil()
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:   "extract",
		Usage:  "Extract the original file back out of a book code",
		Action: runExtract,
		Flags: []cli.Flag{
			bookFileFlag(),
			&cli.StringFlag{
				Name:    "book-code",
				Aliases: []string{"c"},
				Usage:   "`FILE` of offset codes to extract from",
			},
			&cli.StringFlag{
				Name:    "output-file",
				Aliases: []string{"f"},
				Usage:   "`FILE` the extracted bytes are written to",
			},
			bufferSizeFlag(),
			packFlag(),
			stdioFlag("read the book code from standard input instead of a file"),
			verboseFlag(),
		},
	}
}

func runExtract(c *cli.Context) error {
	sizes, err := parseBufferSizes(
		c.String("buffer-size"), os.Stderr, "extracting bytes", "original_file_buffer")
	if err != nil {
		return err
	}
	input, output, closeEnds, err := openEnds(c, "book-code", "output-file", false)
	if err != nil {
		return err
	}
	bk, err := bookcoder.OpenBook(c.String("book-file"))
	if err != nil {
		closeEnds()
		return err
	}

	var unpacker *codepack.UnpackReader
	if c.Bool("pack") {
		unpacker, err = codepack.NewUnpackReader(input)
		if err != nil {
			closeEnds()
			bk.Close()
			return err
		}
		input = unpacker
	}

	opts := &bookcoder.DecodeOptions{
		CodeChunkSize:   sizes.code,
		OutputChunkSize: sizes.extracted,
		MemoryBudget:    memoryBudget(),
		Diag:            os.Stderr,
		Verbosity:       c.Count("verbose"),
	}
	opts.PageSize, opts.PageCount = pageGeometry(sizes.book)
	_, err = bookcoder.Decode(bk, input, output, opts)

	var result *multierror.Error
	result = multierror.Append(result, err)
	if unpacker != nil {
		result = multierror.Append(result, unpacker.Close())
	}
	result = multierror.Append(result, bk.Close(), closeEnds())
	return result.ErrorOrNil()
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:   "analyze",
		Usage:  "Report which byte values the book can supply",
		Action: runAnalyze,
		Flags: []cli.Flag{
			bookFileFlag(),
			&cli.StringFlag{
				Name:  "csv",
				Usage: "also write per-value coverage rows to this `FILE` (- for standard output)",
			},
			bufferSizeFlag(),
		},
	}
}

func runAnalyze(c *cli.Context) error {
	sizes, err := parseBufferSizes(
		c.String("buffer-size"), os.Stderr, "analyzing the book",
		"original_file_buffer", "book_code_buffer", "extracted_file_buffer")
	if err != nil {
		return err
	}
	bk, err := bookcoder.OpenBook(c.String("book-file"))
	if err != nil {
		return err
	}
	defer bk.Close()

	rep, err := analyze.Survey(bk, &analyze.Options{
		ChunkSize:    sizes.book,
		MemoryBudget: memoryBudget(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("book file: %s\n", c.String("book-file"))
	fmt.Printf("size: %s (%d bytes)\n",
		units.BytesSize(float64(rep.BookSize)), rep.BookSize)
	fmt.Printf("distinct byte values: %d of 256\n", rep.Distinct())
	if missing := rep.Missing(); len(missing) > 0 {
		fmt.Printf("missing values:")
		for _, v := range missing {
			fmt.Printf(" %#02x", v)
		}
		fmt.Println()
	}

	if path := c.String("csv"); path != "" {
		if path == "-" {
			return rep.WriteCSV(os.Stdout)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		var result *multierror.Error
		result = multierror.Append(result, rep.WriteCSV(f), f.Close())
		return result.ErrorOrNil()
	}
	return nil
}

// openEnds resolves a command's input and output streams. --stdio redirects
// only the book-code end: mapping writes its code to standard output,
// extraction reads its code from standard input. The other end always names
// a file. The returned function closes whatever was opened.
func openEnds(c *cli.Context, inFlag, outFlag string, codeOut bool) (io.Reader, io.Writer, func() error, error) {
	stdio := c.Bool("stdio")

	var input io.Reader = os.Stdin
	var inFile *os.File
	if codeOut || !stdio {
		path := c.String(inFlag)
		if path == "" {
			return nil, nil, nil, needFlag(inFlag, !codeOut)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening %s: %w", path, err)
		}
		inFile = f
		input = f
	}

	var output io.Writer = os.Stdout
	var outFile *os.File
	if !codeOut || !stdio {
		path := c.String(outFlag)
		if path == "" {
			if inFile != nil {
				inFile.Close()
			}
			return nil, nil, nil, needFlag(outFlag, codeOut)
		}
		f, err := os.Create(path)
		if err != nil {
			if inFile != nil {
				inFile.Close()
			}
			return nil, nil, nil, fmt.Errorf("creating %s: %w", path, err)
		}
		outFile = f
		output = f
	}

	closeEnds := func() error {
		var result *multierror.Error
		if outFile != nil {
			result = multierror.Append(result, outFile.Close())
		}
		if inFile != nil {
			result = multierror.Append(result, inFile.Close())
		}
		return result.ErrorOrNil()
	}
	return input, output, closeEnds, nil
}

// needFlag reports a missing file flag, mentioning --stdio only when it
// could stand in for that end.
func needFlag(name string, stdioCould bool) error {
	if stdioCould {
		return fmt.Errorf("need --%s unless --stdio is given", name)
	}
	return fmt.Errorf("need --%s", name)
}

// pageGeometry converts the book buffer size into page cache dimensions for
// extraction. Zero means the library defaults.
func pageGeometry(bookBuffer int) (pageSize, pageCount int) {
	if bookBuffer <= 0 {
		return 0, 0
	}
	pageSize = bookcoder.DefaultPageSize
	if bookBuffer < pageSize {
		pageSize = bookBuffer
	}
	pageCount = bookBuffer / pageSize
	return pageSize, pageCount
}

// memoryBudget probes the host for available memory. A failed probe disables
// the budget check rather than the run.
func memoryBudget() int64 {
	avail, err := sysmem.Available()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot determine available memory: %s\n", err)
		return 0
	}
	return avail
}
