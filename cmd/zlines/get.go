package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshkosher/bioio/internal/rangeexpr"
	"github.com/oshkosher/bioio/pkg/chunkenc"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <zlines file> <line#> [<line#> ...]",
		Short: "Extract and print the given lines (supports Python-slice ranges)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(args[0], args[1:])
		},
	}
}

// runGet prints every line named by selectors. An invalid selector (bad
// range syntax, or a single line number outside the file) is reported
// to stderr and skipped; it never aborts the remaining selectors. Slice
// bounds past either end of the file are clamped, as in Python.
func runGet(path string, selectors []string) error {
	zf, err := chunkenc.Open(path)
	if err != nil {
		return err
	}
	defer zf.Close()

	nLines := int64(zf.LineCount())

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	for _, sel := range selectors {
		r, err := rangeexpr.Parse(sel)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		indices, err := r.Lines(nLines)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		for _, idx := range indices {
			line, err := zf.GetLine(idx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "line %d: %v\n", idx, err)
				continue
			}
			w.Write(line)
			w.WriteByte('\n')
		}
	}
	return nil
}
