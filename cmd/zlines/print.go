package main

import (
	"bufio"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshkosher/bioio/pkg/chunkenc"
)

func newPrintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "print <zlines file>",
		Short: "Print every line in the file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrint(args[0])
		},
	}
}

func runPrint(path string) error {
	zf, err := chunkenc.Open(path)
	if err != nil {
		return err
	}
	defer zf.Close()

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	n := zf.LineCount()
	for i := uint64(0); i < n; i++ {
		line, err := zf.GetLine(i)
		if err != nil {
			return err
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	return nil
}
