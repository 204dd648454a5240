package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshkosher/bioio/pkg/chunkenc"
)

func newDetailsCmd() *cobra.Command {
	var flagBlocks, flagLines bool

	cmd := &cobra.Command{
		Use:   "details <zlines file>",
		Short: "Print internal details about the data encoded in the file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetails(args[0], flagBlocks, flagLines)
		},
	}
	cmd.Flags().BoolVarP(&flagBlocks, "blocks", "b", false, "print details about each compressed block")
	cmd.Flags().BoolVarP(&flagLines, "lines", "l", false, "print details about each line of data")
	return cmd
}

func runDetails(path string, flagBlocks, flagLines bool) error {
	zf, err := chunkenc.Open(path)
	if err != nil {
		return err
	}
	defer zf.Close()

	fmt.Printf("%d lines, longest line %d bytes\n", zf.LineCount(), zf.MaxLineLength())

	if zf.BlockCount() > 0 {
		off, err := zf.BlockOffset(0)
		if err != nil {
			return err
		}
		fmt.Printf("data begins at offset %d\n", off)
	}
	fmt.Printf("block index at offset %d\n", zf.IndexOffset())
	fmt.Printf("%d compressed blocks\n", zf.BlockCount())

	if flagBlocks {
		for i := uint64(0); i < zf.BlockCount(); i++ {
			lineCount, err := zf.BlockLineCount(i)
			if err != nil {
				return err
			}
			orig, err := zf.BlockSizeOriginal(i)
			if err != nil {
				return err
			}
			comp, err := zf.BlockSizeCompressed(i)
			if err != nil {
				return err
			}
			off, err := zf.BlockOffset(i)
			if err != nil {
				return err
			}
			fmt.Printf("block %d: %d lines, %d bytes->%d bytes, offset %d\n",
				i, lineCount, orig, comp, off)
		}
	}

	if flagLines {
		for i := uint64(0); i < zf.LineCount(); i++ {
			blockIdx, offset, length, err := zf.LineDetails(i)
			if err != nil {
				return err
			}
			fmt.Printf("line %d: in block %d, offset %d, len %d\n", i, blockIdx, offset, length)
		}
	}

	return nil
}
