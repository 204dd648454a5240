package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/oshkosher/bioio/pkg/chunkenc"
)

// maxMismatches is the error cap past which verify gives up early,
// matching the original driver's hardcoded threshold of 10.
const maxMismatches = 10

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <zlines file> <text file>",
		Short: "Check that a zlines file matches the given text file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := runVerify(args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("verification failed")
			}
			return nil
		},
	}
}

func runVerify(zlinesPath, textPath string) (bool, error) {
	zf, err := chunkenc.Open(zlinesPath)
	if err != nil {
		return false, err
	}
	defer zf.Close()

	textFile, _, err := openInputOrStdin(textPath)
	if err != nil {
		return false, err
	}
	defer textFile.Close()

	lineCount := zf.LineCount()
	reader := bufio.NewReader(textFile)

	var lineIdx uint64
	var errCount int

	for {
		line, rerr := reader.ReadString('\n')
		if len(line) > 0 {
			trimmed := trimNewline(line)

			if lineIdx >= lineCount {
				fmt.Printf("Error: %d lines in %s, but %s contains more\n", lineCount, zlinesPath, textPath)
				return false, nil
			}

			extracted, err := zf.GetLine(lineIdx)
			if err != nil {
				return false, err
			}
			if !bytes.Equal(extracted, []byte(trimmed)) {
				fmt.Printf("Line %d mismatch.\n", lineIdx)
				errCount++
				if errCount == maxMismatches {
					fmt.Println("Too many errors. Exiting.")
					return false, nil
				}
			}
			lineIdx++
		}
		if rerr != nil {
			if rerr != io.EOF {
				return false, rerr
			}
			break
		}
	}

	if lineIdx != lineCount {
		fmt.Printf("Error: %d lines in %s, but %s contains %d\n", lineIdx, textPath, zlinesPath, lineCount)
		errCount++
	}

	if errCount == 0 {
		fmt.Println("No errors")
	}

	return errCount == 0, nil
}
