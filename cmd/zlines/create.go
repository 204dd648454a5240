package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/oshkosher/bioio/pkg/chunkenc"
)

// statusUpdateFrequencyBytes is how often, in input bytes consumed,
// createFile prints a progress line — matches the original driver's
// CREATE_FILE_UPDATE_FREQUENCY_BYTES.
const statusUpdateFrequencyBytes = 50 * 1024 * 1024

func newCreateCmd() *cobra.Command {
	var blockSize int
	var quiet bool

	cmd := &cobra.Command{
		Use:   "create <output.zlines> <input.txt>",
		Short: "Create a zlines file from a text file (use - for stdin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(args[0], args[1], blockSize, quiet)
		},
	}
	cmd.Flags().IntVarP(&blockSize, "block-size", "b", 0, "compression block size in bytes")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress status output")
	return cmd
}

func runCreate(outputPath, inputPath string, blockSize int, quiet bool) error {
	in, inputSize, err := openInputOrStdin(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	zf, err := chunkenc.CreateWithBlockSize(outputPath, blockSize)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(in)
	var totalBytes uint64
	var minLineLen uint64 = ^uint64(0)
	var maxLineLen uint64
	nextUpdate := uint64(statusUpdateFrequencyBytes)

	for {
		line, rerr := reader.ReadString('\n')
		if len(line) > 0 {
			totalBytes += uint64(len(line))

			if totalBytes >= nextUpdate {
				printStatus(zf.LineCount(), totalBytes, inputSize, quiet)
				nextUpdate = totalBytes + statusUpdateFrequencyBytes
			}

			trimmed := trimNewline(line)
			if uint64(len(trimmed)) > maxLineLen {
				maxLineLen = uint64(len(trimmed))
			}
			if uint64(len(trimmed)) < minLineLen {
				minLineLen = uint64(len(trimmed))
			}
			if _, aerr := zf.AddLine([]byte(trimmed)); aerr != nil {
				zf.Close()
				return aerr
			}
		}
		if rerr != nil {
			if rerr != io.EOF {
				zf.Close()
				return rerr
			}
			break
		}
	}

	printStatus(zf.LineCount(), totalBytes, inputSize, quiet)
	if err := zf.Close(); err != nil {
		return err
	}

	if zf.LineCount() == 0 {
		minLineLen = 0
	}

	return printCreateSummary(outputPath, minLineLen, maxLineLen, quiet)
}

func printCreateSummary(outputPath string, minLineLen, maxLineLen uint64, quiet bool) error {
	if quiet {
		return nil
	}

	outInfo, err := os.Stat(outputPath)
	if err != nil {
		return err
	}

	zf, err := chunkenc.Open(outputPath)
	if err != nil {
		return err
	}
	defer zf.Close()

	var totalCompressed uint64
	blockCount := zf.BlockCount()
	for i := uint64(0); i < blockCount; i++ {
		n, err := zf.BlockSizeCompressed(i)
		if err != nil {
			return err
		}
		totalCompressed += n
	}

	overhead := uint64(outInfo.Size()) - totalCompressed
	lineCount := zf.LineCount()

	fmt.Printf("\nline lengths %d..%d\n", minLineLen, maxLineLen)
	plural := "s"
	if blockCount == 1 {
		plural = ""
	}
	fmt.Printf("compressed to %s bytes in %d block%s\n", humanize.Comma(int64(totalCompressed)), blockCount, plural)
	bytesPerLine := 0.0
	if lineCount > 0 {
		bytesPerLine = float64(overhead) / float64(lineCount)
	}
	fmt.Printf("%s bytes overhead, %.2f bytes per line\n", humanize.Comma(int64(overhead)), bytesPerLine)
	return nil
}

func printStatus(lineCount, byteCount, fileSize uint64, quiet bool) {
	if quiet {
		return
	}
	fmt.Printf("\r%s lines, %s bytes", humanize.Comma(int64(lineCount)), humanize.Comma(int64(byteCount)))
	if fileSize > 0 {
		fmt.Printf(" of %s (%.1f%%)", humanize.Comma(int64(fileSize)), float64(byteCount)*100.0/float64(fileSize))
	}
}

// trimNewline strips a single trailing LF, and a preceding CR if present,
// matching the original driver's Unix/DOS line-ending handling.
func trimNewline(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '\r' {
		s = s[:len(s)-1]
	}
	return s
}

func openInputOrStdin(path string) (io.ReadCloser, uint64, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), 0, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, uint64(fi.Size()), nil
}
