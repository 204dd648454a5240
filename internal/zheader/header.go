// Package zheader encodes and decodes the 256-byte text header that opens
// every zlines file.
package zheader

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Size is the fixed on-disk size of a zlines header.
const Size = 256

// magic is the required prefix of the header's first line.
const magic = "zline v2.0"

// AlgFzstd is the only algorithm identifier this version accepts.
const AlgFzstd = "fzstd"

// ErrFormat reports a malformed or unrecognized header.
var ErrFormat = errors.New("zlines: invalid header format")

// Header is the decoded form of the 256-byte on-disk header record.
type Header struct {
	DataOffset      uint64
	IndexOffset     uint64
	Lines           uint64
	Blocks          uint64
	MaxLen          uint64
	IndexCompressed bool
}

// Encode renders h as a Size-byte, space-padded, newline-terminated header
// record. It panics if the rendered text would not fit — a caller bug, not
// a runtime condition.
func Encode(h Header) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", magic)
	fmt.Fprintf(&b, "data_offset %d\n", h.DataOffset)
	fmt.Fprintf(&b, "index_offset %d\n", h.IndexOffset)
	fmt.Fprintf(&b, "lines %d\n", h.Lines)
	fmt.Fprintf(&b, "blocks %d\n", h.Blocks)
	fmt.Fprintf(&b, "maxlen %d\n", h.MaxLen)
	fmt.Fprintf(&b, "alg %s\n", AlgFzstd)
	if h.IndexCompressed {
		fmt.Fprintf(&b, "zi\n")
	}
	b.WriteByte('\n')

	text := b.String()
	if len(text) > Size {
		panic("zheader: header text exceeds fixed header size")
	}

	buf := make([]byte, Size)
	copy(buf, text)
	for i := len(text); i < Size-1; i++ {
		buf[i] = ' '
	}
	buf[Size-1] = '\n'
	return buf
}

// Decode parses a Size-byte header record. buf must be at least Size bytes;
// only the first Size bytes are consulted.
func Decode(buf []byte) (Header, error) {
	var h Header
	if len(buf) < Size {
		return h, errors.Wrap(ErrFormat, "truncated header")
	}

	sc := bufio.NewScanner(bytes.NewReader(buf[:Size]))
	if !sc.Scan() {
		return h, errors.Wrap(ErrFormat, "missing header line 1")
	}
	if !strings.HasPrefix(sc.Text(), magic) {
		return h, errors.Wrap(ErrFormat, "bad magic prefix")
	}

	var alg string
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			break
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			break
		}
		name := fields[0]
		switch name {
		case "data_offset", "index_offset", "lines", "blocks", "maxlen":
			if len(fields) != 2 {
				return h, errors.Wrapf(ErrFormat, "malformed %s field", name)
			}
			v, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				return h, errors.Wrapf(ErrFormat, "malformed %s value", name)
			}
			switch name {
			case "data_offset":
				h.DataOffset = v
			case "index_offset":
				h.IndexOffset = v
			case "lines":
				h.Lines = v
			case "blocks":
				h.Blocks = v
			case "maxlen":
				h.MaxLen = v
			}
		case "alg":
			if len(fields) != 2 {
				return h, errors.Wrap(ErrFormat, "malformed alg field")
			}
			alg = fields[1]
		case "zi":
			h.IndexCompressed = true
		default:
			return h, errors.Wrapf(ErrFormat, "unrecognized header field %q", name)
		}
	}
	if err := sc.Err(); err != nil {
		return h, errors.Wrap(err, "scanning header")
	}

	if alg != AlgFzstd {
		return h, errors.Wrapf(ErrFormat, "unrecognized algorithm %q", alg)
	}

	// index_offset is left at zero by the placeholder header (written at
	// create, before close), so a zero there marks a file that was never
	// closed; data_offset is never zero in a header this package writes.
	// lines and blocks are legitimately zero for an empty file, so they
	// are not part of this check (see DESIGN.md).
	if h.DataOffset == 0 || h.IndexOffset == 0 {
		return h, errors.Wrap(ErrFormat, "incomplete header")
	}

	return h, nil
}
