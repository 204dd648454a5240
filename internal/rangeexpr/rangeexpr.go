// Package rangeexpr parses Python-slice-style line selectors for the
// zlines CLI's "get" subcommand: a bare integer selects one line, negative
// indices count back from the end, and "start:end:step" selects a range
// the same way Python's list[start:end:step] does. Grounded on the
// original zlines.c's parseRange/checkLineNumbers.
package rangeexpr

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Range is a parsed line selector. A bare integer ("12", "-1") parses with
// HasStart true, HasEnd false, and Step 0 — a sentinel distinguishing "one
// line" from a full slice, matching the original parser's single-value
// special case.
type Range struct {
	Start, End       int64
	HasStart, HasEnd bool
	Step             int64
}

// Parse parses one selector argument.
func Parse(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, errors.Errorf("invalid line range %q", s)
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return Range{}, errors.Errorf("invalid line range %q", s)
	}

	if len(parts) == 1 {
		n, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return Range{}, errors.Errorf("invalid line range %q", s)
		}
		return Range{Start: n, HasStart: true, Step: 0}, nil
	}

	r := Range{Step: 1}
	if v := strings.TrimSpace(parts[0]); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Range{}, errors.Errorf("invalid line range %q", s)
		}
		r.Start, r.HasStart = n, true
	}
	if v := strings.TrimSpace(parts[1]); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Range{}, errors.Errorf("invalid line range %q", s)
		}
		r.End, r.HasEnd = n, true
	}
	if len(parts) == 3 {
		if v := strings.TrimSpace(parts[2]); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return Range{}, errors.Errorf("invalid line range %q", s)
			}
			r.Step = n
		}
	}

	return r, nil
}

// resolve turns a possibly-negative index into an absolute one, counting
// back from nLines for negative values, and reports whether it names an
// existing line (for single-value selectors) or just a slice bound.
func resolve(n, nLines int64, forLine bool) (int64, error) {
	if forLine {
		if n >= nLines || (n < 0 && -n > nLines) {
			return 0, errors.Errorf("invalid line number: %d", n)
		}
	}
	if n < 0 {
		n += nLines
	}
	return n, nil
}

// Lines expands the selector into the concrete, ordered line indices it
// names, given the file's total line count.
func (r Range) Lines(nLines int64) ([]uint64, error) {
	if r.Step == 0 {
		idx, err := resolve(r.Start, nLines, true)
		if err != nil {
			return nil, err
		}
		return []uint64{uint64(idx)}, nil
	}

	step := r.Step
	if step == 0 {
		step = 1
	}

	var start, end int64
	if step > 0 {
		start, end = 0, nLines
	} else {
		start, end = nLines-1, -1
	}
	if r.HasStart {
		s, err := resolve(r.Start, nLines, false)
		if err != nil {
			return nil, err
		}
		start = clamp(s, nLines, step)
	}
	if r.HasEnd {
		e, err := resolve(r.End, nLines, false)
		if err != nil {
			return nil, err
		}
		end = clamp(e, nLines, step)
	}

	var out []uint64
	if step > 0 {
		for i := start; i < end; i += step {
			if i >= 0 && i < nLines {
				out = append(out, uint64(i))
			}
		}
	} else {
		for i := start; i > end; i += step {
			if i >= 0 && i < nLines {
				out = append(out, uint64(i))
			}
		}
	}
	return out, nil
}

func clamp(v, nLines, step int64) int64 {
	if step > 0 {
		if v < 0 {
			return 0
		}
		if v > nLines {
			return nLines
		}
	} else {
		if v < -1 {
			return -1
		}
		if v >= nLines {
			return nLines - 1
		}
	}
	return v
}
