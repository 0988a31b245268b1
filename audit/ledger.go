// frame-check - audit frame continuity of camera captures
//  Copyright (C) 2025, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package audit

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	offsetLabel = "offset_frame_count:"
	dropMarker  = "x"
)

// WriteLedger writes a report in the frame log format read by the
// existing plotting tools:
//
//	<width>x<height>
//	offset_frame_count: <offset>
//	<expected> : <observed or x>
//	...
//	<catch rate>
func WriteLedger(w io.Writer, width, height int, r *Report) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%dx%d\n", width, height)
	fmt.Fprintf(bw, "%s %d\n", offsetLabel, r.Offset)
	for _, e := range r.Ledger {
		if !e.Dropped {
			fmt.Fprintf(bw, "%d : %d\n", e.Expected, e.Observed)
			continue
		}
		for i := uint64(0); i < e.Count; i++ {
			fmt.Fprintf(bw, "%d : %s\n", e.Expected+i, dropMarker)
		}
	}
	fmt.Fprintln(bw, formatRate(r.CatchRate()))
	return bw.Flush()
}

// formatRate prints a rate the way the original tools did, always
// with a decimal point or exponent.
func formatRate(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eIN") {
		s += ".0"
	}
	return s
}

// Ledger is a frame log read back from disk.
type Ledger struct {
	Width     int
	Height    int
	Offset    uint64
	Entries   []Entry
	CatchRate float64
}

// Caught returns the number of frames in the log which were seen.
func (l *Ledger) Caught() int {
	n := 0
	for _, e := range l.Entries {
		if !e.Dropped {
			n++
		}
	}
	return n
}

// Total returns the number of frames covered by the log.
func (l *Ledger) Total() int {
	n := 0
	for _, e := range l.Entries {
		n += int(e.Len())
	}
	return n
}

// Skipped returns the positions of dropped frames relative to the
// offset.
func (l *Ledger) Skipped() []int {
	var out []int
	for _, e := range l.Entries {
		if !e.Dropped {
			continue
		}
		for i := uint64(0); i < e.Count; i++ {
			out = append(out, int(e.Expected+i-l.Offset))
		}
	}
	return out
}

// add appends an entry, merging consecutive drops into one.
func (l *Ledger) add(e Entry) {
	if n := len(l.Entries); n > 0 && e.Dropped {
		last := &l.Entries[n-1]
		if last.Dropped && last.Expected+last.Count == e.Expected {
			last.Count += e.Count
			return
		}
	}
	l.Entries = append(l.Entries, e)
}

// ParseLedger reads a frame log written by WriteLedger. The trailing
// catch rate line is optional; when absent the rate is computed from
// the entries.
func ParseLedger(r io.Reader) (*Ledger, error) {
	scanner := bufio.NewScanner(r)
	l := new(Ledger)
	lineNum := 0
	haveResolution := false
	haveRate := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum++
		if line == "" {
			continue
		}
		if haveRate {
			return nil, fmt.Errorf("line %d: unexpected content after catch rate", lineNum)
		}

		switch {
		case !haveResolution:
			if err := l.parseResolution(line); err != nil {
				return nil, fmt.Errorf("line %d: %v", lineNum, err)
			}
			haveResolution = true
		case strings.HasPrefix(line, offsetLabel):
			v, err := strconv.ParseUint(strings.TrimSpace(strings.TrimPrefix(line, offsetLabel)), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid offset: %v", lineNum, err)
			}
			l.Offset = v
		case strings.Contains(line, ":"):
			e, err := parseEntry(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %v", lineNum, err)
			}
			l.add(e)
		default:
			v, err := strconv.ParseFloat(line, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid catch rate: %v", lineNum, err)
			}
			l.CatchRate = v
			haveRate = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !haveResolution {
		return nil, errors.New("empty frame log")
	}
	if !haveRate && l.Total() > 0 {
		l.CatchRate = float64(l.Caught()) / float64(l.Total())
	}
	return l, nil
}

func (l *Ledger) parseResolution(line string) error {
	parts := strings.SplitN(line, "x", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid resolution %q", line)
	}
	var err error
	if l.Width, err = strconv.Atoi(parts[0]); err != nil {
		return fmt.Errorf("invalid width: %v", err)
	}
	if l.Height, err = strconv.Atoi(parts[1]); err != nil {
		return fmt.Errorf("invalid height: %v", err)
	}
	return nil
}

func parseEntry(line string) (Entry, error) {
	parts := strings.SplitN(line, ":", 2)
	expected, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid expected frame: %v", err)
	}
	observed := strings.TrimSpace(parts[1])
	if observed == dropMarker {
		return Entry{Expected: expected, Dropped: true, Count: 1}, nil
	}
	v, err := strconv.ParseUint(observed, 10, 32)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid observed frame: %v", err)
	}
	return Entry{Expected: expected, Observed: uint32(v)}, nil
}
