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

// Package record walks the frame records of a capture buffer. Each
// record is either a GenDC container or a fixed layout record made
// of a 4 byte counter followed by the frame payload.
package record

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/TheCacophonyProject/frame-check/gendc"
)

// CounterSize is the length of the counter prefixing a fixed record.
const CounterSize = 4

type Format int

const (
	FormatGenDC Format = iota
	FormatFixed
)

func (f Format) String() string {
	switch f {
	case FormatGenDC:
		return "gendc"
	case FormatFixed:
		return "fixed"
	default:
		return "unknown"
	}
}

// ParseFormat returns the Format named by s, as printed by String.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "gendc":
		return FormatGenDC, nil
	case "fixed":
		return FormatFixed, nil
	}
	return 0, fmt.Errorf("unknown record format %q", s)
}

// Record describes a single decoded frame record.
type Record struct {
	Counter uint32
	Offset  int
	Size    int
	Format  Format
}

// ShortRecordError is returned when a fixed record does not fit in
// what is left of the buffer.
type ShortRecordError struct {
	Offset int
	Need   int
	Have   int
}

func (e *ShortRecordError) Error() string {
	return fmt.Sprintf("short record at offset %d: need %d bytes, have %d", e.Offset, e.Need, e.Have)
}

// DecodeFixed reads the fixed layout record at cursor. The payload is
// skipped, not inspected.
func DecodeFixed(buf []byte, cursor, frameSize int) (uint32, int, error) {
	advance := CounterSize + frameSize
	if cursor < 0 || cursor > len(buf) || len(buf)-cursor < advance {
		have := len(buf) - cursor
		if have < 0 {
			have = 0
		}
		return 0, 0, &ShortRecordError{Offset: cursor, Need: advance, Have: have}
	}
	return binary.LittleEndian.Uint32(buf[cursor:]), advance, nil
}

// Decode reads the record at cursor. A GenDC container is tried
// first; only if the bytes are not a container is the fixed layout
// used, at the same cursor.
func Decode(buf []byte, cursor, frameSize int) (Record, error) {
	frame, err := gendc.Decode(buf, cursor)
	if err == nil {
		return Record{
			Counter: frame.Counter,
			Offset:  cursor,
			Size:    int(frame.Size),
			Format:  FormatGenDC,
		}, nil
	}
	if !errors.Is(err, gendc.ErrNotAContainer) {
		return Record{}, err
	}

	counter, advance, err := DecodeFixed(buf, cursor, frameSize)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Counter: counter,
		Offset:  cursor,
		Size:    advance,
		Format:  FormatFixed,
	}, nil
}

// Scan decodes every record of a single channel buffer, appending the
// counters to trace.
func Scan(trace []uint32, buf []byte, frameSize int) ([]uint32, error) {
	cursor := 0
	for cursor < len(buf) {
		rec, err := Decode(buf, cursor, frameSize)
		if err != nil {
			return trace, err
		}
		trace = append(trace, rec.Counter)
		cursor += rec.Size
	}
	return trace, nil
}
