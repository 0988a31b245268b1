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

package record

import (
	"errors"
	"fmt"
)

var errEndOfBuffer = errors.New("buffer ended part way through a tick")

// ChannelError ties a decode failure to where it happened in an
// interleaved buffer.
type ChannelError struct {
	Channel int
	Tick    int
	Offset  int
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %d, tick %d, offset %d: %v", e.Channel, e.Tick, e.Offset, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// Demux walks a buffer holding records from several channels written
// round robin, one record per channel per tick. frameSizes gives the
// fixed record payload size of each channel. Counters are appended to
// traces, which is grown to one trace per channel if needed, so
// successive files of a run can be fed through in order.
func Demux(traces [][]uint32, buf []byte, frameSizes []int) ([][]uint32, error) {
	if len(frameSizes) == 0 {
		return traces, errors.New("no channels to demux")
	}
	for len(traces) < len(frameSizes) {
		traces = append(traces, nil)
	}

	cursor := 0
	for tick := 0; cursor < len(buf); tick++ {
		for ch, frameSize := range frameSizes {
			if cursor >= len(buf) {
				return traces, &ChannelError{Channel: ch, Tick: tick, Offset: cursor, Err: errEndOfBuffer}
			}
			rec, err := Decode(buf, cursor, frameSize)
			if err != nil {
				return traces, &ChannelError{Channel: ch, Tick: tick, Offset: cursor, Err: err}
			}
			traces[ch] = append(traces[ch], rec.Counter)
			cursor += rec.Size
		}
	}
	return traces, nil
}
