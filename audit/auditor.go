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

// Package audit turns a sequence of frame counters into a record of
// which frames were caught and which were dropped.
package audit

import (
	"errors"
	"fmt"
)

// A device without frame counter support reports -1, i.e. all bits
// set in the 32-bit counter.
const sentinelCounter uint32 = 0xFFFFFFFF

var (
	ErrEmptyTrace      = errors.New("no frame counters to audit")
	ErrSentinelCounter = errors.New("camera does not support frame count")
)

// Entry is a caught frame, or a run of consecutive dropped frames
// starting at Expected. Each counter it covers is one ledger line.
type Entry struct {
	Expected uint64
	Observed uint32
	Dropped  bool

	// Count is the number of dropped counters, set only when Dropped.
	Count uint64
}

// Len returns the number of counters the entry covers.
func (e Entry) Len() uint64 {
	if e.Dropped {
		return e.Count
	}
	return 1
}

// OutOfOrder records a counter that was lower than the next expected
// value, i.e. a repeat, reorder or wrap of the camera counter.
type OutOfOrder struct {
	Index    int
	Expected uint64
	Observed uint32
}

func (o OutOfOrder) String() string {
	return fmt.Sprintf("frame %d: counter %d is behind expected %d", o.Index, o.Observed, o.Expected)
}

// NewAuditor returns an Auditor ready for the first counter of a
// channel.
func NewAuditor() *Auditor {
	return &Auditor{report: new(Report)}
}

// Auditor tracks continuity one frame counter at a time.
type Auditor struct {
	initialized bool
	index       int
	expected    uint64
	report      *Report
}

func (a *Auditor) init(fc uint32) error {
	if fc == sentinelCounter {
		return ErrSentinelCounter
	}
	a.initialized = true
	a.expected = uint64(fc)
	a.report.Offset = fc
	a.report.MaxObserved = fc
	return nil
}

// Add accounts for the next frame counter. It returns the number of
// frames dropped immediately before it.
func (a *Auditor) Add(fc uint32) (int, error) {
	if !a.initialized {
		if err := a.init(fc); err != nil {
			return 0, err
		}
	}
	defer func() { a.index++ }()

	r := a.report
	if uint64(fc) < a.expected {
		r.OutOfOrder = append(r.OutOfOrder, OutOfOrder{
			Index:    a.index,
			Expected: a.expected,
			Observed: fc,
		})
		return 0, nil
	}

	dropped := 0
	if gap := uint64(fc) - a.expected; gap > 0 {
		r.Ledger = append(r.Ledger, Entry{Expected: a.expected, Dropped: true, Count: gap})
		dropped = int(gap)
		r.NumDropped += dropped
		a.expected = uint64(fc)
	}
	r.Ledger = append(r.Ledger, Entry{Expected: a.expected, Observed: fc})
	r.NumCaught++
	a.expected++

	if fc > r.MaxObserved {
		r.MaxObserved = fc
	}
	return dropped, nil
}

// AddTail accounts for a final frame that may have been torn when the
// capture stopped. It is still used to establish the offset of an
// otherwise empty channel but never counts towards drops or catches.
func (a *Auditor) AddTail(fc uint32) error {
	if !a.initialized {
		if err := a.init(fc); err != nil {
			return err
		}
	}
	a.index++
	return nil
}

// Report returns the report accumulated so far.
func (a *Auditor) Report() *Report {
	return a.report
}

// Audit checks the continuity of a channel's frame counters, given in
// capture order. If excludeTail is set the last counter is treated as
// a possibly torn final frame and left out of the accounting.
func Audit(trace []uint32, excludeTail bool) (*Report, error) {
	if len(trace) == 0 {
		return nil, ErrEmptyTrace
	}
	a := NewAuditor()
	for i, fc := range trace {
		if excludeTail && i == len(trace)-1 {
			if err := a.AddTail(fc); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := a.Add(fc); err != nil {
			return nil, err
		}
	}
	return a.Report(), nil
}
