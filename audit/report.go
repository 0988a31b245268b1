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

// Report is the result of auditing one channel.
type Report struct {
	Offset      uint32
	MaxObserved uint32
	NumCaught   int
	NumDropped  int
	Ledger      []Entry
	OutOfOrder  []OutOfOrder
}

// Total returns the number of frames the camera issued between the
// first and the highest counter seen, inclusive.
func (r *Report) Total() uint64 {
	return uint64(r.MaxObserved) - uint64(r.Offset) + 1
}

// CatchRate returns the fraction of issued frames which were not
// dropped.
func (r *Report) CatchRate() float64 {
	total := float64(r.Total())
	return (total - float64(r.NumDropped)) / total
}

// DroppedCounters returns the counter values of every dropped frame.
func (r *Report) DroppedCounters() []uint64 {
	var out []uint64
	for _, e := range r.Ledger {
		if !e.Dropped {
			continue
		}
		for i := uint64(0); i < e.Count; i++ {
			out = append(out, e.Expected+i)
		}
	}
	return out
}
