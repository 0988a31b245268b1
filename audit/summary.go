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
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes catch rates across several capture runs.
type Summary struct {
	Runs   int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarise computes a Summary over per-run catch rates. StdDev is the
// sample standard deviation and is zero for a single run.
func Summarise(rates []float64) Summary {
	s := Summary{Runs: len(rates)}
	if len(rates) == 0 {
		return s
	}
	s.Min = floats.Min(rates)
	s.Max = floats.Max(rates)
	if len(rates) == 1 {
		s.Mean = rates[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(rates, nil)
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("runs=%d mean=%.2f%% stddev=%.2f%% min=%.2f%% max=%.2f%%",
		s.Runs, s.Mean*100, s.StdDev*100, s.Min*100, s.Max*100)
}
