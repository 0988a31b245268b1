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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoDrops(t *testing.T) {
	r, err := Audit([]uint32{7, 8, 9, 10}, false)
	require.NoError(t, err)

	assert.Equal(t, uint32(7), r.Offset)
	assert.Equal(t, uint32(10), r.MaxObserved)
	assert.Equal(t, 4, r.NumCaught)
	assert.Equal(t, 0, r.NumDropped)
	assert.Equal(t, uint64(4), r.Total())
	assert.Equal(t, 1.0, r.CatchRate())
	assert.Len(t, r.Ledger, 4)
	assert.Nil(t, r.DroppedCounters())
}

func TestKnownGap(t *testing.T) {
	r, err := Audit([]uint32{10, 11, 13, 14}, false)
	require.NoError(t, err)

	assert.Equal(t, 4, r.NumCaught)
	assert.Equal(t, 1, r.NumDropped)
	assert.Equal(t, uint64(5), r.Total())
	assert.InDelta(t, 0.8, r.CatchRate(), 1e-12)
	assert.Equal(t, []uint64{12}, r.DroppedCounters())
	assert.Equal(t, []Entry{
		{Expected: 10, Observed: 10},
		{Expected: 11, Observed: 11},
		{Expected: 12, Dropped: true, Count: 1},
		{Expected: 13, Observed: 13},
		{Expected: 14, Observed: 14},
	}, r.Ledger)
}

func TestLargeGap(t *testing.T) {
	r, err := Audit([]uint32{0, 1000}, false)
	require.NoError(t, err)

	assert.Equal(t, 999, r.NumDropped)
	assert.Equal(t, 2, r.NumCaught)
	assert.Equal(t, []Entry{
		{Expected: 0, Observed: 0},
		{Expected: 1, Dropped: true, Count: 999},
		{Expected: 1000, Observed: 1000},
	}, r.Ledger)
	assert.Len(t, r.DroppedCounters(), 999)

	buf := new(bytes.Buffer)
	require.NoError(t, WriteLedger(buf, 1, 1, r))
	assert.Equal(t, 1+1+1001+1, strings.Count(buf.String(), "\n"))
}

func TestFarJumpIsOneEntry(t *testing.T) {
	r, err := Audit([]uint32{0, 0xFFFFFFF0, 0xFFFFFFF1}, false)
	require.NoError(t, err)

	assert.Equal(t, 0xFFFFFFEF, r.NumDropped)
	assert.Equal(t, 3, r.NumCaught)
	assert.Equal(t, uint64(0xFFFFFFF2), r.Total())
	assert.Equal(t, []Entry{
		{Expected: 0, Observed: 0},
		{Expected: 1, Dropped: true, Count: 0xFFFFFFEF},
		{Expected: 0xFFFFFFF0, Observed: 0xFFFFFFF0},
		{Expected: 0xFFFFFFF1, Observed: 0xFFFFFFF1},
	}, r.Ledger)
}

func TestSingleFrame(t *testing.T) {
	r, err := Audit([]uint32{42}, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r.Total())
	assert.Equal(t, 1.0, r.CatchRate())
}

func TestAddReturnsDropCount(t *testing.T) {
	a := NewAuditor()
	for _, c := range []struct {
		fc      uint32
		dropped int
	}{{5, 0}, {6, 0}, {9, 2}, {10, 0}} {
		dropped, err := a.Add(c.fc)
		require.NoError(t, err)
		assert.Equal(t, c.dropped, dropped, "counter %d", c.fc)
	}
	assert.Equal(t, 2, a.Report().NumDropped)
}

func TestExcludeTailMatchesShorterTrace(t *testing.T) {
	withTail, err := Audit([]uint32{100, 101, 102}, true)
	require.NoError(t, err)
	without, err := Audit([]uint32{100, 101}, false)
	require.NoError(t, err)

	assert.Equal(t, without, withTail)
	assert.Equal(t, 2, withTail.NumCaught)
	assert.Equal(t, uint64(2), withTail.Total())
}

func TestExcludeTailIgnoresTornGap(t *testing.T) {
	r, err := Audit([]uint32{1, 2, 3, 50}, true)
	require.NoError(t, err)
	assert.Equal(t, 0, r.NumDropped)
	assert.Equal(t, uint32(3), r.MaxObserved)
}

func TestExcludeTailSingleFrame(t *testing.T) {
	r, err := Audit([]uint32{9}, true)
	require.NoError(t, err)

	assert.Equal(t, uint32(9), r.Offset)
	assert.Equal(t, 0, r.NumCaught)
	assert.Empty(t, r.Ledger)
}

func TestSentinelRejected(t *testing.T) {
	_, err := Audit([]uint32{0xFFFFFFFF, 0, 1}, false)
	assert.Equal(t, ErrSentinelCounter, err)

	_, err = Audit([]uint32{0xFFFFFFFF}, true)
	assert.Equal(t, ErrSentinelCounter, err)
}

func TestSentinelOnlyCheckedFirst(t *testing.T) {
	r, err := Audit([]uint32{0xFFFFFFFD, 0xFFFFFFFE, 0xFFFFFFFF}, false)
	require.NoError(t, err)
	assert.Equal(t, 3, r.NumCaught)
	assert.Equal(t, uint64(3), r.Total())
}

func TestEmptyTrace(t *testing.T) {
	_, err := Audit(nil, false)
	assert.Equal(t, ErrEmptyTrace, err)
}

func TestOutOfOrder(t *testing.T) {
	r, err := Audit([]uint32{5, 6, 7, 6, 8}, false)
	require.NoError(t, err)

	assert.Equal(t, []OutOfOrder{{Index: 3, Expected: 8, Observed: 6}}, r.OutOfOrder)
	assert.Equal(t, 4, r.NumCaught)
	assert.Equal(t, 0, r.NumDropped)
	assert.Len(t, r.Ledger, 4)
	assert.Equal(t, "frame 3: counter 6 is behind expected 8", r.OutOfOrder[0].String())
}

func TestCounterWrapIsOutOfOrder(t *testing.T) {
	r, err := Audit([]uint32{0xFFFFFFFE, 0, 1}, false)
	require.NoError(t, err)
	assert.Len(t, r.OutOfOrder, 2)
	assert.Equal(t, 1, r.NumCaught)
}

func TestWriteLedger(t *testing.T) {
	r, err := Audit([]uint32{10, 11, 13, 14}, false)
	require.NoError(t, err)

	buf := new(bytes.Buffer)
	require.NoError(t, WriteLedger(buf, 1920, 1080, r))
	assert.Equal(t, strings.Join([]string{
		"1920x1080",
		"offset_frame_count: 10",
		"10 : 10",
		"11 : 11",
		"12 : x",
		"13 : 13",
		"14 : 14",
		"0.8",
		"",
	}, "\n"), buf.String())
}

func TestWriteLedgerWholeRate(t *testing.T) {
	r, err := Audit([]uint32{1, 2}, false)
	require.NoError(t, err)

	buf := new(bytes.Buffer)
	require.NoError(t, WriteLedger(buf, 4, 2, r))
	assert.True(t, strings.HasSuffix(buf.String(), "\n1.0\n"))
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "1.0", formatRate(1))
	assert.Equal(t, "0.0", formatRate(0))
	assert.Equal(t, "0.5", formatRate(0.5))
	assert.Equal(t, "0.6666666666666666", formatRate(2.0/3.0))
}

func TestParseLedger(t *testing.T) {
	r, err := Audit([]uint32{10, 11, 13, 14, 17}, false)
	require.NoError(t, err)
	buf := new(bytes.Buffer)
	require.NoError(t, WriteLedger(buf, 640, 480, r))

	l, err := ParseLedger(buf)
	require.NoError(t, err)
	assert.Equal(t, 640, l.Width)
	assert.Equal(t, 480, l.Height)
	assert.Equal(t, uint64(10), l.Offset)
	assert.Equal(t, r.Ledger, l.Entries)
	assert.Equal(t, 5, l.Caught())
	assert.Equal(t, 8, l.Total())
	assert.Equal(t, []int{2, 5, 6}, l.Skipped())
	assert.InDelta(t, r.CatchRate(), l.CatchRate, 1e-12)
}

func TestParseLedgerWithoutRate(t *testing.T) {
	in := "2x2\noffset_frame_count: 0\n0 : 0\n1 : x\n2 : 2\n3 : 3\n"

	l, err := ParseLedger(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 3, l.Caught())
	assert.Equal(t, 4, l.Total())
	assert.Equal(t, 0.75, l.CatchRate)
}

func TestParseLedgerLeadingBlankLines(t *testing.T) {
	in := "\n\n2x2\noffset_frame_count: 4\n4 : 4\n5 : x\n6 : x\n7 : 7\n0.5\n"

	l, err := ParseLedger(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 2, l.Width)
	assert.Equal(t, 2, l.Height)
	assert.Equal(t, []Entry{
		{Expected: 4, Observed: 4},
		{Expected: 5, Dropped: true, Count: 2},
		{Expected: 7, Observed: 7},
	}, l.Entries)
	assert.Equal(t, 4, l.Total())
	assert.Equal(t, []int{1, 2}, l.Skipped())
	assert.Equal(t, 0.5, l.CatchRate)
}

func TestParseLedgerErrors(t *testing.T) {
	for name, in := range map[string]string{
		"empty":          "",
		"blank":          "\n\n",
		"bad resolution": "1920by1080\n",
		"bad offset":     "2x2\noffset_frame_count: a\n",
		"bad entry":      "2x2\noffset_frame_count: 0\n0 : y\n",
		"bad rate":       "2x2\noffset_frame_count: 0\n0 : 0\nfoo\n",
		"after rate":     "2x2\noffset_frame_count: 0\n0 : 0\n1.0\n1 : 1\n",
	} {
		_, err := ParseLedger(strings.NewReader(in))
		assert.Error(t, err, name)
	}
}

func TestSummarise(t *testing.T) {
	s := Summarise([]float64{0.8, 1.0, 0.9})
	assert.Equal(t, 3, s.Runs)
	assert.InDelta(t, 0.9, s.Mean, 1e-12)
	assert.InDelta(t, 0.1, s.StdDev, 1e-12)
	assert.Equal(t, 0.8, s.Min)
	assert.Equal(t, 1.0, s.Max)
	assert.Equal(t, "runs=3 mean=90.00% stddev=10.00% min=80.00% max=100.00%", s.String())
}

func TestSummariseSmall(t *testing.T) {
	assert.Equal(t, Summary{}, Summarise(nil))
	assert.Equal(t, Summary{Runs: 1, Mean: 0.5, Min: 0.5, Max: 0.5}, Summarise([]float64{0.5}))
}
