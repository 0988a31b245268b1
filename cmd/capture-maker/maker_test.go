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

package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/frame-check/audit"
	"github.com/TheCacophonyProject/frame-check/output"
	"github.com/TheCacophonyProject/frame-check/pixelformat"
	"github.com/TheCacophonyProject/frame-check/record"
	"github.com/TheCacophonyProject/frame-check/sidecar"
)

func tempDir(t *testing.T) (string, func()) {
	dir, err := ioutil.TempDir("", "capture-maker")
	require.NoError(t, err)
	return dir, func() { os.RemoveAll(dir) }
}

func mustSensor(t *testing.T, s string) sensor {
	sen, err := parseSensor(s, pixelformat.DefaultTable())
	require.NoError(t, err)
	return sen
}

type memWriter struct {
	frames []*output.Frame
}

func (w *memWriter) WriteFrame(f *output.Frame) error {
	w.frames = append(w.frames, f)
	return nil
}

func TestParseSensor(t *testing.T) {
	s := mustSensor(t, "4x2:RGB8")
	assert.Equal(t, 4, s.width)
	assert.Equal(t, 2, s.height)
	assert.Equal(t, pixelformat.RGB8, s.format.ID)
	assert.Equal(t, 24, s.frameSize())
}

func TestParseSensorErrors(t *testing.T) {
	table := pixelformat.DefaultTable()
	for _, s := range []string{"4x2", "4:Mono8", "ax2:Mono8", "4xb:Mono8", "4x2:Nope"} {
		_, err := parseSensor(s, table)
		assert.Error(t, err, s)
	}
}

func TestCaptureMakerRoundRobin(t *testing.T) {
	w := new(memWriter)
	m := NewCaptureMaker([]sensor{mustSensor(t, "4x2:Mono8"), mustSensor(t, "2x2:RGB8")}, w, 10)
	require.NoError(t, m.Drop(11).AddFrames(3))

	require.Len(t, w.frames, 6)
	var counters []uint32
	var sources []uint16
	for _, f := range w.frames {
		counters = append(counters, f.Counter)
		sources = append(sources, f.SourceID)
	}
	assert.Equal(t, []uint32{10, 10, 12, 12, 13, 13}, counters)
	assert.Equal(t, []uint16{0, 1, 0, 1, 0, 1}, sources)
	assert.Len(t, w.frames[0].Data, 8)
	assert.Len(t, w.frames[1].Data, 12)
	assert.Equal(t, uint64(0), w.frames[0].Timestamp)
	assert.Equal(t, uint64(frameIntervalNs), w.frames[2].Timestamp)
}

func TestCaptureMakerSentinel(t *testing.T) {
	w := new(memWriter)
	m := NewCaptureMaker([]sensor{mustSensor(t, "2x2:Mono8")}, w, 0).Sentinel()
	require.NoError(t, m.AddFrames(2))
	for _, f := range w.frames {
		assert.Equal(t, noFrameCount, f.Counter)
	}
}

func TestMakeRunCapture(t *testing.T) {
	for _, format := range []record.Format{record.FormatGenDC, record.FormatFixed} {
		dir, cleanup := tempDir(t)
		defer cleanup()

		require.NoError(t, makeCapture(captureOptions{
			dir:           dir,
			sensors:       []sensor{mustSensor(t, "4x2:Mono8"), mustSensor(t, "2x2:RGB8")},
			format:        format,
			frames:        6,
			framesPerFile: 4,
			drops:         []uint32{3},
		}))

		table := pixelformat.DefaultTable()
		run, err := sidecar.LoadRun(filepath.Join(dir, "config.json"), table)
		require.NoError(t, err)
		assert.Equal(t, []int{8, 12}, run.FrameSizes())

		var traces [][]uint32
		for _, name := range []string{"raw-0.bin", "raw-1.bin"} {
			buf, err := record.Load(filepath.Join(dir, name), nil)
			require.NoError(t, err)
			traces, err = record.Demux(traces, buf, run.FrameSizes())
			require.NoError(t, err, format.String())
		}
		_, err = os.Stat(filepath.Join(dir, "raw-2.bin"))
		assert.True(t, os.IsNotExist(err))

		want := []uint32{0, 1, 2, 4, 5, 6}
		assert.Equal(t, [][]uint32{want, want}, traces, format.String())

		r, err := audit.Audit(traces[0], false)
		require.NoError(t, err)
		assert.Equal(t, []uint64{3}, r.DroppedCounters())
	}
}

func TestMakePrefixCapture(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()

	require.NoError(t, makeCapture(captureOptions{
		dir:     dir,
		prefix:  "cam0-",
		sensors: []sensor{mustSensor(t, "4x2:Mono8")},
		format:  record.FormatFixed,
		frames:  3,
		start:   7,
	}))

	c, err := sidecar.LoadChannel(filepath.Join(dir, "cam0-config.json"), pixelformat.DefaultTable())
	require.NoError(t, err)
	assert.Equal(t, 4, c.Width)
	assert.Equal(t, 2, c.Height)
	assert.Equal(t, pixelformat.Mono8, c.PixelFormat.ID)

	buf, err := record.Load(filepath.Join(dir, "cam0-0.bin"), nil)
	require.NoError(t, err)
	trace, err := record.Scan(nil, buf, c.FrameSize())
	require.NoError(t, err)
	assert.Equal(t, []uint32{7, 8, 9}, trace)
}

func TestMakePrefixCaptureNeedsOneSensor(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()

	err := makeCapture(captureOptions{
		dir:     dir,
		prefix:  "cam-",
		sensors: []sensor{mustSensor(t, "4x2:Mono8"), mustSensor(t, "4x2:Mono8")},
	})
	assert.EqualError(t, err, "a prefixed capture holds a single camera")
}
