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

package sidecar

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/frame-check/pixelformat"
)

func TestParseChannel(t *testing.T) {
	c, err := ParseChannel([]byte(`{"width": 1920, "height": 1080, "pfnc_pixelformat": 17301505}`),
		pixelformat.DefaultTable())
	require.NoError(t, err)

	assert.Equal(t, 1920, c.Width)
	assert.Equal(t, 1080, c.Height)
	assert.Equal(t, pixelformat.Mono8, c.PixelFormat.ID)
	assert.Equal(t, 1920*1080, c.FrameSize())
}

func TestParseChannelByName(t *testing.T) {
	c, err := ParseChannel([]byte(`{"width": 4, "height": 2, "pfnc_pixelformat": "RGB8"}`),
		pixelformat.DefaultTable())
	require.NoError(t, err)
	assert.Equal(t, 4*2*3, c.FrameSize())
}

func TestParseChannelHexString(t *testing.T) {
	c, err := ParseChannel([]byte(`{"width": 4, "height": 2, "pfnc_pixelformat": "0x01100005"}`),
		pixelformat.DefaultTable())
	require.NoError(t, err)
	assert.Equal(t, pixelformat.Mono12, c.PixelFormat.ID)
	assert.Equal(t, 4*2*2, c.FrameSize())
}

func TestParseChannelErrors(t *testing.T) {
	table := pixelformat.DefaultTable()
	for in, msg := range map[string]string{
		`{"height": 2, "pfnc_pixelformat": 17301505}`:               `missing "width"`,
		`{"width": 2, "pfnc_pixelformat": 17301505}`:                `missing "height"`,
		`{"width": 2, "height": 2}`:                                 `missing "pfnc_pixelformat"`,
		`{"width": 2, "height": 2, "pfnc_pixelformat": 1}`:          "unsupported pixel format 0x00000001",
		`{"width": 2, "height": 2, "pfnc_pixelformat": "Mono99"}`:   `unsupported pixel format "Mono99"`,
		`{"width": 0, "height": 2, "pfnc_pixelformat": 17301505}`:   "invalid frame dimensions 0x2",
		`{"width": 2, "height": 2, "pfnc_pixelformat": -1}`:         "invalid pixel format -1",
		`{"width": 2, "height": 2, "pfnc_pixelformat": [17301505]}`: "invalid pixel format [17301505]",
	} {
		_, err := ParseChannel([]byte(in), table)
		assert.EqualError(t, err, msg, in)
	}
}

func TestParseChannelUsesGivenTable(t *testing.T) {
	in := []byte(`{"width": 2, "height": 2, "pfnc_pixelformat": "Mono8"}`)
	table, err := pixelformat.NewTable(pixelformat.Format{
		Name: "Mono8", ID: pixelformat.Mono8, BytesPerPixel: 4, Channels: 1,
	})
	require.NoError(t, err)

	c, err := ParseChannel(in, table)
	require.NoError(t, err)
	assert.Equal(t, 16, c.FrameSize())

	empty, err := pixelformat.NewTable()
	require.NoError(t, err)
	_, err = ParseChannel(in, empty)
	assert.Error(t, err)
}

const runConfig = `{
  "num_device": 2,
  "sensor1": {"width": 8, "height": 4, "pfnc_pixelformat": 17301505},
  "sensor2": {"width": 2, "height": 2, "pfnc_pixelformat": 35127316}
}`

func TestParseRun(t *testing.T) {
	r, err := ParseRun([]byte(runConfig), pixelformat.DefaultTable())
	require.NoError(t, err)

	require.Len(t, r.Channels, 2)
	assert.Equal(t, pixelformat.RGB8, r.Channels[1].PixelFormat.ID)
	assert.Equal(t, []int{32, 12}, r.FrameSizes())
}

func TestParseRunErrors(t *testing.T) {
	table := pixelformat.DefaultTable()
	for in, msg := range map[string]string{
		`{"sensor1": {"width": 2, "height": 2, "pfnc_pixelformat": 17301505}}`:                    `missing "num_device"`,
		`{"num_device": 0}`:                                                                         "invalid num_device 0",
		`{"num_device": 2, "sensor1": {"width": 2, "height": 2, "pfnc_pixelformat": 17301505}}`:   `missing "sensor2"`,
		`{"num_device": 1, "sensor1": {"width": 2, "pfnc_pixelformat": 17301505}}`:                `sensor1: missing "height"`,
	} {
		_, err := ParseRun([]byte(in), table)
		assert.EqualError(t, err, msg, in)
	}
}

func TestIsRun(t *testing.T) {
	assert.True(t, IsRun([]byte(runConfig)))
	assert.False(t, IsRun([]byte(`{"width": 2, "height": 2, "pfnc_pixelformat": 17301505}`)))
	assert.False(t, IsRun([]byte(`{{`)))
}

func TestLoad(t *testing.T) {
	dir, err := ioutil.TempDir("", "sidecar")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	runPath := filepath.Join(dir, "config.json")
	require.NoError(t, ioutil.WriteFile(runPath, []byte(runConfig), 0644))
	r, err := LoadRun(runPath, pixelformat.DefaultTable())
	require.NoError(t, err)
	assert.Len(t, r.Channels, 2)

	chanPath := filepath.Join(dir, "cam0-config.json")
	require.NoError(t, ioutil.WriteFile(chanPath, []byte(`{"width": 3}`), 0644))
	_, err = LoadChannel(chanPath, pixelformat.DefaultTable())
	assert.EqualError(t, err, chanPath+`: missing "height"`)

	_, err = LoadChannel(filepath.Join(dir, "nope.json"), pixelformat.DefaultTable())
	assert.True(t, os.IsNotExist(err))
}
