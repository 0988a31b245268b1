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

// Package sidecar reads the JSON files written next to a capture which
// describe the image geometry of each camera.
package sidecar

import (
	"fmt"
	"io/ioutil"
	"strconv"

	"gopkg.in/yaml.v2"

	"github.com/TheCacophonyProject/frame-check/pixelformat"
)

// Keys used in the sidecar files.
const (
	WidthKey       = "width"
	HeightKey      = "height"
	PixelFormatKey = "pfnc_pixelformat"
	NumDeviceKey   = "num_device"
	sensorKeyFmt   = "sensor%d"
)

// Channel describes the frames of one camera.
type Channel struct {
	Width       int
	Height      int
	PixelFormat pixelformat.Format
}

// FrameSize returns the number of payload bytes in each frame.
func (c *Channel) FrameSize() int {
	return c.Width * c.Height * c.PixelFormat.BytesPerPixel * c.PixelFormat.Channels
}

type rawChannel struct {
	Width       *int        `yaml:"width"`
	Height      *int        `yaml:"height"`
	PixelFormat interface{} `yaml:"pfnc_pixelformat"`
}

// ParseChannel parses a single camera sidecar such as
// {"width": 1920, "height": 1080, "pfnc_pixelformat": 17301505}.
// The pixel format may also be given by name ("Mono8").
func ParseChannel(buf []byte, table *pixelformat.Table) (*Channel, error) {
	var raw rawChannel
	if err := yaml.Unmarshal(buf, &raw); err != nil {
		return nil, err
	}
	return raw.resolve(table)
}

// LoadChannel reads and parses a single camera sidecar file.
func LoadChannel(path string, table *pixelformat.Table) (*Channel, error) {
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := ParseChannel(buf, table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (raw *rawChannel) resolve(table *pixelformat.Table) (*Channel, error) {
	if raw.Width == nil {
		return nil, missingKey(WidthKey)
	}
	if raw.Height == nil {
		return nil, missingKey(HeightKey)
	}
	if raw.PixelFormat == nil {
		return nil, missingKey(PixelFormatKey)
	}
	f, err := lookupFormat(raw.PixelFormat, table)
	if err != nil {
		return nil, err
	}
	// Also validates the dimensions.
	if _, err := table.FrameSize(f.ID, *raw.Width, *raw.Height); err != nil {
		return nil, err
	}
	return &Channel{
		Width:       *raw.Width,
		Height:      *raw.Height,
		PixelFormat: f,
	}, nil
}

func lookupFormat(v interface{}, table *pixelformat.Table) (pixelformat.Format, error) {
	var id uint64
	switch x := v.(type) {
	case int:
		if x < 0 {
			return pixelformat.Format{}, fmt.Errorf("invalid pixel format %d", x)
		}
		id = uint64(x)
	case uint64:
		id = x
	case string:
		if f, ok := table.ByName(x); ok {
			return f, nil
		}
		n, err := strconv.ParseUint(x, 0, 32)
		if err != nil {
			return pixelformat.Format{}, fmt.Errorf("unsupported pixel format %q", x)
		}
		id = n
	default:
		return pixelformat.Format{}, fmt.Errorf("invalid pixel format %v", v)
	}
	if id > 0xFFFFFFFF {
		return pixelformat.Format{}, fmt.Errorf("invalid pixel format %d", id)
	}
	f, ok := table.ByID(pixelformat.ID(id))
	if !ok {
		return pixelformat.Format{}, fmt.Errorf("unsupported pixel format %s", pixelformat.ID(id))
	}
	return f, nil
}

func missingKey(key string) error {
	return fmt.Errorf("missing %q", key)
}

// Run describes a multi-camera capture whose frames are interleaved in
// the same raw files, one frame per camera in turn.
type Run struct {
	Channels []*Channel
}

// ParseRun parses a multi-camera sidecar of the form
// {"num_device": 2, "sensor1": {...}, "sensor2": {...}}.
func ParseRun(buf []byte, table *pixelformat.Table) (*Run, error) {
	raw := make(map[string]interface{})
	if err := yaml.Unmarshal(buf, &raw); err != nil {
		return nil, err
	}

	n, ok := raw[NumDeviceKey].(int)
	if !ok {
		return nil, missingKey(NumDeviceKey)
	}
	if n < 1 {
		return nil, fmt.Errorf("invalid %s %d", NumDeviceKey, n)
	}

	run := &Run{Channels: make([]*Channel, n)}
	for i := range run.Channels {
		key := fmt.Sprintf(sensorKeyFmt, i+1)
		v, ok := raw[key]
		if !ok {
			return nil, missingKey(key)
		}
		// Round trip the sensor block so it gets the same handling as a
		// single camera sidecar.
		sub, err := yaml.Marshal(v)
		if err != nil {
			return nil, err
		}
		c, err := ParseChannel(sub, table)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		run.Channels[i] = c
	}
	return run, nil
}

// IsRun reports whether buf holds a multi-camera sidecar rather than a
// single camera one.
func IsRun(buf []byte) bool {
	var raw struct {
		NumDevice *int `yaml:"num_device"`
	}
	if err := yaml.Unmarshal(buf, &raw); err != nil {
		return false
	}
	return raw.NumDevice != nil
}

// LoadRun reads and parses a multi-camera sidecar file.
func LoadRun(path string, table *pixelformat.Table) (*Run, error) {
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := ParseRun(buf, table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// FrameSizes returns the payload size of each camera, in interleave
// order.
func (r *Run) FrameSizes() []int {
	out := make([]int, len(r.Channels))
	for i, c := range r.Channels {
		out[i] = c.FrameSize()
	}
	return out
}
