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
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/TheCacophonyProject/frame-check/output"
	"github.com/TheCacophonyProject/frame-check/pixelformat"
)

// A camera without frame counter support reports this value.
const noFrameCount uint32 = 0xFFFFFFFF

// Nominal frame interval used for container timestamps.
const frameIntervalNs = 1000000000 / 30

type sensor struct {
	width  int
	height int
	format pixelformat.Format
}

func (s sensor) frameSize() int {
	return s.width * s.height * s.format.BytesPerPixel * s.format.Channels
}

// parseSensor parses a camera description of the form
// <width>x<height>:<pixel format>, e.g. 1920x1080:Mono8.
func parseSensor(s string, table *pixelformat.Table) (sensor, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return sensor{}, fmt.Errorf("invalid sensor %q, expected WIDTHxHEIGHT:FORMAT", s)
	}
	dims := strings.SplitN(parts[0], "x", 2)
	if len(dims) != 2 {
		return sensor{}, fmt.Errorf("invalid sensor size %q", parts[0])
	}
	width, err := strconv.Atoi(dims[0])
	if err != nil {
		return sensor{}, fmt.Errorf("invalid sensor width %q", dims[0])
	}
	height, err := strconv.Atoi(dims[1])
	if err != nil {
		return sensor{}, fmt.Errorf("invalid sensor height %q", dims[1])
	}
	f, ok := table.ByName(parts[1])
	if !ok {
		return sensor{}, fmt.Errorf("unsupported pixel format %q", parts[1])
	}
	if _, err := table.FrameSize(f.ID, width, height); err != nil {
		return sensor{}, err
	}
	return sensor{width: width, height: height, format: f}, nil
}

type frameWriter interface {
	WriteFrame(*output.Frame) error
}

// CaptureMaker generates frames for one or more cameras, written round
// robin one frame per camera per tick.
type CaptureMaker struct {
	sensors  []sensor
	w        frameWriter
	next     []uint32
	drops    map[uint32]bool
	sentinel bool
	ticks    int
}

func NewCaptureMaker(sensors []sensor, w frameWriter, start uint32) *CaptureMaker {
	next := make([]uint32, len(sensors))
	for i := range next {
		next[i] = start
	}
	return &CaptureMaker{
		sensors: sensors,
		w:       w,
		next:    next,
		drops:   make(map[uint32]bool),
	}
}

// Drop makes every camera skip the given frame counters, as if the
// frames were lost before being written.
func (m *CaptureMaker) Drop(counters ...uint32) *CaptureMaker {
	for _, c := range counters {
		m.drops[c] = true
	}
	return m
}

// Sentinel makes every frame report no frame counter.
func (m *CaptureMaker) Sentinel() *CaptureMaker {
	m.sentinel = true
	return m
}

// AddFrames writes the given number of ticks.
func (m *CaptureMaker) AddFrames(ticks int) error {
	for i := 0; i < ticks; i++ {
		for ch, s := range m.sensors {
			if err := m.w.WriteFrame(m.makeFrame(ch, s)); err != nil {
				return err
			}
		}
		m.ticks++
	}
	return nil
}

func (m *CaptureMaker) makeFrame(ch int, s sensor) *output.Frame {
	for m.drops[m.next[ch]] {
		m.next[ch]++
	}
	counter := m.next[ch]
	m.next[ch]++
	if m.sentinel {
		counter = noFrameCount
	}

	data := make([]byte, s.frameSize())
	if len(data) > 0 {
		data[0] = byte(counter)
	}
	return &output.Frame{
		Counter:     counter,
		SourceID:    uint16(ch),
		Width:       s.width,
		Height:      s.height,
		PixelFormat: uint32(s.format.ID),
		Timestamp:   uint64(m.ticks) * frameIntervalNs,
		Data:        data,
	}
}

type sensorConfig struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	PixelFormat uint32 `json:"pfnc_pixelformat"`
}

func newSensorConfig(s sensor) sensorConfig {
	return sensorConfig{
		Width:       s.width,
		Height:      s.height,
		PixelFormat: uint32(s.format.ID),
	}
}

// writeRunConfig writes the sidecar describing an interleaved capture.
func writeRunConfig(path string, sensors []sensor) error {
	conf := map[string]interface{}{
		"num_device": len(sensors),
	}
	for i, s := range sensors {
		conf[fmt.Sprintf("sensor%d", i+1)] = newSensorConfig(s)
	}
	return writeJSON(path, conf)
}

// writeSensorConfig writes the sidecar describing a single camera.
func writeSensorConfig(path string, s sensor) error {
	return writeJSON(path, newSensorConfig(s))
}

func writeJSON(path string, v interface{}) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, append(buf, '\n'), 0644)
}

func configPath(dir, prefix string) string {
	return filepath.Join(dir, prefix+"config.json")
}
