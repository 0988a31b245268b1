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

// Package pixelformat maps PFNC pixel format identifiers to the
// number of bytes a captured frame occupies.
package pixelformat

import (
	"fmt"
)

// ID is a PFNC pixel format identifier as reported by a camera.
type ID uint32

const (
	Mono8     ID = 0x01080001
	Mono10    ID = 0x01100003
	Mono12    ID = 0x01100005
	RGB8      ID = 0x02180014
	BGR8      ID = 0x02180015
	BayerBG8  ID = 0x0108000B
	BayerBG10 ID = 0x0110000F
	BayerBG12 ID = 0x01100013
)

// OccupiedBits returns the number of bits a single pixel occupies,
// as encoded in bits 16-23 of a PFNC identifier.
func (id ID) OccupiedBits() int {
	return int(id>>16) & 0xff
}

func (id ID) String() string {
	return fmt.Sprintf("0x%08X", uint32(id))
}

// Format describes how a pixel format is laid out in a fixed size
// frame record.
type Format struct {
	Name          string
	ID            ID
	BytesPerPixel int
	Channels      int
}

// Table is an immutable lookup of supported pixel formats. Build one
// at start up and hand it to whatever needs to size frames.
type Table struct {
	byID   map[ID]Format
	byName map[string]Format
}

// NewTable returns a Table holding the formats given.
func NewTable(formats ...Format) (*Table, error) {
	t := &Table{
		byID:   make(map[ID]Format, len(formats)),
		byName: make(map[string]Format, len(formats)),
	}
	for _, f := range formats {
		if f.BytesPerPixel < 1 || f.Channels < 1 {
			return nil, fmt.Errorf("pixel format %s has invalid depth", f.Name)
		}
		if _, ok := t.byID[f.ID]; ok {
			return nil, fmt.Errorf("duplicate pixel format id %s", f.ID)
		}
		if _, ok := t.byName[f.Name]; ok {
			return nil, fmt.Errorf("duplicate pixel format name %q", f.Name)
		}
		t.byID[f.ID] = f
		t.byName[f.Name] = f
	}
	return t, nil
}

// DefaultTable returns the formats supported by the capture tooling.
func DefaultTable() *Table {
	t, err := NewTable(
		Format{Name: "Mono8", ID: Mono8, BytesPerPixel: 1, Channels: 1},
		Format{Name: "Mono10", ID: Mono10, BytesPerPixel: 2, Channels: 1},
		Format{Name: "Mono12", ID: Mono12, BytesPerPixel: 2, Channels: 1},
		Format{Name: "RGB8", ID: RGB8, BytesPerPixel: 1, Channels: 3},
		Format{Name: "BGR8", ID: BGR8, BytesPerPixel: 1, Channels: 3},
		Format{Name: "BayerBG8", ID: BayerBG8, BytesPerPixel: 1, Channels: 1},
		// Unpacked Bayer 10/12 take 2 bytes per pixel as their ids say,
		// not the 1 byte older capture scripts assumed.
		Format{Name: "BayerBG10", ID: BayerBG10, BytesPerPixel: 2, Channels: 1},
		Format{Name: "BayerBG12", ID: BayerBG12, BytesPerPixel: 2, Channels: 1},
	)
	if err != nil {
		panic(err)
	}
	return t
}

// ByID looks up a format by its PFNC identifier.
func (t *Table) ByID(id ID) (Format, bool) {
	f, ok := t.byID[id]
	return f, ok
}

// ByName looks up a format by its symbolic name, e.g. "Mono8".
func (t *Table) ByName(name string) (Format, bool) {
	f, ok := t.byName[name]
	return f, ok
}

// FrameSize returns the number of payload bytes in a single frame of
// the given dimensions.
func (t *Table) FrameSize(id ID, width, height int) (int, error) {
	f, ok := t.ByID(id)
	if !ok {
		return 0, fmt.Errorf("unsupported pixel format %s", id)
	}
	if width < 1 || height < 1 {
		return 0, fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}
	return width * height * f.BytesPerPixel * f.Channels, nil
}

// Formats returns every format in the table.
func (t *Table) Formats() []Format {
	out := make([]Format, 0, len(t.byID))
	for _, f := range t.byID {
		out = append(out, f)
	}
	return out
}
