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

package gendc

import (
	"bytes"
	"encoding/binary"
)

// Part header types.
const (
	PartTypeMetadata uint16 = 0x4000
	PartType1D       uint16 = 0x4100
	PartType2D       uint16 = 0x4200
)

// PartSpec describes a part to be written by a Builder.
type PartSpec struct {
	HeaderType   uint16 // PartType2D if zero
	Format       uint32
	Width        uint32
	Height       uint32
	TypeSpecific []uint64
	Data         []byte
}

// ComponentSpec describes a component to be written by a Builder.
type ComponentSpec struct {
	TypeID    uint64
	SourceID  uint16
	Format    uint32
	Timestamp uint64
	Parts     []PartSpec
}

// NewBuilder returns a Builder for a container with the given id.
func NewBuilder(id uint64) *Builder {
	return &Builder{id: id}
}

// Builder handles the low-level construction of a GenDC container:
// the container header, component table, part headers and the data
// section which follows the descriptor.
type Builder struct {
	id         uint64
	components []ComponentSpec
}

func (b *Builder) AddComponent(c ComponentSpec) *Builder {
	b.components = append(b.components, c)
	return b
}

// Bytes encodes the container. Part data offsets are relative to the
// start of the container.
func (b *Builder) Bytes() []byte {
	headerSize := containerHeaderSize + offsetSize*len(b.components)

	// Lay out the descriptor first so every offset is known up front.
	compOffsets := make([]uint64, len(b.components))
	partOffsets := make([][]uint64, len(b.components))
	pos := headerSize
	var dataSize uint64
	for i, c := range b.components {
		compOffsets[i] = uint64(pos)
		pos += componentHeaderSize + offsetSize*len(c.Parts)
		partOffsets[i] = make([]uint64, len(c.Parts))
		for j, p := range c.Parts {
			partOffsets[i][j] = uint64(pos)
			pos += partHeaderSize + offsetSize*len(p.TypeSpecific)
			dataSize += uint64(len(p.Data))
		}
	}
	descriptorSize := pos

	out := new(bytes.Buffer)
	out.Grow(descriptorSize + int(dataSize))

	binary.Write(out, binary.LittleEndian, containerHeader{
		Signature:      signature,
		VersionMajor:   versionMajor,
		HeaderType:     containerHeaderType,
		HeaderSize:     uint32(headerSize),
		ID:             b.id,
		DataSize:       dataSize,
		DataOffset:     uint64(descriptorSize),
		DescriptorSize: uint32(descriptorSize),
		ComponentCount: uint32(len(b.components)),
	})
	binary.Write(out, binary.LittleEndian, compOffsets)

	dataOffset := uint64(descriptorSize)
	for i, c := range b.components {
		binary.Write(out, binary.LittleEndian, componentHeader{
			HeaderType: componentHeaderType,
			HeaderSize: uint32(componentHeaderSize + offsetSize*len(c.Parts)),
			SourceID:   c.SourceID,
			Timestamp:  c.Timestamp,
			TypeID:     c.TypeID,
			Format:     c.Format,
			PartCount:  uint16(len(c.Parts)),
		})
		binary.Write(out, binary.LittleEndian, partOffsets[i])

		for _, p := range c.Parts {
			headerType := p.HeaderType
			if headerType == 0 {
				headerType = PartType2D
			}
			binary.Write(out, binary.LittleEndian, partHeader{
				HeaderType: headerType,
				HeaderSize: uint32(partHeaderSize + offsetSize*len(p.TypeSpecific)),
				Format:     p.Format,
				DataSize:   uint64(len(p.Data)),
				DataOffset: dataOffset,
				Dimension:  [2]uint32{p.Width, p.Height},
			})
			binary.Write(out, binary.LittleEndian, p.TypeSpecific)
			dataOffset += uint64(len(p.Data))
		}
	}

	for _, c := range b.components {
		for _, p := range c.Parts {
			out.Write(p.Data)
		}
	}
	return out.Bytes()
}

// FrameCounterWord returns a type specific word carrying the given
// frame counter in the position Decode reads it from. The upper half
// of the word is left for camera specific use.
func FrameCounterWord(counter uint32, upper uint32) uint64 {
	return uint64(upper)<<32 | uint64(counter)
}

// IntensityFrame returns the type specific words of an intensity part
// carrying counter.
func IntensityFrame(counter uint32) []uint64 {
	ts := make([]uint64, frameCounterField+1)
	ts[frameCounterField] = FrameCounterWord(counter, 0)
	return ts
}
