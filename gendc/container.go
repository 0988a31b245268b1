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

// Package gendc reads the descriptor of GenDC containers as saved by
// GenDC streaming cameras, far enough to recover the frame counter.
package gendc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Component type identifiers.
const (
	TypeIntensity   uint64 = 0x0000000000000001
	TypeInfrared    uint64 = 0x0000000000000002
	TypeUltraviolet uint64 = 0x0000000000000003
	TypeRange       uint64 = 0x0000000000000004
	TypeDisparity   uint64 = 0x0000000000000005
	TypeConfidence  uint64 = 0x0000000000000006
	TypeScatter     uint64 = 0x0000000000000007
	TypeMetadata    uint64 = 0x0000000000008001
)

const (
	signature    uint32 = 0x43444E47 // "GNDC"
	versionMajor uint8  = 1

	containerHeaderType uint16 = 0x1000
	componentHeaderType uint16 = 0x2000
	partHeaderTypeMask  uint16 = 0xF000
	partHeaderTypeBase  uint16 = 0x4000

	containerHeaderSize = 56
	componentHeaderSize = 48
	partHeaderSize      = 56
	offsetSize          = 8

	// The frame counter lives in the low 32 bits of this
	// type specific word of the first intensity part.
	frameCounterField = 2
)

// ErrNotAContainer is returned when a buffer does not hold a usable
// GenDC container. Callers are expected to try another record format
// at the same position.
var ErrNotAContainer = errors.New("not a GenDC container")

// TruncatedError is returned when a buffer holds the start of a
// GenDC container but not all of the bytes it declares.
type TruncatedError struct {
	Offset    int
	Declared  uint64
	Available int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("truncated GenDC container at offset %d: declares %d bytes, %d available",
		e.Offset, e.Declared, e.Available)
}

func notAContainer(format string, v ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrNotAContainer}, v...)...)
}

type containerHeader struct {
	Signature       uint32
	VersionMajor    uint8
	VersionMinor    uint8
	VersionSubMinor uint8
	_               uint8
	HeaderType      uint16
	Flags           uint16
	HeaderSize      uint32
	ID              uint64
	VariableFields  uint64
	DataSize        uint64
	DataOffset      uint64
	DescriptorSize  uint32
	ComponentCount  uint32
}

type componentHeader struct {
	HeaderType    uint16
	Flags         uint16
	HeaderSize    uint32
	_             uint16
	GroupID       uint16
	SourceID      uint16
	RegionID      uint16
	RegionOffsetX uint32
	RegionOffsetY uint32
	Timestamp     uint64
	TypeID        uint64
	Format        uint32
	_             uint16
	PartCount     uint16
}

type partHeader struct {
	HeaderType   uint16
	Flags        uint16
	HeaderSize   uint32
	Format       uint32
	_            uint16
	FlowID       uint16
	FlowOffset   uint64
	DataSize     uint64
	DataOffset   uint64
	Dimension    [2]uint32
	Padding      [2]uint16
	InfoReserved uint32
}

// Descriptor is a read only view over the descriptor of a single
// container. It refers to the caller's buffer rather than copying it.
type Descriptor struct {
	buf    []byte
	header containerHeader
}

// Parse validates the container header at the start of buf.
// Components and parts are validated as they are accessed.
func Parse(buf []byte) (*Descriptor, error) {
	if len(buf) < 4 || binary.LittleEndian.Uint32(buf) != signature {
		return nil, notAContainer("signature not found")
	}
	if len(buf) < containerHeaderSize {
		return nil, &TruncatedError{Declared: containerHeaderSize, Available: len(buf)}
	}

	var h containerHeader
	if err := binary.Read(bytes.NewReader(buf[:containerHeaderSize]), binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	if h.VersionMajor != versionMajor {
		return nil, notAContainer("unsupported version %d.%d.%d", h.VersionMajor, h.VersionMinor, h.VersionSubMinor)
	}
	if h.HeaderType != containerHeaderType {
		return nil, notAContainer("unexpected header type 0x%04x", h.HeaderType)
	}
	if uint64(h.HeaderSize) < containerHeaderSize+offsetSize*uint64(h.ComponentCount) {
		return nil, notAContainer("header size %d too small for %d components", h.HeaderSize, h.ComponentCount)
	}
	if h.DescriptorSize < h.HeaderSize {
		return nil, notAContainer("descriptor size %d smaller than header size %d", h.DescriptorSize, h.HeaderSize)
	}
	if h.DataSize > ^uint64(0)-uint64(h.DescriptorSize) {
		return nil, notAContainer("data size %d out of range", h.DataSize)
	}

	d := &Descriptor{header: h}
	size := d.ContainerSize()
	if size > uint64(len(buf)) {
		return nil, &TruncatedError{Declared: size, Available: len(buf)}
	}
	d.buf = buf[:size]
	return d, nil
}

// ContainerSize returns the number of bytes occupied by the whole
// container, descriptor and data.
func (d *Descriptor) ContainerSize() uint64 {
	return uint64(d.header.DescriptorSize) + d.header.DataSize
}

// DescriptorSize returns the number of bytes in the descriptor.
func (d *Descriptor) DescriptorSize() int {
	return int(d.header.DescriptorSize)
}

// ID returns the container identifier.
func (d *Descriptor) ID() uint64 {
	return d.header.ID
}

// Version returns the GenDC version of the container.
func (d *Descriptor) Version() string {
	return fmt.Sprintf("%d.%d.%d", d.header.VersionMajor, d.header.VersionMinor, d.header.VersionSubMinor)
}

func (d *Descriptor) ComponentCount() int {
	return int(d.header.ComponentCount)
}

// Component returns the i'th entry of the component table.
func (d *Descriptor) Component(i int) (*Component, error) {
	if i < 0 || i >= d.ComponentCount() {
		return nil, fmt.Errorf("component index %d out of range", i)
	}
	off, err := d.offsetAt(containerHeaderSize+offsetSize*uint64(i), uint64(d.header.HeaderSize), componentHeaderSize)
	if err != nil {
		return nil, notAContainer("component %d: %v", i, err)
	}

	var h componentHeader
	if err := d.read(off, componentHeaderSize, &h); err != nil {
		return nil, err
	}
	if h.HeaderType != componentHeaderType {
		return nil, notAContainer("component %d: unexpected header type 0x%04x", i, h.HeaderType)
	}
	if uint64(h.HeaderSize) < componentHeaderSize+offsetSize*uint64(h.PartCount) ||
		off+uint64(h.HeaderSize) > uint64(d.header.DescriptorSize) {
		return nil, notAContainer("component %d: bad header size %d", i, h.HeaderSize)
	}
	return &Component{d: d, offset: off, header: h}, nil
}

// FirstComponentByTypeID returns the first component, in table order,
// with the given type. Later matches are ignored.
func (d *Descriptor) FirstComponentByTypeID(typeID uint64) (*Component, error) {
	for i := 0; i < d.ComponentCount(); i++ {
		c, err := d.Component(i)
		if err != nil {
			return nil, err
		}
		if c.TypeID() == typeID {
			return c, nil
		}
	}
	return nil, notAContainer("no component of type 0x%016x", typeID)
}

// offsetAt reads the table entry at pos and checks that a header of
// headerSize bytes at that offset lies between min and the end of the
// descriptor.
func (d *Descriptor) offsetAt(pos, min, headerSize uint64) (uint64, error) {
	off := binary.LittleEndian.Uint64(d.buf[pos:])
	end := uint64(d.header.DescriptorSize)
	if off < min || off > end || end-off < headerSize {
		return 0, fmt.Errorf("offset %d out of range", off)
	}
	return off, nil
}

func (d *Descriptor) read(off, size uint64, out interface{}) error {
	return binary.Read(bytes.NewReader(d.buf[off:off+size]), binary.LittleEndian, out)
}

// Component is a single entry of a container's component table.
type Component struct {
	d      *Descriptor
	offset uint64
	header componentHeader
}

func (c *Component) TypeID() uint64 {
	return c.header.TypeID
}

func (c *Component) SourceID() int {
	return int(c.header.SourceID)
}

func (c *Component) Timestamp() uint64 {
	return c.header.Timestamp
}

func (c *Component) PartCount() int {
	return int(c.header.PartCount)
}

// Part returns the i'th part of the component.
func (c *Component) Part(i int) (*Part, error) {
	if i < 0 || i >= c.PartCount() {
		return nil, notAContainer("part index %d out of range, component has %d", i, c.PartCount())
	}
	pos := c.offset + componentHeaderSize + offsetSize*uint64(i)
	off, err := c.d.offsetAt(pos, c.offset+uint64(c.header.HeaderSize), partHeaderSize)
	if err != nil {
		return nil, notAContainer("part %d: %v", i, err)
	}

	var h partHeader
	if err := c.d.read(off, partHeaderSize, &h); err != nil {
		return nil, err
	}
	if h.HeaderType&partHeaderTypeMask != partHeaderTypeBase {
		return nil, notAContainer("part %d: unexpected header type 0x%04x", i, h.HeaderType)
	}
	if h.HeaderSize < partHeaderSize || (h.HeaderSize-partHeaderSize)%offsetSize != 0 ||
		off+uint64(h.HeaderSize) > uint64(c.d.header.DescriptorSize) {
		return nil, notAContainer("part %d: bad header size %d", i, h.HeaderSize)
	}
	return &Part{d: c.d, offset: off, header: h}, nil
}

// Part is a single part of a component. Besides its fixed header it
// carries a variable number of 64-bit type specific words.
type Part struct {
	d      *Descriptor
	offset uint64
	header partHeader
}

func (p *Part) DataSize() uint64 {
	return p.header.DataSize
}

// Dimensions returns the width and height of a 2D part.
func (p *Part) Dimensions() (int, int) {
	return int(p.header.Dimension[0]), int(p.header.Dimension[1])
}

func (p *Part) TypeSpecificCount() int {
	return int(p.header.HeaderSize-partHeaderSize) / offsetSize
}

// TypeSpecific returns the i'th type specific word of the part.
func (p *Part) TypeSpecific(i int) (uint64, error) {
	if i < 0 || i >= p.TypeSpecificCount() {
		return 0, notAContainer("type specific index %d out of range, part has %d", i, p.TypeSpecificCount())
	}
	pos := p.offset + partHeaderSize + offsetSize*uint64(i)
	return binary.LittleEndian.Uint64(p.d.buf[pos:]), nil
}

// Frame holds what Decode extracts from a container.
type Frame struct {
	Counter uint32
	Size    uint64
}

// Decode reads the container starting at cursor and returns its frame
// counter and total size. ErrNotAContainer (wrapped) is returned if
// the bytes at cursor are not a GenDC container with an intensity
// component; a *TruncatedError if the container runs past the end of
// buf.
func Decode(buf []byte, cursor int) (Frame, error) {
	if cursor < 0 || cursor >= len(buf) {
		return Frame{}, fmt.Errorf("cursor %d outside buffer of %d bytes", cursor, len(buf))
	}
	d, err := Parse(buf[cursor:])
	if err != nil {
		var te *TruncatedError
		if errors.As(err, &te) {
			te.Offset = cursor
		}
		return Frame{}, err
	}

	c, err := d.FirstComponentByTypeID(TypeIntensity)
	if err != nil {
		return Frame{}, err
	}
	p, err := c.Part(0)
	if err != nil {
		return Frame{}, err
	}
	word, err := p.TypeSpecific(frameCounterField)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Counter: uint32(word),
		Size:    d.ContainerSize(),
	}, nil
}
