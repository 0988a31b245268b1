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

// Package output writes frame records in the layouts produced by the
// capture tools, either as GenDC containers or as counter prefixed
// fixed size records.
package output

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/TheCacophonyProject/frame-check/gendc"
	"github.com/TheCacophonyProject/frame-check/record"
)

// Frame is a single camera frame to be written.
type Frame struct {
	Counter     uint32
	SourceID    uint16
	Width       int
	Height      int
	PixelFormat uint32
	Timestamp   uint64
	Data        []byte
}

// NewWriter returns a Writer emitting records in the given format.
func NewWriter(w io.Writer, format record.Format) *Writer {
	return &Writer{
		w:      w,
		format: format,
	}
}

// Writer writes frame records back to back with no padding.
type Writer struct {
	w       io.Writer
	format  record.Format
	records int
	id      uint64
}

// WriteFrame writes one frame record.
func (w *Writer) WriteFrame(f *Frame) error {
	var err error
	switch w.format {
	case record.FormatFixed:
		err = w.writeFixed(f)
	case record.FormatGenDC:
		err = w.writeContainer(f)
	default:
		err = fmt.Errorf("unknown record format %d", w.format)
	}
	if err != nil {
		return err
	}
	w.records++
	return nil
}

func (w *Writer) writeFixed(f *Frame) error {
	var counter [record.CounterSize]byte
	binary.LittleEndian.PutUint32(counter[:], f.Counter)
	if _, err := w.w.Write(counter[:]); err != nil {
		return err
	}
	_, err := w.w.Write(f.Data)
	return err
}

func (w *Writer) writeContainer(f *Frame) error {
	c := gendc.NewBuilder(w.id).
		AddComponent(gendc.ComponentSpec{
			TypeID:    gendc.TypeIntensity,
			SourceID:  f.SourceID,
			Format:    f.PixelFormat,
			Timestamp: f.Timestamp,
			Parts: []gendc.PartSpec{{
				Format:       f.PixelFormat,
				Width:        uint32(f.Width),
				Height:       uint32(f.Height),
				TypeSpecific: gendc.IntensityFrame(f.Counter),
				Data:         f.Data,
			}},
		}).
		Bytes()
	w.id++
	_, err := w.w.Write(c)
	return err
}

// Records returns the number of records written so far.
func (w *Writer) Records() int {
	return w.records
}
