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

package output

import (
	"bufio"
	"os"
)

// DefaultBufferSize is used by NewBufferedFile when size is zero.
const DefaultBufferSize = 4 * 1024 * 1024

// NewBufferedFile creates filename and wraps it in a write buffer of
// the given size.
func NewBufferedFile(filename string, size int) (*BufferedFile, error) {
	if size <= 0 {
		size = DefaultBufferSize
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	return &BufferedFile{
		f: f,
		w: bufio.NewWriterSize(f, size),
	}, nil
}

type BufferedFile struct {
	f *os.File
	w *bufio.Writer
}

func (bf *BufferedFile) Write(p []byte) (int, error) {
	return bf.w.Write(p)
}

func (bf *BufferedFile) Name() string {
	return bf.f.Name()
}

// Close flushes any buffered data and closes the file.
func (bf *BufferedFile) Close() error {
	if err := bf.w.Flush(); err != nil {
		bf.f.Close()
		return err
	}
	return bf.f.Close()
}
