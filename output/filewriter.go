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
	"fmt"
	"log"
	"path/filepath"

	"github.com/TheCacophonyProject/frame-check/record"
)

// FileWriterConfig controls how a FileWriter names and splits its
// output files.
type FileWriterConfig struct {
	Dir    string
	Prefix string
	Format record.Format

	// RecordsPerFile is the number of records written before moving
	// on to the next file. Zero means everything goes in one file.
	RecordsPerFile int
	BufferSize     int
}

// NewFileWriter returns a FileWriter. No file is created until the
// first frame is written.
func NewFileWriter(conf FileWriterConfig) *FileWriter {
	return &FileWriter{conf: conf}
}

// FileWriter writes frame records to a numbered series of files named
// <prefix><n>.bin, starting at 0.
type FileWriter struct {
	conf  FileWriterConfig
	f     *BufferedFile
	w     *Writer
	names []string
}

func (fw *FileWriter) WriteFrame(f *Frame) error {
	if fw.w != nil && fw.conf.RecordsPerFile > 0 && fw.w.Records() >= fw.conf.RecordsPerFile {
		if err := fw.closeFile(); err != nil {
			return err
		}
	}
	if fw.w == nil {
		if err := fw.nextFile(); err != nil {
			return err
		}
	}
	return fw.w.WriteFrame(f)
}

func (fw *FileWriter) nextFile() error {
	name := filepath.Join(fw.conf.Dir, FileName(fw.conf.Prefix, len(fw.names)))
	log.Println("writing to", name)
	f, err := NewBufferedFile(name, fw.conf.BufferSize)
	if err != nil {
		return err
	}
	fw.f = f
	fw.w = NewWriter(f, fw.conf.Format)
	fw.names = append(fw.names, name)
	return nil
}

func (fw *FileWriter) closeFile() error {
	if fw.f == nil {
		return nil
	}
	err := fw.f.Close()
	fw.f = nil
	fw.w = nil
	return err
}

// Names returns the paths of every file written so far.
func (fw *FileWriter) Names() []string {
	return fw.names
}

func (fw *FileWriter) Close() error {
	return fw.closeFile()
}

// FileName returns the name of the nth file in a series.
func FileName(prefix string, n int) string {
	return fmt.Sprintf("%s%d.bin", prefix, n)
}
