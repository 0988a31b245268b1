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
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/TheCacophonyProject/frame-check/sidecar"
)

const binExt = "bin"

var (
	prefixBinIndex = regexp.MustCompile(`-(\d+)\.bin$`)
	runBinIndex    = regexp.MustCompile(`\d+`)
)

type layout int

const (
	// One or more cameras interleaved in the same raw files.
	layoutRun layout = iota
	// A single camera with its own sidecar and numbered files.
	layoutPrefix
	// One image file per frame, named by frame index.
	layoutImages
)

func (l layout) String() string {
	switch l {
	case layoutRun:
		return "run"
	case layoutPrefix:
		return "prefix"
	case layoutImages:
		return "images"
	}
	return "unknown"
}

type capture struct {
	dir    string
	layout layout
	prefix string
	ext    string
	// final is set for the last run of a capture session, whose last
	// frame may have been cut short when recording stopped.
	final bool
}

func (c capture) String() string {
	switch c.layout {
	case layoutPrefix:
		return filepath.Join(c.dir, c.prefix+"*")
	case layoutImages:
		return filepath.Join(c.dir, "*."+c.ext)
	}
	return c.dir
}

// findCaptureDirs returns every directory at or below dir which holds
// a sidecar file. Directories with a sidecar are not searched further.
// If format is set only directories holding files with that extension
// are returned.
func findCaptureDirs(dir, configSuffix, format string) ([]string, error) {
	infos, err := readDirSorted(dir)
	if err != nil {
		return nil, err
	}

	var subDirs []string
	hasConfig := false
	hasFormat := format == ""
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() {
			subDirs = append(subDirs, filepath.Join(dir, name))
			continue
		}
		if strings.HasSuffix(name, configSuffix) {
			hasConfig = true
		}
		if format != "" && strings.HasSuffix(name, format) {
			hasFormat = true
		}
	}

	if hasConfig {
		if hasFormat {
			return []string{dir}, nil
		}
		return nil, nil
	}

	var out []string
	for _, sub := range subDirs {
		found, err := findCaptureDirs(sub, configSuffix, format)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

// listCaptures returns the captures held in a directory found by
// findCaptureDirs. prefix limits the check to a single camera's
// sidecar and format to a single file extension.
func listCaptures(dir string, conf *Config, prefix, format string) ([]capture, error) {
	names, err := dirFileNames(dir)
	if err != nil {
		return nil, err
	}

	exts := append([]string{binExt}, conf.ImageExtensions...)
	if format != "" {
		exts = []string{strings.TrimPrefix(format, ".")}
	}

	var out []capture
	for _, ext := range exts {
		if ext != binExt {
			if len(imageIndices(names, ext)) > 0 {
				out = append(out, capture{dir: dir, layout: layoutImages, ext: ext})
			}
			continue
		}
		if !hasExt(names, binExt) {
			continue
		}
		for _, name := range sidecarNames(names, conf.ConfigSuffix, prefix) {
			c, err := binCapture(dir, name, conf)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	return out, nil
}

func sidecarNames(names []string, suffix, prefix string) []string {
	if prefix != "" {
		name := prefix + suffix
		for _, n := range names {
			if n == name {
				return []string{name}
			}
		}
		return nil
	}
	var out []string
	for _, n := range names {
		if strings.HasSuffix(n, suffix) {
			out = append(out, n)
		}
	}
	return out
}

func binCapture(dir, sidecarName string, conf *Config) (capture, error) {
	if sidecarName == conf.RunConfig {
		buf, err := ioutil.ReadFile(filepath.Join(dir, sidecarName))
		if err != nil {
			return capture{}, err
		}
		if sidecar.IsRun(buf) {
			return capture{dir: dir, layout: layoutRun, prefix: conf.RawPrefix}, nil
		}
	}
	return capture{
		dir:    dir,
		layout: layoutPrefix,
		prefix: strings.TrimSuffix(sidecarName, conf.ConfigSuffix),
	}, nil
}

// binFiles returns the capture files starting with prefix, in capture
// order. The order comes from the number in each name matched by re.
func binFiles(names []string, prefix string, re *regexp.Regexp) ([]string, error) {
	type numbered struct {
		name string
		n    uint64
	}
	var files []numbered
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, "."+binExt) {
			continue
		}
		m := re.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("can't tell the order of capture file %s", name)
		}
		n, err := strconv.ParseUint(m[len(m)-1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("can't tell the order of capture file %s: %v", name, err)
		}
		files = append(files, numbered{name, n})
	}
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].n < files[j].n
	})
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.name
	}
	return out, nil
}

// imageIndices returns the sorted frame indices of files named
// <index>.<ext>. Other files are ignored.
func imageIndices(names []string, ext string) []uint32 {
	var out []uint32
	for _, name := range names {
		base := strings.TrimSuffix(name, "."+ext)
		if base == name {
			continue
		}
		n, err := strconv.ParseUint(base, 10, 32)
		if err != nil {
			continue
		}
		out = append(out, uint32(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func hasExt(names []string, ext string) bool {
	for _, n := range names {
		if strings.HasSuffix(n, "."+ext) {
			return true
		}
	}
	return false
}

// markFinalRuns flags the interleaved captures which belong to the
// last run of a session. Runs are kept in numbered directories and
// only the highest numbered one can end with a torn frame. Single
// camera captures and image sequences are never final.
func markFinalRuns(captures []capture) {
	last := make(map[string]int)
	for _, c := range captures {
		if c.layout != layoutRun {
			continue
		}
		n, ok := runNumber(c.dir)
		if !ok {
			continue
		}
		parent := filepath.Dir(c.dir)
		if prev, ok := last[parent]; !ok || n > prev {
			last[parent] = n
		}
	}
	for i, c := range captures {
		n, ok := runNumber(c.dir)
		captures[i].final = c.layout == layoutRun && ok && n == last[filepath.Dir(c.dir)]
	}
}

func runNumber(dir string) (int, bool) {
	n, err := strconv.Atoi(filepath.Base(dir))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// readDirSorted lists a directory with numbered entries in numeric
// order ahead of everything else.
func readDirSorted(dir string) ([]os.FileInfo, error) {
	infos, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(infos, func(i, j int) bool {
		a, aErr := strconv.Atoi(infos[i].Name())
		b, bErr := strconv.Atoi(infos[j].Name())
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		}
		return infos[i].Name() < infos[j].Name()
	})
	return infos, nil
}
