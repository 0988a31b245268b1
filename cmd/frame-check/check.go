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
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/juju/ratelimit"

	"github.com/TheCacophonyProject/frame-check/audit"
	"github.com/TheCacophonyProject/frame-check/events"
	"github.com/TheCacophonyProject/frame-check/loglimiter"
	"github.com/TheCacophonyProject/frame-check/output"
	"github.com/TheCacophonyProject/frame-check/pixelformat"
	"github.com/TheCacophonyProject/frame-check/record"
	"github.com/TheCacophonyProject/frame-check/sidecar"
)

type checker struct {
	conf    *Config
	table   *pixelformat.Table
	bucket  *ratelimit.Bucket
	limiter *loglimiter.LogLimiter
	events  *events.Recorder
}

func newChecker(conf *Config, table *pixelformat.Table) *checker {
	c := &checker{
		conf:    conf,
		table:   table,
		bucket:  record.NewReadBucket(conf.ReadRateMB),
		limiter: loglimiter.New(conf.DropLogInterval),
	}
	if conf.ReportEvents {
		c.events = events.NewRecorder(events.DBusQueuer{})
	}
	return c
}

// channel is one camera's counters, ready to audit.
type channel struct {
	name       string
	index      int
	trace      []uint32
	width      int
	height     int
	ledgerPath string
}

func (c *checker) check(cp capture) error {
	switch cp.layout {
	case layoutRun:
		return c.checkRun(cp)
	case layoutPrefix:
		return c.checkPrefix(cp)
	case layoutImages:
		return c.checkImages(cp)
	}
	return fmt.Errorf("unknown capture layout %d", cp.layout)
}

func (c *checker) checkRun(cp capture) error {
	run, err := sidecar.LoadRun(filepath.Join(cp.dir, c.conf.RunConfig), c.table)
	if err != nil {
		return err
	}
	names, err := dirFileNames(cp.dir)
	if err != nil {
		return err
	}
	files, err := binFiles(names, cp.prefix, runBinIndex)
	if err != nil {
		return err
	}

	frameSizes := run.FrameSizes()
	var traces [][]uint32
	for _, name := range files {
		path := filepath.Join(cp.dir, name)
		buf, err := record.Load(path, c.bucket)
		if err != nil {
			return err
		}
		traces, err = record.Demux(traces, buf, frameSizes)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	var failed []string
	for i, ch := range run.Channels {
		var trace []uint32
		if i < len(traces) {
			trace = traces[i]
		}
		name := fmt.Sprintf("camera-%d", i)
		err := c.auditChannel(cp, channel{
			name:       name,
			index:      i,
			trace:      trace,
			width:      ch.Width,
			height:     ch.Height,
			ledgerPath: filepath.Join(cp.dir, name+"-"+c.conf.LedgerSuffix),
		})
		if err != nil {
			log.Printf("%s %s: %v", cp, name, err)
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed channels: %s", strings.Join(failed, ", "))
	}
	return nil
}

func (c *checker) checkPrefix(cp capture) error {
	ch, err := sidecar.LoadChannel(filepath.Join(cp.dir, cp.prefix+c.conf.ConfigSuffix), c.table)
	if err != nil {
		return err
	}
	names, err := dirFileNames(cp.dir)
	if err != nil {
		return err
	}
	files, err := binFiles(names, cp.prefix, prefixBinIndex)
	if err != nil {
		return err
	}

	// Counting carries on from one file to the next.
	var trace []uint32
	for _, name := range files {
		path := filepath.Join(cp.dir, name)
		buf, err := record.Load(path, c.bucket)
		if err != nil {
			return err
		}
		trace, err = record.Scan(trace, buf, ch.FrameSize())
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	name := strings.TrimRight(cp.prefix, "-_")
	if name == "" {
		name = "camera"
	}
	return c.auditChannel(cp, channel{
		name:       name,
		trace:      trace,
		width:      ch.Width,
		height:     ch.Height,
		ledgerPath: filepath.Join(cp.dir, cp.prefix+c.conf.LedgerSuffix),
	})
}

func (c *checker) checkImages(cp capture) error {
	names, err := dirFileNames(cp.dir)
	if err != nil {
		return err
	}
	trace := imageIndices(names, cp.ext)
	if len(trace) == 0 {
		return audit.ErrEmptyTrace
	}
	width, height := imageSize(filepath.Join(cp.dir, strconv.Itoa(int(trace[0]))+"."+cp.ext))

	return c.auditChannel(cp, channel{
		name:       cp.ext,
		trace:      trace,
		width:      width,
		height:     height,
		ledgerPath: filepath.Join(cp.dir, cp.ext+"-"+c.conf.LedgerSuffix),
	})
}

// imageSize returns the dimensions of an image file, or zeros if the
// format can't be decoded.
func imageSize(path string) (int, int) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func (c *checker) auditChannel(cp capture, ch channel) error {
	if len(ch.trace) == 0 {
		return audit.ErrEmptyTrace
	}
	// Only an interleaved run is cut off mid write when capture stops.
	excludeTail := cp.layout == layoutRun && cp.final && c.conf.ExcludeFinalTail

	a := audit.NewAuditor()
	last := len(ch.trace) - 1
	for i, fc := range ch.trace {
		if excludeTail && i == last {
			if err := a.AddTail(fc); err != nil {
				return err
			}
			continue
		}
		dropped, err := a.Add(fc)
		if err != nil {
			return err
		}
		if dropped > 0 {
			c.limiter.Keyf(ch.ledgerPath, "%s: %d frames dropped before frame %d", ch.name, dropped, fc)
		}
	}
	c.limiter.Flush()
	r := a.Report()

	if err := writeLedger(ch, r); err != nil {
		return err
	}
	logStats(ch.name, r)

	if c.events != nil {
		err := c.events.Record(events.FrameCheck{
			Device:     c.conf.DeviceName,
			Path:       cp.dir,
			Channel:    ch.index,
			CatchRate:  r.CatchRate(),
			Caught:     r.NumCaught,
			Dropped:    r.NumDropped,
			Total:      r.Total(),
			OutOfOrder: len(r.OutOfOrder),
		})
		if err != nil {
			log.Printf("could not record frameCheck event: %v", err)
		}
	}

	for _, o := range r.OutOfOrder {
		log.Printf("%s: out of order %s", ch.name, o)
	}
	if len(r.OutOfOrder) > 0 && c.conf.FailOnOutOfOrder {
		return fmt.Errorf("%d frame counters out of order", len(r.OutOfOrder))
	}
	return nil
}

func writeLedger(ch channel, r *audit.Report) error {
	f, err := output.NewBufferedFile(ch.ledgerPath, 0)
	if err != nil {
		return err
	}
	if err := audit.WriteLedger(f, ch.width, ch.height, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func logStats(name string, r *audit.Report) {
	log.Printf("%s", name)
	log.Printf("  frame catch rate     : %v%%", r.CatchRate()*100)
	log.Printf("  frame catch          : %d frames", r.NumCaught)
	log.Printf("  num frames           : %d", r.Total())
	log.Printf("  frames               : %d - %d", r.Offset, r.MaxObserved)
}

func dirFileNames(dir string) ([]string, error) {
	infos, err := readDirSorted(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, info := range infos {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	}
	return names, nil
}
