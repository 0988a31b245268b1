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

// capture-maker writes synthetic camera captures for exercising
// frame-check.
package main

import (
	"errors"
	"log"
	"os"

	arg "github.com/alexflint/go-arg"

	"github.com/TheCacophonyProject/frame-check/output"
	"github.com/TheCacophonyProject/frame-check/pixelformat"
	"github.com/TheCacophonyProject/frame-check/record"
)

var version = "<not set>"

type Args struct {
	OutputDir     string   `arg:"-o,--output,required" help:"directory to write the capture to"`
	Sensors       []string `arg:"--sensor" help:"camera as WIDTHxHEIGHT:FORMAT, repeat for more cameras"`
	Frames        int      `arg:"-n,--frames" help:"number of frames per camera"`
	Start         uint32   `arg:"--start" help:"first frame counter"`
	Drops         []uint32 `arg:"--drop" help:"frame counters to leave out"`
	Format        string   `arg:"-f,--format" help:"record format: gendc or fixed"`
	FramesPerFile int      `arg:"--frames-per-file" help:"frames per camera in each file, 0 for a single file"`
	Prefix        string   `arg:"-p,--prefix" help:"write a single camera capture with sidecar <prefix>config.json"`
	Sentinel      bool     `arg:"--sentinel" help:"act as a camera without frame counter support"`
	Timestamps    bool     `arg:"-t,--timestamps" help:"include timestamps in log output"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
	args.Frames = 100
	args.Format = record.FormatGenDC.String()
	arg.MustParse(&args)
	if len(args.Sensors) == 0 {
		args.Sensors = []string{"64x48:Mono8"}
	}
	return args
}

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err)
	}
}

func runMain() error {
	args := procArgs()

	if !args.Timestamps {
		log.SetFlags(0)
	}

	table := pixelformat.DefaultTable()
	var sensors []sensor
	for _, s := range args.Sensors {
		sen, err := parseSensor(s, table)
		if err != nil {
			return err
		}
		sensors = append(sensors, sen)
	}
	format, err := record.ParseFormat(args.Format)
	if err != nil {
		return err
	}
	if args.FramesPerFile < 0 {
		return errors.New("frames-per-file can't be negative")
	}
	if err := os.MkdirAll(args.OutputDir, 0755); err != nil {
		return err
	}

	return makeCapture(captureOptions{
		dir:           args.OutputDir,
		prefix:        args.Prefix,
		sensors:       sensors,
		format:        format,
		frames:        args.Frames,
		framesPerFile: args.FramesPerFile,
		start:         args.Start,
		drops:         args.Drops,
		sentinel:      args.Sentinel,
	})
}

type captureOptions struct {
	dir           string
	prefix        string
	sensors       []sensor
	format        record.Format
	frames        int
	framesPerFile int
	start         uint32
	drops         []uint32
	sentinel      bool
}

// makeCapture writes a sidecar and the raw files of a capture. Without
// a prefix the cameras are interleaved in raw-<n>.bin files described
// by config.json.
func makeCapture(opts captureOptions) error {
	filePrefix := "raw-"
	if opts.prefix != "" {
		if len(opts.sensors) != 1 {
			return errors.New("a prefixed capture holds a single camera")
		}
		filePrefix = opts.prefix
		if err := writeSensorConfig(configPath(opts.dir, opts.prefix), opts.sensors[0]); err != nil {
			return err
		}
	} else if err := writeRunConfig(configPath(opts.dir, ""), opts.sensors); err != nil {
		return err
	}

	fw := output.NewFileWriter(output.FileWriterConfig{
		Dir:            opts.dir,
		Prefix:         filePrefix,
		Format:         opts.format,
		RecordsPerFile: opts.framesPerFile * len(opts.sensors),
	})
	m := NewCaptureMaker(opts.sensors, fw, opts.start).Drop(opts.drops...)
	if opts.sentinel {
		m.Sentinel()
	}
	if err := m.AddFrames(opts.frames); err != nil {
		fw.Close()
		return err
	}
	if err := fw.Close(); err != nil {
		return err
	}
	log.Printf("wrote %d frames for %d cameras to %d files", opts.frames, len(opts.sensors), len(fw.Names()))
	return nil
}
