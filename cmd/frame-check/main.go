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
	"log"

	config "github.com/TheCacophonyProject/go-config"
	arg "github.com/alexflint/go-arg"

	"github.com/TheCacophonyProject/frame-check/pixelformat"
)

var version = "<not set>"

type Args struct {
	Directory    string `arg:"-d,--directory,required" help:"directory holding the captures to check"`
	ConfigFile   string `arg:"-c,--config" help:"path to configuration file"`
	DeviceConfig string `arg:"--device-config" help:"path to device configuration directory"`
	Prefix       string `arg:"-p,--prefix" help:"only check the camera with sidecar <prefix>config.json"`
	Format       string `arg:"-f,--format" help:"only check files with this extension"`
	Summary      bool   `arg:"-s,--summary" help:"summarise the frame logs of numbered runs instead of checking"`
	Timestamps   bool   `arg:"-t,--timestamps" help:"include timestamps in log output"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
	args.ConfigFile = "/etc/cacophony/frame-check.yaml"
	args.DeviceConfig = config.DefaultConfigDir
	arg.MustParse(&args)
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
		log.SetFlags(0) // Removes default timestamp flag
	}

	log.Printf("running version: %s", version)
	conf, err := ParseConfigFile(args.ConfigFile)
	if err != nil {
		return err
	}

	if args.Summary {
		return summariseRuns(args.Directory, conf.LedgerSuffix)
	}

	conf.DeviceName, err = deviceName(args.DeviceConfig)
	if err != nil {
		log.Printf("no device name: %v", err)
	}
	logConfig(conf)

	dirs, err := findCaptureDirs(args.Directory, conf.ConfigSuffix, args.Format)
	if err != nil {
		return err
	}
	if len(dirs) == 0 {
		return fmt.Errorf("no capture directories found (prefix: %q, format: %q)", args.Prefix, args.Format)
	}

	var captures []capture
	for _, dir := range dirs {
		found, err := listCaptures(dir, conf, args.Prefix, args.Format)
		if err != nil {
			return err
		}
		captures = append(captures, found...)
	}
	markFinalRuns(captures)

	c := newChecker(conf, pixelformat.DefaultTable())
	failed := 0
	for _, cp := range captures {
		log.Printf("checking %s (%s)", cp, cp.layout)
		if err := c.check(cp); err != nil {
			log.Printf("%s: %v", cp, err)
			failed++
		}
	}
	if n := c.limiter.Suppressed(); n > 0 {
		log.Printf("%d drop warnings suppressed in total", n)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d captures failed", failed, len(captures))
	}
	return nil
}

func logConfig(conf *Config) {
	log.Printf("device name: %s", conf.DeviceName)
	log.Printf("ledger suffix: %s", conf.LedgerSuffix)
	log.Printf("exclude final tail: %v", conf.ExcludeFinalTail)
	if conf.ReadRateMB > 0 {
		log.Printf("read rate limit: %.1f MB/s", conf.ReadRateMB)
	}
}
