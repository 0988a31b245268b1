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
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/TheCacophonyProject/frame-check/audit"
)

// runLedger is a frame log read back from one camera of one run.
type runLedger struct {
	run    int
	camera int
	ledger *audit.Ledger
}

// readRunLedgers reads the camera frame logs of every numbered run
// directory directly below root.
func readRunLedgers(root, ledgerSuffix string) ([]runLedger, error) {
	infos, err := readDirSorted(root)
	if err != nil {
		return nil, err
	}
	cameraLedger := regexp.MustCompile(`^camera-(\d+)-` + regexp.QuoteMeta(ledgerSuffix) + `$`)

	var out []runLedger
	for _, info := range infos {
		if !info.IsDir() {
			continue
		}
		run, ok := runNumber(info.Name())
		if !ok {
			continue
		}
		dir := filepath.Join(root, info.Name())
		names, err := dirFileNames(dir)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			m := cameraLedger.FindStringSubmatch(name)
			if m == nil {
				continue
			}
			camera, _ := strconv.Atoi(m[1])
			l, err := readLedgerFile(filepath.Join(dir, name))
			if err != nil {
				return nil, err
			}
			out = append(out, runLedger{run: run, camera: camera, ledger: l})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].run != out[j].run {
			return out[i].run < out[j].run
		}
		return out[i].camera < out[j].camera
	})
	return out, nil
}

func readLedgerFile(path string) (*audit.Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	l, err := audit.ParseLedger(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// summariseRuns logs the catch rate of each run followed by
// statistics per camera across all runs.
func summariseRuns(root, ledgerSuffix string) error {
	ledgers, err := readRunLedgers(root, ledgerSuffix)
	if err != nil {
		return err
	}
	if len(ledgers) == 0 {
		return fmt.Errorf("no frame logs found in numbered runs under %s", root)
	}

	rates := make(map[int][]float64)
	var cameras []int
	for _, rl := range ledgers {
		l := rl.ledger
		log.Printf("run %d camera %d: catch rate %.2f%% (%d of %d frames) skipped %v",
			rl.run, rl.camera, l.CatchRate*100, l.Caught(), l.Total(), l.Skipped())
		if _, ok := rates[rl.camera]; !ok {
			cameras = append(cameras, rl.camera)
		}
		rates[rl.camera] = append(rates[rl.camera], l.CatchRate)
	}

	sort.Ints(cameras)
	for _, camera := range cameras {
		log.Printf("camera %d: %s", camera, audit.Summarise(rates[camera]))
	}
	return nil
}
