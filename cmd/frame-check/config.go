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
	"errors"
	"io/ioutil"
	"os"
	"strings"
	"time"

	goconfig "github.com/TheCacophonyProject/go-config"
	yaml "gopkg.in/yaml.v2"
)

type Config struct {
	ConfigSuffix     string        `yaml:"config-suffix"`
	RunConfig        string        `yaml:"run-config"`
	RawPrefix        string        `yaml:"raw-prefix"`
	LedgerSuffix     string        `yaml:"ledger-suffix"`
	ImageExtensions  []string      `yaml:"image-extensions"`
	ReadRateMB       float64       `yaml:"read-rate-mb"`
	FailOnOutOfOrder bool          `yaml:"fail-on-out-of-order"`
	ExcludeFinalTail bool          `yaml:"exclude-final-tail"`
	DropLogInterval  time.Duration `yaml:"drop-log-interval"`
	ReportEvents     bool          `yaml:"report-events"`
	DeviceName       string        `yaml:"-"`
}

func (conf *Config) Validate() error {
	if conf.ConfigSuffix == "" {
		return errors.New("config-suffix must be set")
	}
	if !strings.HasSuffix(conf.RunConfig, conf.ConfigSuffix) {
		return errors.New("run-config should end with config-suffix")
	}
	if conf.LedgerSuffix == "" {
		return errors.New("ledger-suffix must be set")
	}
	if conf.ReadRateMB < 0 {
		return errors.New("read-rate-mb can't be negative")
	}
	if conf.DropLogInterval < 0 {
		return errors.New("drop-log-interval can't be negative")
	}
	for _, ext := range conf.ImageExtensions {
		if ext == "" || strings.Contains(ext, ".") {
			return errors.New("image-extensions should be given without a leading dot")
		}
		if ext == binExt {
			return errors.New("image-extensions can't include bin")
		}
	}
	return nil
}

var defaultConfig = Config{
	ConfigSuffix:     "config.json",
	RunConfig:        "config.json",
	RawPrefix:        "raw-",
	LedgerSuffix:     "frame_log.txt",
	ImageExtensions:  []string{"png", "jpg", "jpeg", "bmp", "raw"},
	FailOnOutOfOrder: true,
	ExcludeFinalTail: true,
	DropLogInterval:  5 * time.Second,
}

// ParseConfigFile reads the tool configuration. A missing file leaves
// every setting at its default.
func ParseConfigFile(filename string) (*Config, error) {
	buf, err := ioutil.ReadFile(filename)
	if os.IsNotExist(err) {
		buf = nil
	} else if err != nil {
		return nil, err
	}
	return ParseConfig(buf)
}

func ParseConfig(buf []byte) (*Config, error) {
	conf := defaultConfig
	conf.ImageExtensions = append([]string(nil), defaultConfig.ImageExtensions...)
	if err := yaml.Unmarshal(buf, &conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// deviceName returns the name of the device from the shared device
// configuration, or an empty string if none is set.
func deviceName(configDir string) (string, error) {
	configRW, err := goconfig.New(configDir)
	if err != nil {
		return "", err
	}
	var deviceConfig goconfig.Device
	if err := configRW.Unmarshal(goconfig.DeviceKey, &deviceConfig); err != nil {
		return "", err
	}
	return deviceConfig.Name, nil
}
