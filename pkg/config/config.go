// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package config loads the reporter configuration from a YAML file with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/united-manufacturing-hub/fleet-reporter/pkg/constants"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/report"
)

// Config is the full reporter configuration.
type Config struct {
	ThingName   string       `yaml:"thingName"`
	Broker      BrokerConfig `yaml:"broker"`
	Report      ReportConfig `yaml:"report"`
	MetricsPort int          `yaml:"metricsPort"`
	SentryDSN   string       `yaml:"sentryDSN,omitempty"`
}

type BrokerConfig struct {
	URL                   string `yaml:"url"`
	ClientID              string `yaml:"clientID"`
	Username              string `yaml:"username,omitempty"`
	Password              string `yaml:"password,omitempty"`
	ConnectTimeoutSeconds uint64 `yaml:"connectTimeoutSeconds"`
}

type ReportConfig struct {
	Format              string `yaml:"format"`
	TaskPeriodSeconds   uint64 `yaml:"taskPeriodSeconds"`
	SamplePeriodSeconds uint64 `yaml:"samplePeriodSeconds"`
}

// Default returns the configuration used for every field the file and the environment leave unset.
func Default() Config {
	return Config{
		Broker: BrokerConfig{
			ConnectTimeoutSeconds: 30,
		},
		Report: ReportConfig{
			Format:              report.FormatJSON.String(),
			TaskPeriodSeconds:   constants.DefaultTaskPeriodSeconds,
			SamplePeriodSeconds: constants.DefaultNetworkConnectionSamplePeriodSeconds,
		},
		MetricsPort: constants.DefaultMetricsPort,
	}
}

// ConnectTimeout returns the broker connect timeout as a duration.
func (b BrokerConfig) ConnectTimeout() time.Duration {
	return time.Duration(b.ConnectTimeoutSeconds) * time.Second
}

// ParseFile reads the YAML configuration at path on top of the defaults. A missing file is not an
// error, the defaults are returned.
func ParseFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes YAML into cfg, keeping the fields the document does not set. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	if len(data) == 0 {
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return err
	}

	return nil
}

// Load parses the file at path and applies environment overrides.
//
// Order of precedence (highest to lowest):
// 1. Environment variables (THING_NAME, BROKER_URL, MQTT_*, TASK_PERIOD_SECONDS, ...)
// 2. Config file values
// 3. Default values
func Load(path string, log *zap.SugaredLogger) (Config, error) {
	cfg, err := ParseFile(path)
	if err != nil {
		return cfg, err
	}

	if err := ApplyEnvOverrides(&cfg, log); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks that every required field is present. Periods and the report format are
// validated when the report task starts.
func (c Config) Validate() error {
	var errs []error

	if c.ThingName == "" {
		errs = append(errs, errors.New("thingName is required"))
	}
	if c.Broker.URL == "" {
		errs = append(errs, errors.New("broker.url is required"))
	}
	if c.Broker.ClientID == "" {
		errs = append(errs, errors.New("broker.clientID is required"))
	}
	if _, err := report.ParseFormat(c.Report.Format); err != nil {
		errs = append(errs, err)
	}
	if c.MetricsPort <= 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metricsPort %d is out of range", c.MetricsPort))
	}

	return errors.Join(errs...)
}
