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
package config

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/fleet-reporter/pkg/env"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/sentry"
)

// ApplyEnvOverrides replaces config values with the non-empty environment variables below.
// A malformed number is reported as a warning and leaves the value untouched.
func ApplyEnvOverrides(cfg *Config, log *zap.SugaredLogger) error {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	texts := []struct {
		key    string
		target *string
	}{
		{"THING_NAME", &cfg.ThingName},
		{"BROKER_URL", &cfg.Broker.URL},
		{"MQTT_CLIENT_ID", &cfg.Broker.ClientID},
		{"MQTT_USERNAME", &cfg.Broker.Username},
		{"MQTT_PASSWORD", &cfg.Broker.Password},
		{"REPORT_FORMAT", &cfg.Report.Format},
		{"SENTRY_DSN", &cfg.SentryDSN},
	}
	for _, s := range texts {
		value, err := env.GetAsString(s.key, false, *s.target)
		if err != nil {
			return fmt.Errorf("failed to get %s: %w", s.key, err)
		}
		*s.target = value
	}

	uints := []struct {
		key    string
		target *uint64
	}{
		{"TASK_PERIOD_SECONDS", &cfg.Report.TaskPeriodSeconds},
		{"SAMPLE_PERIOD_SECONDS", &cfg.Report.SamplePeriodSeconds},
		{"MQTT_CONNECT_TIMEOUT_SECONDS", &cfg.Broker.ConnectTimeoutSeconds},
	}
	for _, u := range uints {
		value, err := env.GetAsUint64(u.key, true, *u.target)
		if err != nil {
			if isUnset(u.key) {
				continue
			}
			sentry.ReportIssuef(sentry.IssueTypeWarning, log, "Ignoring %s: %w", u.key, err)
			continue
		}
		*u.target = value
	}

	port, err := env.GetAsInt("METRICS_PORT", true, cfg.MetricsPort)
	switch {
	case err == nil:
		cfg.MetricsPort = port
	case !isUnset("METRICS_PORT"):
		sentry.ReportIssuef(sentry.IssueTypeWarning, log, "Ignoring METRICS_PORT: %w", err)
	}

	return nil
}

func isUnset(key string) bool {
	value, _ := env.GetAsString(key, false, "")
	return value == ""
}
