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

package constants

import "time"

const (
	// DefaultTaskPeriodSeconds is how often a full report is published unless overridden.
	DefaultTaskPeriodSeconds uint64 = 300
	// DefaultNetworkConnectionSamplePeriodSeconds is how often network connections are sampled.
	DefaultNetworkConnectionSamplePeriodSeconds uint64 = 300

	// ReportVersion is written into every report header
	ReportVersion = "1.0"

	// ReportTopicTemplate is the publish topic for a thing, the last segment is the format suffix
	ReportTopicTemplate = "$aws/things/%s/defender/metrics/%s"
)

const (
	// PublishQoS is the MQTT quality of service used for reports (at least once)
	PublishQoS byte = 1

	// PublishTimeout bounds how long a single publish waits for the broker acknowledgement.
	// It must stay below the smallest task period (1s) so a hanging broker cannot stall the timer.
	PublishTimeout = 800 * time.Millisecond

	// DisconnectQuiesceMs is the time paho is given to finish in-flight work on disconnect
	DisconnectQuiesceMs uint = 1000
)

const (
	// TaskCloseTimeout is how long the reporter waits for the task to release its timer on shutdown
	TaskCloseTimeout = 5 * time.Second

	// HTTPShutdownTimeout bounds the shutdown of the ops HTTP server
	HTTPShutdownTimeout = 3 * time.Second

	// DefaultMetricsPort is the port of the ops HTTP server (metrics, status, health)
	DefaultMetricsPort = 8081

	// DefaultConfigPath is where the reporter looks for its YAML configuration
	DefaultConfigPath = "/data/reporter.yaml"

	// DefaultAppVersion is used for local builds without ldflags; it disables sentry
	DefaultAppVersion = "0.0.0-dev"

	DefaultDevelopmentEnvironment = "development"
	DefaultProductionEnvironment  = "production"
)
