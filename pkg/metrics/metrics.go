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

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Namespace and subsystem for all metrics.
	namespace = "umh"
	subsystem = "fleet_reporter"

	reportsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reports_published_total",
			Help:      "Total number of reports published by thing",
		},
		[]string{"thing"},
	)

	publishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "publish_errors_total",
			Help:      "Total number of failed report publishes by thing and error category",
		},
		[]string{"thing", "category"},
	)

	samplesTaken = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "network_samples_total",
			Help:      "Total number of network connection samples taken by thing",
		},
		[]string{"thing"},
	)

	taskFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "task_failures_total",
			Help:      "Total number of report tasks stopped by a fatal error, by thing and error code",
		},
		[]string{"thing", "code"},
	)

	taskStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "task_status",
			Help:      "Current status of the report task of a thing (0=Ready, 1=Running, 2=Stopped, -1=Unknown)",
		},
		[]string{"thing"},
	)

	cycleDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "report_cycle_duration_milliseconds",
			Help:      "Time taken to assemble, encode and publish one report (in milliseconds)",
			Objectives: map[float64]float64{
				0.5:  0.01,
				0.9:  0.01,
				0.99: 0.01,
			},
		},
		[]string{"thing"},
	)
)

// Handler returns the prometheus HTTP handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncReportsPublished counts a successfully published report.
func IncReportsPublished(thing string) {
	reportsPublished.WithLabelValues(thing).Inc()
}

// IncPublishErrors counts a failed publish with its error category (transient, permanent).
func IncPublishErrors(thing, category string) {
	publishErrors.WithLabelValues(thing, category).Inc()
}

// IncSamplesTaken counts a network connection sample.
func IncSamplesTaken(thing string) {
	samplesTaken.WithLabelValues(thing).Inc()
}

// IncTaskFailures counts a task that stopped because of a fatal error.
func IncTaskFailures(thing, code string) {
	taskFailures.WithLabelValues(thing, code).Inc()
}

// UpdateTaskStatus records the current status of the task reporting for thing. Tasks are keyed by
// thing only, so rebuilding a task overwrites the series instead of adding one.
func UpdateTaskStatus(thing, status string) {
	taskStatus.WithLabelValues(thing).Set(getStatusValue(status))
}

// ObserveCycleTime records the duration of one report cycle.
func ObserveCycleTime(thing string, duration time.Duration) {
	cycleDuration.WithLabelValues(thing).Observe(float64(duration.Milliseconds()))
}

func getStatusValue(status string) float64 {
	switch status {
	case "ready":
		return 0
	case "running":
		return 1
	case "stopped":
		return 2
	default:
		return -1
	}
}
