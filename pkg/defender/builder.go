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
package defender

import (
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/fleet-reporter/pkg/constants"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/logger"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/report"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/sampler"
)

// ReportTaskBuilder accumulates the configuration of a ReportTask. Setters overwrite, the last call
// wins. Nothing is validated here, StartTask does that.
type ReportTaskBuilder struct {
	cfg TaskConfig
}

// NewReportTaskBuilder starts a builder with the default configuration: JSON reports, 300 second
// task and sample periods, the gopsutil sampler and no cancellation handler.
func NewReportTaskBuilder(conn Connection, sched Scheduler, thingName string) *ReportTaskBuilder {
	log := logger.For(logger.ComponentReportTask)

	return &ReportTaskBuilder{
		cfg: TaskConfig{
			ReportFormat:                  report.FormatJSON,
			TaskPeriod:                    secondsToDuration(constants.DefaultTaskPeriodSeconds),
			NetworkConnectionSamplePeriod: secondsToDuration(constants.DefaultNetworkConnectionSamplePeriodSeconds),
			ThingName:                     thingName,
			Connection:                    conn,
			Scheduler:                     sched,
			Sampler:                       sampler.New(logger.For(logger.ComponentSampler)),
			Encoder:                       report.NewEncoder(),
			Logger:                        log,
		},
	}
}

// WithReportFormat sets the wire format of the reports. Support is checked by StartTask.
func (b *ReportTaskBuilder) WithReportFormat(format report.Format) *ReportTaskBuilder {
	b.cfg.ReportFormat = format
	return b
}

// WithTaskPeriodSeconds sets how often a report is published. Zero is accepted and rejected by StartTask.
func (b *ReportTaskBuilder) WithTaskPeriodSeconds(seconds uint64) *ReportTaskBuilder {
	b.cfg.TaskPeriod = secondsToDuration(seconds)
	return b
}

// WithNetworkConnectionSamplePeriodSeconds sets how often network connections are sampled.
func (b *ReportTaskBuilder) WithNetworkConnectionSamplePeriodSeconds(seconds uint64) *ReportTaskBuilder {
	b.cfg.NetworkConnectionSamplePeriod = secondsToDuration(seconds)
	return b
}

// WithTaskCancelledHandler sets the handler invoked once when a started task stops.
func (b *ReportTaskBuilder) WithTaskCancelledHandler(handler OnTaskCancelledHandler) *ReportTaskBuilder {
	b.cfg.OnTaskCancelled = handler
	return b
}

// WithTaskCancellationUserData sets the value passed to the cancellation handler.
func (b *ReportTaskBuilder) WithTaskCancellationUserData(userData any) *ReportTaskBuilder {
	b.cfg.CancellationUserData = userData
	return b
}

// WithSampler replaces the gopsutil sampler. nil keeps the current one, as for WithEncoder and WithLogger.
func (b *ReportTaskBuilder) WithSampler(s Sampler) *ReportTaskBuilder {
	if s != nil {
		b.cfg.Sampler = s
	}
	return b
}

// WithEncoder replaces the report encoder.
func (b *ReportTaskBuilder) WithEncoder(e Encoder) *ReportTaskBuilder {
	if e != nil {
		b.cfg.Encoder = e
	}
	return b
}

// WithLogger sets the logger of the built tasks.
func (b *ReportTaskBuilder) WithLogger(log *zap.SugaredLogger) *ReportTaskBuilder {
	if log != nil {
		b.cfg.Logger = log
	}
	return b
}

// Build returns a new task in the ready state with a snapshot of the current configuration.
// It can be called repeatedly; every task gets its own identity.
func (b *ReportTaskBuilder) Build() *ReportTask {
	return newReportTask(b.cfg)
}
