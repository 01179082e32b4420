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
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/fleet-reporter/pkg/report"
)

// TaskConfig is the configuration of one ReportTask. It is a snapshot taken by Build and never
// changes afterwards. Connection and Scheduler are borrowed.
type TaskConfig struct {
	ReportFormat                  report.Format
	TaskPeriod                    time.Duration
	NetworkConnectionSamplePeriod time.Duration
	ThingName                     string

	Connection Connection
	Scheduler  Scheduler

	OnTaskCancelled      OnTaskCancelledHandler
	CancellationUserData any

	Sampler Sampler
	Encoder Encoder
	Logger  *zap.SugaredLogger
}

// needsSampleTimer reports whether samples are taken between reports. With equal periods the
// report timer samples on its own.
func (c TaskConfig) needsSampleTimer() bool {
	return c.NetworkConnectionSamplePeriod < c.TaskPeriod
}

const maxPeriodSeconds = uint64(math.MaxInt64 / int64(time.Second))

// secondsToDuration saturates instead of overflowing for absurdly large periods.
func secondsToDuration(seconds uint64) time.Duration {
	if seconds > maxPeriodSeconds {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(seconds) * time.Second
}
