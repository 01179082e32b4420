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
	"context"
	"time"

	"github.com/united-manufacturing-hub/fleet-reporter/pkg/report"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/scheduler"
)

// Connection is the pub/sub connection a task publishes on. The task never opens or closes it.
// Publish errors categorized as backoff transient drop the current report; all other errors
// stop the task.
type Connection interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	IsConnected() bool
}

// TimerHandle identifies a recurring timer registered on a Scheduler.
type TimerHandle = scheduler.TimerHandle

// Scheduler is the execution context a task registers its recurring timers on.
// onCancelled must run exactly once after the last tick returned, also when the scheduler
// shuts down without Cancel being called. Cancel must not wait for onCancelled.
type Scheduler interface {
	ScheduleRecurring(period time.Duration, tick func(ctx context.Context), onCancelled func()) (TimerHandle, error)
	Cancel(handle TimerHandle)
	IsRunning() bool
}

// Sampler reads the network state of the device.
type Sampler interface {
	Sample(ctx context.Context) (report.ConnectionSample, error)
	NetworkStats(ctx context.Context) (report.NetworkStats, error)
}

// Encoder serializes reports.
type Encoder interface {
	Supports(format report.Format) bool
	Encode(format report.Format, r *report.Report) ([]byte, error)
}

// OnTaskCancelledHandler is invoked once when a running task stops. userData is the value set with
// WithTaskCancellationUserData, passed through untouched.
type OnTaskCancelledHandler func(userData any)
