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
// Package defender runs periodic device health reports in the Device Defender V1 layout.
//
// A ReportTask is built by a ReportTaskBuilder, validated when it is started and then driven by a
// borrowed Scheduler. A report timer fires once per task period and assembles, encodes and
// publishes a report over a borrowed Connection. When the sample period is shorter, a second timer
// samples the network connections of the device in between.
//
// Lifecycle:
//
//	ready --start--> running --stop--> stopped
//
// Stopped is terminal. Leaving running (by StopTask, a fatal cycle error or the scheduler shutting
// down) invokes the cancellation handler exactly once with the configured user data, and then
// closes Done. The transition happens on the scheduler goroutine after both timers are released.
package defender
