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

// TaskStatus is the lifecycle state of a ReportTask.
type TaskStatus int

const (
	StatusReady TaskStatus = iota
	StatusRunning
	StatusStopped
)

// fsm state and event names
const (
	stateReady   = "ready"
	stateRunning = "running"
	stateStopped = "stopped"

	eventStart = "start"
	eventStop  = "stop"
)

func (s TaskStatus) String() string {
	switch s {
	case StatusReady:
		return stateReady
	case StatusRunning:
		return stateRunning
	case StatusStopped:
		return stateStopped
	default:
		return "unknown"
	}
}

func statusFromState(state string) TaskStatus {
	switch state {
	case stateRunning:
		return StatusRunning
	case stateStopped:
		return StatusStopped
	default:
		return StatusReady
	}
}
