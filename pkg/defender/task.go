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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/fleet-reporter/pkg/backoff"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/constants"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/metrics"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/sentry"
)

// noCopy makes go vet's copylocks check flag copies of a ReportTask.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// ReportTask publishes device health reports periodically. Use NewReportTaskBuilder to create one.
// All methods are safe for concurrent use.
type ReportTask struct {
	noCopy noCopy

	id     string
	cfg    TaskConfig
	topic  string
	logger *zap.SugaredLogger

	// fsm is the finite state machine of the task (ready, running, stopped)
	fsm *fsm.FSM

	// mu protects the fields below and serializes transitions
	mu            sync.Mutex
	handles       []TimerHandle
	live          int
	generation    uint64
	stopRequested bool
	lastErr       error

	cycle *cycle

	cancelOnce sync.Once
	done       chan struct{}
}

func newReportTask(cfg TaskConfig) *ReportTask {
	id := uuid.NewString()

	t := &ReportTask{
		id:     id,
		cfg:    cfg,
		topic:  fmt.Sprintf(constants.ReportTopicTemplate, cfg.ThingName, cfg.ReportFormat.TopicSuffix()),
		logger: cfg.Logger.With("task", id, "thing", cfg.ThingName),
		cycle:  newCycle(),
		done:   make(chan struct{}),
	}

	t.fsm = fsm.NewFSM(
		stateReady,
		fsm.Events{
			{Name: eventStart, Src: []string{stateReady}, Dst: stateRunning},
			{Name: eventStop, Src: []string{stateRunning}, Dst: stateStopped},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				t.logger.Debugf("Task %s: %s -> %s", t.id, e.Src, e.Dst)
				metrics.UpdateTaskStatus(t.cfg.ThingName, e.Dst)
			},
		},
	)
	metrics.UpdateTaskStatus(cfg.ThingName, stateReady)

	return t
}

// ID returns the unique identity of this task.
func (t *ReportTask) ID() string { return t.id }

// ThingName returns the device name the reports are published for.
func (t *ReportTask) ThingName() string { return t.cfg.ThingName }

// Config returns a copy of the configuration the task was built with.
func (t *ReportTask) Config() TaskConfig { return t.cfg }

// StartTask validates the configuration and registers the recurring timers: a report timer at the
// task period and, when the sample period is shorter, a sample timer at the sample period. On a
// validation error the task stays ready, no timer is left registered and the error is recorded.
// Starting a running task does nothing and returns nil; starting a stopped task returns
// ErrAlreadyStopped.
func (t *ReportTask) StartTask() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.fsm.Current() {
	case stateRunning:
		return nil
	case stateStopped:
		return t.recordLocked(ErrAlreadyStopped)
	}

	if err := t.validate(); err != nil {
		t.logger.Warnf("Failed to start task: %v", err)
		return t.recordLocked(err)
	}

	handles, err := t.scheduleLocked()
	if err != nil {
		t.logger.Warnf("Failed to register timers: %v", err)
		return t.recordLocked(fmt.Errorf("%w: %w", ErrInvalidScheduler, err))
	}
	t.handles = handles
	t.live = len(handles)

	if err := t.fsm.Event(context.Background(), eventStart); err != nil {
		// unreachable while mu serializes transitions
		t.cancelTimers(handles)
		return t.recordLocked(fmt.Errorf("defender: start transition: %w", err))
	}

	t.logger.Infof("Task started, publishing to %s every %s (sampling every %s)",
		t.topic, t.cfg.TaskPeriod, t.cfg.NetworkConnectionSamplePeriod)

	return nil
}

// scheduleLocked registers the timers of one start attempt. Callbacks of an attempt that failed
// halfway carry a stale generation and are ignored.
func (t *ReportTask) scheduleLocked() ([]TimerHandle, error) {
	t.generation++
	gen := t.generation
	onCancelled := func() { t.onTimerCancelled(gen) }

	handles := make([]TimerHandle, 0, 2)
	if t.cfg.needsSampleTimer() {
		h, err := t.cfg.Scheduler.ScheduleRecurring(t.cfg.NetworkConnectionSamplePeriod, t.sampleTick, onCancelled)
		if err != nil {
			return nil, fmt.Errorf("sample timer: %w", err)
		}
		handles = append(handles, h)
	}

	h, err := t.cfg.Scheduler.ScheduleRecurring(t.cfg.TaskPeriod, t.reportTick, onCancelled)
	if err != nil {
		t.cancelTimers(handles)
		return nil, fmt.Errorf("report timer: %w", err)
	}

	return append(handles, h), nil
}

func (t *ReportTask) cancelTimers(handles []TimerHandle) {
	for _, h := range handles {
		t.cfg.Scheduler.Cancel(h)
	}
}

// validate checks the configuration in a fixed order, the first failure wins.
func (t *ReportTask) validate() error {
	cfg := t.cfg

	if cfg.Encoder == nil || !cfg.Encoder.Supports(cfg.ReportFormat) {
		return fmt.Errorf("%w: %s", ErrUnsupportedReportFormat, cfg.ReportFormat)
	}
	if cfg.TaskPeriod <= 0 || cfg.NetworkConnectionSamplePeriod <= 0 {
		return fmt.Errorf("%w: task period %s, sample period %s",
			ErrInvalidPeriod, cfg.TaskPeriod, cfg.NetworkConnectionSamplePeriod)
	}
	if cfg.NetworkConnectionSamplePeriod > cfg.TaskPeriod {
		return fmt.Errorf("%w: sample period %s exceeds task period %s",
			ErrInvalidPeriod, cfg.NetworkConnectionSamplePeriod, cfg.TaskPeriod)
	}
	if cfg.Connection == nil || !cfg.Connection.IsConnected() {
		return fmt.Errorf("%w: not connected", ErrInvalidConnection)
	}
	if cfg.Scheduler == nil || !cfg.Scheduler.IsRunning() {
		return fmt.Errorf("%w: not running", ErrInvalidScheduler)
	}
	if cfg.Sampler == nil {
		return fmt.Errorf("%w: no sampler", ErrSamplingFailure)
	}

	return nil
}

// StopTask asks the scheduler to cancel the timers and returns without waiting. The task becomes
// stopped and the cancellation handler runs on the scheduler goroutine once every timer is released.
// Stopping a ready or stopped task does nothing.
func (t *ReportTask) StopTask() {
	t.mu.Lock()
	if t.fsm.Current() != stateRunning || t.stopRequested {
		t.mu.Unlock()
		return
	}
	t.stopRequested = true
	handles := t.handles
	t.mu.Unlock()

	t.logger.Infof("Stopping task")
	t.cancelTimers(handles)
}

// Close stops the task and blocks until it is stopped or ctx is done. A task that never started
// returns immediately.
func (t *ReportTask) Close(ctx context.Context) error {
	t.StopTask()

	if t.GetStatus() == StatusReady {
		return nil
	}

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("defender: close task %s: %w", t.id, ctx.Err())
	}
}

// Done is closed once the task is stopped and its cancellation handler returned.
// It is never closed for a task that was not started.
func (t *ReportTask) Done() <-chan struct{} {
	return t.done
}

// GetStatus returns a snapshot of the lifecycle state. It may lag behind a stop that is in flight
// on the scheduler goroutine; wait on Done or the cancellation handler instead of polling.
func (t *ReportTask) GetStatus() TaskStatus {
	return statusFromState(t.fsm.Current())
}

// LastError returns the code of the most recent failure, ErrorCodeNone if nothing failed yet.
func (t *ReportTask) LastError() ErrorCode {
	return CodeOf(t.Err())
}

// Err returns the most recent failure with its details.
func (t *ReportTask) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

func (t *ReportTask) recordLocked(err error) error {
	t.lastErr = err
	return err
}

func (t *ReportTask) record(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recordLocked(err)
}

func (t *ReportTask) stopping() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopRequested
}

// sampleTick runs on the scheduler every sample period and only collects connection data.
func (t *ReportTask) sampleTick(ctx context.Context) {
	if t.stopping() {
		return
	}

	if err := t.cycle.collect(ctx, t.cfg.Sampler); err != nil {
		t.fail("sample", fmt.Errorf("%w: %w", ErrSamplingFailure, err))
		return
	}
	metrics.IncSamplesTaken(t.cfg.ThingName)
}

// reportTick runs on the scheduler every task period and publishes one report.
func (t *ReportTask) reportTick(ctx context.Context) {
	if t.stopping() {
		return
	}

	start := time.Now()

	r, sampled, err := t.cycle.assemble(ctx, t.cfg.Sampler)
	if sampled {
		metrics.IncSamplesTaken(t.cfg.ThingName)
	}
	if err != nil {
		t.fail("sample", fmt.Errorf("%w: %w", ErrSamplingFailure, err))
		return
	}

	payload, err := t.cfg.Encoder.Encode(t.cfg.ReportFormat, r)
	if err != nil {
		t.fail("encode", fmt.Errorf("%w: %w", ErrEncodingFailure, err))
		return
	}

	if err := t.cfg.Connection.Publish(ctx, t.topic, payload); err != nil {
		t.handlePublishError(err, r.Header.ReportID)
		return
	}

	metrics.IncReportsPublished(t.cfg.ThingName)
	metrics.ObserveCycleTime(t.cfg.ThingName, time.Since(start))
	t.logger.Debugf("Published report %d (%d bytes)", r.Header.ReportID, len(payload))
}

func (t *ReportTask) handlePublishError(err error, reportID uint64) {
	category := backoff.CategoryOf(err)
	metrics.IncPublishErrors(t.cfg.ThingName, category.String())

	switch category {
	case backoff.CategoryIgnored:
		t.logger.Debugf("Ignoring publish error for report %d: %v", reportID, err)
	case backoff.CategoryTransient:
		t.logger.Warnf("Dropping report %d, publish failed: %v", reportID, err)
		t.record(fmt.Errorf("%w: %w", ErrPublishFailure, err))
	default:
		t.fail("publish", fmt.Errorf("%w: %w", ErrPublishFailure, err))
	}
}

// fail records err and cancels the timers. The error is recorded before the transition so it is
// visible from the cancellation handler.
func (t *ReportTask) fail(operation string, err error) {
	t.mu.Lock()
	t.recordLocked(err)
	if t.stopRequested {
		t.mu.Unlock()
		return
	}
	t.stopRequested = true
	handles := t.handles
	t.mu.Unlock()

	metrics.IncTaskFailures(t.cfg.ThingName, CodeOf(err).String())
	sentry.ReportTaskError(t.logger, t.id, t.cfg.ThingName, operation, err)

	t.cancelTimers(handles)
}

// onTimerCancelled runs on the scheduler goroutine after the last tick of one timer. When the
// last timer of the task is released it moves the task to stopped, then invokes the cancellation
// handler and closes done, exactly once.
func (t *ReportTask) onTimerCancelled(gen uint64) {
	t.mu.Lock()
	if gen != t.generation || t.fsm.Current() != stateRunning {
		t.mu.Unlock()
		return
	}
	t.stopRequested = true
	t.live--
	if t.live > 0 {
		// released by the scheduler alone, the other timers must follow
		handles := t.handles
		t.mu.Unlock()
		t.cancelTimers(handles)
		return
	}
	err := t.fsm.Event(context.Background(), eventStop)
	t.handles = nil
	t.mu.Unlock()

	var invalid fsm.InvalidEventError
	if err != nil && !errors.As(err, &invalid) {
		t.logger.Errorf("Failed to stop task: %v", err)
	}
	if t.fsm.Current() != stateStopped {
		return
	}

	t.cancelOnce.Do(func() {
		defer close(t.done)

		t.logger.Infof("Task stopped")
		if t.cfg.OnTaskCancelled != nil {
			t.cfg.OnTaskCancelled(t.cfg.CancellationUserData)
		}
	})
}
