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

package sentry

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

type IssueType string

const (
	IssueTypeWarning IssueType = "warning"
	IssueTypeError   IssueType = "error"
	IssueTypeFatal   IssueType = "fatal"
)

const debounceWindow = 2 * time.Hour

// ReportIssue logs err and forwards it to Sentry. Fatal issues panic after reporting.
func ReportIssue(err error, issueType IssueType, log *zap.SugaredLogger) {
	ReportIssueWithContext(err, issueType, log, nil)
}

func ReportIssuef(issueType IssueType, log *zap.SugaredLogger, template string, args ...interface{}) {
	ReportIssue(fmt.Errorf(template, args...), issueType, log)
}

// ReportIssueWithContext reports an issue with additional context data that will be attached as tags.
func ReportIssueWithContext(err error, issueType IssueType, log *zap.SugaredLogger, context map[string]interface{}) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	switch issueType {
	case IssueTypeFatal:
		log.Errorf("Fatal error: %s", err)
		log.Errorf("Stack trace: %s", string(debug.Stack()))
		sendSentryEvent(createSentryEvent(sentry.LevelFatal, err, context))
		sentry.Flush(5 * time.Second)
		log.Panic("Fatal error")
	case IssueTypeError:
		log.Error(err)
		if errorDebounce.allow() {
			sendSentryEvent(createSentryEvent(sentry.LevelError, err, context))
		}
	case IssueTypeWarning:
		log.Warn(err)
		if warningDebounce.allow() {
			sendSentryEvent(createSentryEvent(sentry.LevelWarning, err, context))
		}
	}
}

// ReportTaskError reports a report task failure with the task identity as context.
func ReportTaskError(log *zap.SugaredLogger, taskID string, thingName string, operation string, err error) {
	ReportIssueWithContext(err, IssueTypeError, log, map[string]interface{}{
		"task_id":    taskID,
		"thing_name": thingName,
		"operation":  operation,
	})
}

// debouncer lets one event per window through to Sentry; local logging is never debounced.
type debouncer struct {
	mu       sync.Mutex
	lastSent time.Time
}

var (
	errorDebounce   debouncer
	warningDebounce debouncer
)

func (d *debouncer) allow() bool {
	if !shouldDebounceErrors {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.lastSent.IsZero() && time.Since(d.lastSent) < debounceWindow {
		return false
	}
	d.lastSent = time.Now()

	return true
}
