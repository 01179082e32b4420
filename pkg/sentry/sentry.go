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
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/fleet-reporter/pkg/constants"
)

var shouldDebounceErrors = true

// EnableTestMode disables debouncing for testing.
func EnableTestMode() {
	shouldDebounceErrors = false
}

// DisableTestMode restores normal debouncing behavior.
func DisableTestMode() {
	shouldDebounceErrors = true
}

// InitSentry initializes sentry for the given app version and DSN.
// Local builds (empty or default version) and an empty DSN leave sentry disabled.
func InitSentry(appVersion string, dsn string, debounceErrors bool) {
	shouldDebounceErrors = debounceErrors

	if appVersion == "" || appVersion == constants.DefaultAppVersion || dsn == "" {
		zap.S().Debug("Sentry disabled for local development build")

		return
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environmentFor(appVersion),
		Release:     "fleet-reporter@" + appVersion,
	})
	if err != nil {
		zap.S().Errorf("Failed to initialize Sentry: %s", err)

		return
	}
}

// environmentFor maps release versions to production and prereleases to development.
func environmentFor(appVersion string) string {
	version, err := semver.NewVersion(appVersion)
	if err != nil {
		zap.S().Errorf("Failed to parse app version, using default environment (development): %s", err)

		return constants.DefaultDevelopmentEnvironment
	}

	if version.Prerelease() == "" {
		return constants.DefaultProductionEnvironment
	}

	return constants.DefaultDevelopmentEnvironment
}

func getMeaningfulErrorTitle(err error) string {
	message := err.Error()

	// first sentence or phrase, until period, comma or colon
	idx := strings.IndexAny(message, ".,:")
	if idx > 0 {
		message = message[:idx]
	}

	if len(message) > 100 {
		message = message[:97] + "..."
	}

	return message
}

func createSentryEvent(level sentry.Level, err error, context map[string]interface{}) *sentry.Event {
	event := sentry.NewEvent()
	event.Level = level
	event.Message = err.Error()
	event.Exception = []sentry.Exception{{
		Type:       getMeaningfulErrorTitle(err),
		Value:      err.Error(),
		Stacktrace: sentry.ExtractStacktrace(err),
	}}
	event.Fingerprint = []string{"{{ default }}", "level: " + string(level)}

	for key, value := range context {
		switch v := value.(type) {
		case string:
			if event.Tags == nil {
				event.Tags = make(map[string]string)
			}
			event.Tags[key] = v
		default:
			if event.Extra == nil {
				event.Extra = make(map[string]interface{})
			}
			event.Extra[key] = v
		}

		if key == "operation" {
			event.Fingerprint = append(event.Fingerprint, fmt.Sprintf("operation: %v", value))
		}
	}

	return event
}

func sendSentryEvent(event *sentry.Event) {
	hub := sentry.CurrentHub()
	if hub == nil || hub.Client() == nil {
		return
	}
	hub.CaptureEvent(event)
}
