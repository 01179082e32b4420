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

import "errors"

// ErrorCode is the coarse error classification recorded by a task and returned by LastError.
type ErrorCode int

const (
	ErrorCodeNone ErrorCode = iota
	ErrorCodeUnsupportedReportFormat
	ErrorCodeInvalidPeriod
	ErrorCodeInvalidConnection
	ErrorCodeInvalidScheduler
	ErrorCodePublishFailure
	ErrorCodeEncodingFailure
	ErrorCodeSamplingFailure
	ErrorCodeAlreadyStopped
	// ErrorCodeUnknown is recorded for errors that carry none of the sentinels below.
	ErrorCodeUnknown
)

var (
	ErrUnsupportedReportFormat = errors.New("defender: unsupported report format")
	ErrInvalidPeriod           = errors.New("defender: invalid period")
	ErrInvalidConnection       = errors.New("defender: invalid connection")
	ErrInvalidScheduler        = errors.New("defender: invalid scheduler")
	ErrPublishFailure          = errors.New("defender: publish failed")
	ErrEncodingFailure         = errors.New("defender: encoding failed")
	ErrSamplingFailure         = errors.New("defender: sampling failed")
	ErrAlreadyStopped          = errors.New("defender: task already stopped")
)

var codes = []struct {
	err  error
	code ErrorCode
}{
	{ErrUnsupportedReportFormat, ErrorCodeUnsupportedReportFormat},
	{ErrInvalidPeriod, ErrorCodeInvalidPeriod},
	{ErrInvalidConnection, ErrorCodeInvalidConnection},
	{ErrInvalidScheduler, ErrorCodeInvalidScheduler},
	{ErrPublishFailure, ErrorCodePublishFailure},
	{ErrEncodingFailure, ErrorCodeEncodingFailure},
	{ErrSamplingFailure, ErrorCodeSamplingFailure},
	{ErrAlreadyStopped, ErrorCodeAlreadyStopped},
}

// CodeOf maps err to its ErrorCode. nil maps to ErrorCodeNone.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrorCodeNone
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ErrorCodeUnknown
}

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeNone:
		return "none"
	case ErrorCodeUnsupportedReportFormat:
		return "unsupported_report_format"
	case ErrorCodeInvalidPeriod:
		return "invalid_period"
	case ErrorCodeInvalidConnection:
		return "invalid_connection"
	case ErrorCodeInvalidScheduler:
		return "invalid_scheduler"
	case ErrorCodePublishFailure:
		return "publish_failure"
	case ErrorCodeEncodingFailure:
		return "encoding_failure"
	case ErrorCodeSamplingFailure:
		return "sampling_failure"
	case ErrorCodeAlreadyStopped:
		return "already_stopped"
	default:
		return "unknown"
	}
}
