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

package report

import (
	"fmt"
	"strings"
)

// Format is the wire encoding of a report. The set is closed; not every member is implemented
// by every Encoder, which is checked when a task starts.
type Format int

const (
	// FormatJSON is the verbose JSON layout with full key names.
	FormatJSON Format = iota
	// FormatShortJSON uses abbreviated key names.
	FormatShortJSON
	// FormatCBOR is the binary CBOR encoding.
	FormatCBOR
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatShortJSON:
		return "short_json"
	case FormatCBOR:
		return "cbor"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// TopicSuffix is the last segment of the publish topic for this format.
// Both JSON layouts share the json topic.
func (f Format) TopicSuffix() string {
	if f == FormatCBOR {
		return "cbor"
	}
	return "json"
}

// ParseFormat converts a configuration string into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "short_json", "short-json":
		return FormatShortJSON, nil
	case "cbor":
		return FormatCBOR, nil
	default:
		return 0, fmt.Errorf("unknown report format %q", s)
	}
}
