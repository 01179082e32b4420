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
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrUnsupportedFormat is returned by Encode for formats the encoder does not implement.
var ErrUnsupportedFormat = errors.New("report: unsupported format")

// JSONEncoder encodes reports in the verbose JSON layout.
// Short JSON and CBOR are not implemented.
type JSONEncoder struct{}

// NewEncoder returns the default report encoder.
func NewEncoder() *JSONEncoder {
	return &JSONEncoder{}
}

// Supports reports whether f can be encoded.
func (e *JSONEncoder) Supports(f Format) bool {
	return f == FormatJSON
}

// Encode serializes r in format f.
func (e *JSONEncoder) Encode(f Format, r *Report) ([]byte, error) {
	if !e.Supports(f) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	if r == nil {
		return nil, errors.New("report: nil report")
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("report: marshal %s: %w", f, err)
	}

	return payload, nil
}
