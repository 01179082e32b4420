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
// Package mqtt publishes reports over an MQTT broker connection using the paho client.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/fleet-reporter/pkg/backoff"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/constants"
)

var (
	// ErrNotConnected is returned by Publish while the broker connection is down.
	ErrNotConnected = errors.New("mqtt: not connected")
	// ErrPublishTimeout is returned when the broker did not acknowledge a publish in time.
	ErrPublishTimeout = errors.New("mqtt: publish timed out")
)

// Connection wraps a paho client owned by the caller. It never connects or disconnects the client.
type Connection struct {
	client  MQTT.Client
	qos     byte
	timeout time.Duration
	logger  *zap.SugaredLogger
}

type Option func(*Connection)

func WithQoS(qos byte) Option {
	return func(c *Connection) { c.qos = qos }
}

func WithPublishTimeout(timeout time.Duration) Option {
	return func(c *Connection) { c.timeout = timeout }
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(c *Connection) { c.logger = logger }
}

// NewConnection wraps client. Defaults: QoS 1, constants.PublishTimeout.
func NewConnection(client MQTT.Client, opts ...Option) *Connection {
	c := &Connection{
		client:  client,
		qos:     constants.PublishQoS,
		timeout: constants.PublishTimeout,
		logger:  zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsConnected reports whether the underlying client has an open connection.
// A client that is reconnecting counts as disconnected.
func (c *Connection) IsConnected() bool {
	return c != nil && c.client != nil && c.client.IsConnectionOpen()
}

// Publish sends payload to topic and waits for the broker acknowledgement.
// A closed connection, a timeout and a cancelled ctx are transient; broker rejections are permanent.
func (c *Connection) Publish(ctx context.Context, topic string, payload []byte) error {
	if !c.IsConnected() {
		return backoff.NewTransientError(ErrNotConnected)
	}

	token := c.client.Publish(topic, c.qos, false, payload)

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		err := token.Error()
		switch {
		case err == nil:
			c.logger.Debugf("Published %d bytes to %s", len(payload), topic)
			return nil
		case errors.Is(err, MQTT.ErrNotConnected):
			return backoff.NewTransientError(fmt.Errorf("%w: %w", ErrNotConnected, err))
		default:
			return backoff.NewPermanentError(fmt.Errorf("mqtt: publish to %s: %w", topic, err))
		}
	case <-timer.C:
		return backoff.NewTransientError(fmt.Errorf("%w after %s", ErrPublishTimeout, c.timeout))
	case <-ctx.Done():
		return backoff.NewTransientError(ctx.Err())
	}
}
