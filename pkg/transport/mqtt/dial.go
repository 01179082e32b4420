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
package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Options describe how cmd/reporter opens its broker connection.
type Options struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	TLSConfig *tls.Config
	// ConnectTimeout of zero waits until ctx is done.
	ConnectTimeout time.Duration
}

// NewClientOptions translates Options into paho options with auto reconnect enabled.
func NewClientOptions(o Options, logger *zap.SugaredLogger) *MQTT.ClientOptions {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	opts := MQTT.NewClientOptions()
	opts.AddBroker(o.BrokerURL)
	opts.SetClientID(o.ClientID)
	if o.Username != "" {
		opts.SetUsername(o.Username)
	}
	if o.Password != "" {
		opts.SetPassword(o.Password)
	}
	if o.TLSConfig != nil {
		opts.SetTLSConfig(o.TLSConfig)
	}
	if o.ConnectTimeout > 0 {
		opts.SetConnectTimeout(o.ConnectTimeout)
	}

	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(c MQTT.Client) {
		r := c.OptionsReader()
		logger.Infof("Connected to MQTT broker as %s", r.ClientID())
	})
	opts.SetConnectionLostHandler(func(c MQTT.Client, err error) {
		logger.Warnf("Connection to MQTT broker lost: %v", err)
	})

	return opts
}

// Dial connects a new paho client. The caller owns the client and must Disconnect it.
func Dial(ctx context.Context, o Options, logger *zap.SugaredLogger) (MQTT.Client, error) {
	if o.BrokerURL == "" {
		return nil, errors.New("mqtt: broker url is required")
	}

	client := MQTT.NewClient(NewClientOptions(o, logger))
	token := client.Connect()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return nil, fmt.Errorf("mqtt: connect to %s: %w", o.BrokerURL, err)
		}
		return client, nil
	case <-ctx.Done():
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt: connect to %s: %w", o.BrokerURL, ctx.Err())
	}
}
