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
package mqtt_test

import (
	"context"
	"errors"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/united-manufacturing-hub/fleet-reporter/pkg/backoff"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/transport/mqtt"
)

var _ = Describe("Connection", func() {
	var (
		client *fakeClient
		conn   *mqtt.Connection
	)

	BeforeEach(func() {
		client = &fakeClient{open: true}
		conn = mqtt.NewConnection(client,
			mqtt.WithPublishTimeout(20*time.Millisecond),
			mqtt.WithLogger(zaptest.NewLogger(GinkgoT()).Sugar()))
	})

	It("should publish with QoS 1 and without retain", func() {
		Expect(conn.Publish(context.Background(), "a/b", []byte("{}"))).To(Succeed())

		Expect(client.messages()).To(ConsistOf(published{topic: "a/b", qos: 1, payload: []byte("{}")}))
	})

	It("should honour a custom QoS", func() {
		conn = mqtt.NewConnection(client, mqtt.WithQoS(0))
		Expect(conn.Publish(context.Background(), "a/b", []byte("x"))).To(Succeed())
		Expect(client.messages()[0].qos).To(Equal(byte(0)))
	})

	It("should report the connection state of the client", func() {
		Expect(conn.IsConnected()).To(BeTrue())
		client.Disconnect(0)
		Expect(conn.IsConnected()).To(BeFalse())
		Expect(mqtt.NewConnection(nil).IsConnected()).To(BeFalse())
	})

	It("should return a transient error while disconnected without publishing", func() {
		client.Disconnect(0)

		err := conn.Publish(context.Background(), "a/b", nil)
		Expect(err).To(MatchError(mqtt.ErrNotConnected))
		Expect(backoff.IsTransientError(err)).To(BeTrue())
		Expect(client.messages()).To(BeEmpty())
	})

	It("should return a transient error when the broker does not acknowledge in time", func() {
		client.hang = true

		err := conn.Publish(context.Background(), "a/b", nil)
		Expect(err).To(MatchError(mqtt.ErrPublishTimeout))
		Expect(backoff.IsTransientError(err)).To(BeTrue())
	})

	It("should return a transient error when the context is cancelled", func() {
		client.hang = true
		conn = mqtt.NewConnection(client, mqtt.WithPublishTimeout(time.Hour))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := conn.Publish(ctx, "a/b", nil)
		Expect(err).To(MatchError(context.Canceled))
		Expect(backoff.IsTransientError(err)).To(BeTrue())
	})

	It("should classify a lost connection during publish as transient", func() {
		client.publishErr = MQTT.ErrNotConnected

		err := conn.Publish(context.Background(), "a/b", nil)
		Expect(err).To(MatchError(mqtt.ErrNotConnected))
		Expect(backoff.IsTransientError(err)).To(BeTrue())
	})

	It("should classify other broker errors as permanent", func() {
		client.publishErr = errors.New("not authorized") //nolint:err113

		err := conn.Publish(context.Background(), "a/b", nil)
		Expect(err).To(MatchError(ContainSubstring("not authorized")))
		Expect(backoff.IsPermanentError(err)).To(BeTrue())
	})
})

var _ = Describe("Dial", func() {
	It("should translate options into paho client options", func() {
		opts := mqtt.NewClientOptions(mqtt.Options{
			BrokerURL:      "tcp://broker:1883",
			ClientID:       "reporter-1",
			Username:       "user",
			Password:       "secret",
			ConnectTimeout: 2 * time.Second,
		}, nil)

		Expect(opts.Servers).To(HaveLen(1))
		Expect(opts.Servers[0].String()).To(Equal("tcp://broker:1883"))
		Expect(opts.ClientID).To(Equal("reporter-1"))
		Expect(opts.Username).To(Equal("user"))
		Expect(opts.Password).To(Equal("secret"))
		Expect(opts.ConnectTimeout).To(Equal(2 * time.Second))
		Expect(opts.AutoReconnect).To(BeTrue())
	})

	It("should log the client id once connected", func() {
		core, logs := observer.New(zap.InfoLevel)
		opts := mqtt.NewClientOptions(mqtt.Options{
			BrokerURL: "tcp://broker:1883",
			ClientID:  "reporter-1",
		}, zap.New(core).Sugar())

		opts.OnConnect(&fakeClient{open: true, opts: opts})

		Expect(logs.FilterMessage("Connected to MQTT broker as reporter-1").Len()).To(Equal(1))
	})

	It("should require a broker url", func() {
		_, err := mqtt.Dial(context.Background(), mqtt.Options{}, nil)
		Expect(err).To(MatchError(ContainSubstring("broker url is required")))
	})
})
