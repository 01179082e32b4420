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
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeClient implements MQTT.Client; Publish returns tokens completed with publishErr
// unless hang is set.
type fakeClient struct {
	mu         sync.Mutex
	open       bool
	hang       bool
	publishErr error
	published  []published
	opts       *MQTT.ClientOptions
}

func (f *fakeClient) IsConnected() bool { return f.IsConnectionOpen() }

func (f *fakeClient) IsConnectionOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeClient) Connect() MQTT.Token { return doneToken(nil) }

func (f *fakeClient) Disconnect(uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
}

func (f *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) MQTT.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, _ := payload.([]byte)
	f.published = append(f.published, published{topic: topic, qos: qos, payload: b})
	if f.hang {
		return &fakeToken{done: make(chan struct{})}
	}
	return doneToken(f.publishErr)
}

func (f *fakeClient) Subscribe(string, byte, MQTT.MessageHandler) MQTT.Token { return doneToken(nil) }

func (f *fakeClient) SubscribeMultiple(map[string]byte, MQTT.MessageHandler) MQTT.Token {
	return doneToken(nil)
}

func (f *fakeClient) Unsubscribe(...string) MQTT.Token { return doneToken(nil) }

func (f *fakeClient) AddRoute(string, MQTT.MessageHandler) {}

func (f *fakeClient) OptionsReader() MQTT.ClientOptionsReader {
	if f.opts == nil {
		f.opts = MQTT.NewClientOptions()
	}
	return MQTT.NewClient(f.opts).OptionsReader()
}

func (f *fakeClient) messages() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.published...)
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func doneToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }

func (t *fakeToken) Error() error { return t.err }
