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
package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap/zaptest"

	"github.com/united-manufacturing-hub/fleet-reporter/pkg/config"
)

const sampleConfig = `
thingName: press-07
broker:
  url: tcp://broker:1883
  clientID: reporter-press-07
report:
  format: json
  taskPeriodSeconds: 60
  samplePeriodSeconds: 10
metricsPort: 9000
`

var _ = Describe("Config", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		for _, key := range []string{
			"THING_NAME", "BROKER_URL", "MQTT_CLIENT_ID", "MQTT_USERNAME", "MQTT_PASSWORD",
			"REPORT_FORMAT", "SENTRY_DSN", "TASK_PERIOD_SECONDS", "SAMPLE_PERIOD_SECONDS",
			"MQTT_CONNECT_TIMEOUT_SECONDS", "METRICS_PORT",
		} {
			GinkgoT().Setenv(key, "")
		}
	})

	write := func(content string) string {
		path := filepath.Join(dir, "reporter.yaml")
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		return path
	}

	It("should return the defaults when the file does not exist", func() {
		cfg, err := config.ParseFile(filepath.Join(dir, "missing.yaml"))

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.Default()))
		Expect(cfg.Report.TaskPeriodSeconds).To(Equal(uint64(300)))
		Expect(cfg.Report.SamplePeriodSeconds).To(Equal(uint64(300)))
		Expect(cfg.MetricsPort).To(Equal(8081))
	})

	It("should read the file on top of the defaults", func() {
		cfg, err := config.ParseFile(write(sampleConfig))

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.ThingName).To(Equal("press-07"))
		Expect(cfg.Broker.URL).To(Equal("tcp://broker:1883"))
		Expect(cfg.Broker.ConnectTimeoutSeconds).To(Equal(uint64(30)))
		Expect(cfg.Report.TaskPeriodSeconds).To(Equal(uint64(60)))
		Expect(cfg.Report.SamplePeriodSeconds).To(Equal(uint64(10)))
		Expect(cfg.MetricsPort).To(Equal(9000))
		Expect(cfg.Validate()).To(Succeed())
	})

	It("should reject unknown keys", func() {
		_, err := config.ParseFile(write("thingName: a\nperiod: 5\n"))
		Expect(err).To(MatchError(ContainSubstring("period")))
	})

	It("should let environment variables win over the file", func() {
		GinkgoT().Setenv("THING_NAME", "press-08")
		GinkgoT().Setenv("TASK_PERIOD_SECONDS", "120")
		GinkgoT().Setenv("METRICS_PORT", "9100")

		cfg, err := config.Load(write(sampleConfig), zaptest.NewLogger(GinkgoT()).Sugar())

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.ThingName).To(Equal("press-08"))
		Expect(cfg.Report.TaskPeriodSeconds).To(Equal(uint64(120)))
		Expect(cfg.Report.SamplePeriodSeconds).To(Equal(uint64(10)))
		Expect(cfg.MetricsPort).To(Equal(9100))
	})

	It("should keep the file value when an override is malformed", func() {
		GinkgoT().Setenv("SAMPLE_PERIOD_SECONDS", "-5")

		cfg, err := config.Load(write(sampleConfig), zaptest.NewLogger(GinkgoT()).Sugar())

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Report.SamplePeriodSeconds).To(Equal(uint64(10)))
	})

	It("should accept zero periods and leave them to the task", func() {
		GinkgoT().Setenv("TASK_PERIOD_SECONDS", "0")

		cfg, err := config.Load(write(sampleConfig), nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Report.TaskPeriodSeconds).To(BeZero())
		Expect(cfg.Validate()).To(Succeed())
	})

	It("should report every missing required field", func() {
		err := config.Default().Validate()

		Expect(err).To(MatchError(ContainSubstring("thingName is required")))
		Expect(err).To(MatchError(ContainSubstring("broker.url is required")))
		Expect(err).To(MatchError(ContainSubstring("broker.clientID is required")))
	})

	It("should reject an unknown report format", func() {
		cfg, err := config.ParseFile(write(sampleConfig))
		Expect(err).NotTo(HaveOccurred())

		cfg.Report.Format = "xml"
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("unknown report format")))
	})
})
