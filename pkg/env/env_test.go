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
package env_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/fleet-reporter/pkg/env"
)

var _ = Describe("Env", func() {
	const key = "FLEET_REPORTER_TEST_VALUE"

	BeforeEach(func() {
		GinkgoT().Setenv(key, "")
	})

	Context("GetAsString", func() {
		It("should fall back to the default when unset", func() {
			Expect(env.GetAsString(key, false, "fallback")).To(Equal("fallback"))
		})

		It("should fail when a required value is unset", func() {
			_, err := env.GetAsString(key, true, "")
			Expect(err).To(MatchError(ContainSubstring(key)))
		})
	})

	Context("GetAsUint64", func() {
		It("should parse unsigned values", func() {
			GinkgoT().Setenv(key, "300")
			Expect(env.GetAsUint64(key, false, 1)).To(Equal(uint64(300)))
		})

		It("should return the default for malformed optional values", func() {
			GinkgoT().Setenv(key, "-1")
			Expect(env.GetAsUint64(key, false, 7)).To(Equal(uint64(7)))
		})

		It("should fail for malformed required values", func() {
			GinkgoT().Setenv(key, "ten")
			_, err := env.GetAsUint64(key, true, 7)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("GetAsInt", func() {
		It("should parse integers", func() {
			GinkgoT().Setenv(key, "-4")
			Expect(env.GetAsInt(key, true, 0)).To(Equal(-4))
		})
	})

	Context("GetAsBool", func() {
		DescribeTable("should understand common spellings",
			func(value string, expected bool) {
				GinkgoT().Setenv(key, value)
				Expect(env.GetAsBool(key, true, !expected)).To(Equal(expected))
			},
			Entry("true", "true", true),
			Entry("yes", "YES", true),
			Entry("on", "on", true),
			Entry("zero", "0", false),
			Entry("off", "off", false),
		)

		It("should fail for unknown required values", func() {
			GinkgoT().Setenv(key, "maybe")
			_, err := env.GetAsBool(key, true, false)
			Expect(err).To(HaveOccurred())
		})
	})
})
