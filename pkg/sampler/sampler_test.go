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
package sampler

import (
	"context"
	"runtime"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shirou/gopsutil/v3/net"
	"go.uber.org/zap/zaptest"

	"github.com/united-manufacturing-hub/fleet-reporter/pkg/report"
)

var _ = Describe("Sampler", func() {
	var index map[string]string

	BeforeEach(func() {
		index = interfaceIndex(net.InterfaceStatList{
			{Name: "eth0", Addrs: net.InterfaceAddrList{{Addr: "10.0.0.5/24"}, {Addr: "fe80::1/64"}}},
			{Name: "lo", Addrs: net.InterfaceAddrList{{Addr: "127.0.0.1/8"}}},
		})
	})

	It("should index interface addresses without their prefix length", func() {
		Expect(index).To(HaveKeyWithValue("10.0.0.5", "eth0"))
		Expect(index).To(HaveKeyWithValue("fe80::1", "eth0"))
		Expect(index).To(HaveKeyWithValue("127.0.0.1", "lo"))
	})

	It("should report deduplicated listening tcp ports", func() {
		stats := []net.ConnectionStat{
			{Status: "LISTEN", Laddr: net.Addr{IP: "10.0.0.5", Port: 22}},
			{Status: "LISTEN", Laddr: net.Addr{IP: "10.0.0.5", Port: 22}},
			{Status: "LISTEN", Laddr: net.Addr{IP: "0.0.0.0", Port: 8080}},
			{Status: "ESTABLISHED", Laddr: net.Addr{IP: "10.0.0.5", Port: 22}, Raddr: net.Addr{IP: "10.0.0.9", Port: 40000}},
		}

		Expect(listeningTCPPorts(stats, index)).To(ConsistOf(
			report.Port{Interface: "eth0", Port: 22},
			report.Port{Port: 8080},
		))
	})

	It("should treat bound unconnected udp sockets as listening", func() {
		stats := []net.ConnectionStat{
			{Laddr: net.Addr{IP: "0.0.0.0", Port: 53}},
			{Laddr: net.Addr{IP: "10.0.0.5", Port: 5353}, Raddr: net.Addr{IP: "10.0.0.1", Port: 53}},
			{Laddr: net.Addr{IP: "10.0.0.5"}},
		}

		Expect(listeningUDPPorts(stats, index)).To(ConsistOf(report.Port{Port: 53}))
	})

	It("should format established connections with their remote address", func() {
		stats := []net.ConnectionStat{
			{Status: "ESTABLISHED", Laddr: net.Addr{IP: "10.0.0.5", Port: 443}, Raddr: net.Addr{IP: "10.0.0.9", Port: 51000}},
			{Status: "ESTABLISHED", Laddr: net.Addr{IP: "fe80::1", Port: 443}, Raddr: net.Addr{IP: "fe80::2", Port: 51001}},
			{Status: "TIME_WAIT", Laddr: net.Addr{IP: "10.0.0.5", Port: 443}, Raddr: net.Addr{IP: "10.0.0.7", Port: 1}},
		}

		Expect(establishedConnections(stats, index)).To(Equal([]report.Connection{
			{LocalInterface: "eth0", LocalPort: 443, RemoteAddr: "10.0.0.9:51000"},
			{LocalInterface: "eth0", LocalPort: 443, RemoteAddr: "[fe80::2]:51001"},
		}))
	})

	It("should sum counters of all interfaces except loopback", func() {
		stats := sumCounters([]net.IOCountersStat{
			{Name: "eth0", BytesRecv: 100, BytesSent: 50, PacketsRecv: 4, PacketsSent: 2},
			{Name: "wlan0", BytesRecv: 1, BytesSent: 1, PacketsRecv: 1, PacketsSent: 1},
			{Name: "lo", BytesRecv: 1000, BytesSent: 1000, PacketsRecv: 1000, PacketsSent: 1000},
		})

		Expect(stats).To(Equal(report.NetworkStats{BytesIn: 101, BytesOut: 51, PacketsIn: 5, PacketsOut: 3}))
	})

	It("should read the host counters on linux", func() {
		if runtime.GOOS != "linux" {
			Skip("host counters are only read from procfs on linux")
		}

		s := New(zaptest.NewLogger(GinkgoT()).Sugar())
		_, err := s.NetworkStats(context.Background())
		Expect(err).NotTo(HaveOccurred())
	})
})
