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
	"sort"
	"time"

	"github.com/united-manufacturing-hub/fleet-reporter/pkg/constants"
)

// Report is one device metrics report in the Device Defender V1 layout.
type Report struct {
	Header  Header  `json:"header"`
	Metrics Metrics `json:"metrics"`
}

type Header struct {
	ReportID uint64 `json:"report_id"`
	Version  string `json:"version"`
}

type Metrics struct {
	ListeningTCPPorts *PortList       `json:"listening_tcp_ports,omitempty"`
	ListeningUDPPorts *PortList       `json:"listening_udp_ports,omitempty"`
	NetworkStats      *NetworkStats   `json:"network_stats,omitempty"`
	TCPConnections    *TCPConnections `json:"tcp_connections,omitempty"`
}

type PortList struct {
	Ports []Port `json:"ports"`
	Total int    `json:"total"`
}

type Port struct {
	Interface string `json:"interface,omitempty"`
	Port      uint32 `json:"port"`
}

// NetworkStats holds traffic counters. In a report they are deltas since the previous report.
type NetworkStats struct {
	BytesIn    uint64 `json:"bytes_in"`
	BytesOut   uint64 `json:"bytes_out"`
	PacketsIn  uint64 `json:"packets_in"`
	PacketsOut uint64 `json:"packets_out"`
}

type TCPConnections struct {
	EstablishedConnections EstablishedConnections `json:"established_connections"`
}

type EstablishedConnections struct {
	Connections []Connection `json:"connections"`
	Total       int          `json:"total"`
}

type Connection struct {
	LocalInterface string `json:"local_interface,omitempty"`
	LocalPort      uint32 `json:"local_port"`
	RemoteAddr     string `json:"remote_addr"`
}

// ConnectionSample is one snapshot of the network connections of the device.
type ConnectionSample struct {
	TakenAt           time.Time
	ListeningTCPPorts []Port
	ListeningUDPPorts []Port
	Established       []Connection
}

// Delta returns the counter growth from prev to s. Counters that went backwards
// (interface reset) are reported as their current value.
func (s NetworkStats) Delta(prev NetworkStats) NetworkStats {
	return NetworkStats{
		BytesIn:    counterDelta(s.BytesIn, prev.BytesIn),
		BytesOut:   counterDelta(s.BytesOut, prev.BytesOut),
		PacketsIn:  counterDelta(s.PacketsIn, prev.PacketsIn),
		PacketsOut: counterDelta(s.PacketsOut, prev.PacketsOut),
	}
}

func counterDelta(cur, prev uint64) uint64 {
	if cur < prev {
		return cur
	}
	return cur - prev
}

// Assemble builds a report from the samples collected during one task period.
// Listening ports come from the newest sample; established connections are the union of all
// samples, so short-lived connections seen in any sample are reported.
func Assemble(reportID uint64, samples []ConnectionSample, stats NetworkStats) *Report {
	r := &Report{
		Header: Header{ReportID: reportID, Version: constants.ReportVersion},
	}
	r.Metrics.NetworkStats = &stats

	if len(samples) == 0 {
		return r
	}

	latest := samples[len(samples)-1]
	r.Metrics.ListeningTCPPorts = newPortList(latest.ListeningTCPPorts)
	r.Metrics.ListeningUDPPorts = newPortList(latest.ListeningUDPPorts)

	seen := make(map[Connection]struct{})
	connections := make([]Connection, 0)
	for _, sample := range samples {
		for _, conn := range sample.Established {
			if _, ok := seen[conn]; ok {
				continue
			}
			seen[conn] = struct{}{}
			connections = append(connections, conn)
		}
	}
	sort.Slice(connections, func(i, j int) bool {
		if connections[i].LocalPort != connections[j].LocalPort {
			return connections[i].LocalPort < connections[j].LocalPort
		}
		return connections[i].RemoteAddr < connections[j].RemoteAddr
	})

	r.Metrics.TCPConnections = &TCPConnections{
		EstablishedConnections: EstablishedConnections{
			Connections: connections,
			Total:       len(connections),
		},
	}

	return r
}

func newPortList(ports []Port) *PortList {
	out := make([]Port, len(ports))
	copy(out, ports)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Port != out[j].Port {
			return out[i].Port < out[j].Port
		}
		return out[i].Interface < out[j].Interface
	})
	return &PortList{Ports: out, Total: len(out)}
}
