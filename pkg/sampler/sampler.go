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
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/net"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/united-manufacturing-hub/fleet-reporter/pkg/report"
)

const (
	statusListen      = "LISTEN"
	statusEstablished = "ESTABLISHED"
	loopbackInterface = "lo"
)

// Sampler reads network connections and traffic counters of the host through gopsutil.
type Sampler struct {
	logger *zap.SugaredLogger
}

// New creates a Sampler. A nil logger disables logging.
func New(logger *zap.SugaredLogger) *Sampler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Sampler{logger: logger}
}

// Sample takes one snapshot of listening ports and established TCP connections.
// TCP sockets, UDP sockets and interface addresses are queried concurrently.
func (s *Sampler) Sample(ctx context.Context) (report.ConnectionSample, error) {
	var (
		tcp    []net.ConnectionStat
		udp    []net.ConnectionStat
		ifaces net.InterfaceStatList
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tcp, err = net.ConnectionsWithContext(gctx, "tcp")
		if err != nil {
			return fmt.Errorf("failed to list tcp connections: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		udp, err = net.ConnectionsWithContext(gctx, "udp")
		if err != nil {
			return fmt.Errorf("failed to list udp sockets: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		ifaces, err = net.InterfacesWithContext(gctx)
		if err != nil {
			// interface names are cosmetic, ports are still reported without them
			s.logger.Debugf("Failed to list interfaces: %v", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return report.ConnectionSample{}, err
	}

	index := interfaceIndex(ifaces)

	return report.ConnectionSample{
		TakenAt:           time.Now(),
		ListeningTCPPorts: listeningTCPPorts(tcp, index),
		ListeningUDPPorts: listeningUDPPorts(udp, index),
		Established:       establishedConnections(tcp, index),
	}, nil
}

// NetworkStats returns the cumulative traffic counters summed over all non-loopback interfaces.
func (s *Sampler) NetworkStats(ctx context.Context) (report.NetworkStats, error) {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return report.NetworkStats{}, fmt.Errorf("failed to read network counters: %w", err)
	}
	return sumCounters(counters), nil
}

func sumCounters(counters []net.IOCountersStat) report.NetworkStats {
	var stats report.NetworkStats
	for _, c := range counters {
		if c.Name == loopbackInterface {
			continue
		}
		stats.BytesIn += c.BytesRecv
		stats.BytesOut += c.BytesSent
		stats.PacketsIn += c.PacketsRecv
		stats.PacketsOut += c.PacketsSent
	}
	return stats
}

// interfaceIndex maps every interface IP to its interface name.
func interfaceIndex(ifaces net.InterfaceStatList) map[string]string {
	index := make(map[string]string)
	for _, iface := range ifaces {
		for _, addr := range iface.Addrs {
			ip, _, _ := strings.Cut(addr.Addr, "/")
			index[ip] = iface.Name
		}
	}
	return index
}

func listeningTCPPorts(stats []net.ConnectionStat, index map[string]string) []report.Port {
	ports := make([]report.Port, 0)
	seen := make(map[report.Port]struct{})
	for _, st := range stats {
		if st.Status != statusListen {
			continue
		}
		ports = appendPort(ports, seen, report.Port{Interface: index[st.Laddr.IP], Port: st.Laddr.Port})
	}
	return ports
}

// listeningUDPPorts treats every bound, unconnected UDP socket as listening.
func listeningUDPPorts(stats []net.ConnectionStat, index map[string]string) []report.Port {
	ports := make([]report.Port, 0)
	seen := make(map[report.Port]struct{})
	for _, st := range stats {
		if st.Laddr.Port == 0 || st.Raddr.Port != 0 {
			continue
		}
		ports = appendPort(ports, seen, report.Port{Interface: index[st.Laddr.IP], Port: st.Laddr.Port})
	}
	return ports
}

func appendPort(ports []report.Port, seen map[report.Port]struct{}, p report.Port) []report.Port {
	if _, ok := seen[p]; ok {
		return ports
	}
	seen[p] = struct{}{}
	return append(ports, p)
}

func establishedConnections(stats []net.ConnectionStat, index map[string]string) []report.Connection {
	conns := make([]report.Connection, 0)
	for _, st := range stats {
		if st.Status != statusEstablished {
			continue
		}
		conns = append(conns, report.Connection{
			LocalInterface: index[st.Laddr.IP],
			LocalPort:      st.Laddr.Port,
			RemoteAddr:     joinHostPort(st.Raddr),
		})
	}
	return conns
}

func joinHostPort(addr net.Addr) string {
	if strings.Contains(addr.IP, ":") {
		return fmt.Sprintf("[%s]:%d", addr.IP, addr.Port)
	}
	return fmt.Sprintf("%s:%d", addr.IP, addr.Port)
}
