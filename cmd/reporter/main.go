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
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/fleet-reporter/pkg/api"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/config"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/constants"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/defender"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/env"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/logger"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/report"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/scheduler"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/sentry"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/transport/mqtt"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Initialize the global logger first thing
	logger.Initialize()
	defer func() { _ = logger.Sync() }()

	log := logger.For(logger.ComponentCore)
	log.Infof("Starting fleet-reporter %s", version.GetAppVersion())

	configPath, _ := env.GetAsString("CONFIG_PATH", false, constants.DefaultConfigPath)
	cfg, err := config.Load(configPath, logger.For(logger.ComponentConfig))
	if err != nil {
		log.Errorf("Failed to load config: %v", err)
		return 1
	}

	sentry.InitSentry(version.GetAppVersion(), cfg.SentryDSN, true)

	if err := cfg.Validate(); err != nil {
		log.Errorf("Invalid config: %v", err)
		return 1
	}
	format, err := report.ParseFormat(cfg.Report.Format)
	if err != nil {
		log.Errorf("Invalid report format: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop := scheduler.NewLoop(logger.For(logger.ComponentScheduler))
	if err := loop.Start(ctx); err != nil {
		log.Errorf("Failed to start scheduler: %v", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.TaskCloseTimeout)
		defer cancel()
		if err := loop.Shutdown(shutdownCtx); err != nil {
			log.Warnf("Failed to shut down scheduler: %v", err)
		}
	}()

	mqttLog := logger.For(logger.ComponentMQTT)
	client, err := mqtt.Dial(ctx, mqtt.Options{
		BrokerURL:      cfg.Broker.URL,
		ClientID:       cfg.Broker.ClientID,
		Username:       cfg.Broker.Username,
		Password:       cfg.Broker.Password,
		ConnectTimeout: cfg.Broker.ConnectTimeout(),
	}, mqttLog)
	if err != nil {
		sentry.ReportIssuef(sentry.IssueTypeError, log, "Failed to connect to broker: %w", err)
		return 1
	}
	defer client.Disconnect(constants.DisconnectQuiesceMs)

	conn := mqtt.NewConnection(client, mqtt.WithLogger(mqttLog))

	task := defender.NewReportTaskBuilder(conn, loop, cfg.ThingName).
		WithReportFormat(format).
		WithTaskPeriodSeconds(cfg.Report.TaskPeriodSeconds).
		WithNetworkConnectionSamplePeriodSeconds(cfg.Report.SamplePeriodSeconds).
		WithTaskCancelledHandler(func(userData any) {
			log.Infof("Report task for %v stopped", userData)
		}).
		WithTaskCancellationUserData(cfg.ThingName).
		Build()

	server := api.NewServer(cfg.MetricsPort, api.NewRouter(task, conn, zap.L()), logger.For(logger.ComponentAPI))
	server.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.HTTPShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warnf("Failed to shut down ops HTTP server: %v", err)
		}
	}()

	if err := task.StartTask(); err != nil {
		sentry.ReportIssuef(sentry.IssueTypeError, log, "Failed to start report task: %w", err)
		return 1
	}

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Infof("Received shutdown signal")
	case <-task.Done():
		log.Errorf("Report task stopped on its own: %v", task.Err())
		exitCode = 1
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), constants.TaskCloseTimeout)
	defer cancel()
	if err := task.Close(closeCtx); err != nil {
		log.Warnf("Failed to stop report task: %v", err)
	}

	log.Infof("Successful shutdown. Exiting.")
	return exitCode
}
