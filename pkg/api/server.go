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
// Package api serves the operational HTTP endpoints of the reporter: prometheus metrics,
// the report task status and liveness/readiness probes.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/fleet-reporter/pkg/defender"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/metrics"
)

const goroutineThreshold = 1000

// Task is the read-only view of a report task the endpoints need.
type Task interface {
	ID() string
	ThingName() string
	GetStatus() defender.TaskStatus
	LastError() defender.ErrorCode
	Err() error
	Config() defender.TaskConfig
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	TaskID              string `json:"taskId"`
	ThingName           string `json:"thingName"`
	Status              string `json:"status"`
	LastError           string `json:"lastError"`
	Error               string `json:"error,omitempty"`
	ReportFormat        string `json:"reportFormat"`
	TaskPeriodSeconds   uint64 `json:"taskPeriodSeconds"`
	SamplePeriodSeconds uint64 `json:"samplePeriodSeconds"`
}

// NewRouter registers all endpoints. conn may be nil, then readiness only depends on the task.
func NewRouter(task Task, conn defender.Connection, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Add a ginzap middleware, which logs all requests with RFC3339 UTC timestamps
	router.Use(ginzap.Ginzap(log, time.RFC3339, true))

	// Logs all panic to error log
	router.Use(ginzap.RecoveryWithZap(log, true))

	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(goroutineThreshold))
	health.AddReadinessCheck("report-task", taskRunningCheck(task))
	if conn != nil {
		health.AddReadinessCheck("mqtt", connectedCheck(conn))
	}

	router.GET("/live", gin.WrapF(health.LiveEndpoint))
	router.GET("/ready", gin.WrapF(health.ReadyEndpoint))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/status", statusHandler(task))

	return router
}

func statusHandler(task Task) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := json.Marshal(newStatusResponse(task))
		if err != nil {
			_ = c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	}
}

func newStatusResponse(task Task) StatusResponse {
	cfg := task.Config()
	resp := StatusResponse{
		TaskID:              task.ID(),
		ThingName:           task.ThingName(),
		Status:              task.GetStatus().String(),
		LastError:           task.LastError().String(),
		ReportFormat:        cfg.ReportFormat.String(),
		TaskPeriodSeconds:   uint64(cfg.TaskPeriod / time.Second),
		SamplePeriodSeconds: uint64(cfg.NetworkConnectionSamplePeriod / time.Second),
	}
	if err := task.Err(); err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func taskRunningCheck(task Task) healthcheck.Check {
	return func() error {
		if status := task.GetStatus(); status != defender.StatusRunning {
			return fmt.Errorf("report task is %s", status)
		}
		return nil
	}
}

func connectedCheck(conn defender.Connection) healthcheck.Check {
	return func() error {
		if conn.IsConnected() {
			return nil
		}
		return errors.New("not connected")
	}
}

// Server runs the router on its own http.Server so it can be shut down gracefully.
type Server struct {
	srv    *http.Server
	logger *zap.SugaredLogger
}

func NewServer(port int, handler http.Handler, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start serves in the background. Listen errors are logged.
func (s *Server) Start() {
	go func() {
		s.logger.Infof("Serving ops endpoints on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("Ops HTTP server failed: %v", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
