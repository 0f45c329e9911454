package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// HealthService answers liveness and readiness probes.
type HealthService struct {
	version   string
	buildTime string
	startTime time.Time
	analytics *AnalyticsService
	logger    *slog.Logger
}

// HealthStatus is the health endpoint response body.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime,omitempty"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
}

// VersionInfo is the version endpoint response body.
type VersionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
}

// NewHealthService creates the health service.
func NewHealthService(version, buildTime string, analytics *AnalyticsService, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		buildTime: buildTime,
		startTime: time.Now(),
		analytics: analytics,
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck reports overall process health.
func (s *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   s.version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Runtime: map[string]interface{}{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
		},
	}
}

// LivenessCheck reports that the process is running at all.
func (s *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{Status: "alive", Timestamp: time.Now().UTC(), Version: s.version}
}

// ReadinessCheck reports whether the service can answer analytics queries.
// The server is ready as soon as it is up; having no completed run yet is a
// 404 on the result endpoints, not unreadiness.
func (s *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := "ready"
	if s.analytics == nil {
		status = "degraded"
	}
	return HealthStatus{Status: status, Timestamp: time.Now().UTC(), Version: s.version}
}

// Version returns build information.
func (s *HealthService) Version() VersionInfo {
	return VersionInfo{
		Version:   s.version,
		BuildTime: s.buildTime,
		GoVersion: runtime.Version(),
	}
}
