// Package api exposes the monitoring service over HTTP with echo.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vpbank/snmp_health/models"
	"github.com/vpbank/snmp_health/pkg/snmphealth/config"
	"github.com/vpbank/snmp_health/pkg/snmphealth/monitor"
)

// MsgUnavailable is returned by every SNMP route when no monitoring service
// is wired.
const MsgUnavailable = "SNMP monitoring unavailable"

// Service is the subset of monitor.Service served over HTTP.
type Service interface {
	CheckOne(ctx context.Context, deviceID int64) (models.ProbeResult, error)
	CheckAll(ctx context.Context) (models.BatchReport, error)
	ListInterfaces(ctx context.Context, deviceID int64) (models.InterfaceReport, error)
	Config(ctx context.Context, deviceID int64) (models.MonitoringConfig, error)
	Configure(ctx context.Context, deviceID int64, patch models.ConfigPatch) (models.MonitoringConfig, error)
}

// Options configures a Server.
type Options struct {
	// Listen is the TCP address for Start (default ":8080").
	Listen string
	// Metrics is served on GET /metrics when non-nil.
	Metrics http.Handler
}

// Server is the HTTP front of the health engine.
type Server struct {
	echo   *echo.Echo
	svc    Service
	listen string
	logger *slog.Logger
}

// New builds the router. svc may be nil, in which case the SNMP routes
// answer 503.
func New(svc Service, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if opts.Listen == "" {
		opts.Listen = ":8080"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("api: request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.String(),
			)
			return nil
		},
	}))

	s := &Server{echo: e, svc: svc, listen: opts.Listen, logger: logger}

	v1 := e.Group("/api/v1", s.requireService)
	v1.GET("/devices/:id/snmp/status", s.status)
	v1.GET("/devices/:id/snmp/interfaces", s.interfaces)
	v1.GET("/devices/:id/snmp/config", s.getConfig)
	v1.PUT("/devices/:id/snmp/config", s.putConfig)
	v1.POST("/snmp/check-all", s.checkAll)

	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}
	return s
}

// Handler returns the router for use with httptest or a custom server.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("api: listening", "addr", s.listen)
	if err := s.echo.Start(s.listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ─────────────────────────────────────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────────────────────────────────────

func (s *Server) requireService(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.svc == nil {
			return c.JSON(http.StatusServiceUnavailable, errorBody(MsgUnavailable))
		}
		return next(c)
	}
}

// GET /api/v1/devices/:id/snmp/status
func (s *Server) status(c echo.Context) error {
	id, ok := deviceID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody("invalid device id"))
	}
	res, err := s.svc.CheckOne(c.Request().Context(), id)
	if err != nil {
		return s.fail(c, "check device", id, err)
	}
	return c.JSON(http.StatusOK, res)
}

// POST /api/v1/snmp/check-all
func (s *Server) checkAll(c echo.Context) error {
	report, err := s.svc.CheckAll(c.Request().Context())
	if err != nil {
		s.logger.Error("api: check-all failed", "error", err.Error())
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":   err.Error(),
			"message": report.Message,
			"results": report.Results,
		})
	}
	return c.JSON(http.StatusOK, report)
}

// GET /api/v1/devices/:id/snmp/interfaces
func (s *Server) interfaces(c echo.Context) error {
	id, ok := deviceID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody("invalid device id"))
	}
	report, err := s.svc.ListInterfaces(c.Request().Context(), id)
	if err != nil {
		return s.fail(c, "list interfaces", id, err)
	}
	return c.JSON(http.StatusOK, report)
}

// GET /api/v1/devices/:id/snmp/config
func (s *Server) getConfig(c echo.Context) error {
	id, ok := deviceID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody("invalid device id"))
	}
	cfg, err := s.svc.Config(c.Request().Context(), id)
	if err != nil {
		return s.fail(c, "get config", id, err)
	}
	return c.JSON(http.StatusOK, cfg.Redacted())
}

// PUT /api/v1/devices/:id/snmp/config
func (s *Server) putConfig(c echo.Context) error {
	id, ok := deviceID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody("invalid device id"))
	}
	var patch models.ConfigPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}
	config.Normalize(&patch)

	cfg, err := s.svc.Configure(c.Request().Context(), id, patch)
	if err != nil {
		return s.fail(c, "save config", id, err)
	}
	return c.JSON(http.StatusOK, cfg.Redacted())
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func deviceID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) fail(c echo.Context, op string, id int64, err error) error {
	switch {
	case errors.Is(err, monitor.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, config.ErrInvalid):
		return c.JSON(http.StatusUnprocessableEntity, errorBody(err.Error()))
	}
	s.logger.Error("api: "+op+" failed", "device_id", id, "error", err.Error())
	return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
