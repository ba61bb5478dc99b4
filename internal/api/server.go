package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"assignment-status/internal/logging"
	"assignment-status/internal/metrics"
	"assignment-status/internal/reconcile"
)

// Reconciler runs one reconciliation pass. *reconcile.Engine satisfies it.
type Reconciler interface {
	Reconcile(ctx context.Context, studentID string) (*reconcile.Result, error)
}

type (
	Options struct {
		Address        string
		Debug          bool
		DisableReqLogs bool
		Reconciler     Reconciler
		Logger         *zap.Logger
		Metrics        *metrics.Registry
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
		log  *zap.Logger
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) (Server, error) {
	s := &server{
		opts: opts,
		app:  echo.New(),
		log:  logging.OrNop(opts.Logger).Named("api"),
	}
	if err := s.setup(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *server) setup() error {
	rv, err := newRequestValidator("en")
	if err != nil {
		return err
	}

	s.app.HideBanner = true
	s.app.HidePort = true
	s.app.Debug = s.opts.Debug
	s.app.Validator = rv
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.log, rv)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestID())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			LogMethod:    true,
			LogURI:       true,
			LogStatus:    true,
			LogLatency:   true,
			LogRequestID: true,
			LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
				s.log.Info("request",
					zap.String("method", v.Method),
					zap.String("uri", v.URI),
					zap.Int("status", v.Status),
					zap.Duration("latency", v.Latency),
					zap.String("request_id", v.RequestID))
				return nil
			},
		}))
	}
	// do not recover in debug mode
	if !s.opts.Debug {
		s.app.Use(middleware.Recover())
	}

	s.app.GET("/healthz", healthz)
	s.app.GET("/metrics", echo.WrapHandler(s.opts.Metrics.Handler()))

	v1 := s.app.Group("/v1")
	registerStudentAPI(v1, s.opts.Reconciler)
	return nil
}

func (s *server) Start() error {
	err := s.app.Start(s.opts.Address)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
