package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-errors/errors"
	"github.com/labstack/echo/v4"
	indexer "github.com/xompass/mongo-index-creator"
	"github.com/xompass/mongo-index-creator/http_errors"
	"github.com/xompass/mongo-index-creator/lock"
	"go.uber.org/zap"
)

const RUN_IN_PROGRESS = "RUN_IN_PROGRESS"

// Runner executes an index run
type Runner interface {
	Run(ctx context.Context, clientCodes ...string) (*indexer.Report, error)
}

type Options struct {
	Port   uint16
	Runner Runner
	Locker lock.Locker
	Logger *zap.Logger

	// HealthCheck is called by GET /health when set
	HealthCheck func(ctx context.Context) error
}

// Server triggers index runs over HTTP
type Server struct {
	EchoApp *echo.Echo
	options Options
	logger  *zap.Logger
}

// RunRequest is the body of POST /indexes. Without codes the run covers core and every client.
type RunRequest struct {
	ClientCode  string   `json:"clientCode,omitempty"`
	ClientCodes []string `json:"clientCodes,omitempty"`
}

func (r RunRequest) codes() []string {
	codes := append([]string{}, r.ClientCodes...)
	if r.ClientCode != "" {
		codes = append(codes, r.ClientCode)
	}
	return codes
}

func New(opts Options) *Server {
	if opts.Locker == nil {
		opts.Locker = lock.NopLocker{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	server := &Server{
		EchoApp: NewEchoApp(),
		options: opts,
		logger:  logger,
	}

	server.EchoApp.HTTPErrorHandler = server.handleError
	server.EchoApp.GET("/health", server.health)
	server.EchoApp.POST("/indexes", server.runIndexes)

	return server
}

func (s *Server) Start() error {
	s.logger.Info("HTTP trigger listening", zap.Uint16("port", s.options.Port))
	return s.EchoApp.Start(fmt.Sprint(":", s.options.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.EchoApp.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	if s.options.HealthCheck != nil {
		if err := s.options.HealthCheck(c.Request().Context()); err != nil {
			return http_errors.NewErrorResponse(http.StatusServiceUnavailable, "unhealthy", err.Error())
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) runIndexes(c echo.Context) error {
	var request RunRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&request); err != nil {
			return http_errors.BadRequestError("invalid request body", err.Error())
		}
	}

	var report *indexer.Report
	err := lock.WithLock(c.Request().Context(), s.options.Locker, func(ctx context.Context) error {
		var runErr error
		report, runErr = s.options.Runner.Run(ctx, request.codes()...)
		return runErr
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, report.Summary())
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var response *http_errors.ErrorResponse
	var indexerErr *indexer.IndexerError
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &response):
	case errors.Is(err, lock.ErrLocked):
		response = http_errors.ConflictErrorWithCode(RUN_IN_PROGRESS, err.Error())
	case errors.As(err, &indexerErr):
		response = http_errors.InternalServerErrorWithCode(indexerErr.Code, indexerErr.Message)
	case errors.As(err, &httpErr):
		response = http_errors.NewErrorResponse(httpErr.Code, fmt.Sprint(httpErr.Message))
	default:
		response = http_errors.InternalServerError(err.Error())
	}

	if response.Code >= http.StatusInternalServerError {
		s.logger.Error("index run failed", zap.Error(err))
	}

	if err := c.JSON(response.Code, response); err != nil {
		s.logger.Error("cannot write error response", zap.Error(err))
	}
}
