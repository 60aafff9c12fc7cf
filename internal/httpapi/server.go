package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/joelkehle/lossaudit/internal/auth"
	"github.com/joelkehle/lossaudit/internal/lossengine"
	"github.com/joelkehle/lossaudit/internal/report"
	"github.com/joelkehle/lossaudit/internal/store"
)

type Analyzer interface {
	Analyze(ctx context.Context, in lossengine.WorkflowInput) lossengine.LossAnalysis
}

type WorkflowStore interface {
	Create(ctx context.Context, in lossengine.WorkflowInput, result lossengine.LossAnalysis, ownerID *int64) (int64, error)
	List(ctx context.Context) ([]store.Record, error)
	Get(ctx context.Context, id int64) (store.Record, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

type Options struct {
	Engine      Analyzer
	Store       WorkflowStore
	Auth        *auth.Service
	PDF         report.PDFRenderer
	Logger      zerolog.Logger
	CORSOrigins []string
	ServiceName string
	Clock       func() time.Time
}

type Server struct {
	engine Analyzer
	store  WorkflowStore
	auth   *auth.Service
	pdf    report.PDFRenderer
	log    zerolog.Logger
	clock  func() time.Time
}

// New wires the HTTP surface onto a fresh echo instance.
func New(opts Options) *echo.Echo {
	s := &Server{
		engine: opts.Engine,
		store:  opts.Store,
		auth:   opts.Auth,
		pdf:    opts.PDF,
		log:    opts.Logger,
		clock:  opts.Clock,
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = "lossaudit"
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(otelecho.Middleware(serviceName))
	e.Use(accessLog(s.log))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/health", s.handleHealth)
	e.POST("/users", s.handleCreateUser)
	e.POST("/token", s.handleToken)

	e.POST("/analyze", s.handleAnalyze, auth.RequireBearer(s.auth.Tokens()))
	e.GET("/workflows", s.handleListWorkflows)
	e.GET("/workflows/:id", s.handleGetWorkflow)
	e.DELETE("/workflows/:id", s.handleDeleteWorkflow)
	e.POST("/workflows/:id/simulate", s.handleSimulate)
	e.GET("/compare", s.handleCompare)

	e.GET("/export/markdown/:id", s.handleExportMarkdown)
	e.GET("/export/pdf/:id", s.handleExportPDF)
	e.GET("/export/deck/:id", s.handleExportDeck)
	return e
}

// Run serves e on addr until ctx is cancelled, then drains in-flight
// requests for up to 30 seconds.
func Run(ctx context.Context, e *echo.Echo, addr string, log zerolog.Logger) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * report.DefaultRenderTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			_ = server.Close()
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Info().Msg("http server stopped")
		return nil
	}
}

func accessLog(log zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("path", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

type errorBody struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	body := errorBody{Error: http.StatusText(status)}

	var he *echo.HTTPError
	var ve *lossengine.ValidationError
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		body = errorBody{Error: "invalid workflow input", Fields: ve.Fields}
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
		body.Error = "workflow not found"
	case errors.As(err, &he):
		status = he.Code
		body.Error = fmt.Sprint(he.Message)
	default:
		s.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, body)
}

func parseID(c echo.Context, name string) (int64, error) {
	raw := c.Param(name)
	if raw == "" {
		raw = c.QueryParam(name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s must be a positive integer", name))
	}
	return id, nil
}
