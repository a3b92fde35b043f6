// Package httpapi serves the analysis pipeline over HTTP with a live SSE progress stream.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_takedown/internal/engine"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Analyzer runs the two analysis flows.
type Analyzer interface {
	AnalyzeSearch(ctx context.Context, req engine.SearchAnalysisRequest) (engine.SearchAnalysisResponse, error)
	AnalyzeSubject(ctx context.Context, req engine.SubjectAnalysisRequest) (engine.SubjectAnalysisResponse, error)
}

// ProgressSource hands out progress subscriptions.
type ProgressSource interface {
	Subscribe() (<-chan engine.ProgressEvent, func())
}

// Options configures the HTTP server.
type Options struct {
	Analyzer     Analyzer
	Progress     ProgressSource
	SourceMode   engine.SourceMode
	LLMModel     string
	WriteTimeout time.Duration
	Keepalive    time.Duration // SSE comment interval, 0 = 15s
}

// Server owns the fiber app and its routes.
type Server struct {
	app       *fiber.App
	analyzer  Analyzer
	progress  ProgressSource
	mode      engine.SourceMode
	model     string
	keepalive time.Duration
	now       func() time.Time
}

const defaultKeepalive = 15 * time.Second

// New builds the server and registers its routes.
func New(opts Options) *Server {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 600 * time.Second
	}
	if opts.Keepalive <= 0 {
		opts.Keepalive = defaultKeepalive
	}
	s := &Server{
		analyzer:  opts.Analyzer,
		progress:  opts.Progress,
		mode:      opts.SourceMode,
		model:     opts.LLMModel,
		keepalive: opts.Keepalive,
		now:       time.Now,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "go_takedown",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          opts.WriteTimeout,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(recover.New())
	s.app.Use(cors.New())
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.app.Group("/api")
	api.Get("/health", s.health)
	api.Get("/categories", s.categories)
	api.Get("/video/:videoId", s.videoDetails)
	api.Get("/analyze/progress", s.progressStream)
	api.Post("/analyze", s.analyze)
	api.Post("/analyze-subject", s.analyzeSubject)
	api.Post("/analyze-game", s.analyzeSubject)

	s.app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.SendString(engine.FormatMetrics())
	})
}

// App exposes the underlying fiber app (used by tests).
func (s *Server) App() *fiber.App { return s.app }

// Listen blocks serving on addr.
func (s *Server) Listen(addr string) error {
	slog.Info("http api listening", slog.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// errorHandler renders every error as {"error": msg}. Caller errors map to 400.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, engine.ErrInvalidRequest):
		code = fiber.StatusBadRequest
	}
	if code >= fiber.StatusInternalServerError {
		slog.Warn("http: request failed", slog.String("path", c.Path()), slog.Any("error", err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
