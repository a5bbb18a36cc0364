// Package api exposes the engine over HTTP with fiber.
//
// Every mode-bearing response is computed on the request; nothing is cached
// between requests except the model registry, which the engine memoizes
// until POST /registry/invalidate.
package api

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/continuum/pkg/core"
	"github.com/aretw0/continuum/pkg/governance"
	"github.com/aretw0/continuum/pkg/registry"
)

// ServiceName labels the HTTP metrics.
const ServiceName = "continuum"

// Engine is what the HTTP surface needs from the composed core.
// *platform.Engine implements it.
type Engine interface {
	FindMatch(ctx context.Context, key string) (core.Match, error)
	ResolveMode(ctx context.Context, workspaceID string) governance.Resolution
	Authorize(ctx context.Context, workspaceID string, action governance.Action) governance.Decision
	Workspace(ctx context.Context, ws governance.Workspace) governance.WorkspaceView
	LoadRegistry(ctx context.Context) (registry.LoadResult, error)
	InvalidateRegistry()
	SetGoverned(ctx context.Context, id string, governed bool) error
}

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	version    string
}

// Option configures the app.
type Option func(*options)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRegisterer sets where HTTP metrics are registered and, when it is also
// a prometheus.Gatherer, what /metrics serves. Defaults to the global registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		if reg != nil {
			o.registerer = reg
		}
	}
}

// WithVersion sets the version reported by /healthz.
func WithVersion(v string) Option {
	return func(o *options) {
		o.version = v
	}
}

// New builds the fiber app serving engine.
func New(engine Engine, opts ...Option) *fiber.App {
	o := &options{
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		registerer: prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(o)
	}

	app := fiber.New(fiber.Config{
		AppName:               ServiceName,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(o.logger),
	})
	app.Use(recover.New())
	app.Use(requestLogger(o.logger))

	prom := fiberprometheus.NewWithRegistry(o.registerer, ServiceName, "http", "", nil)
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)

	h := &handlers{engine: engine, logger: o.logger, version: o.version}
	app.Get("/healthz", h.health)

	app.Get("/workspaces/:id", h.workspace)
	app.Get("/workspaces/:id/mode", h.mode)
	app.Post("/workspaces/:id/actions/check", h.checkAction)

	docs := app.Group("/documents")
	docs.Get("/resolve", h.resolve)
	docs.Put("/:id/governed", h.setGoverned)

	app.Get("/registry", h.registry)
	app.Post("/registry/invalidate", h.invalidateRegistry)

	return app
}

func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Debug("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
		)
		return err
	}
}

func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}
