package platform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/continuum/pkg/adapters/fs"
	"github.com/aretw0/continuum/pkg/adapters/memory"
	"github.com/aretw0/continuum/pkg/adapters/remote"
	"github.com/aretw0/continuum/pkg/core"
	"github.com/aretw0/continuum/pkg/governance"
)

// ReasonNoReadinessService is reported for every workspace when no readiness
// source is configured.
const ReasonNoReadinessService = "no readiness service configured"

// Init builds the document store selected by the options.
// The uri argument is adapter-specific: a directory for "fs", a base URL for
// "remote", ignored for "memory".
func Init(uri string, opts ...Option) (core.DocumentStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return initStore(uri, o)
}

func initStore(uri string, o *options) (core.DocumentStore, error) {
	if o.store != nil {
		return o.store, nil
	}

	switch o.adapter {
	case "fs":
		return initFS(uri, o)
	case "remote":
		client, err := remote.NewDocumentClient(remoteConfig(uri, o))
		if err != nil {
			return nil, err
		}
		return client, nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
}

func initFS(path string, o *options) (core.DocumentStore, error) {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	store := fs.New(fs.Config{
		Path:         abs,
		MustExist:    o.mustExist,
		ReadOnly:     o.readOnly,
		SystemDir:    o.systemDir,
		Include:      o.include,
		Logger:       o.logger,
		ErrorHandler: o.errorHandler,
	})
	if err := store.Initialize(context.Background()); err != nil {
		return nil, err
	}

	if o.logger != nil {
		o.logger.Debug("filesystem store ready", "path", abs, "read_only", o.readOnly)
	}
	return store, nil
}

func remoteConfig(baseURL string, o *options) remote.Config {
	return remote.Config{
		BaseURL:           baseURL,
		Timeout:           o.timeout,
		RequestsPerSecond: o.rps,
		BurstSize:         o.burst,
		Token:             o.token,
		Logger:            o.logger,
	}
}

// initReadiness picks, in order: an injected service, a remote service, a
// static answer. With none of them every workspace is NOT_READY, which keeps
// every workspace GUARDED.
func initReadiness(o *options) (governance.ReadinessService, error) {
	switch {
	case o.readiness != nil:
		return o.readiness, nil
	case o.readinessURL != "":
		client, err := remote.NewReadinessClient(remoteConfig(o.readinessURL, o))
		if err != nil {
			return nil, fmt.Errorf("readiness service: %w", err)
		}
		return client, nil
	case o.staticReadiness != nil:
		return governance.StaticReadiness(*o.staticReadiness), nil
	default:
		return governance.StaticReadiness(governance.Readiness{
			Status:  governance.StatusNotReady,
			Reasons: []string{ReasonNoReadinessService},
		}), nil
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
