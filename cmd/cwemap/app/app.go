// Package app provides the application context and dependency management
// for the cwemap CLI. It centralizes configuration, logging, metrics and the
// lazily created client that commands share.
package app

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/cwemap"
	"github.com/agentstation/cwemap/internal/cmd/application"
	"github.com/agentstation/cwemap/internal/metrics"
	"github.com/agentstation/cwemap/internal/sources/mitre"
	"github.com/agentstation/cwemap/pkg/errors"
	"github.com/agentstation/cwemap/pkg/logging"
	"github.com/agentstation/cwemap/pkg/store"
	"github.com/agentstation/cwemap/pkg/version"
)

// App represents the cwemap application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config  *Config
	logger  *zerolog.Logger
	metrics *metrics.Metrics

	// Client instance (lazy-initialized, singleton)
	mu     sync.RWMutex
	client *cwemap.Client

	provider version.Provider
}

// Ensure App implements application.Application at compile time.
var _ application.Application = (*App)(nil)

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		metrics: metrics.New(),
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Client returns the default client, creating it lazily. With options a new,
// uncached client is created on top of the configured ones.
func (a *App) Client(opts ...cwemap.Option) (application.Client, error) {
	if len(opts) > 0 {
		c, err := cwemap.New(append(a.clientOptions(), opts...)...)
		if err != nil {
			return nil, errors.WrapResource("create", "client", "with custom options", err)
		}
		return c, nil
	}

	a.mu.RLock()
	if a.client != nil {
		c := a.client
		a.mu.RUnlock()
		return c, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock
	if a.client != nil {
		return a.client, nil
	}

	c, err := cwemap.New(a.clientOptions()...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", "", err)
	}
	a.client = c
	return c, nil
}

// Store returns the installed store of the default client.
func (a *App) Store() (*store.Store, error) {
	c, err := a.Client()
	if err != nil {
		return nil, err
	}
	return c.Store()
}

// VersionProvider returns the scraper for the published catalog version.
func (a *App) VersionProvider() version.Provider {
	if a.provider != nil {
		return a.provider
	}
	scraper := mitre.NewVersionScraper(a.config.DownloadsURL)
	if a.config.HTTPTimeout > 0 && a.config.HTTPTimeout < scraper.Client.Timeout {
		scraper.Client = &http.Client{Timeout: a.config.HTTPTimeout}
	}
	return scraper
}

// WriteMetrics exports the metrics of this run to the configured file.
func (a *App) WriteMetrics() error {
	if a.config.MetricsFile == "" {
		return nil
	}
	if err := a.metrics.WriteTextfile(a.config.MetricsFile); err != nil {
		return err
	}
	a.logger.Debug().Str("path", a.config.MetricsFile).Msg("Wrote metrics")
	return nil
}

// Shutdown flushes metrics so failed runs are recorded as well.
func (a *App) Shutdown(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.WriteMetrics()
}

// clientOptions constructs client options from the app configuration.
func (a *App) clientOptions() []cwemap.Option {
	opts := []cwemap.Option{
		cwemap.WithCatalogURL(a.config.CatalogURL),
		cwemap.WithHTTPTimeout(a.config.HTTPTimeout),
		cwemap.WithCacheSize(a.config.CacheSize),
		cwemap.WithMetrics(a.metrics),
	}
	if a.config.DataDir != "" {
		opts = append(opts, cwemap.WithDataDir(a.config.DataDir))
	}
	return opts
}

// applyLogger makes the app logger the default for library code.
func (a *App) applyLogger() {
	logger := NewLogger(a.config)
	a.logger = &logger
	logging.SetDefault(logger)
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets a custom client (useful for testing).
func WithClient(c *cwemap.Client) Option {
	return func(a *App) error {
		a.client = c
		return nil
	}
}

// WithVersionProvider replaces the downloads page scraper.
func WithVersionProvider(p version.Provider) Option {
	return func(a *App) error {
		a.provider = p
		return nil
	}
}
