package cwemap

import (
	"os"
	"path/filepath"
	"time"

	"github.com/agentstation/cwemap/internal/metrics"
	"github.com/agentstation/cwemap/internal/sources/mitre"
	"github.com/agentstation/cwemap/pkg/constants"
	"github.com/agentstation/cwemap/pkg/errors"
	"github.com/spf13/afero"
)

// options holds the configuration of a Client.
type options struct {
	dataDir     string
	fs          afero.Fs
	source      Source
	catalogURL  string
	httpTimeout time.Duration
	cacheSize   int
	metrics     *metrics.Metrics
}

// Option is a function that configures a Client.
type Option func(*options) error

func defaults() *options {
	dataDir := constants.DataDirName
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, constants.DataDirName)
	}
	// The staging and backup directories are siblings of dataDir.
	if abs, err := filepath.Abs(dataDir); err == nil {
		dataDir = abs
	}
	return &options{
		dataDir:   dataDir,
		fs:        afero.NewOsFs(),
		cacheSize: constants.DefaultCacheSize,
	}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.source == nil {
		o.source = mitre.NewSource(o.catalogURL, mitre.WithTimeout(o.httpTimeout))
	}
	return o, nil
}

// WithDataDir sets the directory holding the store.
func WithDataDir(dir string) Option {
	return func(o *options) error {
		if dir == "" {
			return errors.NewConfigError("client", "data dir cannot be empty", nil)
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return errors.NewConfigError("client", "invalid data dir", err)
		}
		o.dataDir = abs
		return nil
	}
}

// WithFs sets the filesystem the store lives on.
func WithFs(fs afero.Fs) Option {
	return func(o *options) error {
		if fs == nil {
			return errors.NewConfigError("client", "filesystem cannot be nil", nil)
		}
		o.fs = fs
		return nil
	}
}

// WithSource replaces the catalog source used by Update.
func WithSource(src Source) Option {
	return func(o *options) error {
		o.source = src
		return nil
	}
}

// WithCatalogURL sets the archive location of the default source.
func WithCatalogURL(url string) Option {
	return func(o *options) error {
		o.catalogURL = url
		return nil
	}
}

// WithHTTPTimeout bounds the archive download of the default source.
func WithHTTPTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.NewConfigError("client", "http timeout cannot be negative", nil)
		}
		o.httpTimeout = d
		return nil
	}
}

// WithCacheSize bounds the entity cache of loaded stores.
func WithCacheSize(n int) Option {
	return func(o *options) error {
		o.cacheSize = n
		return nil
	}
}

// WithMetrics records build metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}
