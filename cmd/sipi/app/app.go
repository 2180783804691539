// Package app provides the application context and dependency wiring for the
// sipi CLI: configuration, logging, and lazily constructed collaborators.
package app

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/PepeluiMoreno/sipi-api/internal/memstore"
	"github.com/PepeluiMoreno/sipi-api/pkg/nominatim"
	"github.com/PepeluiMoreno/sipi-api/pkg/overpass"
	"github.com/PepeluiMoreno/sipi-api/pkg/registry"
)

// App holds the CLI's dependencies. Collaborators are created lazily from
// configuration so commands that never touch the network stay offline.
type App struct {
	version string
	commit  string
	date    string

	config *Config
	logger *zerolog.Logger

	mu    sync.Mutex
	store *memstore.Store
}

// New creates a new App instance with the given version information.
func New(version, commit, date string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, err
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

// Version returns the version string.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// Overpass builds an Overpass client from configuration.
func (a *App) Overpass() *overpass.Client {
	return overpass.NewClient(
		overpass.WithAPIURL(a.config.OverpassURL),
		overpass.WithUserAgent(a.config.UserAgent),
		overpass.WithTimeouts(overpass.Timeouts{
			Area: a.config.AreaTimeout,
			BBox: a.config.BBoxTimeout,
		}),
	)
}

// Nominatim builds a place resolver from configuration.
func (a *App) Nominatim() *nominatim.Resolver {
	return nominatim.New(
		nominatim.WithAPIURL(a.config.NominatimURL),
		nominatim.WithUserAgent(a.config.UserAgent),
		nominatim.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
}

// Repository returns the repository the CLI works against: the configured
// fixture file when present, an empty in-memory store otherwise. Real
// deployments replace this with their own repository implementation.
func (a *App) Repository() (registry.Repository, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.store != nil {
		return a.store, nil
	}

	if a.config.FixtureFile != "" {
		store, err := memstore.LoadFixture(a.config.FixtureFile)
		if err != nil {
			return nil, err
		}
		a.store = store
		return store, nil
	}

	a.store = memstore.New()
	return a.store, nil
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

// WithRepository sets a custom repository (useful for testing).
func WithRepository(store *memstore.Store) Option {
	return func(a *App) error {
		a.store = store
		return nil
	}
}
