package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tablekit/tablekit/server/aggregate"
	"github.com/tablekit/tablekit/server/config"
	"github.com/tablekit/tablekit/server/protocols/http"
	"github.com/tablekit/tablekit/server/query"
	"github.com/tablekit/tablekit/server/repository"
	"github.com/tablekit/tablekit/server/schema"
	"github.com/tablekit/tablekit/server/storage"
)

// Server wires the store, the registries, the query engine, and the
// protocol servers together.
type Server struct {
	config     *config.Config
	logger     zerolog.Logger
	store      *storage.Store
	schemas    *schema.Registry
	aggregates *aggregate.Registry
	engine     *query.Engine
	repo       *repository.Repository
	httpServer *http.Server
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	startTime  time.Time
}

// New creates a new server instance. The registries are populated from
// configuration here, before any request can be served, and are never
// mutated afterward.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	store, err := storage.Open(&cfg.Storage, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	migrations, err := storage.NewMigrationManager(store.DB(), store.Driver(), logger)
	if err != nil {
		cancel()
		store.Close()
		return nil, fmt.Errorf("failed to create migration manager: %w", err)
	}
	if err := migrations.MigrateToLatest(ctx); err != nil {
		cancel()
		store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	schemas, err := schema.LoadRegistry(cfg)
	if err != nil {
		cancel()
		store.Close()
		return nil, fmt.Errorf("failed to load schema registry: %w", err)
	}
	if err := store.EnsureTables(ctx, schemas); err != nil {
		cancel()
		store.Close()
		return nil, fmt.Errorf("failed to ensure catalog tables: %w", err)
	}

	aggregates, err := aggregate.LoadRegistry(cfg, schemas)
	if err != nil {
		cancel()
		store.Close()
		return nil, fmt.Errorf("failed to load aggregate registry: %w", err)
	}

	engine := query.NewEngine(store, schemas, logger)
	repo := repository.New(store, engine, schemas, aggregates, cfg.Entities, logger)

	httpServer, err := http.NewServer(engine, repo, logger)
	if err != nil {
		cancel()
		store.Close()
		return nil, fmt.Errorf("failed to create HTTP server: %w", err)
	}

	return &Server{
		config:     cfg,
		logger:     logger.With().Str("component", "server").Logger(),
		store:      store,
		schemas:    schemas,
		aggregates: aggregates,
		engine:     engine,
		repo:       repo,
		httpServer: httpServer,
		ctx:        ctx,
		cancel:     cancel,
		startTime:  time.Now(),
	}, nil
}

// Repository returns the entity repository, exposed for the CLI.
func (s *Server) Repository() *repository.Repository {
	return s.repo
}

// Start starts all protocol servers
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info().Msg("Starting Tablekit server...")

	if config.HTTP_SERVER_ENABLED {
		if err := s.httpServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}

	s.logger.Info().
		Bool("http_enabled", config.HTTP_SERVER_ENABLED).
		Str("http_address", config.DEFAULT_SERVER_ADDRESS).
		Int("http_port", config.HTTP_SERVER_PORT).
		Str("storage_driver", s.store.Driver()).
		Strs("tables", s.schemas.TableNames()).
		Strs("aggregate_types", s.aggregates.TypeNames()).
		Msg("Server started")

	return nil
}

// Shutdown gracefully shuts down all servers
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("Shutting down server...")

	s.cancel()

	if err := s.httpServer.Stop(); err != nil {
		s.logger.Error().Err(err).Msg("Error stopping HTTP server")
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Error closing storage")
	}

	s.wg.Wait()
	s.logger.Info().Msg("Server shutdown complete")
	return nil
}

// GetUptime returns how long the server has been running.
func (s *Server) GetUptime() time.Duration {
	return time.Since(s.startTime)
}

// GetStatus returns the status of the server and its protocol servers.
func (s *Server) GetStatus() map[string]interface{} {
	return map[string]interface{}{
		"uptime":          s.GetUptime().String(),
		"storage_driver":  s.store.Driver(),
		"tables":          s.schemas.TableNames(),
		"aggregate_types": s.aggregates.TypeNames(),
		"http":            s.httpServer.GetStatus(),
	}
}
