package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkadlec/facegallery/internal/config"
	"github.com/mkadlec/facegallery/internal/database/postgres"
	"github.com/mkadlec/facegallery/internal/identity"
)

// appContext bundles the pieces every database-backed command needs.
type appContext struct {
	cfg    *config.Config
	pool   *postgres.Pool
	faces  *postgres.FaceRepository
	people *postgres.PersonRepository
	engine *identity.Engine
}

// setupApp connects to PostgreSQL, loads all active face records and warms
// up the in-memory engine. Callers must Close the returned context.
func setupApp(ctx context.Context) (*appContext, error) {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.Connect(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}

	faces := postgres.NewFaceRepository(pool)
	engine := identity.NewEngine(cfg.EngineConfig(), faces)

	records, err := faces.LoadActiveFaces(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("loading face records: %w", err)
	}
	if err := engine.LoadRecords(ctx, records); err != nil {
		pool.Close()
		return nil, fmt.Errorf("warming up engine: %w", err)
	}

	return &appContext{
		cfg:    cfg,
		pool:   pool,
		faces:  faces,
		people: postgres.NewPersonRepository(pool),
		engine: engine,
	}, nil
}

// Close releases the database pool.
func (a *appContext) Close() {
	a.pool.Close()
}
