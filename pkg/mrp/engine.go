// Package mrp is the public entry point: it wires every service of the core
// over one ledger and one event publisher.
package mrp

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/vsinha/mrpcore/pkg/application/services/allocation"
	"github.com/vsinha/mrpcore/pkg/application/services/costing"
	"github.com/vsinha/mrpcore/pkg/application/services/explosion"
	"github.com/vsinha/mrpcore/pkg/application/services/inventory"
	"github.com/vsinha/mrpcore/pkg/application/services/production"
	"github.com/vsinha/mrpcore/pkg/domain/repositories"
	"github.com/vsinha/mrpcore/pkg/infrastructure/config"
	"github.com/vsinha/mrpcore/pkg/infrastructure/events"
	"github.com/vsinha/mrpcore/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/mrpcore/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/mrpcore/pkg/infrastructure/repositories/postgres"
)

// EngineConfig holds the planning knobs of an Engine
type EngineConfig struct {
	// MaxDepth bounds BOM recursion
	MaxDepth int
	// CostMethod prices explosion leaves
	CostMethod explosion.CostMethod
}

// DefaultEngineConfig is FIFO pricing with the default depth limit
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxDepth:   explosion.DefaultMaxDepth,
		CostMethod: explosion.CostFIFO,
	}
}

// Engine bundles the services that share a ledger
type Engine struct {
	Ledger     repositories.Ledger
	Inventory  *inventory.Service
	Costing    *costing.Service
	Explosion  *explosion.Service
	Allocation *allocation.Service
	Production *production.Service

	closers []func() error
}

// NewEngine creates an engine with the default configuration
func NewEngine(ledger repositories.Ledger, publisher events.Publisher) *Engine {
	return NewEngineWithConfig(ledger, publisher, DefaultEngineConfig())
}

// NewEngineWithConfig creates an engine with custom configuration
func NewEngineWithConfig(ledger repositories.Ledger, publisher events.Publisher, cfg EngineConfig) *Engine {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if cfg.MaxDepth < 1 {
		cfg.MaxDepth = explosion.DefaultMaxDepth
	}
	if cfg.CostMethod == "" {
		cfg.CostMethod = explosion.CostFIFO
	}

	costs := costing.NewService(ledger)
	exploder := explosion.NewService(ledger, costs, publisher,
		explosion.WithMaxDepth(cfg.MaxDepth),
		explosion.WithCostMethod(cfg.CostMethod),
	)
	allocator := allocation.NewService(ledger, publisher)
	return &Engine{
		Ledger:     ledger,
		Inventory:  inventory.NewService(ledger, publisher),
		Costing:    costs,
		Explosion:  exploder,
		Allocation: allocator,
		Production: production.NewService(ledger, allocator, exploder, publisher),
	}
}

// Open builds an engine from runtime configuration: the store named by
// STORE_DRIVER, and a redis publisher next to any extra publishers when
// REDIS_URL is set. Close releases both.
func Open(ctx context.Context, cfg *config.Config, extra ...events.Publisher) (*Engine, error) {
	var (
		ledger  repositories.Ledger
		closers []func() error
	)
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		store, err := postgres.Open(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.TxMaxRetries)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		ledger = store
		closers = append(closers, store.Close)
	case config.DriverMemory:
		ledger = memory.NewStore()
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	publisher := events.MultiPublisher(extra)
	if cfg.RedisURL != "" {
		rdb, err := events.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			for _, c := range closers {
				_ = c()
			}
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, rdb.Close)
		publisher = append(publisher, events.NewRedisPublisher(rdb, cfg.EventQueue))
	}

	log.Debug().
		Str("driver", cfg.StoreDriver).
		Bool("redis", cfg.RedisURL != "").
		Str("cost_method", cfg.CostMethod).
		Msg("engine opened")

	engine := NewEngineWithConfig(ledger, publisher, EngineConfig{
		MaxDepth:   cfg.ExplosionMaxDepth,
		CostMethod: explosion.CostMethod(cfg.CostMethod),
	})
	engine.closers = closers
	return engine, nil
}

// LoadScenario parses a CSV scenario directory and writes it into the ledger
func (e *Engine) LoadScenario(ctx context.Context, dir string) (*csv.Scenario, error) {
	scenario, err := csv.NewLoader().LoadScenario(dir)
	if err != nil {
		return nil, fmt.Errorf("error loading scenario: %w", err)
	}
	if err := scenario.Apply(ctx, e.Ledger); err != nil {
		return nil, fmt.Errorf("failed to load scenario into store: %w", err)
	}
	return scenario, nil
}

// Close releases the store and publisher connections opened by Open
func (e *Engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	e.closers = nil
	return errors.Join(errs...)
}
