package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/vsinha/mrpcore/pkg/domain/repositories"
)

// PostgreSQL error codes that mean "run the transaction again".
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
)

// Store is the PostgreSQL Ledger. Batches are locked FOR UPDATE in
// (entry_at, id) order, so concurrent allocations of one product queue
// behind each other while other products proceed.
type Store struct {
	db         *gorm.DB
	maxRetries int
}

var _ repositories.Ledger = (*Store)(nil)

// Open connects through lib/pq and migrates the schema.
func Open(dsn string, maxOpenConns, maxRetries int) (*Store, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxOpenConns / 5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	store := &Store{db: db, maxRetries: maxRetries}
	if err := store.Migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return store, nil
}

// Migrate creates the tables, then applies the constraints AutoMigrate
// cannot express. Every statement is idempotent.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(
		&productRow{},
		&warehouseRow{},
		&batchRow{},
		&reservationRow{},
		&bomRow{},
		&bomItemRow{},
		&orderRow{},
		&orderComponentRow{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(s.db)
}

func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"batch stock bounds", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_batches_reserved') THEN
    ALTER TABLE inventory_batches ADD CONSTRAINT chk_batches_reserved
      CHECK (reserved_quantity >= 0 AND reserved_quantity <= quantity_in_stock);
  END IF;
END $$`},
		{"positive reservation", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_reservations_quantity') THEN
    ALTER TABLE stock_reservations ADD CONSTRAINT chk_reservations_quantity CHECK (quantity > 0);
  END IF;
END $$`},
		{"order priority", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_orders_priority') THEN
    ALTER TABLE production_orders ADD CONSTRAINT chk_orders_priority CHECK (priority BETWEEN 1 AND 10);
  END IF;
END $$`},
		{"active bom lookup",
			`CREATE INDEX IF NOT EXISTS idx_boms_active ON boms (product_id) WHERE status = 'ACTIVE'`},
		{"eligible batch scan",
			`CREATE INDEX IF NOT EXISTS idx_batches_eligible ON inventory_batches (product_id, warehouse_id, entry_at, id)
			 WHERE quality = 'APPROVED' AND quantity_in_stock > reserved_quantity`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}

// Close releases the connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transact runs fn in a read-write transaction, retrying it from scratch on
// serialization failures and deadlocks.
func (s *Store) Transact(ctx context.Context, fn repositories.TxFunc) error {
	return s.run(ctx, nil, fn)
}

// View runs fn in a read-only transaction.
func (s *Store) View(ctx context.Context, fn repositories.TxFunc) error {
	return s.run(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func (s *Store) run(ctx context.Context, opts *sql.TxOptions, fn repositories.TxFunc) error {
	var err error
	for attempt := 0; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
			return fn(ctx, &txn{db: db})
		}, opts)
		if err == nil || !isRetryable(err) || attempt >= s.maxRetries {
			return err
		}

		backoff := time.Duration(attempt+1) * 10 * time.Millisecond
		log.Debug().Err(err).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("retrying transaction")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == codeSerializationFailure || pqErr.Code == codeDeadlockDetected
}

func hasCode(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}

// txn implements repositories.Tx over one gorm transaction.
type txn struct {
	db *gorm.DB
}

var _ repositories.Tx = (*txn)(nil)

func (t *txn) query(ctx context.Context, lock bool) *gorm.DB {
	db := t.db.WithContext(ctx)
	if lock {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func (t *txn) write(ctx context.Context) *gorm.DB {
	return t.db.WithContext(ctx).Omit(clause.Associations)
}
