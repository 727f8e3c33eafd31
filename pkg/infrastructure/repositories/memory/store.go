package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
	"github.com/vsinha/mrpcore/pkg/domain/repositories"
)

// ErrReadOnly is returned when a write is attempted inside View.
var ErrReadOnly = errors.New("memory store: write in read-only transaction")

type stockKey struct {
	productID   uuid.UUID
	warehouseID uuid.UUID
}

type demandKey struct {
	demandType string
	demandID   uuid.UUID
}

// Store is an in-memory Ledger. Writers run one at a time; every write made
// inside Transact is journaled and undone in reverse if the unit of work fails.
// Entities are copied on the way in and out so callers never share state with
// the store.
type Store struct {
	mu sync.RWMutex

	products       map[uuid.UUID]entities.Product
	productCodes   map[string]uuid.UUID
	warehouses     map[uuid.UUID]entities.Warehouse
	warehouseCodes map[string]uuid.UUID

	batches      map[uuid.UUID]entities.InventoryBatch
	batchesByKey map[stockKey][]uuid.UUID

	reservations         map[uuid.UUID]entities.StockReservation
	reservationsByDemand map[demandKey][]uuid.UUID

	boms          map[uuid.UUID]entities.BillOfMaterials
	bomsByProduct map[uuid.UUID][]uuid.UUID

	orders map[uuid.UUID]entities.ProductionOrder
}

// NewStore creates an empty in-memory Ledger
func NewStore() *Store {
	return &Store{
		products:             make(map[uuid.UUID]entities.Product),
		productCodes:         make(map[string]uuid.UUID),
		warehouses:           make(map[uuid.UUID]entities.Warehouse),
		warehouseCodes:       make(map[string]uuid.UUID),
		batches:              make(map[uuid.UUID]entities.InventoryBatch),
		batchesByKey:         make(map[stockKey][]uuid.UUID),
		reservations:         make(map[uuid.UUID]entities.StockReservation),
		reservationsByDemand: make(map[demandKey][]uuid.UUID),
		boms:                 make(map[uuid.UUID]entities.BillOfMaterials),
		bomsByProduct:        make(map[uuid.UUID][]uuid.UUID),
		orders:               make(map[uuid.UUID]entities.ProductionOrder),
	}
}

// Verify interface compliance
var (
	_ repositories.Ledger = (*Store)(nil)
	_ repositories.Tx     = (*txn)(nil)
)

// Transact runs fn with exclusive write access.
func (s *Store) Transact(ctx context.Context, fn repositories.TxFunc) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txn{store: s}
	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			panic(r)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// View runs fn concurrently with other readers. Writes fail with ErrReadOnly.
func (s *Store) View(ctx context.Context, fn repositories.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(ctx, &txn{store: s, readOnly: true})
}

// CheckInvariants verifies that every batch's reserved quantity equals the sum
// of its ACTIVE reservations and stays within its stock.
func (s *Store) CheckInvariants() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make(map[uuid.UUID]decimal.Decimal)
	for _, r := range s.reservations {
		if r.Status == entities.ReservationActive {
			active[r.BatchID] = active[r.BatchID].Add(r.Quantity)
		}
	}

	for id, b := range s.batches {
		if !b.ReservedQuantity.Equal(active[id]) {
			return fmt.Errorf("batch %s: reserved %s but active reservations sum to %s", b.BatchNumber, b.ReservedQuantity, active[id])
		}
		if b.Available().IsNegative() {
			return fmt.Errorf("batch %s: reserved %s exceeds stock %s", b.BatchNumber, b.ReservedQuantity, b.QuantityInStock)
		}
	}
	return nil
}

// txn is the Tx handed to a unit of work.
type txn struct {
	store    *Store
	readOnly bool
	journal  []func()
}

func (t *txn) write() error {
	if t.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (t *txn) rollback() {
	for i := len(t.journal) - 1; i >= 0; i-- {
		t.journal[i]()
	}
	t.journal = nil
}

// remember journals the current value of m[k] so rollback can put it back.
func remember[K comparable, V any](t *txn, m map[K]V, k K) {
	old, existed := m[k]
	t.journal = append(t.journal, func() {
		if existed {
			m[k] = old
		} else {
			delete(m, k)
		}
	})
}

// appendIndex adds id to an index slice once, journaling the old slice.
func appendIndex[K comparable](t *txn, index map[K][]uuid.UUID, k K, id uuid.UUID) {
	for _, existing := range index[k] {
		if existing == id {
			return
		}
	}
	remember(t, index, k)
	ids := make([]uuid.UUID, len(index[k]), len(index[k])+1)
	copy(ids, index[k])
	index[k] = append(ids, id)
}
