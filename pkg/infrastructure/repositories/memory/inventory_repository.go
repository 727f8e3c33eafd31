package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
	"github.com/vsinha/mrpcore/pkg/domain/services"
)

// EligibleBatches returns APPROVED batches with stock left, in FIFO order.
// Writers are already serialized, so lock has nothing to add.
func (t *txn) EligibleBatches(_ context.Context, productID, warehouseID uuid.UUID, _ bool) ([]*entities.InventoryBatch, error) {
	var eligible []*entities.InventoryBatch
	for _, id := range t.store.batchesByKey[stockKey{productID, warehouseID}] {
		b := t.store.batches[id]
		if b.IsEligible() {
			eligible = append(eligible, &b)
		}
	}
	services.SortFIFO(eligible)
	return eligible, nil
}

// ListBatches returns every batch for a product at a warehouse in FIFO order
func (t *txn) ListBatches(_ context.Context, productID, warehouseID uuid.UUID) ([]*entities.InventoryBatch, error) {
	ids := t.store.batchesByKey[stockKey{productID, warehouseID}]
	batches := make([]*entities.InventoryBatch, 0, len(ids))
	for _, id := range ids {
		b := t.store.batches[id]
		batches = append(batches, &b)
	}
	services.SortFIFO(batches)
	return batches, nil
}

// GetBatch returns a batch by id
func (t *txn) GetBatch(_ context.Context, id uuid.UUID, _ bool) (*entities.InventoryBatch, error) {
	b, ok := t.store.batches[id]
	if !ok {
		return nil, entities.NewNotFound("batch", id)
	}
	return &b, nil
}

// SaveBatch inserts or updates a batch. Product and warehouse are fixed once
// stored, and reserved quantity must stay within [0, stock].
func (t *txn) SaveBatch(_ context.Context, batch *entities.InventoryBatch) error {
	if err := t.write(); err != nil {
		return err
	}
	if batch.ReservedQuantity.IsNegative() || batch.Available().IsNegative() {
		return fmt.Errorf("batch %s violates stock bounds: stock %s, reserved %s",
			batch.BatchNumber, batch.QuantityInStock, batch.ReservedQuantity)
	}
	if _, ok := t.store.products[batch.ProductID]; !ok {
		return entities.NewNotFound("product", batch.ProductID)
	}
	if _, ok := t.store.warehouses[batch.WarehouseID]; !ok {
		return entities.NewNotFound("warehouse", batch.WarehouseID)
	}
	if existing, ok := t.store.batches[batch.ID]; ok &&
		(existing.ProductID != batch.ProductID || existing.WarehouseID != batch.WarehouseID) {
		return fmt.Errorf("batch %s cannot move between products or warehouses", batch.BatchNumber)
	}

	remember(t, t.store.batches, batch.ID)
	t.store.batches[batch.ID] = *batch
	appendIndex(t, t.store.batchesByKey, stockKey{batch.ProductID, batch.WarehouseID}, batch.ID)
	return nil
}

// CreateReservation inserts a new reservation
func (t *txn) CreateReservation(_ context.Context, reservation *entities.StockReservation) error {
	if err := t.write(); err != nil {
		return err
	}
	if _, exists := t.store.reservations[reservation.ID]; exists {
		return fmt.Errorf("reservation %s already exists", reservation.ID)
	}
	if _, ok := t.store.batches[reservation.BatchID]; !ok {
		return entities.NewNotFound("batch", reservation.BatchID)
	}

	remember(t, t.store.reservations, reservation.ID)
	t.store.reservations[reservation.ID] = *reservation
	appendIndex(t, t.store.reservationsByDemand, demandKey{reservation.DemandType, reservation.DemandID}, reservation.ID)
	return nil
}

// GetReservation returns a reservation by id
func (t *txn) GetReservation(_ context.Context, id uuid.UUID, _ bool) (*entities.StockReservation, error) {
	r, ok := t.store.reservations[id]
	if !ok {
		return nil, entities.NewNotFound("reservation", id)
	}
	return &r, nil
}

// UpdateReservation overwrites an existing reservation
func (t *txn) UpdateReservation(_ context.Context, reservation *entities.StockReservation) error {
	if err := t.write(); err != nil {
		return err
	}
	if _, ok := t.store.reservations[reservation.ID]; !ok {
		return entities.NewNotFound("reservation", reservation.ID)
	}

	remember(t, t.store.reservations, reservation.ID)
	t.store.reservations[reservation.ID] = *reservation
	return nil
}

// ListReservationsByDemand returns the reservations raised for one demand
func (t *txn) ListReservationsByDemand(_ context.Context, demandType string, demandID uuid.UUID) ([]*entities.StockReservation, error) {
	ids := t.store.reservationsByDemand[demandKey{demandType, demandID}]
	reservations := make([]*entities.StockReservation, 0, len(ids))
	for _, id := range ids {
		r := t.store.reservations[id]
		reservations = append(reservations, &r)
	}
	sort.SliceStable(reservations, func(i, j int) bool {
		return reservations[i].CreatedAt.Before(reservations[j].CreatedAt)
	})
	return reservations, nil
}
