package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
)

func batchEntities(rows []batchRow) ([]*entities.InventoryBatch, error) {
	batches := make([]*entities.InventoryBatch, 0, len(rows))
	for _, row := range rows {
		b, err := row.entity()
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, nil
}

// EligibleBatches returns APPROVED batches with stock left in FIFO order.
// With lock set the rows are locked in that same order.
func (t *txn) EligibleBatches(ctx context.Context, productID, warehouseID uuid.UUID, lock bool) ([]*entities.InventoryBatch, error) {
	var rows []batchRow
	err := t.query(ctx, lock).
		Where("product_id = ? AND warehouse_id = ? AND quality = ? AND quantity_in_stock > reserved_quantity",
			productID, warehouseID, entities.QualityApproved.String()).
		Order("entry_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query eligible batches: %w", err)
	}
	return batchEntities(rows)
}

// ListBatches returns every batch for a product at a warehouse in FIFO order
func (t *txn) ListBatches(ctx context.Context, productID, warehouseID uuid.UUID) ([]*entities.InventoryBatch, error) {
	var rows []batchRow
	err := t.query(ctx, false).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		Order("entry_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	return batchEntities(rows)
}

// GetBatch returns a batch by id
func (t *txn) GetBatch(ctx context.Context, id uuid.UUID, lock bool) (*entities.InventoryBatch, error) {
	var row batchRow
	if err := t.query(ctx, lock).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "batch", id.String())
	}
	return row.entity()
}

// SaveBatch inserts or updates a batch. Product and warehouse never change
// after insert.
func (t *txn) SaveBatch(ctx context.Context, batch *entities.InventoryBatch) error {
	row := fromBatch(batch)
	err := t.write(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"quantity_in_stock", "reserved_quantity", "unit_cost", "quality", "expires_at", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		if hasCode(err, codeCheckViolation) {
			return fmt.Errorf("batch %s violates stock bounds: stock %s, reserved %s",
				batch.BatchNumber, batch.QuantityInStock, batch.ReservedQuantity)
		}
		return fmt.Errorf("save batch %s: %w", batch.BatchNumber, err)
	}
	return nil
}

// CreateReservation inserts a new reservation
func (t *txn) CreateReservation(ctx context.Context, reservation *entities.StockReservation) error {
	row := fromReservation(reservation)
	if err := t.write(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert reservation %s: %w", reservation.ID, err)
	}
	return nil
}

// GetReservation returns a reservation by id
func (t *txn) GetReservation(ctx context.Context, id uuid.UUID, lock bool) (*entities.StockReservation, error) {
	var row reservationRow
	if err := t.query(ctx, lock).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "reservation", id.String())
	}
	return row.entity()
}

// UpdateReservation overwrites an existing reservation's status
func (t *txn) UpdateReservation(ctx context.Context, reservation *entities.StockReservation) error {
	result := t.write(ctx).Model(&reservationRow{}).
		Where("id = ?", reservation.ID).
		Updates(map[string]interface{}{
			"status":    reservation.Status.String(),
			"closed_at": reservation.ClosedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update reservation %s: %w", reservation.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return entities.NewNotFound("reservation", reservation.ID)
	}
	return nil
}

// ListReservationsByDemand returns the reservations raised for one demand
func (t *txn) ListReservationsByDemand(ctx context.Context, demandType string, demandID uuid.UUID) ([]*entities.StockReservation, error) {
	var rows []reservationRow
	err := t.query(ctx, false).
		Where("demand_type = ? AND demand_id = ?", demandType, demandID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	reservations := make([]*entities.StockReservation, 0, len(rows))
	for _, row := range rows {
		r, err := row.entity()
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, r)
	}
	return reservations, nil
}
