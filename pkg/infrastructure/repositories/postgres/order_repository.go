package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
)

// Components come back in ascending product id order, the order release
// allocates them in.
func orderedComponents(db *gorm.DB) *gorm.DB {
	return db.Order("product_id ASC")
}

// GetOrder returns an order with its components. lock locks the order row,
// serializing workflow steps on one order.
func (t *txn) GetOrder(ctx context.Context, id uuid.UUID, lock bool) (*entities.ProductionOrder, error) {
	var row orderRow
	err := t.query(ctx, lock).
		Preload("Components", orderedComponents).
		First(&row, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "production order", id.String())
	}
	return row.entity()
}

// SaveOrder upserts an order and replaces its components
func (t *txn) SaveOrder(ctx context.Context, order *entities.ProductionOrder) error {
	row, components := fromOrder(order)
	err := t.write(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"quantity_produced", "status", "actual_start", "actual_end", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save order %s: %w", order.OrderNumber, err)
	}

	if err := t.write(ctx).Where("order_id = ?", order.ID).Delete(&orderComponentRow{}).Error; err != nil {
		return fmt.Errorf("clear order %s components: %w", order.OrderNumber, err)
	}
	if len(components) == 0 {
		return nil
	}
	if err := t.write(ctx).Create(&components).Error; err != nil {
		return fmt.Errorf("insert order %s components: %w", order.OrderNumber, err)
	}
	return nil
}
