package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
)

// notFound maps gorm's missing-row error onto the domain one.
func notFound(err error, entity, key string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &entities.NotFoundError{Entity: entity, Key: key}
	}
	return fmt.Errorf("load %s %s: %w", entity, key, err)
}

// GetProduct returns a product by id
func (t *txn) GetProduct(ctx context.Context, id uuid.UUID) (*entities.Product, error) {
	var row productRow
	if err := t.query(ctx, false).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "product", id.String())
	}
	return row.entity()
}

// GetProductByCode returns a product by its code
func (t *txn) GetProductByCode(ctx context.Context, code string) (*entities.Product, error) {
	var row productRow
	if err := t.query(ctx, false).First(&row, "code = ?", code).Error; err != nil {
		return nil, notFound(err, "product", code)
	}
	return row.entity()
}

// SaveProduct inserts a product. Products are immutable once stored.
func (t *txn) SaveProduct(ctx context.Context, product *entities.Product) error {
	row := fromProduct(product)
	if err := t.write(ctx).Create(&row).Error; err != nil {
		if hasCode(err, codeUniqueViolation) {
			return fmt.Errorf("product %s already exists", product.Code)
		}
		return fmt.Errorf("insert product %s: %w", product.Code, err)
	}
	return nil
}

// GetWarehouse returns a warehouse by id
func (t *txn) GetWarehouse(ctx context.Context, id uuid.UUID) (*entities.Warehouse, error) {
	var row warehouseRow
	if err := t.query(ctx, false).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "warehouse", id.String())
	}
	return &entities.Warehouse{ID: row.ID, Code: row.Code, Name: row.Name}, nil
}

// GetWarehouseByCode returns a warehouse by its code
func (t *txn) GetWarehouseByCode(ctx context.Context, code string) (*entities.Warehouse, error) {
	var row warehouseRow
	if err := t.query(ctx, false).First(&row, "code = ?", code).Error; err != nil {
		return nil, notFound(err, "warehouse", code)
	}
	return &entities.Warehouse{ID: row.ID, Code: row.Code, Name: row.Name}, nil
}

// SaveWarehouse inserts or updates a warehouse
func (t *txn) SaveWarehouse(ctx context.Context, warehouse *entities.Warehouse) error {
	row := warehouseRow{ID: warehouse.ID, Code: warehouse.Code, Name: warehouse.Name}
	err := t.write(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"code", "name"}),
	}).Create(&row).Error
	if err != nil {
		if hasCode(err, codeUniqueViolation) {
			return fmt.Errorf("warehouse code %s already exists", warehouse.Code)
		}
		return fmt.Errorf("save warehouse %s: %w", warehouse.Code, err)
	}
	return nil
}
