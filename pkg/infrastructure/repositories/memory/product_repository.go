package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
)

// GetProduct returns a product by id
func (t *txn) GetProduct(_ context.Context, id uuid.UUID) (*entities.Product, error) {
	p, ok := t.store.products[id]
	if !ok {
		return nil, entities.NewNotFound("product", id)
	}
	return &p, nil
}

// GetProductByCode returns a product by its code
func (t *txn) GetProductByCode(ctx context.Context, code string) (*entities.Product, error) {
	id, ok := t.store.productCodes[code]
	if !ok {
		return nil, &entities.NotFoundError{Entity: "product", Key: code}
	}
	return t.GetProduct(ctx, id)
}

// SaveProduct inserts a product. Products are immutable once stored.
func (t *txn) SaveProduct(_ context.Context, product *entities.Product) error {
	if err := t.write(); err != nil {
		return err
	}
	if _, exists := t.store.products[product.ID]; exists {
		return fmt.Errorf("product %s already exists", product.Code)
	}
	if _, exists := t.store.productCodes[product.Code]; exists {
		return fmt.Errorf("product code %s already exists", product.Code)
	}

	remember(t, t.store.products, product.ID)
	remember(t, t.store.productCodes, product.Code)
	t.store.products[product.ID] = *product
	t.store.productCodes[product.Code] = product.ID
	return nil
}

// GetWarehouse returns a warehouse by id
func (t *txn) GetWarehouse(_ context.Context, id uuid.UUID) (*entities.Warehouse, error) {
	w, ok := t.store.warehouses[id]
	if !ok {
		return nil, entities.NewNotFound("warehouse", id)
	}
	return &w, nil
}

// GetWarehouseByCode returns a warehouse by its code
func (t *txn) GetWarehouseByCode(ctx context.Context, code string) (*entities.Warehouse, error) {
	id, ok := t.store.warehouseCodes[code]
	if !ok {
		return nil, &entities.NotFoundError{Entity: "warehouse", Key: code}
	}
	return t.GetWarehouse(ctx, id)
}

// SaveWarehouse inserts or updates a warehouse
func (t *txn) SaveWarehouse(_ context.Context, warehouse *entities.Warehouse) error {
	if err := t.write(); err != nil {
		return err
	}
	if id, exists := t.store.warehouseCodes[warehouse.Code]; exists && id != warehouse.ID {
		return fmt.Errorf("warehouse code %s already exists", warehouse.Code)
	}

	remember(t, t.store.warehouses, warehouse.ID)
	remember(t, t.store.warehouseCodes, warehouse.Code)
	t.store.warehouses[warehouse.ID] = *warehouse
	t.store.warehouseCodes[warehouse.Code] = warehouse.ID
	return nil
}
