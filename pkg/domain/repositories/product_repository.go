package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
)

// ProductRepository provides access to product master data
type ProductRepository interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*entities.Product, error)
	GetProductByCode(ctx context.Context, code string) (*entities.Product, error)
	SaveProduct(ctx context.Context, product *entities.Product) error
}

// WarehouseRepository provides access to stocking locations
type WarehouseRepository interface {
	GetWarehouse(ctx context.Context, id uuid.UUID) (*entities.Warehouse, error)
	GetWarehouseByCode(ctx context.Context, code string) (*entities.Warehouse, error)
	SaveWarehouse(ctx context.Context, warehouse *entities.Warehouse) error
}
