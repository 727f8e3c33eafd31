package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
)

// BOMRepository provides access to Bill of Materials data
type BOMRepository interface {
	// GetBOM returns a BOM with its items in sequence order.
	GetBOM(ctx context.Context, id uuid.UUID) (*entities.BillOfMaterials, error)
	// ActiveBOMsForProduct returns every ACTIVE BOM owned by a product.
	ActiveBOMsForProduct(ctx context.Context, productID uuid.UUID) ([]*entities.BillOfMaterials, error)
	SaveBOM(ctx context.Context, bom *entities.BillOfMaterials) error
}
