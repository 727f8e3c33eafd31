package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
)

// BatchRepository provides access to inventory batches.
//
// When lock is true the returned rows stay claimed by the calling transaction
// until it ends. Stores that serialize writers may ignore it.
type BatchRepository interface {
	// EligibleBatches returns APPROVED batches of a product at a warehouse
	// with available quantity above zero, ordered by entry time then id.
	EligibleBatches(ctx context.Context, productID, warehouseID uuid.UUID, lock bool) ([]*entities.InventoryBatch, error)
	// ListBatches returns every batch of a product at a warehouse, zeroed ones included.
	ListBatches(ctx context.Context, productID, warehouseID uuid.UUID) ([]*entities.InventoryBatch, error)
	GetBatch(ctx context.Context, id uuid.UUID, lock bool) (*entities.InventoryBatch, error)
	SaveBatch(ctx context.Context, batch *entities.InventoryBatch) error
}

// ReservationRepository provides access to stock reservations
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation *entities.StockReservation) error
	GetReservation(ctx context.Context, id uuid.UUID, lock bool) (*entities.StockReservation, error)
	UpdateReservation(ctx context.Context, reservation *entities.StockReservation) error
	// ListReservationsByDemand returns reservations for one demand in creation order.
	ListReservationsByDemand(ctx context.Context, demandType string, demandID uuid.UUID) ([]*entities.StockReservation, error)
}
