package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
)

// OrderRepository provides access to production orders and their components
type OrderRepository interface {
	GetOrder(ctx context.Context, id uuid.UUID, lock bool) (*entities.ProductionOrder, error)
	// SaveOrder upserts the order and replaces its component rows.
	SaveOrder(ctx context.Context, order *entities.ProductionOrder) error
}
