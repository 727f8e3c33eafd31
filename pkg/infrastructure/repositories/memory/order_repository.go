package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
)

func cloneOrder(o entities.ProductionOrder) *entities.ProductionOrder {
	o.Components = append([]entities.ProductionOrderComponent(nil), o.Components...)
	return &o
}

// GetOrder returns an order with its components
func (t *txn) GetOrder(_ context.Context, id uuid.UUID, _ bool) (*entities.ProductionOrder, error) {
	o, ok := t.store.orders[id]
	if !ok {
		return nil, entities.NewNotFound("production order", id)
	}
	return cloneOrder(o), nil
}

// SaveOrder upserts an order and replaces its components
func (t *txn) SaveOrder(_ context.Context, order *entities.ProductionOrder) error {
	if err := t.write(); err != nil {
		return err
	}
	if _, ok := t.store.boms[order.BOMID]; !ok {
		return entities.NewNotFound("bom", order.BOMID)
	}

	remember(t, t.store.orders, order.ID)
	t.store.orders[order.ID] = *cloneOrder(*order)
	return nil
}
