package production

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vsinha/mrpcore/pkg/application/services/allocation"
	"github.com/vsinha/mrpcore/pkg/application/services/explosion"
	"github.com/vsinha/mrpcore/pkg/application/services/shared"
	"github.com/vsinha/mrpcore/pkg/domain/entities"
	"github.com/vsinha/mrpcore/pkg/domain/repositories"
	"github.com/vsinha/mrpcore/pkg/infrastructure/events"
)

// OrderRequest describes a new production order. A nil BOMID selects the
// product's ACTIVE BOM; an empty OrderNumber is generated.
type OrderRequest struct {
	OrderNumber  string
	ProductID    uuid.UUID
	BOMID        uuid.UUID
	WarehouseID  uuid.UUID
	Quantity     decimal.Decimal
	Priority     int
	PlannedStart *time.Time
	PlannedEnd   *time.Time
}

// Service drives production orders through their lifecycle. Every
// operation is one ledger transaction; events go out after it commits.
type Service struct {
	ledger    repositories.Ledger
	allocator *allocation.Service
	exploder  *explosion.Service
	publisher events.Publisher
	tracer    trace.Tracer
}

// NewService creates a new production order service
func NewService(ledger repositories.Ledger, allocator *allocation.Service, exploder *explosion.Service, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		ledger:    ledger,
		allocator: allocator,
		exploder:  exploder,
		publisher: publisher,
		tracer:    otel.Tracer(shared.TracerName + "production"),
	}
}

func newOrderNumber() string {
	return "PO-" + strings.ToUpper(uuid.NewString()[:8])
}

// CreateOrder stores a PENDING order. The BOM must be ACTIVE and belong to
// the ordered product.
func (s *Service) CreateOrder(ctx context.Context, req OrderRequest) (order *entities.ProductionOrder, err error) {
	ctx, span := s.tracer.Start(ctx, "production.create_order",
		trace.WithAttributes(
			attribute.String("product.id", req.ProductID.String()),
			attribute.String("quantity", req.Quantity.String()),
		),
	)
	defer func() { shared.EndSpan(span, err) }()

	if req.OrderNumber == "" {
		req.OrderNumber = newOrderNumber()
	}

	err = s.ledger.Transact(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if _, err := tx.GetProduct(ctx, req.ProductID); err != nil {
			return err
		}
		if _, err := tx.GetWarehouse(ctx, req.WarehouseID); err != nil {
			return err
		}

		bom, err := s.orderBOM(ctx, tx, req)
		if err != nil {
			return err
		}

		order, err = entities.NewProductionOrder(req.OrderNumber, req.ProductID, bom.ID, req.WarehouseID,
			req.Quantity, req.Priority, req.PlannedStart, req.PlannedEnd)
		if err != nil {
			return err
		}
		return tx.SaveOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", order.ID.String()))
	log.Info().Str("order", order.OrderNumber).Str("quantity", order.Quantity.String()).Msg("production order created")
	shared.Publish(ctx, s.publisher, events.NewOrderEvent(events.OrderCreatedEvent, order))
	return order, nil
}

func (s *Service) orderBOM(ctx context.Context, tx repositories.Tx, req OrderRequest) (*entities.BillOfMaterials, error) {
	if req.BOMID == uuid.Nil {
		return explosion.ResolveActiveBOMTx(ctx, tx, req.ProductID)
	}
	bom, err := tx.GetBOM(ctx, req.BOMID)
	if err != nil {
		return nil, err
	}
	if bom.ProductID != req.ProductID {
		return nil, fmt.Errorf("BOM %s does not belong to product %s", bom.Label(), req.ProductID)
	}
	if bom.Status != entities.BOMActive {
		return nil, &entities.InvalidStateError{Entity: "bom", ID: bom.ID, From: bom.Status.String(), To: "create order"}
	}
	return bom, nil
}

// GetOrder returns an order with its components
func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID) (*entities.ProductionOrder, error) {
	var order *entities.ProductionOrder
	err := s.ledger.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		order, err = tx.GetOrder(ctx, orderID, false)
		return err
	})
	return order, err
}

// ReleaseOrder moves a PENDING order to IN_PROGRESS: the BOM is exploded for
// the order quantity, one component is created per leaf and each is
// allocated from the order's warehouse. Leaves are allocated in ascending
// product id order. Any failure leaves neither components nor reservations.
func (s *Service) ReleaseOrder(ctx context.Context, orderID uuid.UUID) (order *entities.ProductionOrder, err error) {
	ctx, span := s.tracer.Start(ctx, "production.release_order",
		trace.WithAttributes(attribute.String("order.id", orderID.String())),
	)
	defer func() { shared.EndSpan(span, err) }()

	var created []*entities.StockReservation
	err = s.ledger.Transact(ctx, func(ctx context.Context, tx repositories.Tx) error {
		created = nil

		var err error
		order, err = tx.GetOrder(ctx, orderID, true)
		if err != nil {
			return err
		}
		if order.Status != entities.OrderPending {
			return &entities.InvalidStateError{Entity: "order", ID: order.ID, From: order.Status.String(), To: entities.OrderInProgress.String(), Transition: true}
		}

		exploded, err := s.exploder.ExplodeTx(ctx, tx, order.BOMID, order.Quantity, explosion.Options{
			WithCost:         true,
			WithAvailability: true,
			WarehouseID:      order.WarehouseID,
		})
		if err != nil {
			return err
		}
		if len(exploded.Missing) > 0 {
			short := exploded.Missing[0]
			return &entities.InsufficientStockError{
				ProductID:   short.ProductID,
				WarehouseID: order.WarehouseID,
				Required:    short.Required,
				Available:   short.Available,
			}
		}

		now := time.Now().UTC()
		components := make([]entities.ProductionOrderComponent, 0, len(exploded.Leaves))
		for _, leaf := range exploded.Leaves {
			component := entities.ProductionOrderComponent{
				ID:                uuid.New(),
				OrderID:           order.ID,
				ProductID:         leaf.ProductID,
				RequiredQuantity:  leaf.Quantity,
				AllocatedQuantity: decimal.Zero,
				ConsumedQuantity:  decimal.Zero,
				UnitCost:          decimal.Zero,
				Status:            entities.ComponentPending,
				CreatedAt:         now,
				UpdatedAt:         now,
			}

			demand := allocation.Demand{Type: entities.DemandOrderComponent, ID: component.ID}
			result, reservations, err := s.allocator.AllocateTx(ctx, tx, demand, leaf.ProductID, order.WarehouseID, leaf.Quantity)
			if err != nil {
				return fmt.Errorf("allocate %s for order %s: %w", leaf.ProductCode, order.OrderNumber, err)
			}
			created = append(created, reservations...)

			component.AllocatedQuantity = result.Quantity
			component.UnitCost = result.UnitCost()
			if err := component.TransitionTo(entities.ComponentAllocated); err != nil {
				return err
			}
			components = append(components, component)
		}

		if err := order.TransitionTo(entities.OrderInProgress, now); err != nil {
			return err
		}
		order.Components = components
		return tx.SaveOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("components", len(order.Components)),
		attribute.Int("reservations", len(created)),
	)
	log.Info().
		Str("order", order.OrderNumber).
		Int("components", len(order.Components)).
		Int("reservations", len(created)).
		Msg("production order released")

	evts := allocation.ReservationEvents(events.ReservationCreatedEvent, created)
	evts = append(evts, events.NewOrderEvent(events.OrderReleasedEvent, order))
	shared.Publish(ctx, s.publisher, evts...)
	return order, nil
}

// UpdateComponentStatus advances one component of an IN_PROGRESS order.
// Moving to CONSUMED consumes every ACTIVE reservation of the component and
// adds their quantity to its consumed quantity.
func (s *Service) UpdateComponentStatus(ctx context.Context, orderID, componentID uuid.UUID, next entities.ComponentStatus) (order *entities.ProductionOrder, err error) {
	ctx, span := s.tracer.Start(ctx, "production.update_component",
		trace.WithAttributes(
			attribute.String("order.id", orderID.String()),
			attribute.String("component.id", componentID.String()),
			attribute.String("status", next.String()),
		),
	)
	defer func() { shared.EndSpan(span, err) }()

	var consumed []*entities.StockReservation
	err = s.ledger.Transact(ctx, func(ctx context.Context, tx repositories.Tx) error {
		consumed = nil

		var err error
		order, err = tx.GetOrder(ctx, orderID, true)
		if err != nil {
			return err
		}
		if order.Status != entities.OrderInProgress {
			return &entities.InvalidStateError{Entity: "order", ID: order.ID, From: order.Status.String(), To: "update components"}
		}
		component, err := order.Component(componentID)
		if err != nil {
			return err
		}

		if next == entities.ComponentConsumed {
			if err := component.TransitionTo(next); err != nil {
				return err
			}
			active, err := allocation.ActiveReservations(ctx, tx, allocation.Demand{Type: entities.DemandOrderComponent, ID: component.ID})
			if err != nil {
				return err
			}
			// reservations released out from under the component leave nothing to consume
			held := decimal.Zero
			for _, r := range active {
				held = held.Add(r.Quantity)
			}
			if len(active) == 0 || held.LessThan(component.AllocatedQuantity) {
				return &entities.InvalidStateError{
					Entity: "order component",
					ID:     component.ID,
					From:   fmt.Sprintf("holding %s of %s allocated", held, component.AllocatedQuantity),
					To:     "consume",
				}
			}
			for _, r := range active {
				closed, err := s.allocator.ConsumeTx(ctx, tx, r.ID)
				if err != nil {
					return err
				}
				component.ConsumedQuantity = component.ConsumedQuantity.Add(closed.Quantity)
				consumed = append(consumed, closed)
			}
		} else if err := component.TransitionTo(next); err != nil {
			return err
		}

		order.UpdatedAt = time.Now().UTC()
		return tx.SaveOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("order", order.OrderNumber).
		Str("component", componentID.String()).
		Str("status", next.String()).
		Msg("component updated")
	shared.Publish(ctx, s.publisher, allocation.ReservationEvents(events.ReservationConsumedEvent, consumed)...)
	return order, nil
}

// CompleteOrder finishes an IN_PROGRESS order whose components are all
// COMPLETED and records the produced quantity.
func (s *Service) CompleteOrder(ctx context.Context, orderID uuid.UUID) (order *entities.ProductionOrder, err error) {
	ctx, span := s.tracer.Start(ctx, "production.complete_order",
		trace.WithAttributes(attribute.String("order.id", orderID.String())),
	)
	defer func() { shared.EndSpan(span, err) }()

	err = s.ledger.Transact(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		order, err = tx.GetOrder(ctx, orderID, true)
		if err != nil {
			return err
		}
		if order.Status == entities.OrderInProgress {
			if incomplete := order.IncompleteComponents(); len(incomplete) > 0 {
				return &entities.ComponentsIncompleteError{OrderID: order.ID, Incomplete: incomplete}
			}
		}
		if err := order.TransitionTo(entities.OrderCompleted, time.Now().UTC()); err != nil {
			return err
		}
		order.QuantityProduced = order.QuantityProduced.Add(order.Quantity)
		return tx.SaveOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("order", order.OrderNumber).Str("produced", order.QuantityProduced.String()).Msg("production order completed")
	shared.Publish(ctx, s.publisher, events.NewOrderEvent(events.OrderCompletedEvent, order))
	return order, nil
}

// CancelOrder cancels a PENDING or IN_PROGRESS order, releasing every ACTIVE
// reservation its components hold.
func (s *Service) CancelOrder(ctx context.Context, orderID uuid.UUID) (order *entities.ProductionOrder, err error) {
	ctx, span := s.tracer.Start(ctx, "production.cancel_order",
		trace.WithAttributes(attribute.String("order.id", orderID.String())),
	)
	defer func() { shared.EndSpan(span, err) }()

	var released []*entities.StockReservation
	err = s.ledger.Transact(ctx, func(ctx context.Context, tx repositories.Tx) error {
		released = nil

		var err error
		order, err = tx.GetOrder(ctx, orderID, true)
		if err != nil {
			return err
		}
		if err := order.TransitionTo(entities.OrderCancelled, time.Now().UTC()); err != nil {
			return err
		}

		for _, component := range order.Components {
			active, err := allocation.ActiveReservations(ctx, tx, allocation.Demand{Type: entities.DemandOrderComponent, ID: component.ID})
			if err != nil {
				return err
			}
			for _, r := range active {
				closed, err := s.allocator.ReleaseTx(ctx, tx, r.ID)
				if err != nil {
					return err
				}
				released = append(released, closed)
			}
		}
		return tx.SaveOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("order", order.OrderNumber).Int("released", len(released)).Msg("production order cancelled")
	evts := allocation.ReservationEvents(events.ReservationReleasedEvent, released)
	evts = append(evts, events.NewOrderEvent(events.OrderCancelledEvent, order))
	shared.Publish(ctx, s.publisher, evts...)
	return order, nil
}
