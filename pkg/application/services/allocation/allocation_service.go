package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vsinha/mrpcore/pkg/application/services/shared"
	"github.com/vsinha/mrpcore/pkg/domain/entities"
	"github.com/vsinha/mrpcore/pkg/domain/repositories"
	"github.com/vsinha/mrpcore/pkg/domain/services"
	"github.com/vsinha/mrpcore/pkg/infrastructure/events"
)

// Demand identifies what a reservation is held for.
type Demand struct {
	Type string
	ID   uuid.UUID
}

// AdHoc returns a fresh demand for a direct allocation request.
func AdHoc() Demand {
	return Demand{Type: entities.DemandAdHoc, ID: uuid.New()}
}

// Service is the FIFO allocator. Every operation runs in one Ledger
// transaction; the *Tx variants let a caller fold allocation into a larger one.
type Service struct {
	ledger    repositories.Ledger
	publisher events.Publisher
	tracer    trace.Tracer
}

// NewService creates a new allocation service
func NewService(ledger repositories.Ledger, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		ledger:    ledger,
		publisher: publisher,
		tracer:    otel.Tracer(shared.TracerName + "allocation"),
	}
}

// Allocate reserves quantity of a product at a warehouse from its oldest
// eligible batches. Either the whole quantity is reserved or nothing is.
func (s *Service) Allocate(ctx context.Context, productID, warehouseID uuid.UUID, quantity decimal.Decimal) (result *entities.AllocationResult, err error) {
	ctx, span := s.tracer.Start(ctx, "allocation.allocate",
		trace.WithAttributes(
			attribute.String("product.id", productID.String()),
			attribute.String("warehouse.id", warehouseID.String()),
			attribute.String("quantity", quantity.String()),
		),
	)
	defer func() { shared.EndSpan(span, err) }()

	var created []*entities.StockReservation
	err = s.ledger.Transact(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var txErr error
		result, created, txErr = s.AllocateTx(ctx, tx, AdHoc(), productID, warehouseID, quantity)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("batches.touched", len(result.Allocations)))
	log.Debug().
		Str("product", productID.String()).
		Str("warehouse", warehouseID.String()).
		Str("quantity", quantity.String()).
		Int("batches", len(result.Allocations)).
		Msg("stock allocated")
	shared.Publish(ctx, s.publisher, ReservationEvents(events.ReservationCreatedEvent, created)...)
	return result, nil
}

// AllocateTx is Allocate inside the caller's transaction. Batches are locked
// and reserved in FIFO order.
func (s *Service) AllocateTx(
	ctx context.Context,
	tx repositories.Tx,
	demand Demand,
	productID, warehouseID uuid.UUID,
	quantity decimal.Decimal,
) (*entities.AllocationResult, []*entities.StockReservation, error) {
	if !quantity.IsPositive() {
		return nil, nil, fmt.Errorf("allocation quantity must be positive, got %s", quantity)
	}
	if _, err := tx.GetProduct(ctx, productID); err != nil {
		return nil, nil, err
	}
	if _, err := tx.GetWarehouse(ctx, warehouseID); err != nil {
		return nil, nil, err
	}

	batches, err := tx.EligibleBatches(ctx, productID, warehouseID, true)
	if err != nil {
		return nil, nil, fmt.Errorf("load eligible batches: %w", err)
	}
	plan, err := services.PlanFIFO(productID, warehouseID, batches, quantity)
	if err != nil {
		return nil, nil, err
	}

	result := &entities.AllocationResult{
		ProductID:   productID,
		WarehouseID: warehouseID,
		DemandType:  demand.Type,
		DemandID:    demand.ID,
		Quantity:    quantity,
		TotalCost:   plan.Cost,
		Allocations: make([]entities.Allocation, 0, len(plan.Picks)),
	}
	reservations := make([]*entities.StockReservation, 0, len(plan.Picks))

	for _, pick := range plan.Picks {
		batch := pick.Batch
		if err := batch.Reserve(pick.Quantity); err != nil {
			return nil, nil, err
		}
		batch.UpdatedAt = time.Now().UTC()
		if err := tx.SaveBatch(ctx, batch); err != nil {
			return nil, nil, fmt.Errorf("save batch %s: %w", batch.BatchNumber, err)
		}

		reservation := entities.NewStockReservation(batch, pick.Quantity, demand.Type, demand.ID)
		if err := tx.CreateReservation(ctx, reservation); err != nil {
			return nil, nil, fmt.Errorf("create reservation on batch %s: %w", batch.BatchNumber, err)
		}
		reservations = append(reservations, reservation)

		result.Allocations = append(result.Allocations, entities.Allocation{
			ReservationID: reservation.ID,
			BatchID:       batch.ID,
			BatchNumber:   batch.BatchNumber,
			EntryAt:       batch.EntryAt,
			Quantity:      pick.Quantity,
			UnitCost:      batch.UnitCost,
		})
	}

	return result, reservations, nil
}

// ReleaseReservation returns an ACTIVE reservation's quantity to its batch.
func (s *Service) ReleaseReservation(ctx context.Context, reservationID uuid.UUID) error {
	return s.closeReservation(ctx, "allocation.release", reservationID, entities.ReservationReleased)
}

// ConsumeReservation takes an ACTIVE reservation's quantity out of stock.
func (s *Service) ConsumeReservation(ctx context.Context, reservationID uuid.UUID) error {
	return s.closeReservation(ctx, "allocation.consume", reservationID, entities.ReservationConsumed)
}

func (s *Service) closeReservation(ctx context.Context, spanName string, reservationID uuid.UUID, status entities.ReservationStatus) (err error) {
	ctx, span := s.tracer.Start(ctx, spanName,
		trace.WithAttributes(attribute.String("reservation.id", reservationID.String())),
	)
	defer func() { shared.EndSpan(span, err) }()

	var closed *entities.StockReservation
	err = s.ledger.Transact(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var txErr error
		if status == entities.ReservationConsumed {
			closed, txErr = s.ConsumeTx(ctx, tx, reservationID)
		} else {
			closed, txErr = s.ReleaseTx(ctx, tx, reservationID)
		}
		return txErr
	})
	if err != nil {
		return err
	}

	eventType := events.ReservationReleasedEvent
	if status == entities.ReservationConsumed {
		eventType = events.ReservationConsumedEvent
	}
	log.Debug().Str("reservation", reservationID.String()).Str("status", status.String()).Msg("reservation closed")
	shared.Publish(ctx, s.publisher, events.NewReservationEvent(eventType, closed))
	return nil
}

// ReleaseTx releases a reservation inside the caller's transaction. Stock is
// untouched, so the batch keeps its FIFO position.
func (s *Service) ReleaseTx(ctx context.Context, tx repositories.Tx, reservationID uuid.UUID) (*entities.StockReservation, error) {
	return s.closeTx(ctx, tx, reservationID, entities.ReservationReleased, func(b *entities.InventoryBatch, qty decimal.Decimal) error {
		return b.Unreserve(qty)
	})
}

// ConsumeTx consumes a reservation inside the caller's transaction.
func (s *Service) ConsumeTx(ctx context.Context, tx repositories.Tx, reservationID uuid.UUID) (*entities.StockReservation, error) {
	return s.closeTx(ctx, tx, reservationID, entities.ReservationConsumed, func(b *entities.InventoryBatch, qty decimal.Decimal) error {
		return b.ConsumeReserved(qty)
	})
}

func (s *Service) closeTx(
	ctx context.Context,
	tx repositories.Tx,
	reservationID uuid.UUID,
	status entities.ReservationStatus,
	apply func(*entities.InventoryBatch, decimal.Decimal) error,
) (*entities.StockReservation, error) {
	reservation, err := tx.GetReservation(ctx, reservationID, true)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := reservation.Close(status, now); err != nil {
		return nil, err
	}

	batch, err := tx.GetBatch(ctx, reservation.BatchID, true)
	if err != nil {
		return nil, err
	}
	if err := apply(batch, reservation.Quantity); err != nil {
		return nil, err
	}
	batch.UpdatedAt = now

	if err := tx.SaveBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("save batch %s: %w", batch.BatchNumber, err)
	}
	if err := tx.UpdateReservation(ctx, reservation); err != nil {
		return nil, fmt.Errorf("update reservation %s: %w", reservation.ID, err)
	}
	return reservation, nil
}

// ActiveReservations returns the ACTIVE reservations held for a demand.
func ActiveReservations(ctx context.Context, tx repositories.Tx, demand Demand) ([]*entities.StockReservation, error) {
	all, err := tx.ListReservationsByDemand(ctx, demand.Type, demand.ID)
	if err != nil {
		return nil, err
	}
	active := make([]*entities.StockReservation, 0, len(all))
	for _, r := range all {
		if r.Status == entities.ReservationActive {
			active = append(active, r)
		}
	}
	return active, nil
}

// ReservationEvents builds one event per reservation.
func ReservationEvents(eventType string, reservations []*entities.StockReservation) []events.Event {
	evts := make([]events.Event, 0, len(reservations))
	for _, r := range reservations {
		evts = append(evts, events.NewReservationEvent(eventType, r))
	}
	return evts
}
