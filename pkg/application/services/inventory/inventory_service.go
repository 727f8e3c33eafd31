package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vsinha/mrpcore/pkg/application/services/allocation"
	"github.com/vsinha/mrpcore/pkg/application/services/shared"
	"github.com/vsinha/mrpcore/pkg/domain/entities"
	"github.com/vsinha/mrpcore/pkg/domain/repositories"
	"github.com/vsinha/mrpcore/pkg/infrastructure/events"
)

// BatchRequest describes a stock-in. An empty BatchNumber is generated and
// a zero EntryAt means now.
type BatchRequest struct {
	BatchNumber string
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	EntryAt     time.Time
	Quality     entities.QualityStatus
	ExpiresAt   *time.Time
}

// StockLevel summarises one product at one warehouse. Available only counts
// APPROVED batches.
type StockLevel struct {
	ProductID   uuid.UUID
	ProductCode string
	WarehouseID uuid.UUID
	OnHand      decimal.Decimal
	Reserved    decimal.Decimal
	Available   decimal.Decimal
	Batches     int
	Status      entities.StockStatus
}

// Service handles master data and stock-in
type Service struct {
	ledger    repositories.Ledger
	publisher events.Publisher
	tracer    trace.Tracer
}

// NewService creates a new inventory service
func NewService(ledger repositories.Ledger, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		ledger:    ledger,
		publisher: publisher,
		tracer:    otel.Tracer(shared.TracerName + "inventory"),
	}
}

// RegisterProduct stores a new product
func (s *Service) RegisterProduct(ctx context.Context, product *entities.Product) error {
	return s.ledger.Transact(ctx, func(ctx context.Context, tx repositories.Tx) error {
		return tx.SaveProduct(ctx, product)
	})
}

// RegisterWarehouse stores or renames a warehouse
func (s *Service) RegisterWarehouse(ctx context.Context, warehouse *entities.Warehouse) error {
	return s.ledger.Transact(ctx, func(ctx context.Context, tx repositories.Tx) error {
		return tx.SaveWarehouse(ctx, warehouse)
	})
}

// ReceiveBatch books a new batch into stock
func (s *Service) ReceiveBatch(ctx context.Context, req BatchRequest) (batch *entities.InventoryBatch, err error) {
	ctx, span := s.tracer.Start(ctx, "inventory.receive_batch",
		trace.WithAttributes(
			attribute.String("product.id", req.ProductID.String()),
			attribute.String("warehouse.id", req.WarehouseID.String()),
			attribute.String("quantity", req.Quantity.String()),
		),
	)
	defer func() { shared.EndSpan(span, err) }()

	if req.BatchNumber == "" {
		req.BatchNumber = "B-" + strings.ToUpper(uuid.NewString()[:8])
	}
	if req.EntryAt.IsZero() {
		req.EntryAt = time.Now().UTC()
	}
	batch, err = entities.NewInventoryBatch(req.BatchNumber, req.ProductID, req.WarehouseID,
		req.Quantity, req.UnitCost, req.EntryAt, req.Quality, req.ExpiresAt)
	if err != nil {
		return nil, err
	}

	err = s.ledger.Transact(ctx, func(ctx context.Context, tx repositories.Tx) error {
		return tx.SaveBatch(ctx, batch)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("batch", batch.BatchNumber).
		Str("quantity", batch.QuantityInStock.String()).
		Str("quality", batch.Quality.String()).
		Msg("batch received")
	shared.Publish(ctx, s.publisher, events.NewBatchReceived(batch))
	return batch, nil
}

// SetBatchQuality moves a batch through the quality table
func (s *Service) SetBatchQuality(ctx context.Context, batchID uuid.UUID, next entities.QualityStatus) (*entities.InventoryBatch, error) {
	var batch *entities.InventoryBatch
	err := s.ledger.Transact(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		batch, err = tx.GetBatch(ctx, batchID, true)
		if err != nil {
			return err
		}
		if !batch.Quality.CanTransitionTo(next) {
			return &entities.InvalidStateError{Entity: "batch", ID: batch.ID, From: batch.Quality.String(), To: next.String(), Transition: true}
		}
		batch.Quality = next
		batch.UpdatedAt = time.Now().UTC()
		return tx.SaveBatch(ctx, batch)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("batch", batch.BatchNumber).Str("quality", next.String()).Msg("batch quality changed")
	return batch, nil
}

// AdjustBatch corrects a batch's stock to a counted quantity
func (s *Service) AdjustBatch(ctx context.Context, batchID uuid.UUID, counted decimal.Decimal, reason string) (*entities.InventoryBatch, error) {
	var (
		batch    *entities.InventoryBatch
		previous decimal.Decimal
	)
	err := s.ledger.Transact(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		batch, err = tx.GetBatch(ctx, batchID, true)
		if err != nil {
			return err
		}
		previous = batch.QuantityInStock
		if err := batch.Adjust(counted); err != nil {
			return err
		}
		batch.UpdatedAt = time.Now().UTC()
		return tx.SaveBatch(ctx, batch)
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("batch", batch.BatchNumber).
		Str("from", previous.String()).
		Str("to", counted.String()).
		Str("reason", reason).
		Msg("batch adjusted")
	return batch, nil
}

// StockLevel totals a product's batches at a warehouse
func (s *Service) StockLevel(ctx context.Context, productID, warehouseID uuid.UUID) (*StockLevel, error) {
	var level *StockLevel
	err := s.ledger.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if _, err := tx.GetWarehouse(ctx, warehouseID); err != nil {
			return err
		}
		batches, err := tx.ListBatches(ctx, productID, warehouseID)
		if err != nil {
			return err
		}

		level = &StockLevel{
			ProductID:   productID,
			ProductCode: product.Code,
			WarehouseID: warehouseID,
			OnHand:      decimal.Zero,
			Reserved:    decimal.Zero,
			Available:   decimal.Zero,
			Batches:     len(batches),
		}
		for _, b := range batches {
			level.OnHand = level.OnHand.Add(b.QuantityInStock)
			level.Reserved = level.Reserved.Add(b.ReservedQuantity)
			if b.IsEligible() {
				level.Available = level.Available.Add(b.Available())
			}
		}
		level.Status = product.StockStatusFor(level.Available)
		return nil
	})
	return level, err
}

// ListReservations returns every reservation held for a demand
func (s *Service) ListReservations(ctx context.Context, demand allocation.Demand) ([]*entities.StockReservation, error) {
	var reservations []*entities.StockReservation
	err := s.ledger.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		reservations, err = tx.ListReservationsByDemand(ctx, demand.Type, demand.ID)
		return err
	})
	return reservations, err
}
