package costing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vsinha/mrpcore/pkg/application/services/shared"
	"github.com/vsinha/mrpcore/pkg/domain/entities"
	"github.com/vsinha/mrpcore/pkg/domain/repositories"
	"github.com/vsinha/mrpcore/pkg/domain/services"
)

// Quote is what a FIFO allocation of Quantity would cost right now. Nothing
// is reserved; a later allocation may cost more or less if stock moves.
type Quote struct {
	ProductID       uuid.UUID
	WarehouseID     uuid.UUID
	Quantity        decimal.Decimal
	UnitCost        decimal.Decimal
	TotalCost       decimal.Decimal
	WeightedAverage decimal.Decimal
	Covered         decimal.Decimal
	Available       decimal.Decimal
	Shortfall       decimal.Decimal
	Batches         []entities.Allocation
}

// Short reports whether eligible stock cannot cover Quantity.
func (q *Quote) Short() bool {
	return q.Shortfall.IsPositive()
}

// Service is the cost engine. It walks batches exactly as the allocator does.
type Service struct {
	ledger repositories.Ledger
	tracer trace.Tracer
}

// NewService creates a new costing service
func NewService(ledger repositories.Ledger) *Service {
	return &Service{
		ledger: ledger,
		tracer: otel.Tracer(shared.TracerName + "costing"),
	}
}

// QuoteCost prices quantity of a product at a warehouse without reserving it.
func (s *Service) QuoteCost(ctx context.Context, productID, warehouseID uuid.UUID, quantity decimal.Decimal) (quote *Quote, err error) {
	ctx, span := s.tracer.Start(ctx, "costing.quote",
		trace.WithAttributes(
			attribute.String("product.id", productID.String()),
			attribute.String("warehouse.id", warehouseID.String()),
			attribute.String("quantity", quantity.String()),
		),
	)
	defer func() { shared.EndSpan(span, err) }()

	err = s.ledger.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if _, err := tx.GetProduct(ctx, productID); err != nil {
			return err
		}
		if _, err := tx.GetWarehouse(ctx, warehouseID); err != nil {
			return err
		}
		var txErr error
		quote, txErr = s.QuoteTx(ctx, tx, productID, warehouseID, quantity)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("quote.total", quote.TotalCost.String()))
	return quote, nil
}

// QuoteTx prices a requirement inside the caller's transaction. Whatever the
// FIFO walk cannot cover is priced at the weighted average, so TotalCost is
// always for the full Quantity.
func (s *Service) QuoteTx(ctx context.Context, tx repositories.Tx, productID, warehouseID uuid.UUID, quantity decimal.Decimal) (*Quote, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("quote quantity must be positive, got %s", quantity)
	}

	batches, err := tx.EligibleBatches(ctx, productID, warehouseID, false)
	if err != nil {
		return nil, fmt.Errorf("load eligible batches: %w", err)
	}

	plan := services.WalkFIFO(batches, quantity)
	average := services.WeightedAverageCost(batches)
	total := plan.Cost.Add(plan.Shortfall().Mul(average))

	quote := &Quote{
		ProductID:       productID,
		WarehouseID:     warehouseID,
		Quantity:        quantity,
		UnitCost:        total.DivRound(quantity, 6),
		TotalCost:       total,
		WeightedAverage: average,
		Covered:         plan.Covered,
		Available:       plan.Available,
		Shortfall:       plan.Shortfall(),
		Batches:         make([]entities.Allocation, 0, len(plan.Picks)),
	}
	for _, pick := range plan.Picks {
		quote.Batches = append(quote.Batches, entities.Allocation{
			BatchID:     pick.Batch.ID,
			BatchNumber: pick.Batch.BatchNumber,
			EntryAt:     pick.Batch.EntryAt,
			Quantity:    pick.Quantity,
			UnitCost:    pick.Batch.UnitCost,
		})
	}
	return quote, nil
}
