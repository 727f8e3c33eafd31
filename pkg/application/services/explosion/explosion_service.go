package explosion

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vsinha/mrpcore/pkg/application/services/costing"
	"github.com/vsinha/mrpcore/pkg/application/services/shared"
	"github.com/vsinha/mrpcore/pkg/domain/repositories"
	"github.com/vsinha/mrpcore/pkg/domain/services"
	"github.com/vsinha/mrpcore/pkg/infrastructure/events"
)

// CostMethod selects the unit cost applied to leaf requirements
type CostMethod string

const (
	// CostFIFO prices each leaf at what allocating it now would cost.
	CostFIFO CostMethod = "fifo"
	// CostWeightedAverage prices each leaf at the weighted average of eligible stock.
	CostWeightedAverage CostMethod = "weighted_average"
)

// Options selects the optional parts of an explosion
type Options struct {
	WithCost         bool
	WithAvailability bool
	WarehouseID      uuid.UUID // required by either option
}

// LeafRequirement is the aggregated need for one leaf product
type LeafRequirement struct {
	ProductID   uuid.UUID
	ProductCode string
	Quantity    decimal.Decimal
	Level       int
	Paths       int
	UnitCost    decimal.Decimal
	TotalCost   decimal.Decimal
	Available   decimal.Decimal
	Shortage    decimal.Decimal
}

// Shortage flags a leaf the warehouse cannot cover
type Shortage struct {
	ProductID   uuid.UUID
	ProductCode string
	Required    decimal.Decimal
	Available   decimal.Decimal
	Shortage    decimal.Decimal
}

// Result is a flattened explosion
type Result struct {
	BOMID         uuid.UUID
	BOMLabel      string
	ProductID     uuid.UUID
	Multiplier    decimal.Decimal
	Leaves        []LeafRequirement // ascending product id
	Intermediates []Intermediate
	Costed        bool
	TotalCost     decimal.Decimal
	Missing       []Shortage
	MaxDepth      int
}

// Service is the BOM explosion engine and owner of the BOM lifecycle.
type Service struct {
	ledger     repositories.Ledger
	costs      *costing.Service
	validator  *services.BOMValidator
	publisher  events.Publisher
	maxDepth   int
	costMethod CostMethod
	tracer     trace.Tracer
}

// Option configures a Service
type Option func(*Service)

// WithMaxDepth sets the recursion safety net
func WithMaxDepth(depth int) Option {
	return func(s *Service) { s.maxDepth = depth }
}

// WithCostMethod sets how leaves are priced
func WithCostMethod(method CostMethod) Option {
	return func(s *Service) { s.costMethod = method }
}

// NewService creates a new explosion service
func NewService(ledger repositories.Ledger, costs *costing.Service, publisher events.Publisher, opts ...Option) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	s := &Service{
		ledger:     ledger,
		costs:      costs,
		validator:  services.NewBOMValidator(),
		publisher:  publisher,
		maxDepth:   DefaultMaxDepth,
		costMethod: CostFIFO,
		tracer:     otel.Tracer(shared.TracerName + "explosion"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExplodeBOM flattens a BOM into leaf requirements for multiplier units of
// its product. It never writes.
func (s *Service) ExplodeBOM(ctx context.Context, bomID uuid.UUID, multiplier decimal.Decimal, opts Options) (result *Result, err error) {
	ctx, span := s.tracer.Start(ctx, "explosion.explode",
		trace.WithAttributes(
			attribute.String("bom.id", bomID.String()),
			attribute.String("multiplier", multiplier.String()),
			attribute.Bool("with.cost", opts.WithCost),
			attribute.Bool("with.availability", opts.WithAvailability),
		),
	)
	defer func() { shared.EndSpan(span, err) }()

	err = s.ledger.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var txErr error
		result, txErr = s.ExplodeTx(ctx, tx, bomID, multiplier, opts)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("leaves", len(result.Leaves)),
		attribute.Int("max.depth", result.MaxDepth),
	)
	return result, nil
}

// ExplodeTx is ExplodeBOM inside the caller's transaction.
func (s *Service) ExplodeTx(ctx context.Context, tx repositories.Tx, bomID uuid.UUID, multiplier decimal.Decimal, opts Options) (*Result, error) {
	if !multiplier.IsPositive() {
		return nil, fmt.Errorf("explosion multiplier must be positive, got %s", multiplier)
	}
	if (opts.WithCost || opts.WithAvailability) && opts.WarehouseID == uuid.Nil {
		return nil, fmt.Errorf("a warehouse is required for cost or availability")
	}
	if opts.WarehouseID != uuid.Nil {
		if _, err := tx.GetWarehouse(ctx, opts.WarehouseID); err != nil {
			return nil, err
		}
	}

	root, err := tx.GetBOM(ctx, bomID)
	if err != nil {
		return nil, err
	}

	traverser := NewTraverser(tx, s.maxDepth)
	visitor := newExplosionVisitor()
	raw, err := traverser.Traverse(ctx, root, multiplier, visitor)
	if err != nil {
		return nil, err
	}

	result := &Result{
		BOMID:         root.ID,
		BOMLabel:      root.Label(),
		ProductID:     root.ProductID,
		Multiplier:    multiplier,
		Intermediates: visitor.Intermediates(),
		Costed:        opts.WithCost,
		TotalCost:     decimal.Zero,
		MaxDepth:      visitor.maxLevel,
	}

	unitCosts := make(map[uuid.UUID]decimal.Decimal)
	for _, req := range raw.(shared.RequirementMap).Sorted() {
		product, err := traverser.Product(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}
		leaf := LeafRequirement{
			ProductID:   req.ProductID,
			ProductCode: product.Code,
			Quantity:    req.Quantity,
			Level:       req.Level,
			Paths:       req.Paths,
			UnitCost:    decimal.Zero,
			TotalCost:   decimal.Zero,
			Available:   decimal.Zero,
			Shortage:    decimal.Zero,
		}

		if opts.WithCost || opts.WithAvailability {
			quote, err := s.costs.QuoteTx(ctx, tx, req.ProductID, opts.WarehouseID, req.Quantity)
			if err != nil {
				return nil, fmt.Errorf("quote %s: %w", product.Code, err)
			}
			if opts.WithCost {
				leaf.UnitCost, leaf.TotalCost = s.leafCost(quote)
				unitCosts[req.ProductID] = leaf.UnitCost
				result.TotalCost = result.TotalCost.Add(leaf.TotalCost)
			}
			if opts.WithAvailability {
				leaf.Available = quote.Available
				if quote.Short() {
					leaf.Shortage = quote.Shortfall
					result.Missing = append(result.Missing, Shortage{
						ProductID:   req.ProductID,
						ProductCode: product.Code,
						Required:    req.Quantity,
						Available:   quote.Available,
						Shortage:    quote.Shortfall,
					})
				}
			}
		}
		result.Leaves = append(result.Leaves, leaf)
	}

	if opts.WithCost {
		for i := range result.Intermediates {
			im := &result.Intermediates[i]
			im.Cost = decimal.Zero
			for productID, req := range im.leaves {
				im.Cost = im.Cost.Add(req.Quantity.Mul(unitCosts[productID]))
			}
		}
	}

	log.Debug().
		Str("bom", root.Label()).
		Str("multiplier", multiplier.String()).
		Int("leaves", len(result.Leaves)).
		Int("missing", len(result.Missing)).
		Int("depth", result.MaxDepth).
		Msg("BOM exploded")
	return result, nil
}

func (s *Service) leafCost(quote *costing.Quote) (unit, total decimal.Decimal) {
	if s.costMethod == CostWeightedAverage {
		return quote.WeightedAverage, quote.Quantity.Mul(quote.WeightedAverage)
	}
	return quote.UnitCost, quote.TotalCost
}
