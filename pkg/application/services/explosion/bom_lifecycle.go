package explosion

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vsinha/mrpcore/pkg/application/services/shared"
	"github.com/vsinha/mrpcore/pkg/domain/entities"
	"github.com/vsinha/mrpcore/pkg/domain/repositories"
	"github.com/vsinha/mrpcore/pkg/infrastructure/events"
)

// BOMLine is one component line of a BOM request
type BOMLine struct {
	ComponentID uuid.UUID
	Quantity    decimal.Decimal
	Notes       string
}

// BOMRequest describes a new DRAFT BOM
type BOMRequest struct {
	Code      string
	Name      string
	Version   string
	ProductID uuid.UUID
	Lines     []BOMLine
}

// CreateBOM stores a new DRAFT BOM. Drafts are never expanded, so the
// graph is only checked when the BOM is activated.
func (s *Service) CreateBOM(ctx context.Context, req BOMRequest) (*entities.BillOfMaterials, error) {
	bom, err := entities.NewBillOfMaterials(req.Code, req.Name, req.Version, req.ProductID)
	if err != nil {
		return nil, err
	}
	for _, line := range req.Lines {
		if _, err := bom.AddItem(line.ComponentID, line.Quantity, line.Notes); err != nil {
			return nil, fmt.Errorf("BOM %s: %w", bom.Label(), err)
		}
	}

	err = s.ledger.Transact(ctx, func(ctx context.Context, tx repositories.Tx) error {
		return tx.SaveBOM(ctx, bom)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("bom", bom.Label()).Int("items", len(bom.Items)).Msg("BOM created")
	return bom, nil
}

// ActivateBOM makes a DRAFT BOM the one that expands its product. It fails
// when the product already has an ACTIVE BOM, or when activation would close
// a cycle in the ACTIVE graph.
func (s *Service) ActivateBOM(ctx context.Context, bomID uuid.UUID) (bom *entities.BillOfMaterials, err error) {
	ctx, span := s.tracer.Start(ctx, "explosion.activate_bom",
		trace.WithAttributes(attribute.String("bom.id", bomID.String())),
	)
	defer func() { shared.EndSpan(span, err) }()

	var (
		repeated []entities.BOMItem
		findings []string
	)
	err = s.ledger.Transact(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var txErr error
		bom, txErr = tx.GetBOM(ctx, bomID)
		if txErr != nil {
			return txErr
		}
		if bom.Status != entities.BOMDraft {
			return &entities.InvalidStateError{Entity: "bom", ID: bom.ID, From: bom.Status.String(), To: entities.BOMActive.String(), Transition: true}
		}

		active, txErr := tx.ActiveBOMsForProduct(ctx, bom.ProductID)
		if txErr != nil {
			return txErr
		}
		if len(active) > 0 {
			candidates := []uuid.UUID{bom.ID}
			for _, other := range active {
				candidates = append(candidates, other.ID)
			}
			return &entities.AmbiguousBOMError{ProductID: bom.ProductID, Candidates: candidates}
		}

		byProduct, txErr := s.reachableGraph(ctx, tx, bom)
		if txErr != nil {
			return txErr
		}
		validation := s.validator.ValidateGraph(bom, byProduct)
		if txErr := validation.Err(); txErr != nil {
			return txErr
		}
		repeated, findings = validation.DuplicateItems, validation.Errors

		if txErr := bom.Activate(); txErr != nil {
			return txErr
		}
		return tx.SaveBOM(ctx, bom)
	})
	if err != nil {
		return nil, err
	}

	for _, item := range repeated {
		log.Warn().
			Str("bom", bom.Label()).
			Str("component", item.ComponentID.String()).
			Int("sequence", item.Sequence).
			Msg("repeated BOM item, quantities will be summed")
	}
	activated := log.Info().Str("bom", bom.Label())
	if len(findings) > 0 {
		activated = activated.Strs("findings", findings)
	}
	activated.Msg("BOM activated")
	shared.Publish(ctx, s.publisher, events.NewBOMActivated(bom))
	return bom, nil
}

// reachableGraph collects the ACTIVE BOM of every product reachable from
// root's components, keyed by product.
func (s *Service) reachableGraph(ctx context.Context, tx repositories.Tx, root *entities.BillOfMaterials) (map[uuid.UUID]*entities.BillOfMaterials, error) {
	traverser := NewTraverser(tx, s.maxDepth)
	byProduct := make(map[uuid.UUID]*entities.BillOfMaterials)
	seen := map[uuid.UUID]bool{root.ProductID: true}
	queue := []*entities.BillOfMaterials{root}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, item := range current.Items {
			if seen[item.ComponentID] {
				continue
			}
			seen[item.ComponentID] = true

			child, err := traverser.ResolveBOM(ctx, item.ComponentID)
			if err != nil {
				return nil, err
			}
			if child != nil {
				byProduct[item.ComponentID] = child
				queue = append(queue, child)
			}
		}
	}
	return byProduct, nil
}

// ObsoleteBOM retires a BOM. Orders already created against it keep it.
func (s *Service) ObsoleteBOM(ctx context.Context, bomID uuid.UUID) (*entities.BillOfMaterials, error) {
	var bom *entities.BillOfMaterials
	err := s.ledger.Transact(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		bom, err = tx.GetBOM(ctx, bomID)
		if err != nil {
			return err
		}
		if err := bom.Obsolete(); err != nil {
			return err
		}
		return tx.SaveBOM(ctx, bom)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("bom", bom.Label()).Msg("BOM obsoleted")
	return bom, nil
}

// ResolveActiveBOM returns the single ACTIVE BOM of a product.
func (s *Service) ResolveActiveBOM(ctx context.Context, productID uuid.UUID) (*entities.BillOfMaterials, error) {
	var bom *entities.BillOfMaterials
	err := s.ledger.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		bom, err = ResolveActiveBOMTx(ctx, tx, productID)
		return err
	})
	return bom, err
}

// ResolveActiveBOMTx is ResolveActiveBOM inside the caller's transaction.
func ResolveActiveBOMTx(ctx context.Context, tx repositories.Tx, productID uuid.UUID) (*entities.BillOfMaterials, error) {
	bom, err := NewTraverser(tx, DefaultMaxDepth).ResolveBOM(ctx, productID)
	if err != nil {
		return nil, err
	}
	if bom == nil {
		return nil, &entities.NotFoundError{Entity: "active bom", Key: productID.String()}
	}
	return bom, nil
}
