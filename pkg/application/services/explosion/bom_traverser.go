package explosion

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
	"github.com/vsinha/mrpcore/pkg/domain/repositories"
)

// DefaultMaxDepth bounds recursion when no limit is configured. Cycles are
// caught by the path check long before this matters.
const DefaultMaxDepth = 64

// NodeContext describes one node of a BOM traversal
type NodeContext struct {
	Product  *entities.Product
	BOM      *entities.BillOfMaterials // nil for a leaf
	Quantity decimal.Decimal           // total quantity needed at this node
	Level    int                       // 0 for the root
}

// IsLeaf reports whether the node's product has no BOM to expand.
func (n NodeContext) IsLeaf() bool {
	return n.BOM == nil
}

// NodeVisitor defines the interface for processing nodes during BOM traversal
type NodeVisitor interface {
	// VisitNode is called before a node's children are expanded.
	// Returns data to be passed to ProcessChildren and whether to expand the node.
	VisitNode(ctx context.Context, node NodeContext) (interface{}, bool, error)

	// ProcessChildren is called after every child of the node was traversed.
	ProcessChildren(ctx context.Context, node NodeContext, nodeData interface{}, childResults []interface{}) (interface{}, error)
}

// Traverser walks a BOM graph depth first, keeping the set of BOMs on the
// current path so that a cycle is reported the moment it closes. BOM and
// product lookups are cached for the life of the traverser, which should not
// outlive the transaction it reads from.
type Traverser struct {
	tx       repositories.Tx
	maxDepth int

	products map[uuid.UUID]*entities.Product
	boms     map[uuid.UUID]*entities.BillOfMaterials
	resolved map[uuid.UUID]bool
}

// NewTraverser creates a traverser reading through tx
func NewTraverser(tx repositories.Tx, maxDepth int) *Traverser {
	if maxDepth < 1 {
		maxDepth = DefaultMaxDepth
	}
	return &Traverser{
		tx:       tx,
		maxDepth: maxDepth,
		products: make(map[uuid.UUID]*entities.Product),
		boms:     make(map[uuid.UUID]*entities.BillOfMaterials),
		resolved: make(map[uuid.UUID]bool),
	}
}

// Product returns a product, cached.
func (t *Traverser) Product(ctx context.Context, id uuid.UUID) (*entities.Product, error) {
	if p, ok := t.products[id]; ok {
		return p, nil
	}
	p, err := t.tx.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	t.products[id] = p
	return p, nil
}

// ResolveBOM returns the ACTIVE BOM that expands a product, nil when the
// product is a leaf, or AmbiguousBOM when several are ACTIVE.
func (t *Traverser) ResolveBOM(ctx context.Context, productID uuid.UUID) (*entities.BillOfMaterials, error) {
	if t.resolved[productID] {
		return t.boms[productID], nil
	}

	active, err := t.tx.ActiveBOMsForProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active BOMs for %s: %w", productID, err)
	}
	var bom *entities.BillOfMaterials
	switch len(active) {
	case 0:
	case 1:
		bom = active[0]
	default:
		candidates := make([]uuid.UUID, len(active))
		for i, b := range active {
			candidates[i] = b.ID
		}
		return nil, &entities.AmbiguousBOMError{ProductID: productID, Candidates: candidates}
	}

	t.resolved[productID] = true
	t.boms[productID] = bom
	return bom, nil
}

// Traverse expands root for quantity units of its product.
func (t *Traverser) Traverse(ctx context.Context, root *entities.BillOfMaterials, quantity decimal.Decimal, visitor NodeVisitor) (interface{}, error) {
	product, err := t.Product(ctx, root.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product of BOM %s: %w", root.Label(), err)
	}
	return t.walk(ctx, product, root, quantity, 0, nil, visitor)
}

func (t *Traverser) walk(
	ctx context.Context,
	product *entities.Product,
	bom *entities.BillOfMaterials,
	quantity decimal.Decimal,
	level int,
	path []*entities.BillOfMaterials,
	visitor NodeVisitor,
) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bom != nil {
		if cycle := closesCycle(path, bom); cycle != nil {
			return nil, cycle
		}
		if level >= t.maxDepth {
			return nil, fmt.Errorf("BOM %s: explosion exceeded max depth %d", bom.Label(), t.maxDepth)
		}
	}

	node := NodeContext{Product: product, BOM: bom, Quantity: quantity, Level: level}
	nodeData, shouldContinue, err := visitor.VisitNode(ctx, node)
	if err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", product.Code, err)
	}
	if bom == nil || !shouldContinue {
		return visitor.ProcessChildren(ctx, node, nodeData, nil)
	}

	path = append(path, bom)
	childResults := make([]interface{}, 0, len(bom.Items))
	for _, item := range bom.Items {
		child, err := t.Product(ctx, item.ComponentID)
		if err != nil {
			return nil, fmt.Errorf("BOM %s item %d: %w", bom.Label(), item.Sequence, err)
		}
		childBOM, err := t.ResolveBOM(ctx, item.ComponentID)
		if err != nil {
			return nil, err
		}

		childResult, err := t.walk(ctx, child, childBOM, item.Quantity.Mul(quantity), level+1, path, visitor)
		if err != nil {
			return nil, err
		}
		childResults = append(childResults, childResult)
	}

	return visitor.ProcessChildren(ctx, node, nodeData, childResults)
}

// closesCycle returns the cycle bom would close if it is already on path.
func closesCycle(path []*entities.BillOfMaterials, bom *entities.BillOfMaterials) *entities.CircularReferenceError {
	for i, b := range path {
		if b.ID != bom.ID {
			continue
		}
		cycle := &entities.CircularReferenceError{}
		for _, onPath := range append(path[i:len(path):len(path)], bom) {
			cycle.Path = append(cycle.Path, onPath.ID)
			cycle.Codes = append(cycle.Codes, onPath.Label())
		}
		return cycle
	}
	return nil
}
