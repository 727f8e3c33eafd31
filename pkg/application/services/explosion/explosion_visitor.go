package explosion

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcore/pkg/application/services/shared"
)

// Intermediate is a sub-assembly passed through on the way to the leaves.
// Its cost is informational; the authoritative total is the leaf sum.
type Intermediate struct {
	ProductID   uuid.UUID
	ProductCode string
	BOMID       uuid.UUID
	BOMLabel    string
	Quantity    decimal.Decimal
	Level       int
	Cost        decimal.Decimal

	leaves shared.RequirementMap
}

// explosionVisitor implements NodeVisitor. Every node returns the leaf
// requirements of its subtree, so the root's result is the flattened
// explosion and repeated components are summed rather than duplicated.
type explosionVisitor struct {
	intermediates map[uuid.UUID]*Intermediate
	order         []uuid.UUID
	maxLevel      int
}

func newExplosionVisitor() *explosionVisitor {
	return &explosionVisitor{intermediates: make(map[uuid.UUID]*Intermediate)}
}

// VisitNode always expands
func (v *explosionVisitor) VisitNode(_ context.Context, node NodeContext) (interface{}, bool, error) {
	if node.Level > v.maxLevel {
		v.maxLevel = node.Level
	}
	return nil, true, nil
}

// ProcessChildren merges the children's leaf requirements
func (v *explosionVisitor) ProcessChildren(
	_ context.Context,
	node NodeContext,
	_ interface{},
	childResults []interface{},
) (interface{}, error) {
	leaves := shared.NewRequirementMap()
	if node.IsLeaf() {
		leaves.Add(node.Product.ID, node.Quantity, node.Level)
		return leaves, nil
	}

	for _, childResult := range childResults {
		leaves.Merge(childResult.(shared.RequirementMap))
	}

	if node.Level > 0 {
		v.recordIntermediate(node, leaves)
	}
	return leaves, nil
}

func (v *explosionVisitor) recordIntermediate(node NodeContext, leaves shared.RequirementMap) {
	existing, ok := v.intermediates[node.Product.ID]
	if !ok {
		existing = &Intermediate{
			ProductID:   node.Product.ID,
			ProductCode: node.Product.Code,
			BOMID:       node.BOM.ID,
			BOMLabel:    node.BOM.Label(),
			Quantity:    decimal.Zero,
			leaves:      shared.NewRequirementMap(),
		}
		v.intermediates[node.Product.ID] = existing
		v.order = append(v.order, node.Product.ID)
	}
	existing.Quantity = existing.Quantity.Add(node.Quantity)
	if node.Level > existing.Level {
		existing.Level = node.Level
	}
	existing.leaves.Merge(leaves)
}

// Intermediates returns sub-assemblies in first-visit order
func (v *explosionVisitor) Intermediates() []Intermediate {
	out := make([]Intermediate, 0, len(v.order))
	for _, id := range v.order {
		out = append(out, *v.intermediates[id])
	}
	return out
}
