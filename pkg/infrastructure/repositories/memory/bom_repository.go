package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
)

func cloneBOM(b entities.BillOfMaterials) *entities.BillOfMaterials {
	b.Items = append([]entities.BOMItem(nil), b.Items...)
	return &b
}

// GetBOM returns a BOM with its items in sequence order
func (t *txn) GetBOM(_ context.Context, id uuid.UUID) (*entities.BillOfMaterials, error) {
	b, ok := t.store.boms[id]
	if !ok {
		return nil, entities.NewNotFound("bom", id)
	}
	return cloneBOM(b), nil
}

// ActiveBOMsForProduct returns the ACTIVE BOMs owned by a product, oldest first
func (t *txn) ActiveBOMsForProduct(_ context.Context, productID uuid.UUID) ([]*entities.BillOfMaterials, error) {
	var active []*entities.BillOfMaterials
	for _, id := range t.store.bomsByProduct[productID] {
		b := t.store.boms[id]
		if b.Status == entities.BOMActive {
			active = append(active, cloneBOM(b))
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	return active, nil
}

// SaveBOM inserts or updates a BOM together with its items
func (t *txn) SaveBOM(_ context.Context, bom *entities.BillOfMaterials) error {
	if err := t.write(); err != nil {
		return err
	}
	if _, ok := t.store.products[bom.ProductID]; !ok {
		return entities.NewNotFound("product", bom.ProductID)
	}
	for _, item := range bom.Items {
		if _, ok := t.store.products[item.ComponentID]; !ok {
			return fmt.Errorf("BOM %s item %d: %w", bom.Label(), item.Sequence, entities.NewNotFound("product", item.ComponentID))
		}
	}
	for _, id := range t.store.bomsByProduct[bom.ProductID] {
		other := t.store.boms[id]
		if id != bom.ID && other.Code == bom.Code && other.Version == bom.Version {
			return fmt.Errorf("BOM %s already exists", bom.Label())
		}
	}

	remember(t, t.store.boms, bom.ID)
	t.store.boms[bom.ID] = *cloneBOM(*bom)
	appendIndex(t, t.store.bomsByProduct, bom.ProductID, bom.ID)
	return nil
}
