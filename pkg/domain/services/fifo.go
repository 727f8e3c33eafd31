package services

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
)

// FIFOPick is one batch touched by a FIFO walk and the quantity taken from it.
type FIFOPick struct {
	Batch    *entities.InventoryBatch
	Quantity decimal.Decimal
}

// Cost returns Quantity x the batch unit cost.
func (p FIFOPick) Cost() decimal.Decimal {
	return p.Quantity.Mul(p.Batch.UnitCost)
}

// FIFOPlan is the outcome of walking eligible batches for a requirement.
type FIFOPlan struct {
	Required  decimal.Decimal
	Covered   decimal.Decimal
	Available decimal.Decimal
	Cost      decimal.Decimal
	Picks     []FIFOPick
}

// Shortfall is the part of Required no batch could cover.
func (p FIFOPlan) Shortfall() decimal.Decimal {
	return p.Required.Sub(p.Covered)
}

// SortFIFO orders batches by entry time ascending. Equal entry times fall back
// to the byte order of the batch id, which is also how PostgreSQL orders uuid.
func SortFIFO(batches []*entities.InventoryBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		if !a.EntryAt.Equal(b.EntryAt) {
			return a.EntryAt.Before(b.EntryAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
}

// WalkFIFO takes min(remaining, available) from each eligible batch in FIFO
// order until required is covered or batches run out. Ineligible batches are
// skipped and the input slice is left untouched.
func WalkFIFO(batches []*entities.InventoryBatch, required decimal.Decimal) FIFOPlan {
	ordered := make([]*entities.InventoryBatch, 0, len(batches))
	for _, b := range batches {
		if b.IsEligible() {
			ordered = append(ordered, b)
		}
	}
	SortFIFO(ordered)

	plan := FIFOPlan{
		Required:  required,
		Covered:   decimal.Zero,
		Available: decimal.Zero,
		Cost:      decimal.Zero,
	}
	remaining := required
	for _, b := range ordered {
		available := b.Available()
		plan.Available = plan.Available.Add(available)
		if !remaining.IsPositive() {
			continue
		}

		take := decimal.Min(remaining, available)
		pick := FIFOPick{Batch: b, Quantity: take}
		plan.Picks = append(plan.Picks, pick)
		plan.Covered = plan.Covered.Add(take)
		plan.Cost = plan.Cost.Add(pick.Cost())
		remaining = remaining.Sub(take)
	}

	return plan
}

// PlanFIFO is WalkFIFO that refuses partial coverage.
func PlanFIFO(productID, warehouseID uuid.UUID, batches []*entities.InventoryBatch, required decimal.Decimal) (FIFOPlan, error) {
	plan := WalkFIFO(batches, required)
	if plan.Covered.LessThan(required) {
		return FIFOPlan{}, &entities.InsufficientStockError{
			ProductID:   productID,
			WarehouseID: warehouseID,
			Required:    required,
			Available:   plan.Available,
		}
	}
	return plan, nil
}

// WeightedAverageCost is the available-quantity weighted unit cost over the
// eligible batches, or zero when nothing is available.
func WeightedAverageCost(batches []*entities.InventoryBatch) decimal.Decimal {
	quantity := decimal.Zero
	value := decimal.Zero
	for _, b := range batches {
		if !b.IsEligible() {
			continue
		}
		available := b.Available()
		quantity = quantity.Add(available)
		value = value.Add(available.Mul(b.UnitCost))
	}
	if quantity.IsZero() {
		return decimal.Zero
	}
	return value.DivRound(quantity, 6)
}
