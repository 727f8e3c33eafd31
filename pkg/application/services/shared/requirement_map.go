package shared

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Requirement is the aggregated demand for one product across every BOM path
// that reaches it.
type Requirement struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	Level     int // deepest level the product was reached at
	Paths     int // number of BOM paths that contributed
}

// RequirementMap aggregates requirements by product
type RequirementMap map[uuid.UUID]*Requirement

// NewRequirementMap creates a new empty requirement map
func NewRequirementMap() RequirementMap {
	return make(RequirementMap)
}

// Add sums qty into the product's entry.
func (rm RequirementMap) Add(productID uuid.UUID, qty decimal.Decimal, level int) {
	req, exists := rm[productID]
	if !exists {
		rm[productID] = &Requirement{ProductID: productID, Quantity: qty, Level: level, Paths: 1}
		return
	}
	req.Quantity = req.Quantity.Add(qty)
	req.Paths++
	if level > req.Level {
		req.Level = level
	}
}

// Merge sums every requirement of other into rm.
func (rm RequirementMap) Merge(other RequirementMap) {
	for productID, req := range other {
		existing, exists := rm[productID]
		if !exists {
			copied := *req
			rm[productID] = &copied
			continue
		}
		existing.Quantity = existing.Quantity.Add(req.Quantity)
		existing.Paths += req.Paths
		if req.Level > existing.Level {
			existing.Level = req.Level
		}
	}
}

// Get retrieves the requirement for a product
func (rm RequirementMap) Get(productID uuid.UUID) *Requirement {
	return rm[productID]
}

// Sorted returns the requirements in ascending product id byte order, the
// order in which locks on different products are taken.
func (rm RequirementMap) Sorted() []*Requirement {
	reqs := make([]*Requirement, 0, len(rm))
	for _, req := range rm {
		reqs = append(reqs, req)
	}
	sort.Slice(reqs, func(i, j int) bool {
		return bytes.Compare(reqs[i].ProductID[:], reqs[j].ProductID[:]) < 0
	})
	return reqs
}

// Size returns the number of products stored
func (rm RequirementMap) Size() int {
	return len(rm)
}
