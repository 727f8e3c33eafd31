package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
)

// BOMValidator provides validation for BOM structure integrity
type BOMValidator struct{}

// NewBOMValidator creates a new BOM validator
func NewBOMValidator() *BOMValidator {
	return &BOMValidator{}
}

// ValidationResult contains the results of BOM validation
type ValidationResult struct {
	HasCycles      bool
	Cycles         []*entities.CircularReferenceError
	DuplicateItems []entities.BOMItem
	Errors         []string
}

// Err returns the first cycle found, or nil.
func (r *ValidationResult) Err() error {
	if len(r.Cycles) == 0 {
		return nil
	}
	return r.Cycles[0]
}

// ValidateGraph checks the BOM graph reachable from root. byProduct holds the
// BOM that expands each product; a component with no entry is a leaf. root is
// used for its own product regardless of what byProduct says.
func (v *BOMValidator) ValidateGraph(root *entities.BillOfMaterials, byProduct map[uuid.UUID]*entities.BillOfMaterials) *ValidationResult {
	result := &ValidationResult{
		Cycles:         make([]*entities.CircularReferenceError, 0),
		DuplicateItems: make([]entities.BOMItem, 0),
		Errors:         make([]string, 0),
	}

	boms := make(map[uuid.UUID]*entities.BillOfMaterials, len(byProduct)+1)
	for productID, bom := range byProduct {
		boms[productID] = bom
	}
	boms[root.ProductID] = root

	adjacencyMap := v.buildAdjacencyMap(boms)

	visited := make(map[uuid.UUID]bool)
	recursionStack := make(map[uuid.UUID]bool)
	v.dfsDetectCycle(root.ProductID, adjacencyMap, boms, visited, recursionStack, nil, result)
	result.HasCycles = len(result.Cycles) > 0

	for _, bom := range boms {
		result.DuplicateItems = append(result.DuplicateItems, v.detectDuplicateItems(bom)...)
	}

	for _, cycle := range result.Cycles {
		result.Errors = append(result.Errors, cycle.Error())
	}
	if len(result.DuplicateItems) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Found %d repeated BOM items", len(result.DuplicateItems)))
	}

	return result
}

// buildAdjacencyMap creates product -> component products edges for every
// component that is itself expanded by a BOM
func (v *BOMValidator) buildAdjacencyMap(boms map[uuid.UUID]*entities.BillOfMaterials) map[uuid.UUID][]uuid.UUID {
	adjacencyMap := make(map[uuid.UUID][]uuid.UUID)

	for productID, bom := range boms {
		seen := make(map[uuid.UUID]bool)
		for _, item := range bom.Items {
			if _, expands := boms[item.ComponentID]; !expands || seen[item.ComponentID] {
				continue
			}
			seen[item.ComponentID] = true
			adjacencyMap[productID] = append(adjacencyMap[productID], item.ComponentID)
		}
	}

	return adjacencyMap
}

func (v *BOMValidator) dfsDetectCycle(
	current uuid.UUID,
	adjacencyMap map[uuid.UUID][]uuid.UUID,
	boms map[uuid.UUID]*entities.BillOfMaterials,
	visited map[uuid.UUID]bool,
	recursionStack map[uuid.UUID]bool,
	path []uuid.UUID,
	result *ValidationResult,
) {
	visited[current] = true
	recursionStack[current] = true
	path = append(path, current)

	for _, child := range adjacencyMap[current] {
		if !visited[child] {
			v.dfsDetectCycle(child, adjacencyMap, boms, visited, recursionStack, path, result)
			continue
		}
		if !recursionStack[child] {
			continue
		}

		cycleStart := -1
		for i, productID := range path {
			if productID == child {
				cycleStart = i
				break
			}
		}
		if cycleStart == -1 {
			continue
		}

		cycle := &entities.CircularReferenceError{}
		for _, productID := range append(append([]uuid.UUID{}, path[cycleStart:]...), child) {
			bom := boms[productID]
			cycle.Path = append(cycle.Path, bom.ID)
			cycle.Codes = append(cycle.Codes, bom.Label())
		}
		result.Cycles = append(result.Cycles, cycle)
	}

	recursionStack[current] = false
}

// detectDuplicateItems finds components listed more than once in one BOM.
// They are legal and aggregate during explosion, but usually an authoring slip.
func (v *BOMValidator) detectDuplicateItems(bom *entities.BillOfMaterials) []entities.BOMItem {
	seen := make(map[uuid.UUID]bool)
	duplicates := make([]entities.BOMItem, 0)

	for _, item := range bom.Items {
		if seen[item.ComponentID] {
			duplicates = append(duplicates, item)
			continue
		}
		seen[item.ComponentID] = true
	}

	return duplicates
}
