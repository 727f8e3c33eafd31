package testing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
	"github.com/vsinha/mrpcore/pkg/domain/repositories"
	"github.com/vsinha/mrpcore/pkg/infrastructure/repositories/memory"
)

// Epoch is the entry date scenario batches are stamped relative to.
var Epoch = time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

// Item is one BOM line of a scenario, by component code.
type Item struct {
	Component string
	Quantity  string
}

// Scenario seeds a memory store and remembers entities by code. Its helpers
// panic on error, like the entity constructors they wrap are expected not to.
type Scenario struct {
	Store      *memory.Store
	Products   map[string]*entities.Product
	Warehouses map[string]*entities.Warehouse
	BOMs       map[string]*entities.BillOfMaterials
}

// NewScenario creates an empty scenario with a MAIN warehouse.
func NewScenario() *Scenario {
	s := &Scenario{
		Store:      memory.NewStore(),
		Products:   make(map[string]*entities.Product),
		Warehouses: make(map[string]*entities.Warehouse),
		BOMs:       make(map[string]*entities.BillOfMaterials),
	}
	s.Warehouse("MAIN")
	return s
}

func (s *Scenario) write(fn func(ctx context.Context, tx repositories.Tx) error) {
	if err := s.Store.Transact(context.Background(), fn); err != nil {
		panic(err)
	}
}

// Warehouse adds a warehouse
func (s *Scenario) Warehouse(code string) *entities.Warehouse {
	w, err := entities.NewWarehouse(code, code)
	if err != nil {
		panic(err)
	}
	s.write(func(ctx context.Context, tx repositories.Tx) error { return tx.SaveWarehouse(ctx, w) })
	s.Warehouses[code] = w
	return w
}

// Product adds a product with no stock thresholds
func (s *Scenario) Product(code string, category entities.ProductCategory) *entities.Product {
	return s.ProductWithThresholds(code, category, "0", "0")
}

// ProductWithThresholds adds a product with minimum and critical stock
func (s *Scenario) ProductWithThresholds(code string, category entities.ProductCategory, minimum, critical string) *entities.Product {
	p, err := entities.NewProduct(code, code, category, "EA", decimal.RequireFromString(minimum), decimal.RequireFromString(critical))
	if err != nil {
		panic(err)
	}
	s.write(func(ctx context.Context, tx repositories.Tx) error { return tx.SaveProduct(ctx, p) })
	s.Products[code] = p
	return p
}

// Batch receives an APPROVED batch into MAIN, entered day days after Epoch
func (s *Scenario) Batch(productCode, number string, day int, quantity, unitCost string) *entities.InventoryBatch {
	return s.BatchAt(productCode, "MAIN", number, Epoch.AddDate(0, 0, day), quantity, unitCost, entities.QualityApproved)
}

// BatchAt receives a batch with full control over its attributes
func (s *Scenario) BatchAt(productCode, warehouseCode, number string, entryAt time.Time, quantity, unitCost string, quality entities.QualityStatus) *entities.InventoryBatch {
	b, err := entities.NewInventoryBatch(number, s.Products[productCode].ID, s.Warehouses[warehouseCode].ID,
		decimal.RequireFromString(quantity), decimal.RequireFromString(unitCost), entryAt, quality, nil)
	if err != nil {
		panic(err)
	}
	s.write(func(ctx context.Context, tx repositories.Tx) error { return tx.SaveBatch(ctx, b) })
	return b
}

// BOM adds an ACTIVE BOM for productCode
func (s *Scenario) BOM(code, productCode string, items ...Item) *entities.BillOfMaterials {
	return s.BOMWithStatus(code, productCode, entities.BOMActive, items...)
}

// BOMWithStatus adds a BOM in the given status. Status is written as is, so
// scenarios can hold graphs activation would refuse.
func (s *Scenario) BOMWithStatus(code, productCode string, status entities.BOMStatus, items ...Item) *entities.BillOfMaterials {
	bom, err := entities.NewBillOfMaterials(code, code, "v1", s.Products[productCode].ID)
	if err != nil {
		panic(err)
	}
	for _, item := range items {
		if _, err := bom.AddItem(s.Products[item.Component].ID, decimal.RequireFromString(item.Quantity), ""); err != nil {
			panic(err)
		}
	}
	bom.Status = status
	s.write(func(ctx context.Context, tx repositories.Tx) error { return tx.SaveBOM(ctx, bom) })
	s.BOMs[code] = bom
	return bom
}

// GetBatch reads a batch back from the store
func (s *Scenario) GetBatch(id uuid.UUID) *entities.InventoryBatch {
	var b *entities.InventoryBatch
	err := s.Store.View(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		var err error
		b, err = tx.GetBatch(ctx, id, false)
		return err
	})
	if err != nil {
		panic(err)
	}
	return b
}

// GetOrder reads an order back from the store
func (s *Scenario) GetOrder(id uuid.UUID) *entities.ProductionOrder {
	var o *entities.ProductionOrder
	err := s.Store.View(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		var err error
		o, err = tx.GetOrder(ctx, id, false)
		return err
	})
	if err != nil {
		panic(err)
	}
	return o
}

// Reservations lists the reservations held for a demand
func (s *Scenario) Reservations(demandType string, demandID uuid.UUID) []*entities.StockReservation {
	var rs []*entities.StockReservation
	err := s.Store.View(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		var err error
		rs, err = tx.ListReservationsByDemand(ctx, demandType, demandID)
		return err
	})
	if err != nil {
		panic(err)
	}
	return rs
}

// BuildPAB builds the two-level example: P = {A: 2, B: 1}, B = {A: 1}, A is a leaf.
func BuildPAB() *Scenario {
	s := NewScenario()
	s.Product("P", entities.Finished)
	s.Product("A", entities.RawMaterial)
	s.Product("B", entities.SemiFinished)
	s.BOM("BOM-B", "B", Item{"A", "1"})
	s.BOM("BOM-P", "P", Item{"A", "2"}, Item{"B", "1"})
	return s
}

// BuildSharedComponent builds P = {S1: 1, S2: 1}, S1 = {X: 2}, S2 = {X: 3}.
func BuildSharedComponent() *Scenario {
	s := NewScenario()
	s.Product("P", entities.Finished)
	s.Product("S1", entities.SemiFinished)
	s.Product("S2", entities.SemiFinished)
	s.Product("X", entities.RawMaterial)
	s.BOM("BOM-S1", "S1", Item{"X", "2"})
	s.BOM("BOM-S2", "S2", Item{"X", "3"})
	s.BOM("BOM-P", "P", Item{"S1", "1"}, Item{"S2", "1"})
	return s
}

// BuildCycle builds A = {B: 1}, B = {A: 1}, both ACTIVE.
func BuildCycle() *Scenario {
	s := NewScenario()
	s.Product("A", entities.SemiFinished)
	s.Product("B", entities.SemiFinished)
	s.BOM("BOM-A", "A", Item{"B", "1"})
	s.BOM("BOM-B", "B", Item{"A", "1"})
	return s
}
