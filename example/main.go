package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcore/pkg/application/services/explosion"
	"github.com/vsinha/mrpcore/pkg/application/services/inventory"
	"github.com/vsinha/mrpcore/pkg/application/services/production"
	"github.com/vsinha/mrpcore/pkg/domain/entities"
	"github.com/vsinha/mrpcore/pkg/infrastructure/events"
	"github.com/vsinha/mrpcore/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/mrpcore/pkg/mrp"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	published := events.NewInMemoryEventStore()
	engine := mrp.NewEngine(memory.NewStore(), published)

	// Master data: a lamp made of a shade and a base, the base made of wood and screws
	products := map[string]*entities.Product{}
	for _, p := range []struct {
		code     string
		category entities.ProductCategory
		uom      string
	}{
		{"LAMP", entities.Finished, "ea"},
		{"BASE", entities.SemiFinished, "ea"},
		{"SHADE", entities.RawMaterial, "ea"},
		{"WOOD", entities.RawMaterial, "kg"},
		{"SCREW", entities.RawMaterial, "ea"},
	} {
		product, err := entities.NewProduct(p.code, p.code, p.category, p.uom, decimal.Zero, decimal.Zero)
		if err != nil {
			return err
		}
		if err := engine.Inventory.RegisterProduct(ctx, product); err != nil {
			return err
		}
		products[p.code] = product
	}

	warehouse, err := entities.NewWarehouse("MAIN", "Main plant")
	if err != nil {
		return err
	}
	if err := engine.Inventory.RegisterWarehouse(ctx, warehouse); err != nil {
		return err
	}

	boms := []explosion.BOMRequest{
		{Code: "BOM-BASE", Name: "Base", Version: "v1", ProductID: products["BASE"].ID, Lines: []explosion.BOMLine{
			{ComponentID: products["WOOD"].ID, Quantity: decimal.RequireFromString("0.75")},
			{ComponentID: products["SCREW"].ID, Quantity: decimal.NewFromInt(4)},
		}},
		{Code: "BOM-LAMP", Name: "Lamp", Version: "v1", ProductID: products["LAMP"].ID, Lines: []explosion.BOMLine{
			{ComponentID: products["BASE"].ID, Quantity: decimal.NewFromInt(1)},
			{ComponentID: products["SHADE"].ID, Quantity: decimal.NewFromInt(1)},
			{ComponentID: products["SCREW"].ID, Quantity: decimal.NewFromInt(2), Notes: "shade mount"},
		}},
	}
	for _, req := range boms {
		bom, err := engine.Explosion.CreateBOM(ctx, req)
		if err != nil {
			return err
		}
		if _, err := engine.Explosion.ActivateBOM(ctx, bom.ID); err != nil {
			return err
		}
	}

	// Stock in, oldest first
	day := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, b := range []struct {
		code string
		qty  int64
		cost string
	}{
		{"WOOD", 5, "8.00"},
		{"WOOD", 10, "9.00"},
		{"SCREW", 100, "0.02"},
		{"SHADE", 6, "12.50"},
	} {
		_, err := engine.Inventory.ReceiveBatch(ctx, inventory.BatchRequest{
			ProductID:   products[b.code].ID,
			WarehouseID: warehouse.ID,
			Quantity:    decimal.NewFromInt(b.qty),
			UnitCost:    decimal.RequireFromString(b.cost),
			EntryAt:     day.AddDate(0, 0, i),
			Quality:     entities.QualityApproved,
		})
		if err != nil {
			return err
		}
	}

	lampBOM, err := engine.Explosion.ResolveActiveBOM(ctx, products["LAMP"].ID)
	if err != nil {
		return err
	}
	result, err := engine.Explosion.ExplodeBOM(ctx, lampBOM.ID, decimal.NewFromInt(8), explosion.Options{
		WithCost:         true,
		WithAvailability: true,
		WarehouseID:      warehouse.ID,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Explosion of %s x %s\n", result.BOMLabel, result.Multiplier)
	for _, leaf := range result.Leaves {
		fmt.Printf("  %-6s need %-6s cost %-8s available %s\n", leaf.ProductCode, leaf.Quantity, leaf.TotalCost.StringFixed(2), leaf.Available)
	}
	for _, m := range result.Missing {
		fmt.Printf("  short: %s by %s\n", m.ProductCode, m.Shortage)
	}

	// Eight lamps need eight shades but only six are in stock, so build six
	order, err := engine.Production.CreateOrder(ctx, production.OrderRequest{
		ProductID:   products["LAMP"].ID,
		WarehouseID: warehouse.ID,
		Quantity:    decimal.NewFromInt(6),
		Priority:    5,
	})
	if err != nil {
		return err
	}
	order, err = engine.Production.ReleaseOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	fmt.Printf("\nReleased %s with %d components\n", order.OrderNumber, len(order.Components))
	for _, c := range order.Components {
		fmt.Printf("  component %s: %s @ %s\n", c.ProductID, c.AllocatedQuantity, c.UnitCost.StringFixed(4))
	}

	fmt.Printf("\n%d reservations created\n", len(published.EventsOfType(events.ReservationCreatedEvent)))
	return nil
}
