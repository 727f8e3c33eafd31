package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcore/pkg/application/services/costing"
	"github.com/vsinha/mrpcore/pkg/application/services/explosion"
	"github.com/vsinha/mrpcore/pkg/application/services/inventory"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string // JSON only; empty writes to Out
	Verbose   bool
	Out       io.Writer
}

func (c Config) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// Validate checks the format before any work is done
func (c Config) Validate() error {
	switch c.Format {
	case FormatText, FormatJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", c.Format)
	}
}

// Plan is a released order as the CLI reports it
type Plan struct {
	OrderNumber string          `json:"order_number"`
	ProductCode string          `json:"product_code"`
	Quantity    decimal.Decimal `json:"quantity"`
	Priority    int             `json:"priority"`
	Status      string          `json:"status"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	Components  []PlanComponent `json:"components"`
}

// PlanComponent is one component line of a released order
type PlanComponent struct {
	ProductCode  string            `json:"product_code"`
	Required     decimal.Decimal   `json:"required"`
	Allocated    decimal.Decimal   `json:"allocated"`
	UnitCost     decimal.Decimal   `json:"unit_cost"`
	Status       string            `json:"status"`
	Reservations []PlanReservation `json:"reservations"`
}

// PlanReservation is one batch draw behind a component
type PlanReservation struct {
	BatchNumber string          `json:"batch_number"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Status      string          `json:"status"`
}

type stockView struct {
	ProductCode string          `json:"product_code"`
	WarehouseID string          `json:"warehouse_id"`
	OnHand      decimal.Decimal `json:"on_hand"`
	Reserved    decimal.Decimal `json:"reserved"`
	Available   decimal.Decimal `json:"available"`
	Batches     int             `json:"batches"`
	Status      string          `json:"status"`
}

// Explosion writes a flattened BOM
func Explosion(result *explosion.Result, config Config) error {
	if config.Format == FormatJSON {
		return writeJSON(result, "explosion.json", config)
	}

	w := config.out()
	fmt.Fprintf(w, "BOM %s x %s (depth %d)\n\n", result.BOMLabel, result.Multiplier, result.MaxDepth)

	fmt.Fprintf(w, "%-15s %-12s %-6s %-6s", "Product", "Quantity", "Level", "Paths")
	if result.Costed {
		fmt.Fprintf(w, " %-12s %-12s", "Unit Cost", "Total Cost")
	}
	fmt.Fprintf(w, " %-12s %-12s\n", "Available", "Shortage")
	for _, leaf := range result.Leaves {
		fmt.Fprintf(w, "%-15s %-12s %-6d %-6d", leaf.ProductCode, leaf.Quantity, leaf.Level, leaf.Paths)
		if result.Costed {
			fmt.Fprintf(w, " %-12s %-12s", leaf.UnitCost.StringFixed(4), leaf.TotalCost.StringFixed(2))
		}
		fmt.Fprintf(w, " %-12s %-12s\n", leaf.Available, leaf.Shortage)
	}

	if config.Verbose && len(result.Intermediates) > 0 {
		fmt.Fprintf(w, "\nSub-assemblies:\n")
		for _, im := range result.Intermediates {
			fmt.Fprintf(w, "  %-15s %-12s level %d via %s\n", im.ProductCode, im.Quantity, im.Level, im.BOMLabel)
		}
	}

	if result.Costed {
		fmt.Fprintf(w, "\nTotal cost: %s\n", result.TotalCost.StringFixed(2))
	}
	if len(result.Missing) > 0 {
		fmt.Fprintf(w, "\nShortages:\n")
		for _, m := range result.Missing {
			fmt.Fprintf(w, "  %-15s required %s, available %s, short %s\n", m.ProductCode, m.Required, m.Available, m.Shortage)
		}
	}
	return nil
}

// Quote writes a cost quote
func Quote(quote *costing.Quote, productCode string, config Config) error {
	if config.Format == FormatJSON {
		return writeJSON(quote, "quote.json", config)
	}

	w := config.out()
	fmt.Fprintf(w, "Quote for %s x %s\n\n", productCode, quote.Quantity)
	fmt.Fprintf(w, "%-15s %-12s %-12s %-10s\n", "Batch", "Entry", "Quantity", "Unit Cost")
	for _, b := range quote.Batches {
		fmt.Fprintf(w, "%-15s %-12s %-12s %-10s\n", b.BatchNumber, b.EntryAt.Format("2006-01-02"), b.Quantity, b.UnitCost.StringFixed(4))
	}
	fmt.Fprintf(w, "\nUnit cost:        %s\n", quote.UnitCost.StringFixed(4))
	fmt.Fprintf(w, "Total cost:       %s\n", quote.TotalCost.StringFixed(2))
	fmt.Fprintf(w, "Weighted average: %s\n", quote.WeightedAverage.StringFixed(4))
	if quote.Short() {
		fmt.Fprintf(w, "Short by %s (available %s), priced at the weighted average\n", quote.Shortfall, quote.Available)
	}
	return nil
}

// Stock writes a stock level summary
func Stock(level *inventory.StockLevel, config Config) error {
	if config.Format == FormatJSON {
		return writeJSON(stockView{
			ProductCode: level.ProductCode,
			WarehouseID: level.WarehouseID.String(),
			OnHand:      level.OnHand,
			Reserved:    level.Reserved,
			Available:   level.Available,
			Batches:     level.Batches,
			Status:      level.Status.String(),
		}, "stock.json", config)
	}

	w := config.out()
	fmt.Fprintf(w, "%-15s %-12s %-12s %-12s %-8s %-8s\n", "Product", "On Hand", "Reserved", "Available", "Batches", "Status")
	fmt.Fprintf(w, "%-15s %-12s %-12s %-12s %-8d %-8s\n",
		level.ProductCode, level.OnHand, level.Reserved, level.Available, level.Batches, level.Status)
	return nil
}

// Orders writes a released production order with its reservations
func Orders(plan *Plan, config Config) error {
	if config.Format == FormatJSON {
		return writeJSON(plan, "order.json", config)
	}

	w := config.out()
	fmt.Fprintf(w, "Order %s: %s x %s [%s] priority %d\n\n", plan.OrderNumber, plan.ProductCode, plan.Quantity, plan.Status, plan.Priority)
	fmt.Fprintf(w, "%-15s %-12s %-12s %-10s %-10s\n", "Component", "Required", "Allocated", "Unit Cost", "Status")
	for _, c := range plan.Components {
		fmt.Fprintf(w, "%-15s %-12s %-12s %-10s %-10s\n", c.ProductCode, c.Required, c.Allocated, c.UnitCost.StringFixed(4), c.Status)
		for _, r := range c.Reservations {
			fmt.Fprintf(w, "    %-15s %-12s @ %-10s %s\n", r.BatchNumber, r.Quantity, r.UnitCost.StringFixed(4), r.Status)
		}
	}
	fmt.Fprintf(w, "\nMaterial cost: %s\n", plan.TotalCost.StringFixed(2))
	return nil
}

func writeJSON(v interface{}, name string, config Config) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		_, err = fmt.Fprintln(config.out(), string(jsonData))
		return err
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(config.OutputDir, name)
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.out(), "Results saved to: %s\n", filename)
	}
	return nil
}
