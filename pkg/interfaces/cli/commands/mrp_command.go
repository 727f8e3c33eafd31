package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcore/pkg/application/services/explosion"
	"github.com/vsinha/mrpcore/pkg/application/services/production"
	"github.com/vsinha/mrpcore/pkg/domain/entities"
	"github.com/vsinha/mrpcore/pkg/domain/repositories"
	"github.com/vsinha/mrpcore/pkg/interfaces/cli/output"
	"github.com/vsinha/mrpcore/pkg/mrp"
)

// Subcommands
const (
	CommandExplode = "explode"
	CommandQuote   = "quote"
	CommandStock   = "stock"
	CommandPlan    = "plan"
)

// DefaultPriority is used for planned orders when none is given
const DefaultPriority = 5

// Config holds configuration for the MRP command
type Config struct {
	ScenarioDir      string
	Command          string
	Product          string
	Warehouse        string
	Quantity         string
	Priority         int
	WithCost         bool
	WithAvailability bool
	Output           output.Config
	Help             bool
}

// MRPCommand handles the main MRP execution logic
type MRPCommand struct {
	config Config
	engine *mrp.Engine
}

// NewMRPCommand creates a new MRP command with the given configuration
func NewMRPCommand(config Config, engine *mrp.Engine) *MRPCommand {
	if config.Warehouse == "" {
		config.Warehouse = "MAIN"
	}
	if config.Quantity == "" {
		config.Quantity = "1"
	}
	if config.Priority == 0 {
		config.Priority = DefaultPriority
	}
	if config.Output.Format == "" {
		config.Output.Format = output.FormatText
	}
	if config.Output.Out == nil {
		config.Output.Out = os.Stdout
	}
	return &MRPCommand{
		config: config,
		engine: engine,
	}
}

// Execute runs the MRP command
func (c *MRPCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	qty, err := c.validateInputs()
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if c.config.ScenarioDir != "" {
		if err := c.loadScenario(ctx); err != nil {
			return err
		}
	}

	product, warehouse, err := c.resolveCodes(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		log.Debug().Str("command", c.config.Command).Dur("elapsed", time.Since(start)).Msg("command finished")
	}()

	switch c.config.Command {
	case CommandExplode:
		return c.explode(ctx, product, warehouse, qty)
	case CommandQuote:
		quote, err := c.engine.Costing.QuoteCost(ctx, product.ID, warehouse.ID, qty)
		if err != nil {
			return err
		}
		return output.Quote(quote, product.Code, c.config.Output)
	case CommandStock:
		level, err := c.engine.Inventory.StockLevel(ctx, product.ID, warehouse.ID)
		if err != nil {
			return err
		}
		return output.Stock(level, c.config.Output)
	default:
		return c.plan(ctx, product, warehouse, qty)
	}
}

// validateInputs validates the command configuration and parses the quantity
func (c *MRPCommand) validateInputs() (decimal.Decimal, error) {
	switch c.config.Command {
	case CommandExplode, CommandQuote, CommandStock, CommandPlan:
	case "":
		return decimal.Zero, fmt.Errorf("a command is required (%s)", strings.Join(commandNames(), ", "))
	default:
		return decimal.Zero, fmt.Errorf("unknown command %q (%s)", c.config.Command, strings.Join(commandNames(), ", "))
	}
	if c.config.Product == "" {
		return decimal.Zero, fmt.Errorf("must specify -product")
	}
	if err := c.config.Output.Validate(); err != nil {
		return decimal.Zero, err
	}
	if c.config.Priority < 1 || c.config.Priority > 10 {
		return decimal.Zero, fmt.Errorf("priority must be between 1 and 10, got %d", c.config.Priority)
	}

	qty, err := decimal.NewFromString(c.config.Quantity)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid quantity: %s", c.config.Quantity)
	}
	if !qty.IsPositive() {
		return decimal.Zero, fmt.Errorf("quantity must be positive, got %s", qty)
	}
	return qty, nil
}

func commandNames() []string {
	return []string{CommandExplode, CommandQuote, CommandStock, CommandPlan}
}

func (c *MRPCommand) loadScenario(ctx context.Context) error {
	scenario, err := c.engine.LoadScenario(ctx, c.config.ScenarioDir)
	if err != nil {
		return err
	}

	log.Info().
		Str("scenario", c.config.ScenarioDir).
		Int("products", len(scenario.Products)).
		Int("warehouses", len(scenario.Warehouses)).
		Int("boms", len(scenario.BOMs)).
		Int("batches", len(scenario.Batches)).
		Msg("scenario loaded")
	return nil
}

func (c *MRPCommand) resolveCodes(ctx context.Context) (product *entities.Product, warehouse *entities.Warehouse, err error) {
	err = c.engine.Ledger.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if product, err = tx.GetProductByCode(ctx, c.config.Product); err != nil {
			return err
		}
		warehouse, err = tx.GetWarehouseByCode(ctx, c.config.Warehouse)
		return err
	})
	return product, warehouse, err
}

func (c *MRPCommand) explode(ctx context.Context, product *entities.Product, warehouse *entities.Warehouse, qty decimal.Decimal) error {
	bom, err := c.engine.Explosion.ResolveActiveBOM(ctx, product.ID)
	if err != nil {
		return err
	}
	result, err := c.engine.Explosion.ExplodeBOM(ctx, bom.ID, qty, explosion.Options{
		WithCost:         c.config.WithCost,
		WithAvailability: c.config.WithAvailability,
		WarehouseID:      warehouse.ID,
	})
	if err != nil {
		return err
	}
	return output.Explosion(result, c.config.Output)
}

// plan creates and releases an order, then reports what it reserved.
func (c *MRPCommand) plan(ctx context.Context, product *entities.Product, warehouse *entities.Warehouse, qty decimal.Decimal) error {
	order, err := c.engine.Production.CreateOrder(ctx, production.OrderRequest{
		ProductID:   product.ID,
		WarehouseID: warehouse.ID,
		Quantity:    qty,
		Priority:    c.config.Priority,
	})
	if err != nil {
		return err
	}
	number := order.OrderNumber
	order, err = c.engine.Production.ReleaseOrder(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("order %s: %w", number, err)
	}

	report, err := c.describeOrder(ctx, order, product.Code)
	if err != nil {
		return err
	}
	return output.Orders(report, c.config.Output)
}

func (c *MRPCommand) describeOrder(ctx context.Context, order *entities.ProductionOrder, productCode string) (*output.Plan, error) {
	report := &output.Plan{
		OrderNumber: order.OrderNumber,
		ProductCode: productCode,
		Quantity:    order.Quantity,
		Priority:    order.Priority,
		Status:      order.Status.String(),
		TotalCost:   decimal.Zero,
	}

	err := c.engine.Ledger.View(ctx, func(ctx context.Context, tx repositories.Tx) error {
		batchNumbers := make(map[uuid.UUID]string)
		for _, component := range order.Components {
			p, err := tx.GetProduct(ctx, component.ProductID)
			if err != nil {
				return err
			}
			line := output.PlanComponent{
				ProductCode: p.Code,
				Required:    component.RequiredQuantity,
				Allocated:   component.AllocatedQuantity,
				UnitCost:    component.UnitCost,
				Status:      component.Status.String(),
			}

			reservations, err := tx.ListReservationsByDemand(ctx, entities.DemandOrderComponent, component.ID)
			if err != nil {
				return err
			}
			for _, r := range reservations {
				number, ok := batchNumbers[r.BatchID]
				if !ok {
					batch, err := tx.GetBatch(ctx, r.BatchID, false)
					if err != nil {
						return err
					}
					number = batch.BatchNumber
					batchNumbers[r.BatchID] = number
				}
				line.Reservations = append(line.Reservations, output.PlanReservation{
					BatchNumber: number,
					Quantity:    r.Quantity,
					UnitCost:    r.UnitCost,
					Status:      r.Status.String(),
				})
				report.TotalCost = report.TotalCost.Add(r.Quantity.Mul(r.UnitCost))
			}
			report.Components = append(report.Components, line)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// showHelp displays the help message
func (c *MRPCommand) showHelp() {
	fmt.Fprintf(c.config.Output.Out, `mrp - BOM explosion, FIFO costing and order release

USAGE:
    mrp -scenario <directory> -command <explode|quote|stock|plan> -product <code> [options]

OPTIONS:
    -scenario <dir>     Scenario directory to load before running (memory store needs one)
    -command <name>     explode, quote, stock or plan
    -product <code>     Product code
    -warehouse <code>   Warehouse code (default: MAIN)
    -qty <n>            Quantity (default: 1)
    -priority <n>       plan: order priority 1-10 (default: 5)
    -cost               explode: price leaves at the configured cost method
    -availability       explode: report stock and shortages per leaf
    -format <fmt>       Output format: text, json (default: text)
    -output <dir>       Write JSON results to this directory
    -verbose            Enable verbose output
    -help               Show this help message

SCENARIO DIRECTORY STRUCTURE:
    scenario_name/
    ├── products.csv    code,name,category,unit_of_measure,minimum_stock,critical_stock
    ├── warehouses.csv  code,name
    ├── boms.csv        bom_code,version,product_code,status,component_code,quantity,notes
    └── batches.csv     batch_number,product_code,warehouse_code,quantity,unit_cost,entry_date,quality,expiry_date

ENVIRONMENT:
    STORE_DRIVER=memory|postgres, DATABASE_URL, REDIS_URL, LOG_LEVEL, LOG_FORMAT,
    COST_METHOD=fifo|weighted_average, EXPLOSION_MAX_DEPTH

EXAMPLES:
    mrp -scenario scenarios/bicycle -command explode -product BIKE -qty 4 -cost -availability
    mrp -scenario scenarios/bicycle -command quote -product TUBE -qty 25
    mrp -scenario scenarios/bicycle -command plan -product BIKE -qty 2 -format json
`)
}
