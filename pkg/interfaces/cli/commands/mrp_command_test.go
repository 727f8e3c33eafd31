package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrpcore/pkg/application/services/explosion"
	"github.com/vsinha/mrpcore/pkg/domain/entities"
	"github.com/vsinha/mrpcore/pkg/infrastructure/events"
	"github.com/vsinha/mrpcore/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/mrpcore/pkg/interfaces/cli/output"
	"github.com/vsinha/mrpcore/pkg/mrp"
)

const bicycleDir = "../../../../scenarios/bicycle"

func run(t *testing.T, config Config) (string, *events.InMemoryEventStore, error) {
	t.Helper()
	var buf bytes.Buffer
	config.ScenarioDir = bicycleDir
	config.Output.Out = &buf

	published := events.NewInMemoryEventStore()
	cmd := NewMRPCommand(config, mrp.NewEngine(memory.NewStore(), published))
	err := cmd.Execute(context.Background())
	return buf.String(), published, err
}

func TestMRPCommand_ExplodeJSON(t *testing.T) {
	out, _, err := run(t, Config{
		Command:          CommandExplode,
		Product:          "BIKE",
		Quantity:         "2",
		WithCost:         true,
		WithAvailability: true,
		Output:           output.Config{Format: output.FormatJSON},
	})
	require.NoError(t, err)

	var result explosion.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "BOM-BIKE@v1", result.BOMLabel)
	assert.Len(t, result.Leaves, 5)
	assert.Empty(t, result.Missing)
	assert.True(t, result.TotalCost.Equal(decimal.RequireFromString("80.2")), "total %s", result.TotalCost)

	byCode := make(map[string]explosion.LeafRequirement)
	for _, leaf := range result.Leaves {
		byCode[leaf.ProductCode] = leaf
	}
	assert.True(t, byCode["BOLT"].Quantity.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, 2, byCode["BOLT"].Paths)
	assert.True(t, byCode["SPOKE"].Quantity.Equal(decimal.NewFromInt(128)))
	assert.True(t, byCode["TUBE"].Quantity.Equal(decimal.NewFromInt(7)))
}

func TestMRPCommand_ExplodeReportsShortages(t *testing.T) {
	out, _, err := run(t, Config{
		Command:          CommandExplode,
		Product:          "WHEEL",
		Quantity:         "20",
		WithAvailability: true,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Shortages:")
	assert.Contains(t, out, "RIM")
}

func TestMRPCommand_Quote(t *testing.T) {
	out, _, err := run(t, Config{Command: CommandQuote, Product: "TUBE", Quantity: "25"})
	require.NoError(t, err)
	assert.Contains(t, out, "TUBE-0301")
	assert.Contains(t, out, "TUBE-0315")
	assert.Contains(t, out, "102.50")
}

func TestMRPCommand_Stock(t *testing.T) {
	out, _, err := run(t, Config{Command: CommandStock, Product: "RIM"})
	require.NoError(t, err)
	assert.Contains(t, out, "18")
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "OK")
}

func TestMRPCommand_Plan(t *testing.T) {
	out, published, err := run(t, Config{Command: CommandPlan, Product: "BIKE", Quantity: "2", Output: output.Config{Format: output.FormatJSON}})
	require.NoError(t, err)

	var plan output.Plan
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Equal(t, "IN_PROGRESS", plan.Status)
	assert.Equal(t, DefaultPriority, plan.Priority)
	assert.Len(t, plan.Components, 5)
	assert.True(t, plan.TotalCost.Equal(decimal.RequireFromString("80.2")), "total %s", plan.TotalCost)
	for _, c := range plan.Components {
		assert.Equal(t, "ALLOCATED", c.Status, c.ProductCode)
		assert.True(t, c.Allocated.Equal(c.Required), c.ProductCode)
		assert.NotEmpty(t, c.Reservations, c.ProductCode)
	}

	assert.Len(t, published.EventsOfType(events.OrderReleasedEvent), 1)
	assert.Len(t, published.EventsOfType(events.ReservationCreatedEvent), 5)
}

func TestMRPCommand_PlanWithPriority(t *testing.T) {
	out, _, err := run(t, Config{Command: CommandPlan, Product: "FRAME", Quantity: "1", Priority: 9})
	require.NoError(t, err)
	assert.Contains(t, out, "priority 9")
	assert.Contains(t, out, "IN_PROGRESS")
}

func TestMRPCommand_PlanShortFails(t *testing.T) {
	_, _, err := run(t, Config{Command: CommandPlan, Product: "BIKE", Quantity: "10"})
	require.Error(t, err)
	assert.Equal(t, entities.CodeInsufficientStock, entities.ErrorCode(err))
}

func TestMRPCommand_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"no command", Config{Product: "BIKE"}, "a command is required"},
		{"unknown command", Config{Command: "build", Product: "BIKE"}, "unknown command"},
		{"no product", Config{Command: CommandStock}, "-product"},
		{"bad quantity", Config{Command: CommandQuote, Product: "TUBE", Quantity: "lots"}, "invalid quantity"},
		{"zero quantity", Config{Command: CommandQuote, Product: "TUBE", Quantity: "0"}, "must be positive"},
		{"priority too high", Config{Command: CommandPlan, Product: "BIKE", Priority: 11}, "priority must be between 1 and 10"},
		{"negative priority", Config{Command: CommandPlan, Product: "BIKE", Priority: -1}, "priority must be between 1 and 10"},
		{"bad format", Config{Command: CommandStock, Product: "TUBE", Output: output.Config{Format: "xml"}}, "unsupported output format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMRPCommand_UnknownProduct(t *testing.T) {
	_, _, err := run(t, Config{Command: CommandStock, Product: "CAR"})
	require.Error(t, err)
	assert.Equal(t, entities.CodeNotFound, entities.ErrorCode(err))
}
