package costing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrpcore/pkg/application/services/allocation"
	"github.com/vsinha/mrpcore/pkg/domain/entities"
	scenario "github.com/vsinha/mrpcore/pkg/infrastructure/testing"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestQuoteCost_MatchesAllocation(t *testing.T) {
	s := scenario.NewScenario()
	s.Product("RM", entities.RawMaterial)
	s.Batch("RM", "B2", 2, "10", "4")
	s.Batch("RM", "B1", 1, "10", "2")
	ctx := context.Background()
	product, warehouse := s.Products["RM"].ID, s.Warehouses["MAIN"].ID

	quote, err := NewService(s.Store).QuoteCost(ctx, product, warehouse, dec("15"))
	require.NoError(t, err)

	// 10*2 + 5*4
	assert.True(t, quote.TotalCost.Equal(dec("40")), "total %s", quote.TotalCost)
	assert.True(t, quote.UnitCost.Equal(dec("2.666667")), "unit %s", quote.UnitCost)
	assert.True(t, quote.WeightedAverage.Equal(dec("3")), "average %s", quote.WeightedAverage)
	assert.False(t, quote.Short())

	result, err := allocation.NewService(s.Store, nil).Allocate(ctx, product, warehouse, dec("15"))
	require.NoError(t, err)
	require.Len(t, result.Allocations, len(quote.Batches))
	for i := range quote.Batches {
		assert.Equal(t, quote.Batches[i].BatchID, result.Allocations[i].BatchID)
		assert.True(t, quote.Batches[i].Quantity.Equal(result.Allocations[i].Quantity))
	}
	assert.True(t, result.TotalCost.Equal(quote.TotalCost))
}

func TestQuoteCost_DoesNotReserve(t *testing.T) {
	s := scenario.NewScenario()
	s.Product("RM", entities.RawMaterial)
	batch := s.Batch("RM", "B1", 1, "10", "2")

	_, err := NewService(s.Store).QuoteCost(context.Background(), s.Products["RM"].ID, s.Warehouses["MAIN"].ID, dec("10"))
	require.NoError(t, err)
	assert.True(t, s.GetBatch(batch.ID).ReservedQuantity.IsZero())
}

func TestQuoteCost_PricesShortfallAtWeightedAverage(t *testing.T) {
	s := scenario.NewScenario()
	s.Product("RM", entities.RawMaterial)
	s.Batch("RM", "B1", 1, "2", "1")
	s.Batch("RM", "B2", 2, "2", "3")

	quote, err := NewService(s.Store).QuoteCost(context.Background(), s.Products["RM"].ID, s.Warehouses["MAIN"].ID, dec("6"))
	require.NoError(t, err)

	assert.True(t, quote.Short())
	assert.True(t, quote.Shortfall.Equal(dec("2")))
	assert.True(t, quote.Available.Equal(dec("4")))
	// 2*1 + 2*3 + 2*2
	assert.True(t, quote.TotalCost.Equal(dec("12")), "total %s", quote.TotalCost)
}

func TestQuoteCost_NoStock(t *testing.T) {
	s := scenario.NewScenario()
	s.Product("RM", entities.RawMaterial)

	quote, err := NewService(s.Store).QuoteCost(context.Background(), s.Products["RM"].ID, s.Warehouses["MAIN"].ID, dec("3"))
	require.NoError(t, err)
	assert.True(t, quote.TotalCost.IsZero())
	assert.True(t, quote.Shortfall.Equal(dec("3")))
	assert.Empty(t, quote.Batches)
}
