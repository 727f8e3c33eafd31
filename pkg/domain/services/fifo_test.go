package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func batch(t require.TestingT, day int, qty, cost int64, quality entities.QualityStatus) *entities.InventoryBatch {
	b, err := entities.NewInventoryBatch("B", uuid.New(), uuid.New(),
		decimal.NewFromInt(qty), decimal.NewFromInt(cost), epoch.AddDate(0, 0, day), quality, nil)
	require.NoError(t, err)
	return b
}

func TestWalkFIFO_TakesOldestFirst(t *testing.T) {
	newest := batch(t, 3, 10, 30, entities.QualityApproved)
	oldest := batch(t, 1, 4, 10, entities.QualityApproved)
	middle := batch(t, 2, 5, 20, entities.QualityApproved)

	plan := WalkFIFO([]*entities.InventoryBatch{newest, oldest, middle}, decimal.NewFromInt(12))

	require.Len(t, plan.Picks, 3)
	assert.Equal(t, oldest.ID, plan.Picks[0].Batch.ID)
	assert.Equal(t, middle.ID, plan.Picks[1].Batch.ID)
	assert.Equal(t, newest.ID, plan.Picks[2].Batch.ID)
	assert.True(t, plan.Picks[2].Quantity.Equal(decimal.NewFromInt(3)))
	// 4*10 + 5*20 + 3*30
	assert.True(t, plan.Cost.Equal(decimal.NewFromInt(230)), "cost %s", plan.Cost)
	assert.True(t, plan.Shortfall().IsZero())
}

func TestWalkFIFO_SkipsIneligible(t *testing.T) {
	pending := batch(t, 0, 100, 1, entities.QualityPending)
	quarantined := batch(t, 0, 100, 1, entities.QualityQuarantine)
	drained := batch(t, 0, 5, 1, entities.QualityApproved)
	require.NoError(t, drained.Reserve(decimal.NewFromInt(5)))
	good := batch(t, 5, 7, 2, entities.QualityApproved)

	plan := WalkFIFO([]*entities.InventoryBatch{pending, quarantined, drained, good}, decimal.NewFromInt(10))

	require.Len(t, plan.Picks, 1)
	assert.Equal(t, good.ID, plan.Picks[0].Batch.ID)
	assert.True(t, plan.Available.Equal(decimal.NewFromInt(7)))
	assert.True(t, plan.Shortfall().Equal(decimal.NewFromInt(3)))
}

func TestSortFIFO_TieBreaksOnID(t *testing.T) {
	a := batch(t, 1, 1, 1, entities.QualityApproved)
	b := batch(t, 1, 1, 1, entities.QualityApproved)
	a.ID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	b.ID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

	batches := []*entities.InventoryBatch{a, b}
	SortFIFO(batches)
	assert.Equal(t, b.ID, batches[0].ID)

	batches = []*entities.InventoryBatch{b, a}
	SortFIFO(batches)
	assert.Equal(t, b.ID, batches[0].ID)
}

func TestPlanFIFO_ReportsShortfall(t *testing.T) {
	product, warehouse := uuid.New(), uuid.New()
	batches := []*entities.InventoryBatch{
		batch(t, 1, 3, 1, entities.QualityApproved),
		batch(t, 2, 4, 1, entities.QualityApproved),
	}

	_, err := PlanFIFO(product, warehouse, batches, decimal.NewFromInt(10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrInsufficientStock))

	var ise *entities.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, product, ise.ProductID)
	assert.True(t, ise.Shortfall().Equal(decimal.NewFromInt(3)))
}

func TestWeightedAverageCost(t *testing.T) {
	batches := []*entities.InventoryBatch{
		batch(t, 1, 10, 2, entities.QualityApproved),
		batch(t, 2, 30, 4, entities.QualityApproved),
		batch(t, 3, 50, 100, entities.QualityRejected),
	}
	// (10*2 + 30*4) / 40
	assert.True(t, WeightedAverageCost(batches).Equal(decimal.RequireFromString("3.5")))
	assert.True(t, WeightedAverageCost(nil).IsZero())
}

func TestWalkFIFO_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "batches")
		batches := make([]*entities.InventoryBatch, 0, n)
		total := int64(0)
		for i := 0; i < n; i++ {
			qty := rapid.Int64Range(1, 50).Draw(t, "qty")
			day := rapid.IntRange(0, 5).Draw(t, "day")
			batches = append(batches, batch(t, day, qty, 1, entities.QualityApproved))
			total += qty
		}
		required := rapid.Int64Range(1, total).Draw(t, "required")

		plan := WalkFIFO(batches, decimal.NewFromInt(required))

		if !plan.Covered.Equal(decimal.NewFromInt(required)) {
			t.Fatalf("covered %s, want %d", plan.Covered, required)
		}
		sum := decimal.Zero
		for i, pick := range plan.Picks {
			sum = sum.Add(pick.Quantity)
			if !pick.Quantity.IsPositive() {
				t.Fatalf("pick %d has non-positive quantity", i)
			}
			if i > 0 && pick.Batch.EntryAt.Before(plan.Picks[i-1].Batch.EntryAt) {
				t.Fatalf("pick %d entered before pick %d", i, i-1)
			}
			if i < len(plan.Picks)-1 && !pick.Quantity.Equal(pick.Batch.Available()) {
				t.Fatalf("pick %d left stock behind before the last pick", i)
			}
		}
		if !sum.Equal(decimal.NewFromInt(required)) {
			t.Fatalf("picks sum to %s, want %d", sum, required)
		}
	})
}
