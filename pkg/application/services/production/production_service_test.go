package production

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrpcore/pkg/application/services/allocation"
	"github.com/vsinha/mrpcore/pkg/application/services/costing"
	"github.com/vsinha/mrpcore/pkg/application/services/explosion"
	"github.com/vsinha/mrpcore/pkg/domain/entities"
	"github.com/vsinha/mrpcore/pkg/domain/repositories"
	"github.com/vsinha/mrpcore/pkg/infrastructure/events"
	scenario "github.com/vsinha/mrpcore/pkg/infrastructure/testing"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type harness struct {
	s         *scenario.Scenario
	svc       *Service
	published *events.InMemoryEventStore
}

func newHarness(s *scenario.Scenario) harness {
	published := events.NewInMemoryEventStore()
	allocator := allocation.NewService(s.Store, published)
	exploder := explosion.NewService(s.Store, costing.NewService(s.Store), published)
	return harness{s: s, svc: NewService(s.Store, allocator, exploder, published), published: published}
}

func (h harness) order(t *testing.T, product, quantity string) *entities.ProductionOrder {
	t.Helper()
	order, err := h.svc.CreateOrder(context.Background(), OrderRequest{
		ProductID:   h.s.Products[product].ID,
		WarehouseID: h.s.Warehouses["MAIN"].ID,
		Quantity:    dec(quantity),
		Priority:    5,
	})
	require.NoError(t, err)
	return order
}

func (h harness) componentFor(t *testing.T, order *entities.ProductionOrder, product string) entities.ProductionOrderComponent {
	t.Helper()
	for _, c := range order.Components {
		if c.ProductID == h.s.Products[product].ID {
			return c
		}
	}
	t.Fatalf("order %s has no component %s", order.OrderNumber, product)
	return entities.ProductionOrderComponent{}
}

// pabWithStock is P = {A: 2, B: 1}, B = {A: 1, C: 1} with A and C in stock.
func pabWithStock() *scenario.Scenario {
	s := scenario.NewScenario()
	s.Product("P", entities.Finished)
	s.Product("A", entities.RawMaterial)
	s.Product("B", entities.SemiFinished)
	s.Product("C", entities.Packaging)
	s.BOM("BOM-B", "B", scenario.Item{Component: "A", Quantity: "1"}, scenario.Item{Component: "C", Quantity: "1"})
	s.BOM("BOM-P", "P", scenario.Item{Component: "A", Quantity: "2"}, scenario.Item{Component: "B", Quantity: "1"})
	s.Batch("A", "A-1", 1, "5", "1.00")
	s.Batch("A", "A-2", 2, "10", "2.00")
	s.Batch("C", "C-1", 1, "10", "0.50")
	return s
}

func TestCreateOrder(t *testing.T) {
	h := newHarness(pabWithStock())
	ctx := context.Background()

	order := h.order(t, "P", "3")
	assert.Equal(t, entities.OrderPending, order.Status)
	assert.Equal(t, h.s.BOMs["BOM-P"].ID, order.BOMID)
	assert.Regexp(t, `^PO-[0-9A-F]{8}$`, order.OrderNumber)
	assert.Len(t, h.published.EventsOfType(events.OrderCreatedEvent), 1)

	start := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	tests := []struct {
		name string
		req  OrderRequest
	}{
		{"zero quantity", OrderRequest{ProductID: h.s.Products["P"].ID, WarehouseID: h.s.Warehouses["MAIN"].ID, Quantity: decimal.Zero, Priority: 1}},
		{"priority out of range", OrderRequest{ProductID: h.s.Products["P"].ID, WarehouseID: h.s.Warehouses["MAIN"].ID, Quantity: dec("1"), Priority: 11}},
		{"start after end", OrderRequest{ProductID: h.s.Products["P"].ID, WarehouseID: h.s.Warehouses["MAIN"].ID, Quantity: dec("1"), Priority: 1, PlannedStart: &start, PlannedEnd: &end}},
		{"bom of another product", OrderRequest{ProductID: h.s.Products["P"].ID, BOMID: h.s.BOMs["BOM-B"].ID, WarehouseID: h.s.Warehouses["MAIN"].ID, Quantity: dec("1"), Priority: 1}},
		{"leaf has no bom", OrderRequest{ProductID: h.s.Products["A"].ID, WarehouseID: h.s.Warehouses["MAIN"].ID, Quantity: dec("1"), Priority: 1}},
		{"unknown warehouse", OrderRequest{ProductID: h.s.Products["P"].ID, WarehouseID: uuid.New(), Quantity: dec("1"), Priority: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.CreateOrder(ctx, tt.req)
			assert.Error(t, err)
		})
	}
}

func TestOrderLifecycle(t *testing.T) {
	h := newHarness(pabWithStock())
	ctx := context.Background()
	order := h.order(t, "P", "3")

	released, err := h.svc.ReleaseOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.OrderInProgress, released.Status)
	require.NotNil(t, released.ActualStart)
	require.Len(t, released.Components, 2)

	// A: 2*3 direct + 1*3 via B, taken 5 @ 1.00 then 4 @ 2.00
	a := h.componentFor(t, released, "A")
	assert.True(t, a.RequiredQuantity.Equal(dec("9")))
	assert.True(t, a.AllocatedQuantity.Equal(dec("9")))
	assert.True(t, a.UnitCost.Equal(dec("1.444444")), "unit cost %s", a.UnitCost)
	assert.Equal(t, entities.ComponentAllocated, a.Status)
	assert.Len(t, h.s.Reservations(entities.DemandOrderComponent, a.ID), 2)

	c := h.componentFor(t, released, "C")
	assert.True(t, c.RequiredQuantity.Equal(dec("3")))
	assert.True(t, c.UnitCost.Equal(dec("0.5")))

	assert.Len(t, h.published.EventsOfType(events.ReservationCreatedEvent), 3)
	assert.Len(t, h.published.EventsOfType(events.OrderReleasedEvent), 1)

	for _, component := range released.Components {
		_, err := h.svc.UpdateComponentStatus(ctx, order.ID, component.ID, entities.ComponentConsumed)
		require.NoError(t, err)
		_, err = h.svc.UpdateComponentStatus(ctx, order.ID, component.ID, entities.ComponentCompleted)
		require.NoError(t, err)
	}

	completed, err := h.svc.CompleteOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.OrderCompleted, completed.Status)
	assert.True(t, completed.QuantityProduced.Equal(dec("3")))
	require.NotNil(t, completed.ActualEnd)

	stored := h.s.GetOrder(order.ID)
	assert.True(t, h.componentFor(t, stored, "A").ConsumedQuantity.Equal(dec("9")))
	for _, r := range h.s.Reservations(entities.DemandOrderComponent, a.ID) {
		assert.Equal(t, entities.ReservationConsumed, r.Status)
	}
	assert.Len(t, h.published.EventsOfType(events.ReservationConsumedEvent), 3)

	// A-1 drained, A-2 down to 6
	batches := map[string]*entities.InventoryBatch{}
	for _, r := range h.s.Reservations(entities.DemandOrderComponent, a.ID) {
		b := h.s.GetBatch(r.BatchID)
		batches[b.BatchNumber] = b
	}
	assert.True(t, batches["A-1"].QuantityInStock.IsZero())
	assert.True(t, batches["A-2"].QuantityInStock.Equal(dec("6")))
	assert.True(t, batches["A-2"].ReservedQuantity.IsZero())
	require.NoError(t, h.s.Store.CheckInvariants())

	_, err = h.svc.CancelOrder(ctx, order.ID)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)
}

func TestReleaseOrder_InsufficientStockLeavesNothing(t *testing.T) {
	s := pabWithStock()
	h := newHarness(s)
	order := h.order(t, "P", "10") // needs 30 A, 15 on hand

	_, err := h.svc.ReleaseOrder(context.Background(), order.ID)
	require.ErrorIs(t, err, entities.ErrInsufficientStock)

	var short *entities.InsufficientStockError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, s.Products["A"].ID, short.ProductID)
	assert.True(t, short.Shortfall().Equal(dec("15")))

	stored := s.GetOrder(order.ID)
	assert.Equal(t, entities.OrderPending, stored.Status)
	assert.Empty(t, stored.Components)
	for _, code := range []string{"A", "C"} {
		for _, batch := range h.batches(t, code) {
			assert.True(t, batch.ReservedQuantity.IsZero(), "batch %s reserved %s", batch.BatchNumber, batch.ReservedQuantity)
		}
	}
	assert.Empty(t, h.published.EventsOfType(events.ReservationCreatedEvent))
	require.NoError(t, s.Store.CheckInvariants())
}

func (h harness) batches(t *testing.T, product string) []*entities.InventoryBatch {
	t.Helper()
	var out []*entities.InventoryBatch
	err := h.s.Store.View(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
		var err error
		out, err = tx.ListBatches(ctx, h.s.Products[product].ID, h.s.Warehouses["MAIN"].ID)
		return err
	})
	require.NoError(t, err)
	return out
}

func TestReleaseOrder_CycleFails(t *testing.T) {
	s := scenario.BuildCycle()
	h := newHarness(s)
	order := h.order(t, "A", "1")

	_, err := h.svc.ReleaseOrder(context.Background(), order.ID)
	assert.ErrorIs(t, err, entities.ErrCircularReference)
	assert.Equal(t, entities.OrderPending, s.GetOrder(order.ID).Status)
}

func TestReleaseOrder_OnlyOnce(t *testing.T) {
	h := newHarness(pabWithStock())
	order := h.order(t, "P", "1")

	_, err := h.svc.ReleaseOrder(context.Background(), order.ID)
	require.NoError(t, err)
	_, err = h.svc.ReleaseOrder(context.Background(), order.ID)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)
}

func TestCompleteOrder_IncompleteComponents(t *testing.T) {
	h := newHarness(pabWithStock())
	ctx := context.Background()
	order := h.order(t, "P", "1")
	released, err := h.svc.ReleaseOrder(ctx, order.ID)
	require.NoError(t, err)

	a := h.componentFor(t, released, "A")
	_, err = h.svc.UpdateComponentStatus(ctx, order.ID, a.ID, entities.ComponentConsumed)
	require.NoError(t, err)
	_, err = h.svc.UpdateComponentStatus(ctx, order.ID, a.ID, entities.ComponentCompleted)
	require.NoError(t, err)

	_, err = h.svc.CompleteOrder(ctx, order.ID)
	require.ErrorIs(t, err, entities.ErrComponentsIncomplete)

	var incomplete *entities.ComponentsIncompleteError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []uuid.UUID{h.componentFor(t, released, "C").ID}, incomplete.Incomplete)
	assert.Equal(t, entities.OrderInProgress, h.s.GetOrder(order.ID).Status)
}

func TestCompleteOrder_PendingIsInvalidTransition(t *testing.T) {
	h := newHarness(pabWithStock())
	order := h.order(t, "P", "1")

	_, err := h.svc.CompleteOrder(context.Background(), order.ID)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)
}

func TestUpdateComponentStatus_Transitions(t *testing.T) {
	h := newHarness(pabWithStock())
	ctx := context.Background()
	order := h.order(t, "P", "1")
	released, err := h.svc.ReleaseOrder(ctx, order.ID)
	require.NoError(t, err)
	a := h.componentFor(t, released, "A")

	tests := []struct {
		name string
		next entities.ComponentStatus
		want error
	}{
		{"skip to completed", entities.ComponentCompleted, entities.ErrInvalidTransition},
		{"back to pending", entities.ComponentPending, entities.ErrInvalidTransition},
		{"allocated again", entities.ComponentAllocated, entities.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.UpdateComponentStatus(ctx, order.ID, a.ID, tt.next)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = h.svc.UpdateComponentStatus(ctx, order.ID, uuid.New(), entities.ComponentConsumed)
	assert.ErrorIs(t, err, entities.ErrNotFound)

	// a failed update changes nothing
	assert.Equal(t, entities.ComponentAllocated, h.componentFor(t, h.s.GetOrder(order.ID), "A").Status)
}

func TestUpdateComponentStatus_ConsumeNeedsActiveReservations(t *testing.T) {
	s := pabWithStock()
	h := newHarness(s)
	ctx := context.Background()
	order := h.order(t, "P", "1")
	released, err := h.svc.ReleaseOrder(ctx, order.ID)
	require.NoError(t, err)
	c := h.componentFor(t, released, "C")

	reservations := s.Reservations(entities.DemandOrderComponent, c.ID)
	require.Len(t, reservations, 1)
	require.NoError(t, allocation.NewService(s.Store, h.published).ReleaseReservation(ctx, reservations[0].ID))

	_, err = h.svc.UpdateComponentStatus(ctx, order.ID, c.ID, entities.ComponentConsumed)
	assert.ErrorIs(t, err, entities.ErrInvalidState)
	assert.Equal(t, entities.CodeInvalidState, entities.ErrorCode(err))

	after := h.componentFor(t, h.s.GetOrder(order.ID), "C")
	assert.Equal(t, entities.ComponentAllocated, after.Status)
	assert.True(t, after.ConsumedQuantity.IsZero())
	assert.Empty(t, h.published.EventsOfType(events.ReservationConsumedEvent))

	// the order can still be cancelled cleanly
	_, err = h.svc.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	require.NoError(t, s.Store.CheckInvariants())
}

func TestCancelOrder_ReleasesReservations(t *testing.T) {
	s := pabWithStock()
	h := newHarness(s)
	ctx := context.Background()
	order := h.order(t, "P", "2")
	released, err := h.svc.ReleaseOrder(ctx, order.ID)
	require.NoError(t, err)

	cancelled, err := h.svc.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.OrderCancelled, cancelled.Status)

	for _, component := range released.Components {
		for _, r := range s.Reservations(entities.DemandOrderComponent, component.ID) {
			assert.Equal(t, entities.ReservationReleased, r.Status)
		}
	}
	for _, code := range []string{"A", "C"} {
		for _, batch := range h.batches(t, code) {
			assert.True(t, batch.ReservedQuantity.IsZero())
			assert.True(t, batch.Available().Equal(batch.QuantityInStock))
		}
	}
	assert.Len(t, h.published.EventsOfType(events.ReservationReleasedEvent), 3)
	assert.Len(t, h.published.EventsOfType(events.OrderCancelledEvent), 1)
	require.NoError(t, s.Store.CheckInvariants())

	_, err = h.svc.CancelOrder(ctx, order.ID)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)
}

func TestCancelOrder_Pending(t *testing.T) {
	h := newHarness(pabWithStock())
	order := h.order(t, "P", "1")

	cancelled, err := h.svc.CancelOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.OrderCancelled, cancelled.Status)

	_, err = h.svc.ReleaseOrder(context.Background(), order.ID)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)
}
