package entities

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestProductionOrder_Validation(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	product, bom, wh := uuid.New(), uuid.New(), uuid.New()

	order, err := NewProductionOrder("PO-1", product, bom, wh, decimal.NewFromInt(5), 3, &start, &end)
	if err != nil {
		t.Fatalf("Expected valid order creation to succeed: %v", err)
	}
	if order.Status != OrderPending {
		t.Errorf("Expected PENDING, got %s", order.Status)
	}

	testCases := []struct {
		name        string
		number      string
		quantity    decimal.Decimal
		priority    int
		start, end  *time.Time
		expectError string
	}{
		{"empty number", "", decimal.NewFromInt(1), 1, nil, nil, "order number cannot be empty"},
		{"zero quantity", "PO", decimal.Zero, 1, nil, nil, "quantity must be positive, got 0"},
		{"priority too low", "PO", decimal.NewFromInt(1), 0, nil, nil, "priority must be between 1 and 10, got 0"},
		{"priority too high", "PO", decimal.NewFromInt(1), 11, nil, nil, "priority must be between 1 and 10, got 11"},
		{
			"start after end", "PO", decimal.NewFromInt(1), 1, &end, &start,
			"planned start 2025-01-10 00:00:00 +0000 UTC cannot be after planned end 2025-01-01 00:00:00 +0000 UTC",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewProductionOrder(tc.number, product, bom, wh, tc.quantity, tc.priority, tc.start, tc.end)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestProductionOrder_TransitionTable(t *testing.T) {
	testCases := []struct {
		name    string
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{"release", OrderPending, OrderInProgress, true},
		{"cancel pending", OrderPending, OrderCancelled, true},
		{"complete", OrderInProgress, OrderCompleted, true},
		{"cancel in progress", OrderInProgress, OrderCancelled, true},
		{"complete pending", OrderPending, OrderCompleted, false},
		{"reopen completed", OrderCompleted, OrderInProgress, false},
		{"cancel completed", OrderCompleted, OrderCancelled, false},
		{"revive cancelled", OrderCancelled, OrderPending, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			order := &ProductionOrder{ID: uuid.New(), Status: tc.from}
			err := order.TransitionTo(tc.to, time.Now())
			if tc.allowed && err != nil {
				t.Fatalf("Expected transition to succeed: %v", err)
			}
			if !tc.allowed {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("Expected ErrInvalidTransition, got %v", err)
				}
				if order.Status != tc.from {
					t.Errorf("Status changed on rejected transition: %s", order.Status)
				}
			}
		})
	}
}

func TestProductionOrder_StampsActualTimes(t *testing.T) {
	order := &ProductionOrder{ID: uuid.New(), Status: OrderPending}
	started := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	finished := started.Add(8 * time.Hour)

	if err := order.TransitionTo(OrderInProgress, started); err != nil {
		t.Fatal(err)
	}
	if err := order.TransitionTo(OrderCompleted, finished); err != nil {
		t.Fatal(err)
	}
	if order.ActualStart == nil || !order.ActualStart.Equal(started) {
		t.Errorf("Expected actual start %v, got %v", started, order.ActualStart)
	}
	if order.ActualEnd == nil || !order.ActualEnd.Equal(finished) {
		t.Errorf("Expected actual end %v, got %v", finished, order.ActualEnd)
	}
	if !order.Status.IsTerminal() {
		t.Error("COMPLETED must be terminal")
	}
}

func TestComponent_TransitionTable(t *testing.T) {
	c := &ProductionOrderComponent{
		ID:               uuid.New(),
		RequiredQuantity: decimal.NewFromInt(4),
		Status:           ComponentPending,
	}

	if err := c.TransitionTo(ComponentConsumed); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Expected skipping ALLOCATED to fail, got %v", err)
	}
	if err := c.TransitionTo(ComponentAllocated); err != nil {
		t.Fatal(err)
	}
	if err := c.TransitionTo(ComponentConsumed); err != nil {
		t.Fatal(err)
	}

	c.ConsumedQuantity = decimal.NewFromInt(3)
	err := c.TransitionTo(ComponentCompleted)
	if !errors.Is(err, ErrInvalidState) || errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Expected short consumption to be an invalid state, got %v", err)
	}

	c.ConsumedQuantity = decimal.NewFromInt(4)
	if err := c.TransitionTo(ComponentCompleted); err != nil {
		t.Fatal(err)
	}
	if err := c.TransitionTo(ComponentCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected COMPLETED to be terminal, got %v", err)
	}
}
