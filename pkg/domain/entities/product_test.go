package entities

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestProduct_Validation(t *testing.T) {
	valid, err := NewProduct("RM-STEEL", "Steel sheet", RawMaterial, "kg", decimal.NewFromInt(100), decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("Expected valid product creation to succeed: %v", err)
	}
	if valid.Category != RawMaterial {
		t.Errorf("Expected RAW_MATERIAL, got %s", valid.Category)
	}

	testCases := []struct {
		name        string
		code        string
		productName string
		category    ProductCategory
		uom         string
		minimum     int64
		critical    int64
		expectError string
	}{
		{"empty code", "", "Steel", RawMaterial, "kg", 10, 5, "product code cannot be empty"},
		{"empty name", "RM", "", RawMaterial, "kg", 10, 5, "product name cannot be empty"},
		{"bad category", "RM", "Steel", ProductCategory(9), "kg", 10, 5, "invalid product category: 9"},
		{"empty uom", "RM", "Steel", RawMaterial, "", 10, 5, "unit of measure cannot be empty"},
		{"negative threshold", "RM", "Steel", RawMaterial, "kg", -1, 0, "stock thresholds cannot be negative"},
		{"critical above minimum", "RM", "Steel", RawMaterial, "kg", 5, 10, "critical stock 10 cannot exceed minimum stock 5"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewProduct(tc.code, tc.productName, tc.category, tc.uom, decimal.NewFromInt(tc.minimum), decimal.NewFromInt(tc.critical))
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestProduct_StockStatusFor(t *testing.T) {
	p := &Product{MinimumStock: decimal.NewFromInt(50), CriticalStock: decimal.NewFromInt(10)}

	tests := []struct {
		available int64
		expected  StockStatus
	}{
		{100, StockOK},
		{51, StockOK},
		{50, StockLow},
		{11, StockLow},
		{10, StockCritical},
		{0, StockCritical},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("available_%d", tt.available), func(t *testing.T) {
			if got := p.StockStatusFor(decimal.NewFromInt(tt.available)); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}

	none := &Product{}
	if got := none.StockStatusFor(decimal.Zero); got != StockOK {
		t.Errorf("Expected zero thresholds to report OK, got %s", got)
	}
}

func TestParseProductCategory(t *testing.T) {
	got, err := ParseProductCategory(" semi_finished ")
	if err != nil || got != SemiFinished {
		t.Errorf("Expected SEMI_FINISHED, got %v, %v", got, err)
	}
	if _, err := ParseProductCategory("tooling"); err == nil {
		t.Error("Expected unknown category to fail")
	}
}

func TestErrorCode_Distinct(t *testing.T) {
	id := uuid.New()
	errs := []error{
		&InsufficientStockError{Required: decimal.NewFromInt(5), Available: decimal.NewFromInt(2)},
		&CircularReferenceError{Path: []uuid.UUID{id, id}},
		&InvalidStateError{Entity: "order", ID: id, From: "COMPLETED", To: "CANCELLED", Transition: true},
		&InvalidStateError{Entity: "reservation", ID: id, From: "RELEASED", To: "consume"},
		&ComponentsIncompleteError{OrderID: id, Incomplete: []uuid.UUID{id}},
		&AmbiguousBOMError{ProductID: id, Candidates: []uuid.UUID{id, uuid.New()}},
		NewNotFound("batch", id),
		errors.New("boom"),
	}

	seen := make(map[string]bool)
	for _, err := range errs {
		code := ErrorCode(fmt.Errorf("wrapped: %w", err))
		if seen[code] {
			t.Errorf("Code %s reported for more than one error kind", code)
		}
		seen[code] = true
	}

	var ise *InsufficientStockError
	if !errors.As(fmt.Errorf("outer: %w", errs[0]), &ise) || !ise.Shortfall().Equal(decimal.NewFromInt(3)) {
		t.Errorf("Expected shortfall 3 to survive wrapping")
	}
}
