package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductCategory classifies a product. It is fixed at creation.
type ProductCategory int

const (
	RawMaterial ProductCategory = iota
	SemiFinished
	Finished
	Packaging
)

// String method for ProductCategory enum
func (c ProductCategory) String() string {
	switch c {
	case RawMaterial:
		return "RAW_MATERIAL"
	case SemiFinished:
		return "SEMI_FINISHED"
	case Finished:
		return "FINISHED"
	case Packaging:
		return "PACKAGING"
	default:
		return "UNKNOWN"
	}
}

// ParseProductCategory parses the String form of a category (case-insensitive)
func ParseProductCategory(s string) (ProductCategory, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RAW_MATERIAL":
		return RawMaterial, nil
	case "SEMI_FINISHED":
		return SemiFinished, nil
	case "FINISHED":
		return Finished, nil
	case "PACKAGING":
		return Packaging, nil
	default:
		return RawMaterial, fmt.Errorf("invalid product category: %s", s)
	}
}

// Product is master data owned by the catalog; the core only reads it.
type Product struct {
	ID            uuid.UUID
	Code          string
	Name          string
	Category      ProductCategory
	UnitOfMeasure string
	MinimumStock  decimal.Decimal
	CriticalStock decimal.Decimal
	CreatedAt     time.Time
}

// NewProduct creates a validated Product
func NewProduct(code, name string, category ProductCategory, uom string, minimum, critical decimal.Decimal) (*Product, error) {
	if code == "" {
		return nil, fmt.Errorf("product code cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("product name cannot be empty")
	}
	if category < RawMaterial || category > Packaging {
		return nil, fmt.Errorf("invalid product category: %d", category)
	}
	if uom == "" {
		return nil, fmt.Errorf("unit of measure cannot be empty")
	}
	if minimum.IsNegative() || critical.IsNegative() {
		return nil, fmt.Errorf("stock thresholds cannot be negative")
	}
	if critical.GreaterThan(minimum) {
		return nil, fmt.Errorf("critical stock %s cannot exceed minimum stock %s", critical, minimum)
	}

	return &Product{
		ID:            uuid.New(),
		Code:          code,
		Name:          name,
		Category:      category,
		UnitOfMeasure: uom,
		MinimumStock:  minimum,
		CriticalStock: critical,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Warehouse is a stocking location.
type Warehouse struct {
	ID   uuid.UUID
	Code string
	Name string
}

// NewWarehouse creates a validated Warehouse
func NewWarehouse(code, name string) (*Warehouse, error) {
	if code == "" {
		return nil, fmt.Errorf("warehouse code cannot be empty")
	}
	return &Warehouse{ID: uuid.New(), Code: code, Name: name}, nil
}

// StockStatus grades the available quantity of a product against its thresholds.
type StockStatus int

const (
	StockOK StockStatus = iota
	StockLow
	StockCritical
)

// String method for StockStatus enum
func (s StockStatus) String() string {
	switch s {
	case StockOK:
		return "OK"
	case StockLow:
		return "LOW"
	case StockCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// StockStatusFor grades an available quantity. Thresholds of zero disable the grade.
func (p *Product) StockStatusFor(available decimal.Decimal) StockStatus {
	if p.CriticalStock.IsPositive() && available.LessThanOrEqual(p.CriticalStock) {
		return StockCritical
	}
	if p.MinimumStock.IsPositive() && available.LessThanOrEqual(p.MinimumStock) {
		return StockLow
	}
	return StockOK
}
