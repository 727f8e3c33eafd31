package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QualityStatus represents the inspection status of a batch
type QualityStatus int

const (
	QualityPending QualityStatus = iota
	QualityApproved
	QualityRejected
	QualityQuarantine
)

// String method for QualityStatus enum
func (s QualityStatus) String() string {
	switch s {
	case QualityPending:
		return "PENDING"
	case QualityApproved:
		return "APPROVED"
	case QualityRejected:
		return "REJECTED"
	case QualityQuarantine:
		return "QUARANTINE"
	default:
		return "UNKNOWN"
	}
}

// ParseQualityStatus parses the String form of a quality status
func ParseQualityStatus(s string) (QualityStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PENDING":
		return QualityPending, nil
	case "APPROVED":
		return QualityApproved, nil
	case "REJECTED":
		return QualityRejected, nil
	case "QUARANTINE":
		return QualityQuarantine, nil
	default:
		return QualityPending, fmt.Errorf("invalid quality status: %s (expected: PENDING, APPROVED, REJECTED, or QUARANTINE)", s)
	}
}

var qualityTransitions = map[QualityStatus][]QualityStatus{
	QualityPending:    {QualityApproved, QualityRejected, QualityQuarantine},
	QualityQuarantine: {QualityApproved, QualityRejected},
	QualityApproved:   {QualityQuarantine},
}

// CanTransitionTo reports whether the quality table allows s -> next.
func (s QualityStatus) CanTransitionTo(next QualityStatus) bool {
	for _, allowed := range qualityTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// InventoryBatch is a quantity of one product received at one time and cost.
// Available quantity is derived from QuantityInStock and ReservedQuantity and
// is never stored.
type InventoryBatch struct {
	ID               uuid.UUID
	BatchNumber      string
	ProductID        uuid.UUID
	WarehouseID      uuid.UUID
	EntryAt          time.Time
	QuantityInStock  decimal.Decimal
	ReservedQuantity decimal.Decimal
	UnitCost         decimal.Decimal
	Quality          QualityStatus
	ExpiresAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewInventoryBatch creates a validated InventoryBatch
func NewInventoryBatch(
	batchNumber string,
	productID, warehouseID uuid.UUID,
	quantity, unitCost decimal.Decimal,
	entryAt time.Time,
	quality QualityStatus,
	expiresAt *time.Time,
) (*InventoryBatch, error) {
	if batchNumber == "" {
		return nil, fmt.Errorf("batch number cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, fmt.Errorf("product cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, fmt.Errorf("warehouse cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("quantity must be positive, got %s", quantity)
	}
	if unitCost.IsNegative() {
		return nil, fmt.Errorf("unit cost cannot be negative, got %s", unitCost)
	}
	if entryAt.IsZero() {
		return nil, fmt.Errorf("entry time cannot be empty")
	}
	if expiresAt != nil && expiresAt.Before(entryAt) {
		return nil, fmt.Errorf("expiry %v cannot be before entry %v", *expiresAt, entryAt)
	}

	now := time.Now().UTC()
	return &InventoryBatch{
		ID:               uuid.New(),
		BatchNumber:      batchNumber,
		ProductID:        productID,
		WarehouseID:      warehouseID,
		EntryAt:          entryAt.UTC(),
		QuantityInStock:  quantity,
		ReservedQuantity: decimal.Zero,
		UnitCost:         unitCost,
		Quality:          quality,
		ExpiresAt:        expiresAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Available returns QuantityInStock - ReservedQuantity.
func (b *InventoryBatch) Available() decimal.Decimal {
	return b.QuantityInStock.Sub(b.ReservedQuantity)
}

// IsEligible reports whether the allocator may draw from this batch.
func (b *InventoryBatch) IsEligible() bool {
	return b.Quality == QualityApproved && b.Available().IsPositive()
}

// Reserve moves qty from available to reserved.
func (b *InventoryBatch) Reserve(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return fmt.Errorf("reserve quantity must be positive, got %s", qty)
	}
	if qty.GreaterThan(b.Available()) {
		return fmt.Errorf("batch %s: reserve %s exceeds available %s", b.BatchNumber, qty, b.Available())
	}
	b.ReservedQuantity = b.ReservedQuantity.Add(qty)
	return nil
}

// Unreserve returns qty from reserved to available without touching stock.
func (b *InventoryBatch) Unreserve(qty decimal.Decimal) error {
	if qty.GreaterThan(b.ReservedQuantity) {
		return fmt.Errorf("batch %s: release %s exceeds reserved %s", b.BatchNumber, qty, b.ReservedQuantity)
	}
	b.ReservedQuantity = b.ReservedQuantity.Sub(qty)
	return nil
}

// ConsumeReserved removes qty from both stock and reserved.
func (b *InventoryBatch) ConsumeReserved(qty decimal.Decimal) error {
	if qty.GreaterThan(b.ReservedQuantity) {
		return fmt.Errorf("batch %s: consume %s exceeds reserved %s", b.BatchNumber, qty, b.ReservedQuantity)
	}
	b.QuantityInStock = b.QuantityInStock.Sub(qty)
	b.ReservedQuantity = b.ReservedQuantity.Sub(qty)
	return nil
}

// Adjust sets the counted stock. A batch can be zeroed but never pushed below
// what is already reserved against it.
func (b *InventoryBatch) Adjust(counted decimal.Decimal) error {
	if counted.IsNegative() {
		return fmt.Errorf("counted quantity cannot be negative, got %s", counted)
	}
	if counted.LessThan(b.ReservedQuantity) {
		return fmt.Errorf("batch %s: counted %s is below reserved %s", b.BatchNumber, counted, b.ReservedQuantity)
	}
	b.QuantityInStock = counted
	return nil
}

// ReservationStatus represents the lifecycle of a reservation
type ReservationStatus int

const (
	ReservationActive ReservationStatus = iota
	ReservationConsumed
	ReservationReleased
)

// String method for ReservationStatus enum
func (s ReservationStatus) String() string {
	switch s {
	case ReservationActive:
		return "ACTIVE"
	case ReservationConsumed:
		return "CONSUMED"
	case ReservationReleased:
		return "RELEASED"
	default:
		return "UNKNOWN"
	}
}

// ParseReservationStatus parses the String form of a reservation status
func ParseReservationStatus(s string) (ReservationStatus, error) {
	switch s {
	case "ACTIVE":
		return ReservationActive, nil
	case "CONSUMED":
		return ReservationConsumed, nil
	case "RELEASED":
		return ReservationReleased, nil
	default:
		return ReservationActive, fmt.Errorf("invalid reservation status: %s", s)
	}
}

// Demand types a reservation can be raised for.
const (
	DemandAdHoc          = "ad_hoc"
	DemandOrderComponent = "production_order_component"
)

// StockReservation is a claim against one batch for one demand.
type StockReservation struct {
	ID          uuid.UUID
	BatchID     uuid.UUID
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	Status      ReservationStatus
	DemandType  string
	DemandID    uuid.UUID
	CreatedAt   time.Time
	ClosedAt    *time.Time
}

// NewStockReservation creates an ACTIVE reservation for qty of batch.
func NewStockReservation(batch *InventoryBatch, qty decimal.Decimal, demandType string, demandID uuid.UUID) *StockReservation {
	return &StockReservation{
		ID:          uuid.New(),
		BatchID:     batch.ID,
		ProductID:   batch.ProductID,
		WarehouseID: batch.WarehouseID,
		Quantity:    qty,
		UnitCost:    batch.UnitCost,
		Status:      ReservationActive,
		DemandType:  demandType,
		DemandID:    demandID,
		CreatedAt:   time.Now().UTC(),
	}
}

// Close moves an ACTIVE reservation to a terminal status.
func (r *StockReservation) Close(status ReservationStatus, at time.Time) error {
	if r.Status != ReservationActive {
		action := "consume"
		if status == ReservationReleased {
			action = "release"
		}
		return &InvalidStateError{Entity: "reservation", ID: r.ID, From: r.Status.String(), To: action}
	}
	r.Status = status
	r.ClosedAt = &at
	return nil
}

// Allocation is one (batch, quantity) pair of a FIFO allocation.
type Allocation struct {
	ReservationID uuid.UUID
	BatchID       uuid.UUID
	BatchNumber   string
	EntryAt       time.Time
	Quantity      decimal.Decimal
	UnitCost      decimal.Decimal
}

// AllocationResult represents the outcome of an allocation request
type AllocationResult struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	DemandType  string
	DemandID    uuid.UUID
	Quantity    decimal.Decimal
	TotalCost   decimal.Decimal
	Allocations []Allocation
}

// UnitCost is TotalCost spread over Quantity.
func (r *AllocationResult) UnitCost() decimal.Decimal {
	if r.Quantity.IsZero() {
		return decimal.Zero
	}
	return r.TotalCost.DivRound(r.Quantity, 6)
}
