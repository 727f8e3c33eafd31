package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BOMStatus represents the lifecycle status of a BOM
type BOMStatus int

const (
	BOMDraft BOMStatus = iota
	BOMActive
	BOMObsolete
)

// String method for BOMStatus enum
func (s BOMStatus) String() string {
	switch s {
	case BOMDraft:
		return "DRAFT"
	case BOMActive:
		return "ACTIVE"
	case BOMObsolete:
		return "OBSOLETE"
	default:
		return "UNKNOWN"
	}
}

// ParseBOMStatus parses the String form of a BOM status
func ParseBOMStatus(s string) (BOMStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DRAFT":
		return BOMDraft, nil
	case "ACTIVE":
		return BOMActive, nil
	case "OBSOLETE":
		return BOMObsolete, nil
	default:
		return BOMDraft, fmt.Errorf("invalid BOM status: %s (expected: DRAFT, ACTIVE, or OBSOLETE)", s)
	}
}

// BOMItem is one component line of a BOM. Quantity is per one unit of the
// BOM's product.
type BOMItem struct {
	ID          uuid.UUID
	ComponentID uuid.UUID
	Quantity    decimal.Decimal
	Sequence    int
	Notes       string
}

// BillOfMaterials maps a product to the components needed to make one unit.
type BillOfMaterials struct {
	ID        uuid.UUID
	Code      string
	Name      string
	Version   string
	ProductID uuid.UUID
	Status    BOMStatus
	Items     []BOMItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBillOfMaterials creates a validated DRAFT BOM
func NewBillOfMaterials(code, name, version string, productID uuid.UUID) (*BillOfMaterials, error) {
	if code == "" {
		return nil, fmt.Errorf("BOM code cannot be empty")
	}
	if version == "" {
		return nil, fmt.Errorf("BOM version cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, fmt.Errorf("BOM product cannot be empty")
	}

	now := time.Now().UTC()
	return &BillOfMaterials{
		ID:        uuid.New(),
		Code:      code,
		Name:      name,
		Version:   version,
		ProductID: productID,
		Status:    BOMDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AddItem appends a component line. Lines keep insertion order.
func (b *BillOfMaterials) AddItem(componentID uuid.UUID, qty decimal.Decimal, notes string) (*BOMItem, error) {
	if componentID == uuid.Nil {
		return nil, fmt.Errorf("component cannot be empty")
	}
	if !qty.IsPositive() {
		return nil, fmt.Errorf("quantity per must be positive, got %s", qty)
	}
	b.Items = append(b.Items, BOMItem{
		ID:          uuid.New(),
		ComponentID: componentID,
		Quantity:    qty,
		Sequence:    len(b.Items) + 1,
		Notes:       notes,
	})
	return &b.Items[len(b.Items)-1], nil
}

// Label is the human form used in cycle paths and CLI output.
func (b *BillOfMaterials) Label() string {
	return fmt.Sprintf("%s@%s", b.Code, b.Version)
}

// Activate moves a DRAFT BOM to ACTIVE.
func (b *BillOfMaterials) Activate() error {
	if b.Status != BOMDraft {
		return &InvalidStateError{Entity: "bom", ID: b.ID, From: b.Status.String(), To: BOMActive.String(), Transition: true}
	}
	if len(b.Items) == 0 {
		return fmt.Errorf("BOM %s has no items", b.Label())
	}
	b.Status = BOMActive
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// Obsolete retires a DRAFT or ACTIVE BOM.
func (b *BillOfMaterials) Obsolete() error {
	if b.Status == BOMObsolete {
		return &InvalidStateError{Entity: "bom", ID: b.ID, From: b.Status.String(), To: BOMObsolete.String(), Transition: true}
	}
	b.Status = BOMObsolete
	b.UpdatedAt = time.Now().UTC()
	return nil
}
