package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the state of a production order
type OrderStatus int

const (
	OrderPending OrderStatus = iota
	OrderInProgress
	OrderCompleted
	OrderCancelled
)

// String method for OrderStatus enum
func (s OrderStatus) String() string {
	switch s {
	case OrderPending:
		return "PENDING"
	case OrderInProgress:
		return "IN_PROGRESS"
	case OrderCompleted:
		return "COMPLETED"
	case OrderCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// ParseOrderStatus parses the String form of an order status
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch s {
	case "PENDING":
		return OrderPending, nil
	case "IN_PROGRESS":
		return OrderInProgress, nil
	case "COMPLETED":
		return OrderCompleted, nil
	case "CANCELLED":
		return OrderCancelled, nil
	default:
		return OrderPending, fmt.Errorf("invalid order status: %s", s)
	}
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderInProgress, OrderCancelled},
	OrderInProgress: {OrderCompleted, OrderCancelled},
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// ComponentStatus represents the progress of one order component
type ComponentStatus int

const (
	ComponentPending ComponentStatus = iota
	ComponentAllocated
	ComponentConsumed
	ComponentCompleted
)

// String method for ComponentStatus enum
func (s ComponentStatus) String() string {
	switch s {
	case ComponentPending:
		return "PENDING"
	case ComponentAllocated:
		return "ALLOCATED"
	case ComponentConsumed:
		return "CONSUMED"
	case ComponentCompleted:
		return "COMPLETED"
	default:
		return "UNKNOWN"
	}
}

// ParseComponentStatus parses the String form of a component status
func ParseComponentStatus(s string) (ComponentStatus, error) {
	switch s {
	case "PENDING":
		return ComponentPending, nil
	case "ALLOCATED":
		return ComponentAllocated, nil
	case "CONSUMED":
		return ComponentConsumed, nil
	case "COMPLETED":
		return ComponentCompleted, nil
	default:
		return ComponentPending, fmt.Errorf("invalid component status: %s", s)
	}
}

var componentTransitions = map[ComponentStatus]ComponentStatus{
	ComponentPending:   ComponentAllocated,
	ComponentAllocated: ComponentConsumed,
	ComponentConsumed:  ComponentCompleted,
}

// ProductionOrderComponent is one material line of a released order. It is
// owned by exactly one order.
type ProductionOrderComponent struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	ProductID         uuid.UUID
	RequiredQuantity  decimal.Decimal
	AllocatedQuantity decimal.Decimal
	ConsumedQuantity  decimal.Decimal
	UnitCost          decimal.Decimal
	Status            ComponentStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TransitionTo applies the component transition table.
func (c *ProductionOrderComponent) TransitionTo(next ComponentStatus) error {
	if allowed, ok := componentTransitions[c.Status]; !ok || allowed != next {
		return &InvalidStateError{
			Entity:     "component",
			ID:         c.ID,
			From:       c.Status.String(),
			To:         next.String(),
			Transition: true,
		}
	}
	if next == ComponentCompleted && c.ConsumedQuantity.LessThan(c.RequiredQuantity) {
		return &InvalidStateError{
			Entity: "component",
			ID:     c.ID,
			From:   fmt.Sprintf("consumed %s of %s", c.ConsumedQuantity, c.RequiredQuantity),
			To:     "complete",
		}
	}
	c.Status = next
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// ProductionOrder drives manufacturing of one product from one BOM.
type ProductionOrder struct {
	ID               uuid.UUID
	OrderNumber      string
	ProductID        uuid.UUID
	BOMID            uuid.UUID
	WarehouseID      uuid.UUID
	Quantity         decimal.Decimal
	QuantityProduced decimal.Decimal
	Priority         int
	Status           OrderStatus
	PlannedStart     *time.Time
	PlannedEnd       *time.Time
	ActualStart      *time.Time
	ActualEnd        *time.Time
	Components       []ProductionOrderComponent
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewProductionOrder creates a validated PENDING order
func NewProductionOrder(
	orderNumber string,
	productID, bomID, warehouseID uuid.UUID,
	quantity decimal.Decimal,
	priority int,
	plannedStart, plannedEnd *time.Time,
) (*ProductionOrder, error) {
	if orderNumber == "" {
		return nil, fmt.Errorf("order number cannot be empty")
	}
	if productID == uuid.Nil || bomID == uuid.Nil || warehouseID == uuid.Nil {
		return nil, fmt.Errorf("product, BOM and warehouse are required")
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("quantity must be positive, got %s", quantity)
	}
	if priority < 1 || priority > 10 {
		return nil, fmt.Errorf("priority must be between 1 and 10, got %d", priority)
	}
	if plannedStart != nil && plannedEnd != nil && plannedStart.After(*plannedEnd) {
		return nil, fmt.Errorf("planned start %v cannot be after planned end %v", *plannedStart, *plannedEnd)
	}

	now := time.Now().UTC()
	return &ProductionOrder{
		ID:               uuid.New(),
		OrderNumber:      orderNumber,
		ProductID:        productID,
		BOMID:            bomID,
		WarehouseID:      warehouseID,
		Quantity:         quantity,
		QuantityProduced: decimal.Zero,
		Priority:         priority,
		Status:           OrderPending,
		PlannedStart:     plannedStart,
		PlannedEnd:       plannedEnd,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// TransitionTo applies the order transition table and stamps actual times.
func (o *ProductionOrder) TransitionTo(next OrderStatus, at time.Time) error {
	allowed := false
	for _, s := range orderTransitions[o.Status] {
		if s == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return &InvalidStateError{
			Entity:     "order",
			ID:         o.ID,
			From:       o.Status.String(),
			To:         next.String(),
			Transition: true,
		}
	}

	switch next {
	case OrderInProgress:
		o.ActualStart = &at
	case OrderCompleted, OrderCancelled:
		o.ActualEnd = &at
	}
	o.Status = next
	o.UpdatedAt = at
	return nil
}

// Component returns the component with the given id.
func (o *ProductionOrder) Component(id uuid.UUID) (*ProductionOrderComponent, error) {
	for i := range o.Components {
		if o.Components[i].ID == id {
			return &o.Components[i], nil
		}
	}
	return nil, NewNotFound("order component", id)
}

// IncompleteComponents lists components not yet COMPLETED.
func (o *ProductionOrder) IncompleteComponents() []uuid.UUID {
	var ids []uuid.UUID
	for _, c := range o.Components {
		if c.Status != ComponentCompleted {
			ids = append(ids, c.ID)
		}
	}
	return ids
}
