package events

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
)

const (
	BatchReceivedEvent = "batch.received"

	ReservationCreatedEvent  = "reservation.created"
	ReservationConsumedEvent = "reservation.consumed"
	ReservationReleasedEvent = "reservation.released"

	OrderCreatedEvent   = "order.created"
	OrderReleasedEvent  = "order.released"
	OrderCompletedEvent = "order.completed"
	OrderCancelledEvent = "order.cancelled"

	BOMActivatedEvent = "bom.activated"
)

type BatchReceived struct {
	BatchID     uuid.UUID       `json:"batch_id"`
	BatchNumber string          `json:"batch_number"`
	ProductID   uuid.UUID       `json:"product_id"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Quality     string          `json:"quality"`
}

type ReservationChanged struct {
	ReservationID uuid.UUID       `json:"reservation_id"`
	BatchID       uuid.UUID       `json:"batch_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	WarehouseID   uuid.UUID       `json:"warehouse_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	DemandType    string          `json:"demand_type"`
	DemandID      uuid.UUID       `json:"demand_id"`
}

type OrderChanged struct {
	OrderID          uuid.UUID       `json:"order_id"`
	OrderNumber      string          `json:"order_number"`
	Status           string          `json:"status"`
	Quantity         decimal.Decimal `json:"quantity"`
	QuantityProduced decimal.Decimal `json:"quantity_produced"`
	Components       int             `json:"components"`
}

type BOMActivated struct {
	BOMID     uuid.UUID `json:"bom_id"`
	ProductID uuid.UUID `json:"product_id"`
	Label     string    `json:"label"`
}

func NewBatchReceived(b *entities.InventoryBatch) Event {
	return NewEvent(BatchReceivedEvent, "batch-"+b.ID.String(), BatchReceived{
		BatchID:     b.ID,
		BatchNumber: b.BatchNumber,
		ProductID:   b.ProductID,
		WarehouseID: b.WarehouseID,
		Quantity:    b.QuantityInStock,
		UnitCost:    b.UnitCost,
		Quality:     b.Quality.String(),
	})
}

func NewReservationEvent(eventType string, r *entities.StockReservation) Event {
	return NewEvent(eventType, "reservation-"+r.ID.String(), ReservationChanged{
		ReservationID: r.ID,
		BatchID:       r.BatchID,
		ProductID:     r.ProductID,
		WarehouseID:   r.WarehouseID,
		Quantity:      r.Quantity,
		DemandType:    r.DemandType,
		DemandID:      r.DemandID,
	})
}

func NewOrderEvent(eventType string, o *entities.ProductionOrder) Event {
	return NewEvent(eventType, "order-"+o.ID.String(), OrderChanged{
		OrderID:          o.ID,
		OrderNumber:      o.OrderNumber,
		Status:           o.Status.String(),
		Quantity:         o.Quantity,
		QuantityProduced: o.QuantityProduced,
		Components:       len(o.Components),
	})
}

func NewBOMActivated(b *entities.BillOfMaterials) Event {
	return NewEvent(BOMActivatedEvent, "bom-"+b.ID.String(), BOMActivated{
		BOMID:     b.ID,
		ProductID: b.ProductID,
		Label:     b.Label(),
	})
}
