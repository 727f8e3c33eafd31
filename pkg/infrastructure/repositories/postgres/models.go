package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcore/pkg/domain/entities"
)

// Rows mirror the entities one to one. Enums are stored by name so the
// tables stay readable from psql.

type productRow struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Code          string          `gorm:"size:64;not null;uniqueIndex"`
	Name          string          `gorm:"size:200;not null"`
	Category      string          `gorm:"size:20;not null"`
	UnitOfMeasure string          `gorm:"size:20;not null"`
	MinimumStock  decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	CriticalStock decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	CreatedAt     time.Time
}

func (productRow) TableName() string { return "products" }

func fromProduct(p *entities.Product) productRow {
	return productRow{
		ID:            p.ID,
		Code:          p.Code,
		Name:          p.Name,
		Category:      p.Category.String(),
		UnitOfMeasure: p.UnitOfMeasure,
		MinimumStock:  p.MinimumStock,
		CriticalStock: p.CriticalStock,
		CreatedAt:     p.CreatedAt,
	}
}

func (r productRow) entity() (*entities.Product, error) {
	category, err := entities.ParseProductCategory(r.Category)
	if err != nil {
		return nil, err
	}
	return &entities.Product{
		ID:            r.ID,
		Code:          r.Code,
		Name:          r.Name,
		Category:      category,
		UnitOfMeasure: r.UnitOfMeasure,
		MinimumStock:  r.MinimumStock,
		CriticalStock: r.CriticalStock,
		CreatedAt:     r.CreatedAt,
	}, nil
}

type warehouseRow struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code string    `gorm:"size:64;not null;uniqueIndex"`
	Name string    `gorm:"size:200"`
}

func (warehouseRow) TableName() string { return "warehouses" }

// batchRow has no available column; it is always quantity_in_stock minus
// reserved_quantity.
type batchRow struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BatchNumber      string          `gorm:"size:64;not null"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_batches_fifo,priority:1"`
	WarehouseID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_batches_fifo,priority:2"`
	EntryAt          time.Time       `gorm:"not null;index:idx_batches_fifo,priority:3"`
	QuantityInStock  decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	ReservedQuantity decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	UnitCost         decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	Quality          string          `gorm:"size:20;not null"`
	ExpiresAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Product   productRow   `gorm:"foreignKey:ProductID"`
	Warehouse warehouseRow `gorm:"foreignKey:WarehouseID"`
}

func (batchRow) TableName() string { return "inventory_batches" }

func fromBatch(b *entities.InventoryBatch) batchRow {
	return batchRow{
		ID:               b.ID,
		BatchNumber:      b.BatchNumber,
		ProductID:        b.ProductID,
		WarehouseID:      b.WarehouseID,
		EntryAt:          b.EntryAt,
		QuantityInStock:  b.QuantityInStock,
		ReservedQuantity: b.ReservedQuantity,
		UnitCost:         b.UnitCost,
		Quality:          b.Quality.String(),
		ExpiresAt:        b.ExpiresAt,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

func (r batchRow) entity() (*entities.InventoryBatch, error) {
	quality, err := entities.ParseQualityStatus(r.Quality)
	if err != nil {
		return nil, err
	}
	return &entities.InventoryBatch{
		ID:               r.ID,
		BatchNumber:      r.BatchNumber,
		ProductID:        r.ProductID,
		WarehouseID:      r.WarehouseID,
		EntryAt:          r.EntryAt.UTC(),
		QuantityInStock:  r.QuantityInStock,
		ReservedQuantity: r.ReservedQuantity,
		UnitCost:         r.UnitCost,
		Quality:          quality,
		ExpiresAt:        r.ExpiresAt,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}, nil
}

type reservationRow struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BatchID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null"`
	WarehouseID uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity    decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	UnitCost    decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	Status      string          `gorm:"size:20;not null"`
	DemandType  string          `gorm:"size:40;not null;index:idx_reservations_demand,priority:1"`
	DemandID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_reservations_demand,priority:2"`
	CreatedAt   time.Time
	ClosedAt    *time.Time

	Batch batchRow `gorm:"foreignKey:BatchID"`
}

func (reservationRow) TableName() string { return "stock_reservations" }

func fromReservation(r *entities.StockReservation) reservationRow {
	return reservationRow{
		ID:          r.ID,
		BatchID:     r.BatchID,
		ProductID:   r.ProductID,
		WarehouseID: r.WarehouseID,
		Quantity:    r.Quantity,
		UnitCost:    r.UnitCost,
		Status:      r.Status.String(),
		DemandType:  r.DemandType,
		DemandID:    r.DemandID,
		CreatedAt:   r.CreatedAt,
		ClosedAt:    r.ClosedAt,
	}
}

func (r reservationRow) entity() (*entities.StockReservation, error) {
	status, err := entities.ParseReservationStatus(r.Status)
	if err != nil {
		return nil, err
	}
	return &entities.StockReservation{
		ID:          r.ID,
		BatchID:     r.BatchID,
		ProductID:   r.ProductID,
		WarehouseID: r.WarehouseID,
		Quantity:    r.Quantity,
		UnitCost:    r.UnitCost,
		Status:      status,
		DemandType:  r.DemandType,
		DemandID:    r.DemandID,
		CreatedAt:   r.CreatedAt,
		ClosedAt:    r.ClosedAt,
	}, nil
}

type bomRow struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code      string    `gorm:"size:64;not null;uniqueIndex:idx_boms_version,priority:2"`
	Name      string    `gorm:"size:200"`
	Version   string    `gorm:"size:20;not null;uniqueIndex:idx_boms_version,priority:3"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_boms_version,priority:1"`
	Status    string    `gorm:"size:20;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Product productRow   `gorm:"foreignKey:ProductID"`
	Items   []bomItemRow `gorm:"foreignKey:BOMID"`
}

func (bomRow) TableName() string { return "boms" }

type bomItemRow struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BOMID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ComponentID uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity    decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	Sequence    int             `gorm:"not null"`
	Notes       string          `gorm:"type:text"`

	Component productRow `gorm:"foreignKey:ComponentID"`
}

func (bomItemRow) TableName() string { return "bom_items" }

func fromBOM(b *entities.BillOfMaterials) (bomRow, []bomItemRow) {
	row := bomRow{
		ID:        b.ID,
		Code:      b.Code,
		Name:      b.Name,
		Version:   b.Version,
		ProductID: b.ProductID,
		Status:    b.Status.String(),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	items := make([]bomItemRow, 0, len(b.Items))
	for _, item := range b.Items {
		items = append(items, bomItemRow{
			ID:          item.ID,
			BOMID:       b.ID,
			ComponentID: item.ComponentID,
			Quantity:    item.Quantity,
			Sequence:    item.Sequence,
			Notes:       item.Notes,
		})
	}
	return row, items
}

func (r bomRow) entity() (*entities.BillOfMaterials, error) {
	status, err := entities.ParseBOMStatus(r.Status)
	if err != nil {
		return nil, err
	}
	bom := &entities.BillOfMaterials{
		ID:        r.ID,
		Code:      r.Code,
		Name:      r.Name,
		Version:   r.Version,
		ProductID: r.ProductID,
		Status:    status,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	for _, item := range r.Items {
		bom.Items = append(bom.Items, entities.BOMItem{
			ID:          item.ID,
			ComponentID: item.ComponentID,
			Quantity:    item.Quantity,
			Sequence:    item.Sequence,
			Notes:       item.Notes,
		})
	}
	return bom, nil
}

type orderRow struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderNumber      string          `gorm:"size:64;not null;uniqueIndex"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null"`
	BOMID            uuid.UUID       `gorm:"type:uuid;not null"`
	WarehouseID      uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity         decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	QuantityProduced decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	Priority         int             `gorm:"not null"`
	Status           string          `gorm:"size:20;not null"`
	PlannedStart     *time.Time
	PlannedEnd       *time.Time
	ActualStart      *time.Time
	ActualEnd        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Product    productRow          `gorm:"foreignKey:ProductID"`
	BOM        bomRow              `gorm:"foreignKey:BOMID"`
	Warehouse  warehouseRow        `gorm:"foreignKey:WarehouseID"`
	Components []orderComponentRow `gorm:"foreignKey:OrderID"`
}

func (orderRow) TableName() string { return "production_orders" }

type orderComponentRow struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null"`
	RequiredQuantity  decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	AllocatedQuantity decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	ConsumedQuantity  decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	UnitCost          decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	Status            string          `gorm:"size:20;not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Product productRow `gorm:"foreignKey:ProductID"`
}

func (orderComponentRow) TableName() string { return "production_order_components" }

func fromOrder(o *entities.ProductionOrder) (orderRow, []orderComponentRow) {
	row := orderRow{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		ProductID:        o.ProductID,
		BOMID:            o.BOMID,
		WarehouseID:      o.WarehouseID,
		Quantity:         o.Quantity,
		QuantityProduced: o.QuantityProduced,
		Priority:         o.Priority,
		Status:           o.Status.String(),
		PlannedStart:     o.PlannedStart,
		PlannedEnd:       o.PlannedEnd,
		ActualStart:      o.ActualStart,
		ActualEnd:        o.ActualEnd,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
	components := make([]orderComponentRow, 0, len(o.Components))
	for _, c := range o.Components {
		components = append(components, orderComponentRow{
			ID:                c.ID,
			OrderID:           o.ID,
			ProductID:         c.ProductID,
			RequiredQuantity:  c.RequiredQuantity,
			AllocatedQuantity: c.AllocatedQuantity,
			ConsumedQuantity:  c.ConsumedQuantity,
			UnitCost:          c.UnitCost,
			Status:            c.Status.String(),
			CreatedAt:         c.CreatedAt,
			UpdatedAt:         c.UpdatedAt,
		})
	}
	return row, components
}

func (r orderRow) entity() (*entities.ProductionOrder, error) {
	status, err := entities.ParseOrderStatus(r.Status)
	if err != nil {
		return nil, err
	}
	order := &entities.ProductionOrder{
		ID:               r.ID,
		OrderNumber:      r.OrderNumber,
		ProductID:        r.ProductID,
		BOMID:            r.BOMID,
		WarehouseID:      r.WarehouseID,
		Quantity:         r.Quantity,
		QuantityProduced: r.QuantityProduced,
		Priority:         r.Priority,
		Status:           status,
		PlannedStart:     r.PlannedStart,
		PlannedEnd:       r.PlannedEnd,
		ActualStart:      r.ActualStart,
		ActualEnd:        r.ActualEnd,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	for _, c := range r.Components {
		componentStatus, err := entities.ParseComponentStatus(c.Status)
		if err != nil {
			return nil, err
		}
		order.Components = append(order.Components, entities.ProductionOrderComponent{
			ID:                c.ID,
			OrderID:           c.OrderID,
			ProductID:         c.ProductID,
			RequiredQuantity:  c.RequiredQuantity,
			AllocatedQuantity: c.AllocatedQuantity,
			ConsumedQuantity:  c.ConsumedQuantity,
			UnitCost:          c.UnitCost,
			Status:            componentStatus,
			CreatedAt:         c.CreatedAt,
			UpdatedAt:         c.UpdatedAt,
		})
	}
	return order, nil
}
