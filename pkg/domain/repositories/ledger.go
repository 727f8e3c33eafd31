package repositories

import "context"

// Tx is the view of the Ledger Store available inside one transaction.
type Tx interface {
	ProductRepository
	WarehouseRepository
	BatchRepository
	ReservationRepository
	BOMRepository
	OrderRepository
}

// TxFunc is a unit of work run against a transaction.
type TxFunc func(ctx context.Context, tx Tx) error

// Ledger is the durable store the core reads and writes through. Transact
// commits every write made by fn or none of them; View runs fn read-only.
type Ledger interface {
	Transact(ctx context.Context, fn TxFunc) error
	View(ctx context.Context, fn TxFunc) error
}
