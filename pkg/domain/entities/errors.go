package entities

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrCircularReference    = errors.New("circular BOM reference")
	ErrInvalidState         = errors.New("invalid state")
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrComponentsIncomplete = errors.New("order components incomplete")
	ErrAmbiguousBOM         = errors.New("ambiguous active BOM")
)

// InsufficientStockError reports that eligible batches cannot cover a request.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Required    decimal.Decimal
	Available   decimal.Decimal
}

// Shortfall is Required minus Available.
func (e *InsufficientStockError) Shortfall() decimal.Decimal {
	return e.Required.Sub(e.Available)
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s at warehouse %s: required %s, available %s, shortfall %s",
		e.ProductID, e.WarehouseID, e.Required, e.Available, e.Shortfall())
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// CircularReferenceError carries the BOM path that closes a cycle. The last
// element repeats the BOM that was already on the path.
type CircularReferenceError struct {
	Path  []uuid.UUID
	Codes []string
}

func (e *CircularReferenceError) Error() string {
	if len(e.Codes) == len(e.Path) && len(e.Codes) > 0 {
		return fmt.Sprintf("circular BOM reference: %s", strings.Join(e.Codes, " -> "))
	}
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = id.String()
	}
	return fmt.Sprintf("circular BOM reference: %s", strings.Join(parts, " -> "))
}

func (e *CircularReferenceError) Is(target error) bool { return target == ErrCircularReference }

// InvalidStateError reports an operation attempted on an entity that is not in
// the required prior state. Transition is set when a transition table rejected
// the change, in which case the error also matches ErrInvalidTransition.
type InvalidStateError struct {
	Entity     string
	ID         uuid.UUID
	From       string
	To         string
	Transition bool
}

func (e *InvalidStateError) Error() string {
	if e.Transition {
		return fmt.Sprintf("invalid %s transition %s -> %s for %s", e.Entity, e.From, e.To, e.ID)
	}
	return fmt.Sprintf("%s %s is %s, cannot %s", e.Entity, e.ID, e.From, e.To)
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState || (e.Transition && target == ErrInvalidTransition)
}

// ComponentsIncompleteError lists the components that block order completion.
type ComponentsIncompleteError struct {
	OrderID    uuid.UUID
	Incomplete []uuid.UUID
}

func (e *ComponentsIncompleteError) Error() string {
	return fmt.Sprintf("order %s has %d incomplete components", e.OrderID, len(e.Incomplete))
}

func (e *ComponentsIncompleteError) Is(target error) bool { return target == ErrComponentsIncomplete }

// AmbiguousBOMError is returned when a product has several ACTIVE BOMs and the
// caller did not name one.
type AmbiguousBOMError struct {
	ProductID  uuid.UUID
	Candidates []uuid.UUID
}

func (e *AmbiguousBOMError) Error() string {
	return fmt.Sprintf("product %s has %d active BOMs", e.ProductID, len(e.Candidates))
}

func (e *AmbiguousBOMError) Is(target error) bool { return target == ErrAmbiguousBOM }

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFound builds a NotFoundError
func NewNotFound(entity string, key fmt.Stringer) error {
	return &NotFoundError{Entity: entity, Key: key.String()}
}

// Stable error codes, one per taxonomy member.
const (
	CodeInsufficientStock    = "INSUFFICIENT_STOCK"
	CodeCircularReference    = "CIRCULAR_REFERENCE"
	CodeInvalidTransition    = "INVALID_TRANSITION"
	CodeInvalidState         = "INVALID_STATE"
	CodeComponentsIncomplete = "COMPONENTS_INCOMPLETE"
	CodeAmbiguousBOM         = "AMBIGUOUS_BOM"
	CodeNotFound             = "NOT_FOUND"
	CodeInternal             = "INTERNAL"
)

// ErrorCode maps an error to its stable code. Transition failures are checked
// before the broader invalid-state code so the two never overlap.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientStock):
		return CodeInsufficientStock
	case errors.Is(err, ErrCircularReference):
		return CodeCircularReference
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, ErrInvalidState):
		return CodeInvalidState
	case errors.Is(err, ErrComponentsIncomplete):
		return CodeComponentsIncomplete
	case errors.Is(err, ErrAmbiguousBOM):
		return CodeAmbiguousBOM
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	default:
		return CodeInternal
	}
}
