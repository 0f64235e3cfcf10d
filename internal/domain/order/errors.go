package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrInvalidOrderRequest is matched by every validation failure.
	ErrInvalidOrderRequest = errors.New("invalid order request")
	// ErrPersistence is returned when the order could not be appended to the
	// order log after stock was reserved.
	ErrPersistence = errors.New("order persistence failed")
)

// ValidationError describes the first invalid field of a request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid order request: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidOrderRequest }

// Reason explains why a cart item could not be reserved.
type Reason string

const (
	ReasonProductNotFound   Reason = "ProductNotFound"
	ReasonInsufficientStock Reason = "InsufficientStock"
)

// UnresolvedItem is a cart item that could not be reserved.
type UnresolvedItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
	Reason   Reason `json:"reason"`
	// AvailableQuantity is the quantity observed when the reservation was
	// refused. Nil when unknown.
	AvailableQuantity *int `json:"availableQuantity,omitempty"`
}

// OutOfStockError rejects an order whose cart contains unresolved items.
type OutOfStockError struct {
	Items []UnresolvedItem
}

func (e *OutOfStockError) Error() string {
	ids := make([]string, len(e.Items))
	for i, it := range e.Items {
		ids[i] = it.ID
	}
	return fmt.Sprintf("items out of stock: %s", strings.Join(ids, ", "))
}

// InsufficientStockError is returned by an InventoryStore when a conditional
// decrement was refused. Available is -1 when the follow-up read failed.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// CompensationCause tells why reserved stock was being returned.
type CompensationCause string

const (
	CauseOutOfStock  CompensationCause = "out_of_stock"
	CausePersistence CompensationCause = "persistence_failure"
	CauseStoreError  CompensationCause = "store_error"
)

// CompensationFailure is a compensating increment that did not apply. The
// product quantity is short by Quantity until reconciled.
type CompensationFailure struct {
	ProductID  string            `json:"productId"`
	Quantity   int               `json:"quantity"`
	Cause      CompensationCause `json:"cause"`
	Error      string            `json:"error"`
	OccurredAt time.Time         `json:"occurredAt"`
}
