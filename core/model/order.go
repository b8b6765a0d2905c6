package model

import "time"

// OrderStatus enumerates the order lifecycle states.
type OrderStatus string

const (
	StatusNew       OrderStatus = "NEW"
	StatusAccepted  OrderStatus = "ACCEPTED"
	StatusAssigned  OrderStatus = "ASSIGNED"
	StatusInTransit OrderStatus = "IN_TRANSIT"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusRejected  OrderStatus = "REJECTED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// AllowedTransitions encodes the lifecycle graph. Any pre-terminal state may
// additionally move to CANCELLED, which is a human action and therefore listed
// but never performed by the engine.
var AllowedTransitions = map[OrderStatus][]OrderStatus{
	StatusNew:       {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted:  {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusInTransit, StatusCancelled},
	StatusInTransit: {StatusDelivered, StatusCancelled},
	StatusDelivered: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether the lifecycle graph permits moving from one
// status to another.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status ends the lifecycle.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Order is the central freight entity the engine advances through its
// lifecycle. An order with status ASSIGNED or later always carries both a
// driver and a vehicle reference.
type Order struct {
	ID         string
	TenantID   string
	CustomerID string

	Status OrderStatus
	// StatusVersion increments on every engine write and backs the
	// optimistic compare-and-set in the order store.
	StatusVersion int

	DriverID  *string
	VehicleID *string

	PickupSiteID   string
	DeliverySiteID string

	ETAPickupAt   *time.Time
	ETADeliveryAt *time.Time

	ArrivedAtPickupAt   *time.Time
	ArrivedAtDeliveryAt *time.Time
	ActualDeliveryAt    *time.Time

	RejectReason *string

	// ManualDispatch marks an order reserved for a human dispatcher. The
	// acceptance pass clears it when it auto-accepts.
	ManualDispatch bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Assigned reports whether both a driver and a vehicle are set.
func (o Order) Assigned() bool {
	return o.DriverID != nil && *o.DriverID != "" && o.VehicleID != nil && *o.VehicleID != ""
}
