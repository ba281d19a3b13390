package models

import "time"

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// AllStatuses enumerates every accepted status value.
var AllStatuses = []OrderStatus{
	StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled,
}

// Valid reports whether s is one of the five enumerated statuses.
func (s OrderStatus) Valid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// forward-only chain; cancellation only exits from pending.
var nextStatus = map[OrderStatus]OrderStatus{
	StatusPending:    StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
}

// CanTransitionTo reports whether the non-administrative path allows moving
// from s to next. Administrators bypass this check via a separate operation.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if s == StatusPending && next == StatusCancelled {
		return true
	}
	return nextStatus[s] == next
}

// OrderItem is a line item snapshot. UnitPrice is copied from the inventory
// item at order creation and never re-read.
type OrderItem struct {
	ProductID string  `json:"product_id" bson:"product_id"`
	Name      string  `json:"name" bson:"name"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	UnitPrice float64 `json:"unit_price" bson:"unit_price"`
}

// ShippingAddress is the structured delivery address on an order.
type ShippingAddress struct {
	Street  string `json:"street" bson:"street"`
	City    string `json:"city" bson:"city"`
	State   string `json:"state" bson:"state"`
	ZipCode string `json:"zipCode" bson:"zip_code"`
	Country string `json:"country" bson:"country"`
}

// Order is a placed order. TotalAmount is computed at creation and immutable.
type Order struct {
	ID              string          `json:"id" bson:"_id"`
	UserID          string          `json:"user_id" bson:"user_id"`
	Items           []OrderItem     `json:"items" bson:"items"`
	ShippingAddress ShippingAddress `json:"shipping_address" bson:"shipping_address"`
	PaymentMethod   string          `json:"payment_method" bson:"payment_method"`
	PaymentStatus   string          `json:"payment_status" bson:"payment_status"`
	TotalAmount     float64         `json:"total_amount" bson:"total_amount"`
	Status          OrderStatus     `json:"status" bson:"status"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" bson:"updated_at"`
}

// CreateOrderItem is one requested line item.
type CreateOrderItem struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// CreateOrderRequest is the order creation body.
type CreateOrderRequest struct {
	Items           []CreateOrderItem `json:"items" binding:"required,dive"`
	ShippingAddress ShippingAddress   `json:"shippingAddress"`
	PaymentMethod   string            `json:"paymentMethod"`
}

// UpdateStatusRequest is the administrative status overwrite body.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
