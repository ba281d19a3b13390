package models

import "time"

// InventoryItem is a stocked grocery/household item owned by a single user.
// (name, created_by) is unique; quantity and threshold never go negative.
type InventoryItem struct {
	ID             string    `json:"id" bson:"_id"`
	Name           string    `json:"name" bson:"name"`
	Description    string    `json:"description" bson:"description"`
	Price          float64   `json:"price" bson:"price"`
	Quantity       int       `json:"quantity" bson:"quantity"`
	Threshold      int       `json:"threshold" bson:"threshold"`
	Unit           string    `json:"unit" bson:"unit"`
	Category       string    `json:"category" bson:"category"`
	CreatedBy      string    `json:"created_by" bson:"created_by"`
	LastModifiedBy string    `json:"last_modified_by" bson:"last_modified_by"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`

	// BelowThreshold is derived from quantity/threshold on every read and is
	// never persisted.
	BelowThreshold bool `json:"below_threshold" bson:"-"`
}

// ComputeDerived fills the derived fields after a read.
func (i *InventoryItem) ComputeDerived() {
	i.BelowThreshold = i.Quantity <= i.Threshold
}

// DefaultUnit is applied when a create request omits the unit.
const DefaultUnit = "pieces"

// CreateItemRequest carries a loosely-typed create body. Numeric fields accept
// any JSON value; absent or non-numeric values coerce to 0.
type CreateItemRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       interface{} `json:"price"`
	Quantity    interface{} `json:"quantity"`
	Threshold   interface{} `json:"threshold"`
	Unit        string      `json:"unit"`
	Category    string      `json:"category"`
}

// UpdateItemRequest carries a partial update. Only quantity, threshold, unit
// and category are mutable through this path; nil means "leave unchanged".
type UpdateItemRequest struct {
	Quantity  *int    `json:"quantity"`
	Threshold *int    `json:"threshold"`
	Unit      *string `json:"unit"`
	Category  *string `json:"category"`
}

// AdjustQuantityRequest carries the delta for the atomic quantity adjustment.
type AdjustQuantityRequest struct {
	Delta int `json:"delta"`
}
