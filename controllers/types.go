package controllers

import (
	"context"

	"grocery-service/models"
)

// InventoryServiceAPI is the inventory surface the controllers depend on.
type InventoryServiceAPI interface {
	List(ctx context.Context, caller models.Identity) ([]models.InventoryItem, error)
	ListLowStock(ctx context.Context, caller models.Identity) ([]models.InventoryItem, error)
	Create(ctx context.Context, caller models.Identity, req models.CreateItemRequest) (*models.InventoryItem, error)
	Update(ctx context.Context, caller models.Identity, itemID string, req models.UpdateItemRequest) (*models.InventoryItem, error)
	AdjustQuantity(ctx context.Context, caller models.Identity, itemID string, delta int) (*models.InventoryItem, error)
	Delete(ctx context.Context, caller models.Identity, itemID string) (*models.InventoryItem, error)
}

// BulkImportServiceAPI reconciles parsed row sets.
type BulkImportServiceAPI interface {
	Reconcile(ctx context.Context, caller models.Identity, rows []models.BulkImportRow) (*models.BulkReconcileResult, error)
}

// OrderServiceAPI is the order lifecycle surface the controllers depend on.
type OrderServiceAPI interface {
	Create(ctx context.Context, caller models.Identity, req *models.CreateOrderRequest) (*models.Order, error)
	Get(ctx context.Context, caller models.Identity, orderID string) (*models.Order, error)
	List(ctx context.Context, caller models.Identity) ([]models.Order, error)
	SetStatusAdmin(ctx context.Context, caller models.Identity, orderID string, status string) (*models.Order, error)
	Cancel(ctx context.Context, caller models.Identity, orderID string) (*models.Order, error)
}
