package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "grocery-service/common/errors"
	"grocery-service/middleware"
	"grocery-service/models"
)

// DefaultContextTimeout bounds datastore work per request.
const DefaultContextTimeout = 30 * time.Second

// InventoryController handles HTTP requests for the inventory ledger.
type InventoryController struct {
	service InventoryServiceAPI
	cache   *CacheManager
	timeout time.Duration
}

func NewInventoryController(service InventoryServiceAPI, cache *CacheManager) *InventoryController {
	return &InventoryController{
		service: service,
		cache:   cache,
		timeout: DefaultContextTimeout,
	}
}

// ListItems returns the caller's inventory, most recently created first.
// GET /inventory
func (ic *InventoryController) ListItems(c *gin.Context) {
	caller := middleware.GetIdentity(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	if items, ok := ic.cache.GetInventoryList(ctx, caller.ID); ok {
		c.JSON(http.StatusOK, items)
		return
	}

	items, err := ic.service.List(ctx, caller)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	ic.cache.SetInventoryListAsync(caller.ID, items)
	c.JSON(http.StatusOK, items)
}

// GetLowStock returns the caller's items at or below their threshold.
// GET /inventory/low-stock
func (ic *InventoryController) GetLowStock(c *gin.Context) {
	caller := middleware.GetIdentity(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	items, err := ic.service.ListLowStock(ctx, caller)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// CreateItem creates a new inventory item for the caller.
// POST /inventory
func (ic *InventoryController) CreateItem(c *gin.Context) {
	caller := middleware.GetIdentity(c)

	var req models.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	item, err := ic.service.Create(ctx, caller, req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	ic.invalidateCache(ctx, item.ID)
	c.JSON(http.StatusCreated, item)
}

// UpdateItem partially updates an item owned by the caller.
// PATCH /inventory/:id
func (ic *InventoryController) UpdateItem(c *gin.Context) {
	caller := middleware.GetIdentity(c)
	itemID := c.Param("id")

	var req models.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	item, err := ic.service.Update(ctx, caller, itemID, req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	ic.invalidateCache(ctx, itemID)
	c.JSON(http.StatusOK, item)
}

// AdjustQuantity applies a signed delta to an item's quantity.
// POST /inventory/:id/adjust
func (ic *InventoryController) AdjustQuantity(c *gin.Context) {
	caller := middleware.GetIdentity(c)
	itemID := c.Param("id")

	var req models.AdjustQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("invalid request body",
			apperrors.FieldError{Field: "delta", Message: "must be an integer"}))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	item, err := ic.service.AdjustQuantity(ctx, caller, itemID, req.Delta)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	ic.invalidateCache(ctx, itemID)
	c.JSON(http.StatusOK, item)
}

// DeleteItem removes an item. Admins may delete any owner's item.
// DELETE /inventory/:id
func (ic *InventoryController) DeleteItem(c *gin.Context) {
	caller := middleware.GetIdentity(c)
	itemID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	item, err := ic.service.Delete(ctx, caller, itemID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	ic.invalidateCache(ctx, itemID)
	c.JSON(http.StatusOK, gin.H{"message": "Item deleted successfully", "item": item})
}

func (ic *InventoryController) invalidateCache(ctx context.Context, itemID string) {
	if err := ic.cache.Invalidate(ctx); err != nil {
		zap.L().Error("Failed to invalidate inventory cache", zap.Error(err), zap.String("item_id", itemID))
	}
}
