package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "grocery-service/common/errors"
	"grocery-service/middleware"
	"grocery-service/models"
)

// OrderController handles HTTP requests for the order lifecycle.
type OrderController struct {
	service OrderServiceAPI
	timeout time.Duration
}

func NewOrderController(service OrderServiceAPI) *OrderController {
	return &OrderController{service: service, timeout: DefaultContextTimeout}
}

// CreateOrder places a new order for the caller.
// POST /orders
func (oc *OrderController) CreateOrder(c *gin.Context) {
	caller := middleware.GetIdentity(c)

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), oc.timeout)
	defer cancel()

	order, err := oc.service.Create(ctx, caller, &req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GetOrder returns one order, owner-scoped for non-admins.
// GET /orders/:id
func (oc *OrderController) GetOrder(c *gin.Context) {
	caller := middleware.GetIdentity(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), oc.timeout)
	defer cancel()

	order, err := oc.service.Get(ctx, caller, c.Param("id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// ListOrders returns all orders for admins, the caller's own otherwise.
// GET /orders
func (oc *OrderController) ListOrders(c *gin.Context) {
	caller := middleware.GetIdentity(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), oc.timeout)
	defer cancel()

	orders, err := oc.service.List(ctx, caller)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

// UpdateOrderStatus overwrites an order's status. Admin only.
// PUT /orders/:id/status
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	caller := middleware.GetIdentity(c)

	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("invalid request body",
			apperrors.FieldError{Field: "status", Message: "status is required"}))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), oc.timeout)
	defer cancel()

	order, err := oc.service.SetStatusAdmin(ctx, caller, c.Param("id"), req.Status)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// CancelOrder cancels the caller's own pending order.
// POST /orders/:id/cancel
func (oc *OrderController) CancelOrder(c *gin.Context) {
	caller := middleware.GetIdentity(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), oc.timeout)
	defer cancel()

	order, err := oc.service.Cancel(ctx, caller, c.Param("id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}
