package routes

import (
	"github.com/gin-gonic/gin"

	"grocery-service/controllers"
	"grocery-service/middleware"
)

// RegisterRoutes registers all inventory and order routes. Every route sits
// behind the identity middleware; requests without a resolved identity never
// reach a handler.
func RegisterRoutes(
	r *gin.Engine,
	inventoryCtrl *controllers.InventoryController,
	bulkHandler *controllers.BulkImportHandler,
	orderCtrl *controllers.OrderController,
) {
	inventory := r.Group("/inventory", middleware.IdentityMiddleware())
	{
		inventory.GET("", inventoryCtrl.ListItems)
		inventory.GET("/low-stock", inventoryCtrl.GetLowStock)
		inventory.POST("", inventoryCtrl.CreateItem)
		inventory.PATCH("/:id", inventoryCtrl.UpdateItem)
		inventory.POST("/:id/adjust", inventoryCtrl.AdjustQuantity)
		inventory.DELETE("/:id", inventoryCtrl.DeleteItem)

		inventory.POST("/bulk-import", bulkHandler.ImportInventory)
		inventory.GET("/bulk-import/jobs/:id", bulkHandler.GetImportJobStatus)
	}

	orders := r.Group("/orders", middleware.IdentityMiddleware())
	{
		orders.POST("", orderCtrl.CreateOrder)
		orders.GET("", orderCtrl.ListOrders)
		orders.GET("/:id", orderCtrl.GetOrder)
		orders.PUT("/:id/status", middleware.AdminOnly(), orderCtrl.UpdateOrderStatus)
		orders.POST("/:id/cancel", orderCtrl.CancelOrder)
	}
}
