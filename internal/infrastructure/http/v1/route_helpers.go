package v1

import (
	"github.com/gin-gonic/gin"

	"backoffice/internal/infrastructure/http/v1/middleware"
)

// Permissions checked by the routes. Admin tokens pass every check.
const (
	PermOrderRead   = "order:read"
	PermOrderWrite  = "order:write"
	PermStockRead   = "stock:read"
	PermStockAdjust = "stock:adjust"
	PermReportRead  = "report:read"
)

// OrderRouteHandler defines the interface for order handlers.
type OrderRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Transition(c *gin.Context)
	Confirm(c *gin.Context)
	Process(c *gin.Context)
	Ship(c *gin.Context)
	Deliver(c *gin.Context)
	Cancel(c *gin.Context)
	UpdatePayment(c *gin.Context)
	AddNote(c *gin.Context)
}

// RegisterOrderRoutes registers CRUD and lifecycle routes for one order kind.
//
// Usage:
//
//	handler := handlers.NewOrderHandler(baseHandler, orders, order.KindAgent)
//	RegisterOrderRoutes(v1.Group("/agent-orders"), handler)
func RegisterOrderRoutes(group *gin.RouterGroup, handler OrderRouteHandler) {
	read := middleware.RequirePermission(PermOrderRead)
	write := middleware.RequirePermission(PermOrderWrite)

	group.GET("", read, handler.List)
	group.POST("", write, handler.Create)
	group.GET("/:id", read, handler.Get)
	group.PUT("/:id", write, handler.Update)
	group.POST("/:id/status", write, handler.Transition)
	group.POST("/:id/confirm", write, handler.Confirm)
	group.POST("/:id/process", write, handler.Process)
	group.POST("/:id/ship", write, handler.Ship)
	group.POST("/:id/deliver", write, handler.Deliver)
	group.POST("/:id/cancel", write, handler.Cancel)
	group.POST("/:id/payment", write, handler.UpdatePayment)
	group.POST("/:id/notes", write, handler.AddNote)
}
