package handlers

import (
	"github.com/gin-gonic/gin"

	"backoffice/internal/domain/stock"
	"backoffice/internal/infrastructure/http/v1/dto"
)

// StockHandler handles stock level queries and manual adjustments.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetLevels handles GET /stock/levels
func (h *StockHandler) GetLevels(c *gin.Context) {
	var q dto.StockLevelQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	levels, err := h.service.ListLevels(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": levels})
}

// GetMovements handles GET /stock/movements
func (h *StockHandler) GetMovements(c *gin.Context) {
	var q dto.StockMovementQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	movements, err := h.service.ListMovements(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": dto.FromStockMovements(movements)})
}

// Adjust handles POST /stock/adjustments
func (h *StockHandler) Adjust(c *gin.Context) {
	var req dto.StockAdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	movement, err := h.service.Adjust(c.Request.Context(), in, h.Actor(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromStockMovement(*movement))
}
