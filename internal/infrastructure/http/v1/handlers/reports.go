package handlers

import (
	"github.com/gin-gonic/gin"

	"backoffice/internal/domain/reports"
	"backoffice/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetMonthlyPerformance handles GET /reports/monthly-performance
func (h *ReportsHandler) GetMonthlyPerformance(c *gin.Context) {
	var q dto.MonthlyPerformanceQuery
	if !h.BindQuery(c, &q) {
		return
	}

	report, err := h.service.GetMonthlyPerformance(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// GetStockValuation handles GET /reports/stock-valuation
func (h *ReportsHandler) GetStockValuation(c *gin.Context) {
	var q dto.StockValuationQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	report, err := h.service.GetStockValuation(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}
