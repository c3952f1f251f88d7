package dto

import (
	"time"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/stock"
)

// --- Request DTOs ---

// StockLevelQuery filters GET /stock/levels.
type StockLevelQuery struct {
	PageQuery
	ProductID   *string `form:"productId"`
	WarehouseID *string `form:"warehouseId"`
	ExcludeZero bool    `form:"excludeZero"`
}

func (q *StockLevelQuery) ToFilter() (stock.LevelFilter, error) {
	productID, err := parseOptionalID("productId", q.ProductID)
	if err != nil {
		return stock.LevelFilter{}, err
	}
	warehouseID, err := parseOptionalID("warehouseId", q.WarehouseID)
	if err != nil {
		return stock.LevelFilter{}, err
	}
	return stock.LevelFilter{
		ProductID:   productID,
		WarehouseID: warehouseID,
		ExcludeZero: q.ExcludeZero,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}, nil
}

// StockMovementQuery filters GET /stock/movements. refKind and refId go together.
type StockMovementQuery struct {
	PageQuery
	ProductID   *string    `form:"productId"`
	WarehouseID *string    `form:"warehouseId"`
	RefKind     string     `form:"refKind"`
	RefID       *string    `form:"refId"`
	Type        string     `form:"type" binding:"omitempty,oneof=in out"`
	FromDate    *time.Time `form:"fromDate" time_format:"2006-01-02T15:04:05Z07:00"`
	ToDate      *time.Time `form:"toDate" time_format:"2006-01-02T15:04:05Z07:00"`
}

func (q *StockMovementQuery) ToFilter() (stock.MovementFilter, error) {
	productID, err := parseOptionalID("productId", q.ProductID)
	if err != nil {
		return stock.MovementFilter{}, err
	}
	warehouseID, err := parseOptionalID("warehouseId", q.WarehouseID)
	if err != nil {
		return stock.MovementFilter{}, err
	}
	f := stock.MovementFilter{
		ProductID:   productID,
		WarehouseID: warehouseID,
		FromDate:    q.FromDate,
		ToDate:      q.ToDate,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	if q.Type != "" {
		t := stock.MovementType(q.Type)
		f.Type = &t
	}

	refID, err := parseOptionalID("refId", q.RefID)
	if err != nil {
		return stock.MovementFilter{}, err
	}
	if (q.RefKind == "") != (refID == nil) {
		return stock.MovementFilter{}, apperror.NewValidation("refKind and refId must be given together").
			WithDetail("field", "refKind")
	}
	if refID != nil {
		ref, err := stock.ParseReference(q.RefKind, *refID)
		if err != nil {
			return stock.MovementFilter{}, apperror.NewValidation(err.Error()).WithDetail("field", "refKind")
		}
		f.Reference = ref
	}
	return f, nil
}

// StockAdjustmentRequest is a manual correction. Positive quantity receives
// stock, negative issues it. Leaving out unitCost keeps the average cost.
type StockAdjustmentRequest struct {
	ProductID   string       `json:"productId" binding:"required"`
	VariantID   *string      `json:"variantId,omitempty"`
	WarehouseID string       `json:"warehouseId" binding:"required"`
	Quantity    int64        `json:"quantity" binding:"required"`
	UnitCost    *types.Money `json:"unitCost,omitempty"`
	Note        string       `json:"note,omitempty"`
}

func (r *StockAdjustmentRequest) ToInput() (stock.AdjustmentInput, error) {
	productID, err := parseID("productId", r.ProductID)
	if err != nil {
		return stock.AdjustmentInput{}, err
	}
	variantID, err := parseOptionalID("variantId", r.VariantID)
	if err != nil {
		return stock.AdjustmentInput{}, err
	}
	warehouseID, err := parseID("warehouseId", r.WarehouseID)
	if err != nil {
		return stock.AdjustmentInput{}, err
	}
	return stock.AdjustmentInput{
		Key: stock.Key{
			ProductID:   productID,
			VariantID:   variantID,
			WarehouseID: warehouseID,
		},
		Delta:    r.Quantity,
		UnitCost: r.UnitCost,
		Note:     r.Note,
	}, nil
}

// --- Response DTOs ---

// StockMovementResponse is a ledger entry with its reference flattened.
type StockMovementResponse struct {
	stock.Movement
	RefKind string `json:"refKind"`
	RefID   string `json:"refId"`
}

func FromStockMovement(m stock.Movement) StockMovementResponse {
	resp := StockMovementResponse{Movement: m}
	if m.Reference != nil {
		resp.RefKind = string(m.Reference.Kind())
		resp.RefID = m.Reference.RefID().String()
	}
	return resp
}

func FromStockMovements(ms []stock.Movement) []StockMovementResponse {
	out := make([]StockMovementResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, FromStockMovement(m))
	}
	return out
}
