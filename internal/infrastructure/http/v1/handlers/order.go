package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"backoffice/internal/core/actor"
	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/order"
	"backoffice/internal/infrastructure/http/v1/dto"
)

// OrderHandler serves one order kind. Retail and agent orders share the
// handler but never see each other's rows.
type OrderHandler struct {
	*BaseHandler
	service *order.Service
	kind    order.Kind
}

// NewOrderHandler creates a handler for orders of kind.
func NewOrderHandler(base *BaseHandler, service *order.Service, kind order.Kind) *OrderHandler {
	return &OrderHandler{
		BaseHandler: base,
		service:     service,
		kind:        kind,
	}
}

// List handles GET /
func (h *OrderHandler) List(c *gin.Context) {
	var q dto.OrderListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter(h.kind)
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromOrderList(result))
}

// Create handles POST /
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}
	if in.Customer.Kind() != h.kind {
		h.Error(c, customerKindMismatch(h.kind))
		return
	}

	o, err := h.service.Create(c.Request.Context(), in, h.Actor(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromOrder(o))
}

// Get handles GET /:id. A non-UUID id is looked up as an order number.
func (h *OrderHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		o   *order.Order
		err error
	)
	if orderID, parseErr := id.Parse(c.Param("id")); parseErr == nil {
		o, err = h.service.Get(ctx, orderID, h.kind)
	} else {
		o, err = h.service.GetByNumber(ctx, c.Param("id"), h.kind)
	}
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromOrder(o))
}

// Update handles PUT /:id
func (h *OrderHandler) Update(c *gin.Context) {
	orderID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.UpdateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}
	if in.Customer != nil && in.Customer.Kind() != h.kind {
		h.Error(c, customerKindMismatch(h.kind))
		return
	}

	o, err := h.service.Update(c.Request.Context(), orderID, h.kind, in, h.Actor(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromOrder(o))
}

// Transition handles POST /:id/status
func (h *OrderHandler) Transition(c *gin.Context) {
	var req dto.TransitionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	next, err := order.ParseStatus(req.Status)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.mutate(c, func(ctx context.Context, orderID id.ID, act actor.Actor) (*order.Order, error) {
		return h.service.Transition(ctx, orderID, h.kind, next, act)
	})
}

// Confirm handles POST /:id/confirm
func (h *OrderHandler) Confirm(c *gin.Context) {
	h.mutate(c, func(ctx context.Context, orderID id.ID, act actor.Actor) (*order.Order, error) {
		return h.service.Confirm(ctx, orderID, h.kind, act)
	})
}

// Process handles POST /:id/process
func (h *OrderHandler) Process(c *gin.Context) {
	h.mutate(c, func(ctx context.Context, orderID id.ID, act actor.Actor) (*order.Order, error) {
		return h.service.Process(ctx, orderID, h.kind, act)
	})
}

// Ship handles POST /:id/ship
func (h *OrderHandler) Ship(c *gin.Context) {
	h.mutate(c, func(ctx context.Context, orderID id.ID, act actor.Actor) (*order.Order, error) {
		return h.service.Ship(ctx, orderID, h.kind, act)
	})
}

// Deliver handles POST /:id/deliver
func (h *OrderHandler) Deliver(c *gin.Context) {
	h.mutate(c, func(ctx context.Context, orderID id.ID, act actor.Actor) (*order.Order, error) {
		return h.service.Deliver(ctx, orderID, h.kind, act)
	})
}

// Cancel handles POST /:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	var req dto.CancelRequest
	// the body is optional
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}
	h.mutate(c, func(ctx context.Context, orderID id.ID, act actor.Actor) (*order.Order, error) {
		return h.service.Cancel(ctx, orderID, h.kind, req.Reason, act)
	})
}

// UpdatePayment handles POST /:id/payment
func (h *OrderHandler) UpdatePayment(c *gin.Context) {
	var req dto.PaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.mutate(c, func(ctx context.Context, orderID id.ID, act actor.Actor) (*order.Order, error) {
		return h.service.UpdatePayment(ctx, orderID, h.kind, req.ToUpdate(), act)
	})
}

// AddNote handles POST /:id/notes
func (h *OrderHandler) AddNote(c *gin.Context) {
	orderID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.NoteRequest
	if !h.BindJSON(c, &req) {
		return
	}

	note, err := h.service.AddNote(c.Request.Context(), orderID, h.kind, order.NoteType(req.Type), req.Content, h.Actor(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromNote(*note))
}

// Totals handles POST /totals. It only computes; nothing is stored.
func (h *OrderHandler) Totals(c *gin.Context) {
	var req dto.TotalsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.OK(c, h.service.PreviewTotals(req.ToInput()))
}

func (h *OrderHandler) mutate(c *gin.Context, fn func(ctx context.Context, orderID id.ID, act actor.Actor) (*order.Order, error)) {
	orderID, ok := h.ParamID(c)
	if !ok {
		return
	}
	o, err := fn(c.Request.Context(), orderID, h.Actor(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromOrder(o))
}

func customerKindMismatch(kind order.Kind) error {
	return apperror.NewValidation("customer does not match the order kind").
		WithDetail("field", "customer").
		WithDetail("kind", kind)
}
