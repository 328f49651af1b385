package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/order/application"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/order/domain"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	manager *application.Manager
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, manager *application.Manager) *Handler {
	return &Handler{
		log:     log,
		manager: manager,
		tracer:  otel.Tracer("order-http"),
	}
}

type orderResp struct {
	Message string       `json:"message"`
	Order   domain.Order `json:"order"`
}

type statusReq struct {
	ID     string             `json:"id"`
	Status domain.OrderStatus `json:"status"`
}

// Routes mounts the order endpoints. createGuard wraps POST / and may be nil.
func (h *Handler) Routes(createGuard func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.listOrders)
	if createGuard != nil {
		r.With(createGuard).Post("/", h.createOrder)
	} else {
		r.Post("/", h.createOrder)
	}
	r.Put("/", h.updateStatus)
	r.Get("/{id}", h.getOrder)
	r.Patch("/{id}/status", h.updateStatus)
	r.Delete("/{id}", h.deleteOrder)
	return r
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListOrders")
	defer span.End()

	orders, err := h.manager.ListOrders(ctx, application.ListFilter{CustomerID: r.URL.Query().Get("customerId")})
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	httpx.WriteJSON(w, http.StatusOK, orders)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req application.CreateOrderInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	o, err := h.manager.CreateOrder(ctx, req)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", o.ID))
	httpx.WriteJSON(w, http.StatusCreated, orderResp{Message: "order created", Order: o})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	o, err := h.manager.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

// updateStatus serves both PATCH /{id}/status and PUT / with the id in
// the body.
func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrderStatus")
	defer span.End()

	var req statusReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		req.ID = id
	}
	if req.ID == "" {
		httpx.WriteError(w, h.log, r, errMissingID)
		return
	}
	span.SetAttributes(attribute.String("order.id", req.ID), attribute.String("order.status", string(req.Status)))

	o, err := h.manager.UpdateStatus(ctx, req.ID, req.Status)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResp{Message: "order updated", Order: o})
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DeleteOrder")
	defer span.End()

	id := chi.URLParam(r, "id")
	if err := h.manager.DeleteOrder(ctx, id); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "order deleted", "orderId": id})
}
