package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/customer/application"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/customer/domain"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("customer-http"),
	}
}

type customerResp struct {
	Message  string          `json:"message"`
	Customer domain.Customer `json:"customer"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListCustomers")
	defer span.End()

	customers, err := h.service.List(ctx)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	if customers == nil {
		customers = []domain.Customer{}
	}
	httpx.WriteJSON(w, http.StatusOK, customers)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateCustomer")
	defer span.End()

	var req application.ProfileInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	c, err := h.service.Create(ctx, req)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, customerResp{Message: "customer created", Customer: c})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetCustomer")
	defer span.End()

	c, err := h.service.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateCustomer")
	defer span.End()

	var req application.ProfileInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	c, err := h.service.Update(ctx, chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, customerResp{Message: "customer updated", Customer: c})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DeleteCustomer")
	defer span.End()

	id := chi.URLParam(r, "id")
	if err := h.service.Delete(ctx, id); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "customer deleted", "customerId": id})
}
