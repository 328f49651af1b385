package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/inventory/application"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/inventory/domain"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	catalog *application.Catalog
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, catalog *application.Catalog) *Handler {
	return &Handler{
		log:     log,
		catalog: catalog,
		tracer:  otel.Tracer("inventory-http"),
	}
}

type productResp struct {
	Message string         `json:"message"`
	Product domain.Product `json:"product"`
}

type restockReq struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/restock", h.restock)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListProducts")
	defer span.End()

	products, err := h.catalog.List(ctx)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	httpx.WriteJSON(w, http.StatusOK, products)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateProduct")
	defer span.End()

	var req application.CreateProductInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	p, err := h.catalog.Create(ctx, req)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	h.log.Info("product created", "product_id", p.ID, "sku", p.SKU)
	httpx.WriteJSON(w, http.StatusCreated, productResp{Message: "product created", Product: p})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetProduct")
	defer span.End()

	p, err := h.catalog.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateProduct")
	defer span.End()

	var req application.DetailsInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	p, err := h.catalog.Update(ctx, chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, productResp{Message: "product updated", Product: p})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DeleteProduct")
	defer span.End()

	id := chi.URLParam(r, "id")
	if err := h.catalog.Delete(ctx, id); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	h.log.Info("product deleted", "product_id", id)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "product deleted", "productId": id})
}

func (h *Handler) restock(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RestockProduct")
	defer span.End()

	var req restockReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	p, err := h.catalog.Restock(ctx, chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	h.log.Info("product restocked", "product_id", p.ID, "quantity", req.Quantity, "stock", p.Stock)
	httpx.WriteJSON(w, http.StatusOK, productResp{Message: "stock updated", Product: p})
}
