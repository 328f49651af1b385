package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/auth/application"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/auth/domain"
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
		tracer:  otel.Tracer("auth-http"),
	}
}

type userResp struct {
	Message string      `json:"message"`
	User    domain.User `json:"user"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/setup", h.setup)
	return r
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Register")
	defer span.End()

	var req application.RegisterInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	u, err := h.service.Register(ctx, req)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	h.log.Info("user registered", "user_id", u.ID)
	httpx.WriteJSON(w, http.StatusCreated, userResp{Message: "user registered", User: u})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Login")
	defer span.End()

	var req application.LoginInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	sess, err := h.service.Login(ctx, req)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sess)
}

func (h *Handler) setup(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SetupAdmin")
	defer span.End()

	var req application.RegisterInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	u, err := h.service.SetupAdmin(ctx, req)
	if err != nil {
		httpx.WriteError(w, h.log, r, err)
		return
	}
	h.log.Info("admin created", "user_id", u.ID)
	httpx.WriteJSON(w, http.StatusCreated, userResp{Message: "administrator created", User: u})
}
