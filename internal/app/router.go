package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	authapp "github.com/dmehra2102/Pharmacy-Management-System/internal/auth/application"
	authhttp "github.com/dmehra2102/Pharmacy-Management-System/internal/auth/infrastructure/http"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/config"
	custapp "github.com/dmehra2102/Pharmacy-Management-System/internal/customer/application"
	custhttp "github.com/dmehra2102/Pharmacy-Management-System/internal/customer/infrastructure/http"
	dashapp "github.com/dmehra2102/Pharmacy-Management-System/internal/dashboard/application"
	dashhttp "github.com/dmehra2102/Pharmacy-Management-System/internal/dashboard/infrastructure/http"
	invapp "github.com/dmehra2102/Pharmacy-Management-System/internal/inventory/application"
	invhttp "github.com/dmehra2102/Pharmacy-Management-System/internal/inventory/infrastructure/http"
	orderapp "github.com/dmehra2102/Pharmacy-Management-System/internal/order/application"
	orderhttp "github.com/dmehra2102/Pharmacy-Management-System/internal/order/infrastructure/http"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/httpx"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/idempotency"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/tracing"
)

// NewRouter wires every service over b. idem may be nil, in which case
// order creation is not deduplicated.
func NewRouter(log *slog.Logger, cfg config.Config, b *Backend, idem idempotency.Backend) http.Handler {
	ledger := invapp.NewLedger(b.Products)
	catalog := invapp.NewCatalog(b.Products, ledger, b.Orders)
	customers := custapp.NewService(b.Customers, b.Orders)
	manager := orderapp.NewManager(log, b.Tx, b.Orders, customers, ledger, b.Outbox)
	tokens := authapp.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	auth := authapp.NewService(b.Users, tokens, cfg.BcryptCost)
	dashboard := dashapp.NewService(b.Products, b.Customers, b.Orders, cfg.LowStockThreshold)

	var guard func(http.Handler) http.Handler
	if idem != nil {
		guard = idempotency.Middleware(log, idem)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(tracing.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization", idempotency.HeaderKey},
			ExposedHeaders: []string{idempotency.HeaderReplayed},
			MaxAge:         300,
		}))
		r.Mount("/auth", authhttp.NewHandler(log, auth).Routes())
		r.Group(func(r chi.Router) {
			r.Use(authhttp.Authenticate(log, tokens))
			r.Mount("/inventory", invhttp.NewHandler(log, catalog).Routes())
			r.Mount("/customers", custhttp.NewHandler(log, customers).Routes())
			r.Mount("/orders", orderhttp.NewHandler(log, manager).Routes(guard))
			r.Mount("/dashboard", dashhttp.NewHandler(log, dashboard).Routes())
		})
	})
	return r
}
