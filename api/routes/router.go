package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kwabenaosei/dukapos-backend/api/controllers"
	"github.com/kwabenaosei/dukapos-backend/api/middleware"
	creditsvc "github.com/kwabenaosei/dukapos-backend/internal/credit"
	"github.com/kwabenaosei/dukapos-backend/internal/customers"
	productsvc "github.com/kwabenaosei/dukapos-backend/internal/products"
	salesvc "github.com/kwabenaosei/dukapos-backend/internal/sales"
	"github.com/kwabenaosei/dukapos-backend/pkg/config"
	"github.com/kwabenaosei/dukapos-backend/pkg/logger"
	pkgredis "github.com/kwabenaosei/dukapos-backend/pkg/redis"
)

// Deps carries everything the router mounts. Nil optional dependencies
// (idempotency store, readiness pingers) degrade the matching feature
// instead of failing startup.
type Deps struct {
	Config           *config.Config
	Logger           *logger.Logger
	IdempotencyStore pkgredis.IdempotencyStore
	RateLimitStore   middleware.RateLimitStore
	ReadyChecks      map[string]controllers.Pinger

	Sales     salesvc.Service
	Products  productsvc.Service
	Customers customers.Service
	Credit    creditsvc.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.ReadyChecks))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(cfg.RateLimit, deps.RateLimitStore, logg))
		r.Use(middleware.Idempotency(deps.IdempotencyStore, logg))

		r.Post("/sales", controllers.RecordSale(deps.Sales, logg))
		r.Get("/sales/{date}", controllers.GetSalesByDate(deps.Sales, logg))

		// Only owners may change the catalogue; cashiers still sell from it.
		r.With(middleware.RequireRole("owner", logg)).
			Post("/products", controllers.CreateProduct(deps.Products, logg))
		r.Get("/products", controllers.ListProducts(deps.Products, logg))

		r.Post("/credit-customers", controllers.UpsertCustomer(deps.Customers, logg))
		r.Get("/credit-customers", controllers.ListCustomers(deps.Customers, logg))
		r.Get("/credit-customers/{customerId}", controllers.GetCustomer(deps.Customers, logg))

		r.Post("/credit-sales", controllers.CreateCreditSale(deps.Credit, logg))
		r.Get("/credit-sales", controllers.ListCreditSales(deps.Credit, logg))
		r.Get("/credit-sales/{customerId}", controllers.ListCustomerCreditSales(deps.Credit, logg))

		r.Post("/credit-payments", controllers.RecordCreditPayment(deps.Credit, logg))
		r.Get("/credit-payments/{customerId}", controllers.ListCustomerCreditPayments(deps.Credit, logg))
		r.Get("/credit-summary", controllers.GetCreditSummary(deps.Credit, logg))
	})

	return r
}
