package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kwabenaosei/dukapos-backend/api/controllers"
	"github.com/kwabenaosei/dukapos-backend/api/routes"
	"github.com/kwabenaosei/dukapos-backend/internal/credit"
	"github.com/kwabenaosei/dukapos-backend/internal/customers"
	"github.com/kwabenaosei/dukapos-backend/internal/inventory"
	"github.com/kwabenaosei/dukapos-backend/internal/products"
	"github.com/kwabenaosei/dukapos-backend/internal/receipts"
	"github.com/kwabenaosei/dukapos-backend/internal/sales"
	"github.com/kwabenaosei/dukapos-backend/pkg/config"
	"github.com/kwabenaosei/dukapos-backend/pkg/db"
	"github.com/kwabenaosei/dukapos-backend/pkg/logger"
	"github.com/kwabenaosei/dukapos-backend/pkg/metrics"
	"github.com/kwabenaosei/dukapos-backend/pkg/migrate"
	"github.com/kwabenaosei/dukapos-backend/pkg/outbox"
	"github.com/kwabenaosei/dukapos-backend/pkg/recordstore"
	"github.com/kwabenaosei/dukapos-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	saleStore, err := recordstore.NewRedisStore(redisClient, redis.IsNil, cfg.Sales.RecordTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create sale record store", err)
		os.Exit(1)
	}

	saleMetrics := metrics.NewSaleMetrics(prometheus.DefaultRegisterer)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	emitter, err := receipts.NewEmitter(dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create receipt emitter", err)
		os.Exit(1)
	}

	adjuster, err := inventory.NewAdjuster(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create stock adjuster", err)
		os.Exit(1)
	}

	productService, err := products.NewService(products.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	customerRepo := customers.NewRepository(dbClient.DB())
	customerService, err := customers.NewService(customerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create customer service", err)
		os.Exit(1)
	}

	saleService, err := sales.NewService(saleStore, adjuster, customerService, emitter, logg, saleMetrics, cfg.Sales)
	if err != nil {
		logg.Error(context.Background(), "failed to create sales service", err)
		os.Exit(1)
	}

	creditService, err := credit.NewService(dbClient, credit.NewRepository(dbClient.DB()), customerRepo, customerService, adjuster, outboxService, logg, saleMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create credit service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:           cfg,
			Logger:           logg,
			IdempotencyStore: redisClient,
			RateLimitStore:   redisClient,
			ReadyChecks: map[string]controllers.Pinger{
				"postgres": dbClient,
				"redis":    redisClient,
			},
			Sales:     saleService,
			Products:  productService,
			Customers: customerService,
			Credit:    creditService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
