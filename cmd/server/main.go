package main

import (
	"context"
	"net/http"
	"os"

	webAdapter "warehouse-backoffice/internal/adapters/web"
	"warehouse-backoffice/internal/ai"
	"warehouse-backoffice/internal/app"
	"warehouse-backoffice/internal/core"
	"warehouse-backoffice/internal/db"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	ledger := core.NewLedgerService(pool)
	stock := core.NewStockService(pool)
	warehouses := core.NewWarehouseService(pool)
	locations := core.NewLocationService(pool)
	products := core.NewProductService(pool)
	customers := core.NewCustomerService(pool)
	invoices := core.NewInvoiceService(pool)
	maintenance := core.NewMaintenanceService(pool)
	reports := core.NewReportingService(pool)

	var assistant app.Assistant
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		assistant = ai.NewAgent(apiKey)
	} else {
		logger.Warn("OPENAI_API_KEY is not set, assistant endpoints disabled")
	}

	a := app.New(ledger, stock, warehouses, locations, products, customers, invoices, maintenance, reports, assistant)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(a, logger, allowedOrigins)

	logger.Info("server starting", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}
