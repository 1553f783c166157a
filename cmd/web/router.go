package main

import (
	"net/http"

	"novac/cmd/web/handlers"
	"novac/cmd/web/validator"
	"novac/internal/access"
	"novac/internal/bootstrap"
	"novac/internal/checkout"
)

func newRouter(app *bootstrap.App) http.Handler {
	logger := app.Logger
	jsonV := validator.NewJSON()

	webhookH := handlers.NewWebhook(jsonV, app.Reconcile, logger)
	callbackH := handlers.NewCallback(app.Reconcile, logger)
	checkoutH := handlers.NewCheckout(jsonV, app.Checkout, logger)
	txH := handlers.NewTransactions(app.Repository, app.Journal, app.Audit, logger).WithActivity(app.Activity)
	healthH := handlers.NewHealth(app.Health, logger)
	metricsH := handlers.NewMetrics(app.Snapshot, logger)

	view := func(h http.HandlerFunc) http.Handler {
		return access.Require(app.Tokens, access.ViewTransactions, logger, h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhooks/novac", webhookH.Handle)
	mux.HandleFunc("GET "+checkout.CallbackPath, callbackH.Handle)
	mux.HandleFunc("POST /payments/initiate", checkoutH.Initiate)
	mux.Handle("GET /api/v1/transactions", view(txH.List))
	mux.Handle("GET /api/v1/transactions/{reference}", view(txH.Get))
	mux.Handle("GET /api/v1/transactions/{reference}/events", view(txH.Events))
	mux.HandleFunc("GET /healthz", healthH.Handler)
	mux.HandleFunc("GET /metrics", metricsH.Handler)

	if app.Sandbox != nil {
		sandboxH := handlers.NewSandbox(app.Sandbox, checkout.CallbackPath, logger)
		mux.HandleFunc("GET /sandbox/checkout/{reference}", sandboxH.Checkout)
	}
	return mux
}
