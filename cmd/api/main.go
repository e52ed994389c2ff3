package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/punchamoorthee/paycore/internal/api"
	"github.com/punchamoorthee/paycore/internal/config"
	"github.com/punchamoorthee/paycore/internal/gateway"
	"github.com/punchamoorthee/paycore/internal/service"
	"github.com/punchamoorthee/paycore/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	dbPool, err := pgxpool.New(context.Background(), cfg.DBSource)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer dbPool.Close()

	// Initialize Layers
	st := store.New(dbPool)
	gw := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret, cfg.GatewayTimeout)
	rates := service.Rates{
		Referral:      cfg.ReferralRate,
		Platform:      cfg.PlatformRate,
		SellerDefault: cfg.SellerDefaultRate,
	}
	guard := service.NewGuard(st)
	commissions := service.NewDistributor(st, rates, cfg.PlatformUserID)
	payments := service.NewPaymentService(st, guard, commissions)
	refunds := service.NewRefundService(st, gw)
	wallets := service.NewWalletService(st)
	handler := api.NewHandler(payments, refunds, commissions, wallets)

	// Router
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", handler.HealthCheckHandler).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/webhooks/gateway", handler.GatewayWebhookHandler).Methods("POST")
	apiV1.HandleFunc("/payments", handler.CreatePaymentHandler).Methods("POST")
	apiV1.HandleFunc("/payments/{id}", handler.GetPaymentHandler).Methods("GET")
	apiV1.HandleFunc("/payments/{id}/cancel", handler.CancelPaymentHandler).Methods("POST")
	apiV1.HandleFunc("/payments/{id}/refunds", handler.CreateRefundHandler).Methods("POST")
	apiV1.HandleFunc("/users/{id}/wallet", handler.GetWalletHandler).Methods("GET")
	apiV1.HandleFunc("/users/{id}/ledger", handler.GetLedgerHandler).Methods("GET")
	apiV1.HandleFunc("/orders/{id}/delivered", handler.ConfirmDeliveryHandler).Methods("POST")
	apiV1.HandleFunc("/settlements", handler.ListSettlementsHandler).Methods("GET")
	apiV1.HandleFunc("/settlements/recon", handler.ListReconHandler).Methods("GET")

	log.Printf("Server starting on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
