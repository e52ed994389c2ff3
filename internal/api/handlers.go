package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/punchamoorthee/paycore/internal/domain"
	"github.com/punchamoorthee/paycore/internal/service"
	"github.com/punchamoorthee/paycore/internal/store"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paycore_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paycore_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})

	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paycore_webhook_events_total",
		Help: "Inbound gateway webhook deliveries by outcome",
	}, []string{"event_type", "outcome"})

	refundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paycore_refunds_total",
		Help: "Refund requests by result",
	}, []string{"result"})
)

type Handler struct {
	payments    *service.PaymentService
	refunds     *service.RefundService
	commissions *service.Distributor
	wallets     *service.WalletService
}

func NewHandler(payments *service.PaymentService, refunds *service.RefundService,
	commissions *service.Distributor, wallets *service.WalletService) *Handler {
	return &Handler{payments: payments, refunds: refunds, commissions: commissions, wallets: wallets}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GatewayWebhookHandler is the single entry point for gateway deliveries.
// Duplicates are acknowledged exactly like first deliveries; only
// transient store failures come back 5xx so the gateway retries.
func (h *Handler) GatewayWebhookHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/webhooks/gateway"))
	defer timer.ObserveDuration()

	var env domain.WebhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		webhookEventsTotal.WithLabelValues("unknown", "malformed").Inc()
		h.countAndRespondError(w, http.StatusBadRequest, "invalid_request", "Malformed webhook body", "POST", "/webhooks/gateway")
		return
	}

	ev := env.Normalize()
	outcome, err := h.payments.HandleEvent(r.Context(), ev)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			webhookEventsTotal.WithLabelValues(ev.EventType, "rejected").Inc()
			h.countAndRespondError(w, http.StatusBadRequest, "invalid_request", err.Error(), "POST", "/webhooks/gateway")
		case errors.Is(err, service.ErrDataIntegrity):
			log.Printf("webhook integrity violation: %v", err)
			webhookEventsTotal.WithLabelValues(ev.EventType, "integrity_violation").Inc()
			h.countAndRespondError(w, http.StatusInternalServerError, "data_integrity", err.Error(), "POST", "/webhooks/gateway")
		default:
			// Transient: a 5xx makes the gateway redeliver.
			webhookEventsTotal.WithLabelValues(ev.EventType, "transient_error").Inc()
			h.countAndRespondError(w, http.StatusInternalServerError, "transient", "Temporary failure, retry", "POST", "/webhooks/gateway")
		}
		return
	}

	if outcome.Duplicate {
		webhookEventsTotal.WithLabelValues(ev.EventType, "duplicate").Inc()
	} else {
		webhookEventsTotal.WithLabelValues(ev.EventType, "processed").Inc()
	}
	h.countJSON(w, http.StatusOK, domain.WebhookAck{Status: "ok", Duplicate: outcome.Duplicate}, "POST", "/webhooks/gateway")
}

func (h *Handler) CreatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.countAndRespondError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", "POST", "/payments")
		return
	}

	p, err := h.payments.Initiate(r.Context(), service.InitiatePayment{
		UserID:         req.UserID,
		OrderID:        req.OrderID,
		ReferrerID:     req.ReferrerID,
		GatewayOrderID: req.GatewayOrderID,
		Amount:         req.Amount,
		Currency:       req.Currency,
	})
	if err != nil {
		h.respondServiceError(w, err, "POST", "/payments")
		return
	}
	h.countJSON(w, http.StatusCreated, p, "POST", "/payments")
}

func (h *Handler) GetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, err := h.payments.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err, "GET", "/payments/{id}")
		return
	}
	h.countJSON(w, http.StatusOK, p, "GET", "/payments/{id}")
}

func (h *Handler) CancelPaymentHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.payments.Cancel(r.Context(), id); err != nil {
		h.respondServiceError(w, err, "POST", "/payments/{id}/cancel")
		return
	}
	h.countJSON(w, http.StatusOK, map[string]string{"status": "cancelled"}, "POST", "/payments/{id}/cancel")
}

func (h *Handler) CreateRefundHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/payments/{id}/refunds"))
	defer timer.ObserveDuration()

	id := mux.Vars(r)["id"]
	var req domain.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.countAndRespondError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", "POST", "/payments/{id}/refunds")
		return
	}
	if req.Amount < 0 {
		h.countAndRespondError(w, http.StatusUnprocessableEntity, "invalid_request", "Amount must not be negative", "POST", "/payments/{id}/refunds")
		return
	}

	refund, err := h.refunds.Refund(r.Context(), id, service.RefundInput{
		Amount: req.Amount,
		Reason: req.Reason,
		Speed:  req.Speed,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGatewayRefundFailed):
			refundsTotal.WithLabelValues("gateway_failed").Inc()
		case errors.Is(err, service.ErrInvalidRequest):
			refundsTotal.WithLabelValues("rejected").Inc()
		default:
			refundsTotal.WithLabelValues("error").Inc()
		}
		h.respondServiceError(w, err, "POST", "/payments/{id}/refunds")
		return
	}

	refundsTotal.WithLabelValues("ok").Inc()
	h.countJSON(w, http.StatusCreated, refund, "POST", "/payments/{id}/refunds")
}

// respondServiceError maps the error taxonomy to HTTP statuses and
// structured error codes so clients can decide whether to retry.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error, method, endpoint string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.countAndRespondError(w, http.StatusNotFound, "not_found", "Not found", method, endpoint)
	case errors.Is(err, store.ErrPaymentExists):
		h.countAndRespondError(w, http.StatusConflict, "conflict", "Payment already exists for gateway order", method, endpoint)
	case errors.Is(err, store.ErrInvalidTransition):
		h.countAndRespondError(w, http.StatusUnprocessableEntity, "invalid_state", "Payment state does not permit this operation", method, endpoint)
	case errors.Is(err, service.ErrInvalidRequest):
		h.countAndRespondError(w, http.StatusUnprocessableEntity, "invalid_request", err.Error(), method, endpoint)
	case errors.Is(err, service.ErrGatewayRefundFailed), errors.Is(err, service.ErrGatewayCall):
		h.countAndRespondError(w, http.StatusBadGateway, "gateway_error", err.Error(), method, endpoint)
	case errors.Is(err, service.ErrDataIntegrity):
		log.Printf("integrity violation on %s %s: %v", method, endpoint, err)
		h.countAndRespondError(w, http.StatusInternalServerError, "data_integrity", err.Error(), method, endpoint)
	default:
		h.countAndRespondError(w, http.StatusInternalServerError, "internal", "Internal Server Error", method, endpoint)
	}
}

func (h *Handler) countJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	respondWithJSON(w, code, payload)
}

func (h *Handler) countAndRespondError(w http.ResponseWriter, code int, errCode, message, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	respondWithJSON(w, code, map[string]string{"error": message, "code": errCode})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
