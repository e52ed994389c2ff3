package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/punchamoorthee/paycore/internal/domain"
	"github.com/punchamoorthee/paycore/internal/gateway"
	"github.com/punchamoorthee/paycore/internal/models"
)

// GetWalletHandler recomputes the user's wallet summary from the ledger.
func (h *Handler) GetWalletHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", "/users/{id}/wallet"))
	defer timer.ObserveDuration()

	userID := mux.Vars(r)["id"]
	summary, err := h.wallets.Summary(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err, "GET", "/users/{id}/wallet")
		return
	}
	h.countJSON(w, http.StatusOK, domain.WalletResponse{UserID: userID, Wallet: summary}, "GET", "/users/{id}/wallet")
}

// GetLedgerHandler returns the user's ledger entries, oldest first.
func (h *Handler) GetLedgerHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	entries, err := h.wallets.Ledger(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err, "GET", "/users/{id}/ledger")
		return
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	h.countJSON(w, http.StatusOK, entries, "GET", "/users/{id}/ledger")
}

// ConfirmDeliveryHandler is called by the order subsystem once delivery
// is confirmed. Re-confirmations are acknowledged without a second credit.
func (h *Handler) ConfirmDeliveryHandler(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]
	entry, credited, err := h.commissions.CreditDelivery(r.Context(), orderID)
	if err != nil {
		h.respondServiceError(w, err, "POST", "/orders/{id}/delivered")
		return
	}
	if !credited {
		h.countJSON(w, http.StatusOK, map[string]string{"status": "already_delivered"}, "POST", "/orders/{id}/delivered")
		return
	}
	h.countJSON(w, http.StatusOK, map[string]interface{}{
		"status": "credited",
		"entry":  entry,
	}, "POST", "/orders/{id}/delivered")
}

// ListSettlementsHandler proxies gateway settlement batches.
func (h *Handler) ListSettlementsHandler(w http.ResponseWriter, r *http.Request) {
	params := gateway.SettlementParams{
		Count: queryInt(r, "count", 10),
		Skip:  queryInt(r, "skip", 0),
		From:  queryInt64(r, "from"),
		To:    queryInt64(r, "to"),
	}
	page, err := h.refunds.ListSettlements(r.Context(), params)
	if err != nil {
		h.respondServiceError(w, err, "GET", "/settlements")
		return
	}
	h.countJSON(w, http.StatusOK, page, "GET", "/settlements")
}

// ListReconHandler proxies the recon items of a settlement cycle.
func (h *Handler) ListReconHandler(w http.ResponseWriter, r *http.Request) {
	params := gateway.ReconParams{
		Year:  queryInt(r, "year", 0),
		Month: queryInt(r, "month", 0),
		Count: queryInt(r, "count", 10),
		Skip:  queryInt(r, "skip", 0),
	}
	if params.Year == 0 || params.Month < 1 || params.Month > 12 {
		h.countAndRespondError(w, http.StatusUnprocessableEntity, "invalid_request",
			"year and month are required", "GET", "/settlements/recon")
		return
	}
	page, err := h.refunds.ListReconItems(r.Context(), params)
	if err != nil {
		h.respondServiceError(w, err, "GET", "/settlements/recon")
		return
	}
	h.countJSON(w, http.StatusOK, page, "GET", "/settlements/recon")
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func queryInt64(r *http.Request, key string) int64 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
