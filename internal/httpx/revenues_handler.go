package httpx

import (
	"log/slog"
	"net/http"

	"github.com/ariefcatur/go-commerce-ledger/internal/logger"
	"github.com/ariefcatur/go-commerce-ledger/internal/revenue"
	"github.com/go-chi/chi/v5"
)

type RevenuesHandler struct {
	Reports *revenue.Reporter
	Log     *slog.Logger
}

func (h *RevenuesHandler) Register(r chi.Router, authn func(http.Handler) http.Handler) {
	h.Log = logger.Or(h.Log)
	r.Route("/api/revenues", func(r chi.Router) {
		r.Use(authn)
		r.Get("/revenue/{sellerId}", h.monthly)
		r.Get("/yearly/{sellerId}", h.yearly)
		r.Get("/orders-count/{sellerId}", h.ordersCount)
		r.Get("/top-products/{sellerId}", h.topProducts)
	})
}

// period reads the month and year query parameters.
func period(w http.ResponseWriter, r *http.Request) (month, year int, ok bool) {
	month, okM := intQuery(r, "month")
	year, okY := intQuery(r, "year")
	if !okM || !okY {
		badRequest(w, "month and year must be numbers")
		return 0, 0, false
	}
	return month, year, true
}

func (h *RevenuesHandler) monthly(w http.ResponseWriter, r *http.Request) {
	seller, ok := idParam(w, r, "sellerId")
	if !ok {
		return
	}
	month, year, ok := period(w, r)
	if !ok {
		return
	}
	v, err := h.Reports.Monthly(r.Context(), actor(r), seller, month, year)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"seller_id": seller, "month": month, "year": year, "revenue": v})
}

func (h *RevenuesHandler) yearly(w http.ResponseWriter, r *http.Request) {
	seller, ok := idParam(w, r, "sellerId")
	if !ok {
		return
	}
	_, year, ok := period(w, r)
	if !ok {
		return
	}
	v, err := h.Reports.Yearly(r.Context(), actor(r), seller, year)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"seller_id": seller, "year": year, "revenue": v})
}

func (h *RevenuesHandler) ordersCount(w http.ResponseWriter, r *http.Request) {
	seller, ok := idParam(w, r, "sellerId")
	if !ok {
		return
	}
	month, year, ok := period(w, r)
	if !ok {
		return
	}
	n, err := h.Reports.PaidOrders(r.Context(), actor(r), seller, month, year)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"seller_id": seller, "month": month, "year": year, "total_orders": n})
}

func (h *RevenuesHandler) topProducts(w http.ResponseWriter, r *http.Request) {
	seller, ok := idParam(w, r, "sellerId")
	if !ok {
		return
	}
	month, year, ok := period(w, r)
	if !ok {
		return
	}
	ps, err := h.Reports.TopProducts(r.Context(), actor(r), seller, month, year)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(ps))
}
