package httpx

import (
	"log/slog"
	"net/http"

	"github.com/ariefcatur/go-commerce-ledger/internal/logger"
	"github.com/ariefcatur/go-commerce-ledger/internal/orders"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	Orders *orders.Service
	Log    *slog.Logger
}

type updateStatusReq struct {
	Status        orders.Status        `json:"status"`
	PaymentStatus orders.PaymentStatus `json:"payment_status"`
}

type transitionResp struct {
	Order         orders.Order `json:"order"`
	Changed       bool         `json:"changed"`
	StockReleased bool         `json:"stock_released"`
	Posted        int          `json:"revenue_postings"`
	Reversed      int          `json:"revenue_reversals"`
}

// Register mounts /products publicly and /api/orders behind authn.
func (h *OrdersHandler) Register(r chi.Router, authn func(http.Handler) http.Handler) {
	h.Log = logger.Or(h.Log)
	r.Get("/products", h.listProducts)
	r.Get("/api/products", h.listProducts)
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authn)
		r.Post("/", h.createOrder)
		r.Get("/", h.listMine)
		r.Get("/all", h.listAll)
		r.Get("/{id}", h.getOrder)
		r.Get("/{id}/status", h.getStatus)
		r.Put("/{id}/status", h.updateStatus)
	})
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Orders.Products(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.CreateInput
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.Orders.Create(r.Context(), actor(r), req)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *OrdersHandler) listMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListMine(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (h *OrdersHandler) listAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListAll(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	d, err := h.Orders.Get(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	v, err := h.Orders.Status(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req updateStatusReq
	if !decodeJSON(w, r, &req) {
		return
	}
	tr, err := h.Orders.UpdateStatus(r.Context(), actor(r), id, req.Status, req.PaymentStatus)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, transitionResp{
		Order:         tr.Order,
		Changed:       tr.Changed,
		StockReleased: tr.StockReleased,
		Posted:        len(tr.Posted),
		Reversed:      len(tr.Reversed),
	})
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
