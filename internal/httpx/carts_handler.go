package httpx

import (
	"log/slog"
	"net/http"

	"github.com/ariefcatur/go-commerce-ledger/internal/cart"
	"github.com/ariefcatur/go-commerce-ledger/internal/logger"
	"github.com/go-chi/chi/v5"
)

type CartsHandler struct {
	Carts *cart.Service
	Log   *slog.Logger
}

type updateQtyReq struct {
	Quantity int `json:"quantity"`
}

func (h *CartsHandler) Register(r chi.Router, authn func(http.Handler) http.Handler) {
	h.Log = logger.Or(h.Log)
	r.Route("/api/carts", func(r chi.Router) {
		r.Use(authn)
		r.Get("/", h.list)
		r.Post("/", h.add)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
}

func (h *CartsHandler) list(w http.ResponseWriter, r *http.Request) {
	ls, err := h.Carts.List(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(ls))
}

func (h *CartsHandler) add(w http.ResponseWriter, r *http.Request) {
	var req cart.AddInput
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := h.Carts.Add(r.Context(), actor(r), req)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (h *CartsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req updateQtyReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Carts.UpdateQuantity(r.Context(), actor(r), id, req.Quantity); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "quantity": req.Quantity})
}

func (h *CartsHandler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	l, err := h.Carts.Remove(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}
