package httpx

import (
	"log/slog"
	"net/http"

	"github.com/ariefcatur/go-commerce-ledger/internal/logger"
	"github.com/ariefcatur/go-commerce-ledger/internal/notification"
	"github.com/go-chi/chi/v5"
)

type NotificationsHandler struct {
	Notifications *notification.Service
	Log           *slog.Logger
}

func (h *NotificationsHandler) Register(r chi.Router, authn func(http.Handler) http.Handler) {
	h.Log = logger.Or(h.Log)
	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(authn)
		r.Get("/", h.list)
		r.Get("/count", h.count)
		r.Put("/{id}/read", h.markRead)
	})
}

func (h *NotificationsHandler) list(w http.ResponseWriter, r *http.Request) {
	ns, err := h.Notifications.List(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(ns))
}

func (h *NotificationsHandler) count(w http.ResponseWriter, r *http.Request) {
	n, err := h.Notifications.CountUnread(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread": n})
}

func (h *NotificationsHandler) markRead(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Notifications.MarkRead(r.Context(), actor(r), id); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": notification.StatusRead})
}
