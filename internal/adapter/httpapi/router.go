package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cashpoint/cashpoint-backend/internal/domain"
)

// NewRouter mounts the terminal API under /api.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.requireSession)
			r.Get("/session", h.Session)
			r.Get("/balance", h.Balance)
			r.Post("/withdraw", h.Withdraw)
			r.Post("/deposit", h.Deposit)
			r.Post("/transfer", h.Transfer)
			r.Get("/statement", h.Statement)
			r.Post("/pin", h.ChangePIN)
		})
	})
	return r
}

// requireSession rejects requests without an authenticated session and
// counts each accepted request as activity for the idle timeout.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := h.sessions.Current(); !ok {
			h.respondError(w, domain.ErrNotAuthenticated)
			return
		}
		h.sessions.Touch()
		next.ServeHTTP(w, r)
	})
}
