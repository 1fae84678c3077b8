package auth_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kiosk-service/internal/auth"
	"kiosk-service/internal/logger"
)

type Handler struct {
	Gate   *auth.Gate
	TTL    time.Duration
	Logger *logger.Logger
}

func NewHandler(gate *auth.Gate, ttl time.Duration, log *logger.Logger) *Handler {
	return &Handler{Gate: gate, TTL: ttl, Logger: log}
}

// RegisterPublicRoutes mounts the PIN endpoint (no session required).
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/pin", h.EnterPin)
}

// RegisterProtectedRoutes mounts logout behind the session middleware.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/auth/logout", h.Logout)
}

func (h *Handler) EnterPin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Pin string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		sendError(w, http.StatusBadRequest, "JSON inválido.")
		return
	}

	session, err := h.Gate.Authenticate(r.Context(), body.Pin, clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTooManyFailures):
			sendError(w, http.StatusTooManyRequests, err.Error())
		case errors.Is(err, auth.ErrInvalidPin):
			sendError(w, http.StatusUnauthorized, err.Error())
		default:
			h.Logger.Error("AUTH", fmt.Sprintf("Authenticate failed: %v", err))
			sendError(w, http.StatusInternalServerError, "Erro interno.")
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   int(h.TTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	sendJSON(w, http.StatusOK, map[string]any{})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookie); err == nil {
		h.Gate.Logout(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	sendJSON(w, http.StatusOK, map[string]any{})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, map[string]string{"error": message})
}
