package stats_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	buttons "kiosk-service/internal/buttons/service"
	"kiosk-service/internal/logger"
	"kiosk-service/internal/qr"
	"kiosk-service/internal/stats"
)

// Handler serves the session-gated admin surface.
type Handler struct {
	Stats    *stats.Service
	Buttons  *buttons.ButtonService
	Logger   *logger.Logger
	KioskURL string
}

func NewHandler(statsSvc *stats.Service, buttonSvc *buttons.ButtonService, log *logger.Logger, kioskURL string) *Handler {
	return &Handler{Stats: statsSvc, Buttons: buttonSvc, Logger: log, KioskURL: kioskURL}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/admin/stats", h.GetAdminStats)
	r.Get("/admin/qr", h.GetKioskQR)
}

func (h *Handler) GetAdminStats(w http.ResponseWriter, r *http.Request) {
	overview, err := h.Stats.Overview(r.Context())
	if err != nil {
		h.Logger.Error("STATS", fmt.Sprintf("Overview failed: %v", err))
		sendError(w, http.StatusInternalServerError, "Erro interno.")
		return
	}

	labels, err := h.Buttons.Labels(r.Context())
	if err != nil {
		h.Logger.Error("STATS", fmt.Sprintf("Labels failed: %v", err))
		sendError(w, http.StatusInternalServerError, "Erro interno.")
		return
	}
	overview.ButtonLabels = labels

	sendJSON(w, http.StatusOK, overview)
}

// GetKioskQR serves a QR code of the kiosk URL so a phone can open the
// kiosk from the admin view.
func (h *Handler) GetKioskQR(w http.ResponseWriter, r *http.Request) {
	png, err := qr.KioskLinkPNG(h.KioskURL)
	if err != nil {
		h.Logger.Error("STATS", fmt.Sprintf("QR generation failed: %v", err))
		sendError(w, http.StatusInternalServerError, "Erro interno.")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, map[string]string{"error": message})
}
