package clicks_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	buttons "kiosk-service/internal/buttons/service"
	clicks "kiosk-service/internal/clicks/service"
	"kiosk-service/internal/logger"
	"kiosk-service/internal/models"
)

type Handler struct {
	Clicks   *clicks.ClickService
	Buttons  *buttons.ButtonService
	Logger   *logger.Logger
	ClickCap int // payload cap for /api/clicks/today
}

func NewHandler(clickSvc *clicks.ClickService, buttonSvc *buttons.ButtonService, log *logger.Logger, clickCap int) *Handler {
	return &Handler{Clicks: clickSvc, Buttons: buttonSvc, Logger: log, ClickCap: clickCap}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/click", h.PostClick)
	r.Get("/status", h.GetStatus)
	r.Get("/clicks/today", h.GetClicksToday)
}

type clickRequest struct {
	ButtonID int    `json:"button_id"`
	Button   string `json:"button"`
}

// PostClick records one press. The body carries button_id, or for the
// legacy kiosk variant a display label that is resolved to its id first.
func (h *Handler) PostClick(w http.ResponseWriter, r *http.Request) {
	var body clickRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		sendError(w, http.StatusBadRequest, "JSON inválido.")
		return
	}

	buttonID := body.ButtonID
	if buttonID == 0 && body.Button != "" {
		id, err := h.Buttons.ResolveLabel(r.Context(), body.Button)
		if err != nil {
			sendError(w, http.StatusBadRequest, "Botão inválido.")
			return
		}
		buttonID = id
	}

	event, err := h.Clicks.RecordClick(r.Context(), buttonID)
	if err != nil {
		if errors.Is(err, clicks.ErrInvalidButton) {
			sendError(w, http.StatusBadRequest, "Botão inválido.")
			return
		}
		h.Logger.Error("CLICK", fmt.Sprintf("RecordClick failed: %v", err))
		sendError(w, http.StatusInternalServerError, "Erro ao registar clique.")
		return
	}

	h.attachLabel(r, event)
	sendJSON(w, http.StatusOK, event)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	todayISO, todayDisplay := h.Clicks.Today()

	counter, err := h.Clicks.CountAll(r.Context())
	if err != nil {
		h.Logger.Error("STATUS", fmt.Sprintf("CountAll failed: %v", err))
		sendError(w, http.StatusInternalServerError, "Erro interno.")
		return
	}
	clicksToday, err := h.Clicks.Count(r.Context(), todayISO)
	if err != nil {
		h.Logger.Error("STATUS", fmt.Sprintf("Count failed: %v", err))
		sendError(w, http.StatusInternalServerError, "Erro interno.")
		return
	}
	lastClick, err := h.Clicks.LastClick(r.Context(), todayISO)
	if err != nil {
		h.Logger.Error("STATUS", fmt.Sprintf("LastClick failed: %v", err))
		sendError(w, http.StatusInternalServerError, "Erro interno.")
		return
	}
	if lastClick != nil {
		h.attachLabel(r, lastClick)
	}

	sendJSON(w, http.StatusOK, map[string]any{
		"date":        todayDisplay,
		"dateIso":     todayISO,
		"counter":     counter,
		"clicksToday": clicksToday,
		"lastClick":   lastClick,
	})
}

func (h *Handler) GetClicksToday(w http.ResponseWriter, r *http.Request) {
	todayISO, _ := h.Clicks.Today()

	events, err := h.Clicks.ClicksOn(r.Context(), todayISO)
	if err != nil {
		h.Logger.Error("CLICKS", fmt.Sprintf("ClicksOn failed: %v", err))
		sendError(w, http.StatusInternalServerError, "Erro interno.")
		return
	}

	// Keep the payload bounded on busy days.
	if h.ClickCap > 0 && len(events) > h.ClickCap {
		events = events[len(events)-h.ClickCap:]
	}

	// One label lookup for the whole page, not one per event.
	labels, err := h.Buttons.Labels(r.Context())
	if err != nil {
		labels = nil
	}
	for i := range events {
		if label, ok := labels[events[i].ButtonID]; ok {
			events[i].Button = label
		} else {
			events[i].Button = buttons.DefaultLabel(events[i].ButtonID)
		}
	}

	sendJSON(w, http.StatusOK, map[string]any{
		"dateIso": todayISO,
		"clicks":  events,
	})
}

// attachLabel decorates an event with its button's display label. A lookup
// failure falls back to the default label rather than failing the request.
func (h *Handler) attachLabel(r *http.Request, event *models.ClickEvent) {
	cfg, err := h.Buttons.Get(r.Context(), event.ButtonID)
	if err != nil {
		event.Button = buttons.DefaultLabel(event.ButtonID)
		return
	}
	event.Button = cfg.Label
}

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, map[string]string{"error": message})
}
