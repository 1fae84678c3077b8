package buttons_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	buttons "kiosk-service/internal/buttons/service"
	"kiosk-service/internal/logger"
	"kiosk-service/internal/models"
)

type Handler struct {
	Buttons      *buttons.ButtonService
	Logger       *logger.Logger
	MaxIconBytes int
}

func NewHandler(buttonSvc *buttons.ButtonService, log *logger.Logger, maxIconBytes int) *Handler {
	return &Handler{Buttons: buttonSvc, Logger: log, MaxIconBytes: maxIconBytes}
}

// RegisterPublicRoutes mounts the read endpoints.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/buttons/config", h.GetConfig)
	r.Get("/buttons/icon/{buttonID}", h.GetIcon)
}

// RegisterProtectedRoutes mounts the mutating endpoints behind the session
// middleware.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/buttons/config", h.SetLabel)
	r.Post("/buttons/icon/{buttonID}", h.UploadIcon)
}

func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	configs, err := h.Buttons.List(r.Context())
	if err != nil {
		h.Logger.Error("CONFIG", fmt.Sprintf("List failed: %v", err))
		sendError(w, http.StatusInternalServerError, "Erro interno.")
		return
	}
	for i := range configs {
		attachIconURL(&configs[i])
	}
	sendJSON(w, http.StatusOK, map[string]any{"buttons": configs})
}

func (h *Handler) SetLabel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ButtonID int    `json:"button_id"`
		Label    string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		sendError(w, http.StatusBadRequest, "JSON inválido.")
		return
	}

	cfg, err := h.Buttons.SetLabel(r.Context(), body.ButtonID, body.Label)
	if err != nil {
		switch {
		case errors.Is(err, buttons.ErrUnknownButton):
			sendError(w, http.StatusBadRequest, "Botão inválido.")
		case errors.Is(err, buttons.ErrInvalidLabel):
			sendError(w, http.StatusBadRequest, "Nome inválido.")
		default:
			h.Logger.Error("CONFIG", fmt.Sprintf("SetLabel failed: %v", err))
			sendError(w, http.StatusInternalServerError, "Erro interno.")
		}
		return
	}

	h.Logger.LogConfig(cfg.ButtonID, fmt.Sprintf("label set to %q", cfg.Label))
	attachIconURL(cfg)
	sendJSON(w, http.StatusOK, cfg)
}

// UploadIcon takes a multipart form with a single "icon" file field.
func (h *Handler) UploadIcon(w http.ResponseWriter, r *http.Request) {
	buttonID, err := strconv.Atoi(chi.URLParam(r, "buttonID"))
	if err != nil {
		sendError(w, http.StatusBadRequest, "Botão inválido.")
		return
	}

	// Cap the request body a little above the icon limit so oversized
	// uploads fail fast instead of buffering fully.
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.MaxIconBytes)+64*1024)
	if err := r.ParseMultipartForm(int64(h.MaxIconBytes)); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			sendError(w, http.StatusRequestEntityTooLarge, "Imagem demasiado grande.")
			return
		}
		sendError(w, http.StatusBadRequest, "Pedido inválido.")
		return
	}

	file, header, err := r.FormFile("icon")
	if err != nil {
		sendError(w, http.StatusBadRequest, "Ficheiro 'icon' em falta.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.Logger.Error("CONFIG", fmt.Sprintf("Icon read failed: %v", err))
		sendError(w, http.StatusInternalServerError, "Erro interno.")
		return
	}

	if _, err := h.Buttons.SetIcon(r.Context(), buttonID, data, header.Header.Get("Content-Type")); err != nil {
		switch {
		case errors.Is(err, buttons.ErrUnknownButton):
			sendError(w, http.StatusBadRequest, "Botão inválido.")
		case errors.Is(err, buttons.ErrUnsupportedMediaType):
			sendError(w, http.StatusUnsupportedMediaType, "Formato de imagem não suportado.")
		case errors.Is(err, buttons.ErrPayloadTooLarge):
			sendError(w, http.StatusRequestEntityTooLarge, "Imagem demasiado grande.")
		default:
			h.Logger.Error("CONFIG", fmt.Sprintf("SetIcon failed: %v", err))
			sendError(w, http.StatusInternalServerError, "Erro interno.")
		}
		return
	}

	h.Logger.LogConfig(buttonID, fmt.Sprintf("icon updated (%d bytes)", len(data)))
	sendJSON(w, http.StatusOK, map[string]any{})
}

func (h *Handler) GetIcon(w http.ResponseWriter, r *http.Request) {
	buttonID, err := strconv.Atoi(chi.URLParam(r, "buttonID"))
	if err != nil {
		sendError(w, http.StatusBadRequest, "Botão inválido.")
		return
	}

	data, mimeType, err := h.Buttons.Icon(r.Context(), buttonID)
	if err != nil {
		switch {
		case errors.Is(err, buttons.ErrUnknownButton):
			sendError(w, http.StatusBadRequest, "Botão inválido.")
		case errors.Is(err, buttons.ErrNoIcon):
			sendError(w, http.StatusNotFound, "Ícone não encontrado.")
		default:
			h.Logger.Error("CONFIG", fmt.Sprintf("Icon failed: %v", err))
			sendError(w, http.StatusInternalServerError, "Erro interno.")
		}
		return
	}

	w.Header().Set("Content-Type", mimeType)
	// Clients cache-bust with ?v=icon_updated_at, so long-lived caching is
	// safe here.
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func attachIconURL(cfg *models.ButtonConfig) {
	if len(cfg.Icon) > 0 || cfg.IconUpdatedAt > 0 {
		cfg.IconURL = fmt.Sprintf("/api/buttons/icon/%d", cfg.ButtonID)
	}
}

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, map[string]string{"error": message})
}
