package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"kiosk-service/internal/models"
)

var (
	ErrUnknownButton        = errors.New("botão inválido")
	ErrInvalidLabel         = errors.New("nome inválido")
	ErrUnsupportedMediaType = errors.New("formato de imagem não suportado")
	ErrPayloadTooLarge      = errors.New("imagem demasiado grande")
	ErrNoIcon               = errors.New("ícone não encontrado")
)

// allowedIconMimes is the icon upload whitelist.
var allowedIconMimes = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/webp":    true,
	"image/svg+xml": true,
}

type ButtonDBLayer interface {
	GetButton(ctx context.Context, buttonID int) (*models.ButtonConfig, error)
	ListButtons(ctx context.Context) ([]models.ButtonConfig, error)
	InsertButton(ctx context.Context, cfg *models.ButtonConfig) error
	UpdateLabel(ctx context.Context, cfg *models.ButtonConfig) error
	UpdateIcon(ctx context.Context, cfg *models.ButtonConfig) error
}

// ButtonService owns label/icon metadata for the fixed button range 1..N.
// Buttons are never created or deleted, only overwritten; an unconfigured
// button reads as a default-labeled, icon-less config.
type ButtonService struct {
	DB           ButtonDBLayer
	Buttons      int
	MaxLabelLen  int
	MaxIconBytes int

	now func() time.Time
}

func NewButtonService(db ButtonDBLayer, buttons, maxLabelLen, maxIconBytes int) *ButtonService {
	return &ButtonService{
		DB:           db,
		Buttons:      buttons,
		MaxLabelLen:  maxLabelLen,
		MaxIconBytes: maxIconBytes,
		now:          time.Now,
	}
}

// DefaultLabel is the display name of a button that was never renamed.
func DefaultLabel(buttonID int) string {
	return fmt.Sprintf("Botão %d", buttonID)
}

func (s *ButtonService) validID(buttonID int) bool {
	return buttonID >= 1 && buttonID <= s.Buttons
}

// Get never fails for a valid id: unset buttons read as defaults.
func (s *ButtonService) Get(ctx context.Context, buttonID int) (*models.ButtonConfig, error) {
	if !s.validID(buttonID) {
		return nil, ErrUnknownButton
	}
	cfg, err := s.DB.GetButton(ctx, buttonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load button %d: %w", buttonID, err)
	}
	if cfg == nil {
		return &models.ButtonConfig{ButtonID: buttonID, Label: DefaultLabel(buttonID)}, nil
	}
	if cfg.Label == "" {
		cfg.Label = DefaultLabel(buttonID)
	}
	return cfg, nil
}

// List returns configs for every configured id, ascending, defaults filled
// in for buttons that were never written.
func (s *ButtonService) List(ctx context.Context) ([]models.ButtonConfig, error) {
	stored, err := s.DB.ListButtons(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list buttons: %w", err)
	}

	byID := make(map[int]models.ButtonConfig, len(stored))
	for _, cfg := range stored {
		byID[cfg.ButtonID] = cfg
	}

	configs := make([]models.ButtonConfig, 0, s.Buttons)
	for id := 1; id <= s.Buttons; id++ {
		cfg, ok := byID[id]
		if !ok {
			cfg = models.ButtonConfig{ButtonID: id, Label: DefaultLabel(id)}
		}
		if cfg.Label == "" {
			cfg.Label = DefaultLabel(id)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func (s *ButtonService) SetLabel(ctx context.Context, buttonID int, label string) (*models.ButtonConfig, error) {
	if !s.validID(buttonID) {
		return nil, ErrUnknownButton
	}

	label = strings.TrimSpace(label)
	if label == "" || utf8.RuneCountInString(label) > s.MaxLabelLen {
		return nil, ErrInvalidLabel
	}

	existing, err := s.DB.GetButton(ctx, buttonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load button %d: %w", buttonID, err)
	}
	if existing == nil {
		cfg := &models.ButtonConfig{ButtonID: buttonID, Label: label}
		if err := s.DB.InsertButton(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to save label for button %d: %w", buttonID, err)
		}
		return cfg, nil
	}

	existing.Label = label
	if err := s.DB.UpdateLabel(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to save label for button %d: %w", buttonID, err)
	}
	return existing, nil
}

func (s *ButtonService) SetIcon(ctx context.Context, buttonID int, data []byte, mimeType string) (*models.ButtonConfig, error) {
	if !s.validID(buttonID) {
		return nil, ErrUnknownButton
	}

	// Declared type may carry parameters ("image/svg+xml; charset=utf-8").
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if !allowedIconMimes[mimeType] {
		return nil, ErrUnsupportedMediaType
	}
	if len(data) > s.MaxIconBytes {
		return nil, ErrPayloadTooLarge
	}

	existing, err := s.DB.GetButton(ctx, buttonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load button %d: %w", buttonID, err)
	}

	version := s.now().Unix()
	if existing == nil {
		cfg := &models.ButtonConfig{
			ButtonID:      buttonID,
			Label:         DefaultLabel(buttonID),
			Icon:          data,
			IconMime:      mimeType,
			IconUpdatedAt: version,
		}
		if err := s.DB.InsertButton(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to save icon for button %d: %w", buttonID, err)
		}
		return cfg, nil
	}

	existing.Icon = data
	existing.IconMime = mimeType
	existing.IconUpdatedAt = version
	if err := s.DB.UpdateIcon(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to save icon for button %d: %w", buttonID, err)
	}
	return existing, nil
}

// Icon returns the stored image for a button.
func (s *ButtonService) Icon(ctx context.Context, buttonID int) ([]byte, string, error) {
	if !s.validID(buttonID) {
		return nil, "", ErrUnknownButton
	}
	cfg, err := s.DB.GetButton(ctx, buttonID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load button %d: %w", buttonID, err)
	}
	if cfg == nil || len(cfg.Icon) == 0 {
		return nil, "", ErrNoIcon
	}
	return cfg.Icon, cfg.IconMime, nil
}

// ResolveLabel maps a display label back to its button id, for the legacy
// kiosk variant that posts {button: "Botão 2"}. Labels are display
// attributes; the id stays the identity key.
func (s *ButtonService) ResolveLabel(ctx context.Context, label string) (int, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return 0, ErrUnknownButton
	}
	configs, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, cfg := range configs {
		if cfg.Label == label || DefaultLabel(cfg.ButtonID) == label {
			return cfg.ButtonID, nil
		}
	}
	return 0, ErrUnknownButton
}

// Labels returns the id→label map the admin view renders next to charts.
func (s *ButtonService) Labels(ctx context.Context) (map[int]string, error) {
	configs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	labels := make(map[int]string, len(configs))
	for _, cfg := range configs {
		labels[cfg.ButtonID] = cfg.Label
	}
	return labels, nil
}
