package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"kiosk-service/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// CreateSchema creates the button_configs table when running without
// migrations (sqlite deployments and tests).
func (d *DB) CreateSchema(ctx context.Context) error {
	_, err := d.Bun.NewCreateTable().
		Model((*models.ButtonConfig)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// GetButton returns the stored config for a button, or nil when the button
// was never configured.
func (d *DB) GetButton(ctx context.Context, buttonID int) (*models.ButtonConfig, error) {
	var cfg models.ButtonConfig
	err := d.Bun.NewSelect().
		Model(&cfg).
		Where("button_id = ?", buttonID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (d *DB) ListButtons(ctx context.Context) ([]models.ButtonConfig, error) {
	var configs []models.ButtonConfig
	err := d.Bun.NewSelect().
		Model(&configs).
		Order("button_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func (d *DB) InsertButton(ctx context.Context, cfg *models.ButtonConfig) error {
	_, err := d.Bun.NewInsert().Model(cfg).Exec(ctx)
	return err
}

// UpdateLabel overwrites the label only; icon fields are untouched.
func (d *DB) UpdateLabel(ctx context.Context, cfg *models.ButtonConfig) error {
	_, err := d.Bun.NewUpdate().
		Model(cfg).
		Column("label").
		Where("button_id = ?", cfg.ButtonID).
		Exec(ctx)
	return err
}

// UpdateIcon overwrites the icon, its mime type and the version token.
func (d *DB) UpdateIcon(ctx context.Context, cfg *models.ButtonConfig) error {
	_, err := d.Bun.NewUpdate().
		Model(cfg).
		Column("icon", "icon_mime", "icon_updated_at").
		Where("button_id = ?", cfg.ButtonID).
		Exec(ctx)
	return err
}
