package service

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"kiosk-service/internal/buttons/db"
)

func setupTestButtons(t *testing.T) (*ButtonService, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	buttonDB := &db.DB{Bun: bunDB}
	if err := buttonDB.CreateSchema(context.Background()); err != nil {
		t.Fatalf("Failed to create button_configs table: %v", err)
	}

	return NewButtonService(buttonDB, 4, 40, 2*1024*1024), bunDB
}

func TestGetDefaultsForUnsetButton(t *testing.T) {
	svc, bunDB := setupTestButtons(t)
	defer bunDB.Close()

	cfg, err := svc.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Botão 3", cfg.Label)
	assert.Empty(t, cfg.Icon)

	_, err = svc.Get(context.Background(), 0)
	assert.ErrorIs(t, err, ErrUnknownButton)
	_, err = svc.Get(context.Background(), 5)
	assert.ErrorIs(t, err, ErrUnknownButton)
}

func TestSetLabelTrimsAndPersists(t *testing.T) {
	svc, bunDB := setupTestButtons(t)
	defer bunDB.Close()

	cfg, err := svc.SetLabel(context.Background(), 2, "  Snack  ")
	require.NoError(t, err)
	assert.Equal(t, "Snack", cfg.Label)

	cfg, err = svc.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Snack", cfg.Label)

	// Renaming again overwrites in place.
	cfg, err = svc.SetLabel(context.Background(), 2, "Café")
	require.NoError(t, err)
	assert.Equal(t, "Café", cfg.Label)
}

func TestSetLabelRejectsInvalid(t *testing.T) {
	svc, bunDB := setupTestButtons(t)
	defer bunDB.Close()

	_, err := svc.SetLabel(context.Background(), 1, "   ")
	assert.ErrorIs(t, err, ErrInvalidLabel)

	_, err = svc.SetLabel(context.Background(), 1, strings.Repeat("a", 41))
	assert.ErrorIs(t, err, ErrInvalidLabel)

	// 40 runes is the limit, multi-byte runes count as one.
	_, err = svc.SetLabel(context.Background(), 1, strings.Repeat("ã", 40))
	assert.NoError(t, err)

	_, err = svc.SetLabel(context.Background(), 9, "Snack")
	assert.ErrorIs(t, err, ErrUnknownButton)
}

func TestListFillsDefaults(t *testing.T) {
	svc, bunDB := setupTestButtons(t)
	defer bunDB.Close()

	_, err := svc.SetLabel(context.Background(), 2, "Snack")
	require.NoError(t, err)

	configs, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, configs, 4)
	assert.Equal(t, "Botão 1", configs[0].Label)
	assert.Equal(t, "Snack", configs[1].Label)
	assert.Equal(t, "Botão 3", configs[2].Label)
	assert.Equal(t, "Botão 4", configs[3].Label)
}

func TestSetIconAndServe(t *testing.T) {
	svc, bunDB := setupTestButtons(t)
	defer bunDB.Close()

	svc.now = func() time.Time {
		return time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	}

	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	cfg, err := svc.SetIcon(context.Background(), 1, png, "image/png")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC).Unix(), cfg.IconUpdatedAt)

	data, mime, err := svc.Icon(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(png, data))
	assert.Equal(t, "image/png", mime)

	// Replacing the icon bumps the cache-bust version.
	svc.now = func() time.Time {
		return time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)
	}
	updated, err := svc.SetIcon(context.Background(), 1, png, "image/webp")
	require.NoError(t, err)
	assert.Greater(t, updated.IconUpdatedAt, cfg.IconUpdatedAt)
}

func TestSetIconNormalizesMime(t *testing.T) {
	svc, bunDB := setupTestButtons(t)
	defer bunDB.Close()

	cfg, err := svc.SetIcon(context.Background(), 2, []byte("<svg/>"), "IMAGE/SVG+XML; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", cfg.IconMime)
}

func TestSetIconRejectsBadUploads(t *testing.T) {
	svc, bunDB := setupTestButtons(t)
	defer bunDB.Close()

	_, err := svc.SetIcon(context.Background(), 1, []byte("hello"), "text/plain")
	assert.ErrorIs(t, err, ErrUnsupportedMediaType)

	oversized := make([]byte, 2*1024*1024+1)
	_, err = svc.SetIcon(context.Background(), 1, oversized, "image/png")
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	// Rejected uploads leave the button without an icon.
	_, _, err = svc.Icon(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoIcon)
}

func TestResolveLabel(t *testing.T) {
	svc, bunDB := setupTestButtons(t)
	defer bunDB.Close()

	_, err := svc.SetLabel(context.Background(), 2, "Snack")
	require.NoError(t, err)

	id, err := svc.ResolveLabel(context.Background(), "Snack")
	assert.NoError(t, err)
	assert.Equal(t, 2, id)

	// Default labels still resolve, even for renamed buttons.
	id, err = svc.ResolveLabel(context.Background(), "Botão 2")
	assert.NoError(t, err)
	assert.Equal(t, 2, id)

	id, err = svc.ResolveLabel(context.Background(), "Botão 3")
	assert.NoError(t, err)
	assert.Equal(t, 3, id)

	_, err = svc.ResolveLabel(context.Background(), "Desconhecido")
	assert.ErrorIs(t, err, ErrUnknownButton)
}

func TestLabels(t *testing.T) {
	svc, bunDB := setupTestButtons(t)
	defer bunDB.Close()

	_, err := svc.SetLabel(context.Background(), 4, "Água")
	require.NoError(t, err)

	labels, err := svc.Labels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "Botão 1", 2: "Botão 2", 3: "Botão 3", 4: "Água"}, labels)
}
