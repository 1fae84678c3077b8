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

// CreateSchema creates the clicks table when running without migrations
// (sqlite deployments and tests).
func (d *DB) CreateSchema(ctx context.Context) error {
	_, err := d.Bun.NewCreateTable().
		Model((*models.ClickEvent)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (d *DB) InsertClick(ctx context.Context, event *models.ClickEvent) error {
	_, err := d.Bun.NewInsert().Model(event).Exec(ctx)
	return err
}

// MaxSeq returns the highest assigned sequence number, 0 for an empty log.
func (d *DB) MaxSeq(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	err := d.Bun.NewRaw("SELECT MAX(seq) FROM clicks").Scan(ctx, &max)
	if err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

func (d *DB) ClicksOn(ctx context.Context, date string) ([]models.ClickEvent, error) {
	var events []models.ClickEvent
	err := d.Bun.NewSelect().
		Model(&events).
		Where("date = ?", date).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (d *DB) LastClickOn(ctx context.Context, date string) (*models.ClickEvent, error) {
	var event models.ClickEvent
	err := d.Bun.NewSelect().
		Model(&event).
		Where("date = ?", date).
		Order("seq DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) CountOn(ctx context.Context, date string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.ClickEvent)(nil)).
		Where("date = ?", date).
		Count(ctx)
}

func (d *DB) CountAll(ctx context.Context) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.ClickEvent)(nil)).
		Count(ctx)
}

// CountPerButton returns all-time click counts keyed by button id. Buttons
// that were never clicked are absent; the stats layer zero-fills them.
func (d *DB) CountPerButton(ctx context.Context) (map[int]int, error) {
	var rows []struct {
		ButtonID int `bun:"button_id"`
		Count    int `bun:"count"`
	}
	err := d.Bun.NewRaw(
		"SELECT button_id, COUNT(*) AS count FROM clicks GROUP BY button_id",
	).Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	counts := make(map[int]int, len(rows))
	for _, row := range rows {
		counts[row.ButtonID] = row.Count
	}
	return counts, nil
}

// CountPerDay returns click counts for dates in [from, to], keyed by the
// stored date string.
func (d *DB) CountPerDay(ctx context.Context, from, to string) (map[string]int, error) {
	var rows []struct {
		Date  string `bun:"date"`
		Count int    `bun:"count"`
	}
	err := d.Bun.NewRaw(
		"SELECT date, COUNT(*) AS count FROM clicks WHERE date >= ? AND date <= ? GROUP BY date",
		from, to,
	).Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Date] = row.Count
	}
	return counts, nil
}

// CountPerHour returns click counts for one date keyed by hour 0..23.
func (d *DB) CountPerHour(ctx context.Context, date string) (map[int]int, error) {
	var rows []struct {
		Hour  int `bun:"hour"`
		Count int `bun:"count"`
	}
	err := d.Bun.NewRaw(
		"SELECT hour, COUNT(*) AS count FROM clicks WHERE date = ? GROUP BY hour",
		date,
	).Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	counts := make(map[int]int, len(rows))
	for _, row := range rows {
		counts[row.Hour] = row.Count
	}
	return counts, nil
}
