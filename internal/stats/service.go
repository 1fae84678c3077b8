package stats

import (
	"context"
	"time"

	"kiosk-service/internal/models"
)

// StatsDBLayer is the read-only slice of the click store the aggregator
// needs.
type StatsDBLayer interface {
	CountAll(ctx context.Context) (int, error)
	CountOn(ctx context.Context, date string) (int, error)
	CountPerButton(ctx context.Context) (map[int]int, error)
	CountPerDay(ctx context.Context, from, to string) (map[string]int, error)
	CountPerHour(ctx context.Context, date string) (map[int]int, error)
	LastClickOn(ctx context.Context, date string) (*models.ClickEvent, error)
}

// DayCount is one entry of the trailing per-day series.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// HourCount is one entry of today's per-hour series.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// Overview is the aggregate the admin view renders.
type Overview struct {
	Total        int            `json:"total"`
	Today        int            `json:"today"`
	PerButton    map[int]int    `json:"perButton"`
	PerDay       []DayCount     `json:"perDay"`
	PerHourToday []HourCount    `json:"perHourToday"`
	ButtonLabels map[int]string `json:"buttonLabels"`
}

// Service is a pure read-side view over the click store; it never mutates.
type Service struct {
	DB         StatsDBLayer
	Buttons    int
	WindowDays int
	Location   *time.Location

	now func() time.Time
}

func NewService(db StatsDBLayer, buttons, windowDays int, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		DB:         db,
		Buttons:    buttons,
		WindowDays: windowDays,
		Location:   loc,
		now:        time.Now,
	}
}

func (s *Service) today() string {
	return s.now().In(s.Location).Format("2006-01-02")
}

func (s *Service) Total(ctx context.Context) (int, error) {
	return s.DB.CountAll(ctx)
}

func (s *Service) Today(ctx context.Context) (int, error) {
	return s.DB.CountOn(ctx, s.today())
}

// PerButton returns all-time counts for every configured button id, zero
// for buttons that were never clicked.
func (s *Service) PerButton(ctx context.Context) (map[int]int, error) {
	counts, err := s.DB.CountPerButton(ctx)
	if err != nil {
		return nil, err
	}
	filled := make(map[int]int, s.Buttons)
	for id := 1; id <= s.Buttons; id++ {
		filled[id] = counts[id]
	}
	return filled, nil
}

// PerDay returns one entry per calendar date in the trailing window, oldest
// first, including dates with zero clicks.
func (s *Service) PerDay(ctx context.Context) ([]DayCount, error) {
	end := s.now().In(s.Location)
	start := end.AddDate(0, 0, -(s.WindowDays - 1))

	counts, err := s.DB.CountPerDay(ctx, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}

	series := make([]DayCount, 0, s.WindowDays)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := day.Format("2006-01-02")
		series = append(series, DayCount{Date: date, Count: counts[date]})
	}
	return series, nil
}

// PerHourToday buckets today's clicks by hour; every hour 0..23 is present.
func (s *Service) PerHourToday(ctx context.Context) ([]HourCount, error) {
	counts, err := s.DB.CountPerHour(ctx, s.today())
	if err != nil {
		return nil, err
	}
	series := make([]HourCount, 24)
	for hour := 0; hour < 24; hour++ {
		series[hour] = HourCount{Hour: hour, Count: counts[hour]}
	}
	return series, nil
}

func (s *Service) LastClick(ctx context.Context) (*models.ClickEvent, error) {
	return s.DB.LastClickOn(ctx, s.today())
}

// Overview assembles the full admin aggregate. ButtonLabels is left for the
// caller, which owns the config store.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	total, err := s.Total(ctx)
	if err != nil {
		return nil, err
	}
	today, err := s.Today(ctx)
	if err != nil {
		return nil, err
	}
	perButton, err := s.PerButton(ctx)
	if err != nil {
		return nil, err
	}
	perDay, err := s.PerDay(ctx)
	if err != nil {
		return nil, err
	}
	perHour, err := s.PerHourToday(ctx)
	if err != nil {
		return nil, err
	}

	return &Overview{
		Total:        total,
		Today:        today,
		PerButton:    perButton,
		PerDay:       perDay,
		PerHourToday: perHour,
	}, nil
}
