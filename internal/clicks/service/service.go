package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"kiosk-service/internal/logger"
	"kiosk-service/internal/models"
)

// ErrInvalidButton is returned when a click names a button outside the
// configured 1..N range.
var ErrInvalidButton = errors.New("botão inválido")

type ClickDBLayer interface {
	InsertClick(ctx context.Context, event *models.ClickEvent) error
	MaxSeq(ctx context.Context) (int64, error)
	ClicksOn(ctx context.Context, date string) ([]models.ClickEvent, error)
	LastClickOn(ctx context.Context, date string) (*models.ClickEvent, error)
	CountOn(ctx context.Context, date string) (int, error)
	CountAll(ctx context.Context) (int, error)
}

type ClickPublisher interface {
	Publish(topic string, key string, value []byte) error
}

// ClickService is the event store: it owns the global sequence counter and
// the append critical section.
type ClickService struct {
	DB       ClickDBLayer
	Kafka    ClickPublisher // nil when the click stream is disabled
	Topic    string
	Buttons  int
	Logger   *logger.Logger
	Location *time.Location

	mu        sync.Mutex
	maxSeq    int64
	seqLoaded bool

	now func() time.Time
}

func NewClickService(db ClickDBLayer, buttons int, loc *time.Location, log *logger.Logger) *ClickService {
	if loc == nil {
		loc = time.Local
	}
	return &ClickService{
		DB:       db,
		Buttons:  buttons,
		Logger:   log,
		Location: loc,
		now:      time.Now,
	}
}

// RecordClick appends one click. The click stream publish happens only
// after the append commits and the lock is released, so a slow broker never
// stalls other appends.
func (s *ClickService) RecordClick(ctx context.Context, buttonID int) (*models.ClickEvent, error) {
	if buttonID < 1 || buttonID > s.Buttons {
		return nil, ErrInvalidButton
	}

	event, err := s.append(ctx, buttonID)
	if err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.LogClick(event.Seq, event.ButtonID)
	}
	s.publish(event)

	return event, nil
}

// append is the critical section: sequence assignment, timestamp capture and
// the insert happen under one lock, so if event A's seq is below event B's,
// A's timestamp is not after B's, and a failed insert never consumes a seq.
func (s *ClickService) append(ctx context.Context, buttonID int) (*models.ClickEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seqLoaded {
		max, err := s.DB.MaxSeq(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load sequence counter: %w", err)
		}
		s.maxSeq = max
		s.seqLoaded = true
	}

	now := s.now().In(s.Location)
	event := &models.ClickEvent{
		Seq:       s.maxSeq + 1,
		ButtonID:  buttonID,
		Timestamp: now,
		Date:      now.Format("2006-01-02"),
		Time:      now.Format("15:04"),
		Hour:      now.Hour(),
	}

	if err := s.DB.InsertClick(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to append click: %w", err)
	}
	s.maxSeq = event.Seq

	return event, nil
}

// publish offers the committed event to the click stream. Failures are
// logged and never surfaced to the kiosk caller.
func (s *ClickService) publish(event *models.ClickEvent) {
	if s.Kafka == nil {
		return
	}
	value, err := json.Marshal(event)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("Failed to marshal click %d: %v", event.Seq, err))
		}
		return
	}
	if err := s.Kafka.Publish(s.Topic, strconv.FormatInt(event.Seq, 10), value); err != nil {
		if s.Logger != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish click %d: %v", event.Seq, err))
		}
	}
}

func (s *ClickService) ClicksOn(ctx context.Context, date string) ([]models.ClickEvent, error) {
	return s.DB.ClicksOn(ctx, date)
}

func (s *ClickService) LastClick(ctx context.Context, date string) (*models.ClickEvent, error) {
	return s.DB.LastClickOn(ctx, date)
}

func (s *ClickService) Count(ctx context.Context, date string) (int, error) {
	return s.DB.CountOn(ctx, date)
}

func (s *ClickService) CountAll(ctx context.Context) (int, error) {
	return s.DB.CountAll(ctx)
}

// Today returns the current date in the kiosk timezone, evaluated fresh on
// every call: the day boundary shifts exactly at local midnight.
func (s *ClickService) Today() (iso string, display string) {
	now := s.now().In(s.Location)
	return now.Format("2006-01-02"), now.Format("02/01/2006")
}
