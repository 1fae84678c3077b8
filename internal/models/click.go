package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ClickEvent is one immutable button press. Date, Time and Hour are derived
// from Timestamp in the kiosk timezone once, at append time.
type ClickEvent struct {
	bun.BaseModel `bun:"table:clicks"`

	Seq       int64     `bun:"seq,pk" json:"seq"`
	ButtonID  int       `bun:"button_id,notnull" json:"button_id"`
	Timestamp time.Time `bun:"timestamp,notnull" json:"timestamp"`
	Date      string    `bun:"date,notnull" json:"date"`
	Time      string    `bun:"time,notnull" json:"time"`
	Hour      int       `bun:"hour,notnull" json:"-"`

	// Button is the display label at response time, never an identity key.
	Button string `bun:"-" json:"button,omitempty"`
}
