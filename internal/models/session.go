package models

import "time"

// Session is an authenticated admin context. Kept in memory only; a restart
// logs everyone out, which is acceptable for a PIN-gated kiosk.
type Session struct {
	Token     string    `json:"-"`
	JTI       string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
