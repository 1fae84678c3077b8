package models

import (
	"github.com/uptrace/bun"
)

// ButtonConfig holds the mutable label/icon metadata for a fixed-id button.
// IconUpdatedAt is a cache-busting version token, not a correctness field.
type ButtonConfig struct {
	bun.BaseModel `bun:"table:button_configs"`

	ButtonID      int    `bun:"button_id,pk" json:"button_id"`
	Label         string `bun:"label,notnull" json:"label"`
	Icon          []byte `bun:"icon" json:"-"`
	IconMime      string `bun:"icon_mime" json:"-"`
	IconUpdatedAt int64  `bun:"icon_updated_at" json:"icon_updated_at,omitempty"`

	IconURL string `bun:"-" json:"icon_url,omitempty"`
}
