package domain

import (
	"time"
)

// CoinInfo is the locally cached metadata for a coin (icon cache bookkeeping).
type CoinInfo struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Symbol       string    `gorm:"index" json:"symbol"`
	Name         string    `json:"name"`
	ImageURL     string    `json:"image_url"`
	IconPath     string    `json:"icon_path"`
	LastSyncedAt time.Time `json:"last_synced_at"` // Last icon sync time
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Setting is one entry of the local key-value store (favorites, preferences).
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
