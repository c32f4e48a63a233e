package models

import "time"

// CollectEntry is a daily photo saved for the broadcast channel.
type CollectEntry struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	ChatID      int64     `json:"chat_id"`
	MessageID   int       `json:"message_id"`
	PhotoFileID string    `json:"photo_file_id"`
	Comment     string    `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Published   bool      `json:"published_to_channel"`
}

// FallbackPhoto is a stock photo posted when a day passes without a new entry.
type FallbackPhoto struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	PhotoFileID string     `json:"photo_file_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
}
