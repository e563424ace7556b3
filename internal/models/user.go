package models

import "time"

// TelegramUser is the identity parsed from the mini-app's signed initData.
type TelegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`
}

// UserSession is one authenticated mini-app session.
type UserSession struct {
	ID           int64        `json:"id"`
	SessionID    string       `json:"session_id"`
	TelegramUser TelegramUser `json:"telegram_user"`
	CreatedAt    time.Time    `json:"created_at"`
	LastAccessed time.Time    `json:"last_accessed"`
}
