package domain

import "time"

// ============================================================
// Users, sessions & settings
// ============================================================

// User is the public profile of a registered person.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// StoredUser is the row kept in the local users table.
type StoredUser struct {
	User
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SessionRecord mirrors the active session so a restart can restore it.
type SessionRecord struct {
	User      User      `json:"user"`
	StartedAt time.Time `json:"startedAt"`
}

// Settings are the per-user preferences.
type Settings struct {
	SoundEnabled         bool   `json:"soundEnabled"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`
	TelegramChatID       *int64 `json:"telegramChatId,omitempty"`
}

// SettingsPatch is the body of PUT /v1/settings. Absent fields keep
// their current value; a chat id of 0 unlinks Telegram.
type SettingsPatch struct {
	SoundEnabled         *bool  `json:"soundEnabled,omitempty"`
	NotificationsEnabled *bool  `json:"notificationsEnabled,omitempty"`
	TelegramChatID       *int64 `json:"telegramChatId,omitempty"`
}

// Apply merges p into s.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.SoundEnabled != nil {
		s.SoundEnabled = *p.SoundEnabled
	}
	if p.NotificationsEnabled != nil {
		s.NotificationsEnabled = *p.NotificationsEnabled
	}
	if p.TelegramChatID != nil {
		if *p.TelegramChatID == 0 {
			s.TelegramChatID = nil
		} else {
			id := *p.TelegramChatID
			s.TelegramChatID = &id
		}
	}
	return s
}

// DefaultSettings returns the values used before the user changes anything.
func DefaultSettings() Settings {
	return Settings{SoundEnabled: true}
}

// ============================================================
// Auth: Request / Response types
// ============================================================

// RegisterRequest is the body for POST /v1/auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by register and login.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
	User        User   `json:"user"`
}
