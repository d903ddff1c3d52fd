// Package model はドメインモデルを定義する。
package model

import "time"

// 認証プロバイダー
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// User はサービス利用ユーザー（プロフィール）を表す。
// PasswordHashはパスワード認証を行わないユーザーでは空になる。
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword はパスワード認証が設定済みかを返す。
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Identity はログイン手段（パスワード、外部IdP）との紐付け情報を表す。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired は指定時刻時点でセッションが期限切れかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
