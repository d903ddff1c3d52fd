package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/secondbrain/internal/model"
)

var (
	errInvalidResetToken = errors.New("invalid reset token")
	errResetTokenExpired = errors.New("reset token expired")
)

var resetTokenSalt = []byte("secondbrain.auth.reset_token")

var tsEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// ResetTokens はパスワード再設定トークンを発行・検証する。
//
// トークンは「ユーザーID.発行時刻-署名」の形式で、署名にはユーザーの現在の
// パスワードハッシュを含める。パスワードを変更すると発行済みトークンはすべて無効になる。
type ResetTokens struct {
	key [32]byte
	ttl time.Duration
	now func() time.Time
}

// NewResetTokens はResetTokensを生成する。
func NewResetTokens(secret string, ttl time.Duration) *ResetTokens {
	return &ResetTokens{
		key: sha256.Sum256(append(append([]byte{}, resetTokenSalt...), secret...)),
		ttl: ttl,
		now: time.Now,
	}
}

// Make はユーザーのトークンを発行する。
func (t *ResetTokens) Make(user *model.User) string {
	return t.makeWithTimestamp(user, t.now().Unix())
}

// UserID はトークンからユーザーIDを取り出す。署名は検証しない。
func (t *ResetTokens) UserID(token string) (string, error) {
	uid, _, ok := strings.Cut(token, ".")
	if !ok || uid == "" {
		return "", errInvalidResetToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", errInvalidResetToken
	}
	return string(raw), nil
}

// Verify はトークンがユーザーに対して有効かを検証する。
func (t *ResetTokens) Verify(user *model.User, token string) error {
	_, rest, ok := strings.Cut(token, ".")
	if !ok {
		return errInvalidResetToken
	}
	tsPart, _, ok := strings.Cut(rest, "-")
	if !ok {
		return errInvalidResetToken
	}
	data, err := tsEncoding.DecodeString(tsPart)
	if err != nil {
		return errInvalidResetToken
	}
	ts, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return errInvalidResetToken
	}

	expected := t.makeWithTimestamp(user, ts)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 0 {
		return errInvalidResetToken
	}
	if t.now().Sub(time.Unix(ts, 0)) > t.ttl {
		return errResetTokenExpired
	}
	return nil
}

func (t *ResetTokens) makeWithTimestamp(user *model.User, ts int64) string {
	uid := base64.RawURLEncoding.EncodeToString([]byte(user.ID))
	tsB32 := tsEncoding.EncodeToString([]byte(strconv.FormatInt(ts, 10)))
	return fmt.Sprintf("%s.%s-%s", uid, tsB32, t.sign(user, ts))
}

func (t *ResetTokens) sign(user *model.User, ts int64) string {
	h := hmac.New(sha256.New, t.key[:])
	h.Write([]byte(user.ID))
	h.Write([]byte{0})
	h.Write([]byte(user.PasswordHash))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(ts, 10)))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
