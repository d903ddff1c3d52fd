package auth

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/secondbrain/internal/model"
)

// MinPasswordLength はパスワードの最小文字数。
const MinPasswordLength = 6

var validate = validator.New()

// normalizeEmail は前後の空白を除去し小文字化したメールアドレスを返す。
// 形式が不正な場合はauth/invalid-emailを返す。
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email"); err != nil {
		return "", model.NewAuthError(model.ErrCodeInvalidEmail)
	}
	return email, nil
}

// checkPasswordStrength はパスワードの長さを検証する。
func checkPasswordStrength(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return model.NewAuthError(model.ErrCodeWeakPassword)
	}
	return nil
}

func hashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func passwordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
