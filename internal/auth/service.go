// Package auth は認証フロー（パスワード、Google OAuth）、セッション管理、
// パスワード再設定を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/secondbrain/internal/mailer"
	"github.com/hitoshi/secondbrain/internal/model"
	"github.com/hitoshi/secondbrain/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	// EmailVerified はプロバイダーがメールアドレスの所有を確認済みかどうか。
	EmailVerified bool
	Name          string
	Provider      string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge    int    // セッション有効期間（秒）
	PasswordResetURL string // 再設定リンクの遷移先。?token=が付与される
	BcryptCost       int    // 0の場合はbcrypt.DefaultCost
}

// Result はログイン・登録の結果。
type Result struct {
	Session *model.Session
	User    *model.User
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	mailer      mailer.Mailer
	resetTokens *ResetTokens
	config      ServiceConfig
}

// NewService はServiceを生成する。oauthがnilの場合、Googleログインは無効になる。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	m mailer.Mailer,
	resetTokens *ResetTokens,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		mailer:      m,
		resetTokens: resetTokens,
		config:      config,
	}
}

// Register はメールアドレスとパスワードでアカウントを作成し、セッションを発行する。
func (s *Service) Register(ctx context.Context, name, email, password string) (*Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewValidationError("El nombre es obligatorio")
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := checkPasswordStrength(password); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		return nil, model.NewAuthError(model.ErrCodeEmailAlreadyInUse)
	}

	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	}
	identity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         user.ID,
		Provider:       model.ProviderPassword,
		ProviderUserID: email,
	}
	if err := s.userRepo.CreateWithIdentity(ctx, user, identity); err != nil {
		return nil, fmt.Errorf("failed to create user and identity: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("provider", model.ProviderPassword),
	)
	return s.signIn(ctx, user)
}

// Login はメールアドレスとパスワードで認証し、セッションを発行する。
// ユーザーが存在しない場合とパスワードが一致しない場合は区別せずauth/invalid-credentialを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil || !user.HasPassword() || !passwordMatches(user.PasswordHash, password) {
		return nil, model.NewAuthError(model.ErrCodeInvalidCredential)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("provider", model.ProviderPassword),
	)
	return s.signIn(ctx, user)
}

// GetLoginURL はOAuth認証URLを生成する。Googleログインが無効な場合はauth/operation-not-allowed。
func (s *Service) GetLoginURL(state string) (string, error) {
	if s.oauth == nil {
		return "", model.NewAuthError(model.ErrCodeOperationNotAllowed)
	}
	return s.oauth.GetLoginURL(state), nil
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 未登録ユーザーの場合はusersレコードとidentitiesレコードを同時に作成する。
// 同じメールアドレスのアカウントが既にある場合は、メールアドレスが確認済みのときに限り
// そのユーザーにidentityを紐付ける。未確認の場合はauth/account-exists-with-different-credential。
func (s *Service) HandleCallback(ctx context.Context, code string) (*Result, error) {
	if s.oauth == nil {
		return nil, model.NewAuthError(model.ErrCodeOperationNotAllowed)
	}

	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	var user *model.User
	switch {
	case identity != nil:
		user, err = s.userRepo.FindByID(ctx, identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
		if user == nil {
			return nil, model.NewAuthError(model.ErrCodeUserNotFound)
		}
		slog.Info("existing user logged in",
			slog.String("user_id", user.ID),
			slog.String("provider", userInfo.Provider),
		)

	default:
		user, err = s.linkOrCreate(ctx, userInfo)
		if err != nil {
			return nil, err
		}
	}

	return s.signIn(ctx, user)
}

// linkOrCreate はメールアドレスが一致する既存ユーザーにidentityを紐付けるか、新規ユーザーを作成する。
func (s *Service) linkOrCreate(ctx context.Context, info *OAuthUserInfo) (*model.User, error) {
	newIdentity := &model.Identity{
		ID:             uuid.New().String(),
		Provider:       info.Provider,
		ProviderUserID: info.ProviderUserID,
	}

	if info.Email != "" {
		existing, err := s.userRepo.FindByEmail(ctx, info.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to find user by email: %w", err)
		}
		if existing != nil {
			if !info.EmailVerified {
				slog.Warn("refused to link unverified email to existing user",
					slog.String("user_id", existing.ID),
					slog.String("provider", info.Provider),
				)
				return nil, model.NewAuthError(model.ErrCodeAccountExistsWithOtherCrd)
			}
			newIdentity.UserID = existing.ID
			if err := s.identRepo.Create(ctx, newIdentity); err != nil {
				return nil, fmt.Errorf("failed to link identity: %w", err)
			}
			slog.Info("identity linked to existing user",
				slog.String("user_id", existing.ID),
				slog.String("provider", info.Provider),
			)
			return existing, nil
		}
	}

	name := strings.TrimSpace(info.Name)
	if name == "" {
		name, _, _ = strings.Cut(info.Email, "@")
	}
	user := &model.User{
		ID:    uuid.New().String(),
		Email: strings.ToLower(info.Email),
		Name:  name,
	}
	newIdentity.UserID = user.ID
	if err := s.userRepo.CreateWithIdentity(ctx, user, newIdentity); err != nil {
		return nil, fmt.Errorf("failed to create user and identity: %w", err)
	}

	slog.Info("new user created",
		slog.String("user_id", user.ID),
		slog.String("provider", info.Provider),
	)
	return user, nil
}

// EnsureProfile はユーザープロフィールが存在しない場合のみ作成する。冪等。
// 新規作成した場合はtrueを返す。
func (s *Service) EnsureProfile(ctx context.Context, user *model.User) (bool, error) {
	created, err := s.userRepo.UpsertProfile(ctx, user)
	if err != nil {
		return false, fmt.Errorf("failed to ensure profile: %w", err)
	}
	if created {
		slog.Info("user profile created", slog.String("user_id", user.ID))
	}
	return created, nil
}

// signIn はプロフィールを保証し、セッションを発行する。
func (s *Service) signIn(ctx context.Context, user *model.User) (*Result, error) {
	if _, err := s.EnsureProfile(ctx, user); err != nil {
		return nil, err
	}
	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &Result{Session: session, User: user}, nil
}

// RequestPasswordReset は再設定リンクをメールで送信する。
// 未登録のメールアドレスの場合はauth/user-not-foundを返す。
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return model.NewAuthError(model.ErrCodeUserNotFound)
	}

	link, err := s.resetLink(s.resetTokens.Make(user))
	if err != nil {
		return err
	}
	msg := mailer.Message{
		ToName:  user.Name,
		ToEmail: user.Email,
		Subject: "Restablece tu contraseña",
		Text: fmt.Sprintf("Hola %s,\n\nPara restablecer tu contraseña abre el siguiente enlace:\n%s\n\n"+
			"Si no solicitaste este cambio, ignora este mensaje.", user.Name, link),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send password reset mail: %w", err)
	}

	slog.Info("password reset requested", slog.String("user_id", user.ID))
	return nil
}

func (s *Service) resetLink(token string) (string, error) {
	u, err := url.Parse(s.config.PasswordResetURL)
	if err != nil {
		return "", fmt.Errorf("invalid password reset URL: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ResetPassword はトークンを検証してパスワードを変更し、ユーザーの全セッションを破棄する。
// 変更したユーザーのIDを返す。
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	if err := checkPasswordStrength(newPassword); err != nil {
		return "", err
	}

	userID, err := s.resetTokens.UserID(token)
	if err != nil {
		return "", model.NewAuthError(model.ErrCodeInvalidActionCode)
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return "", model.NewAuthError(model.ErrCodeInvalidActionCode)
	}

	switch err := s.resetTokens.Verify(user, token); {
	case errors.Is(err, errResetTokenExpired):
		return "", model.NewAuthError(model.ErrCodeExpiredActionCode)
	case err != nil:
		return "", model.NewAuthError(model.ErrCodeInvalidActionCode)
	}

	hash, err := s.hash(newPassword)
	if err != nil {
		return "", err
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return "", fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.sessionRepo.DeleteByUserID(ctx, user.ID); err != nil {
		return "", fmt.Errorf("failed to revoke sessions: %w", err)
	}

	slog.Info("password reset completed", slog.String("user_id", user.ID))
	return user.ID, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
// セッションが無効な場合はunauthenticatedを返す。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, model.NewDataError(model.ErrCodeUnauthenticated)
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, model.NewDataError(model.ErrCodeUnauthenticated)
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewDataError(model.ErrCodeUnauthenticated)
	}

	return user, nil
}

func (s *Service) hash(password string) (string, error) {
	hash, err := hashPassword(password, s.config.BcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", model.NewValidationError("La contraseña es demasiado larga")
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
