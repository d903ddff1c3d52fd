// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/secondbrain/internal/model"
	"github.com/hitoshi/secondbrain/internal/repository"
)

// MaxNameLength は表示名の最大文字数。
const MaxNameLength = 100

// OwnedDeleter は所有者単位の一括削除インターフェース。
type OwnedDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// ContextCloser はユーザーの同期コンテキストを破棄する。
type ContextCloser interface {
	CloseUser(userID string) int
}

// Collections は退会時に削除するユーザーデータ。
type Collections struct {
	Notes  OwnedDeleter
	Tasks  OwnedDeleter
	Events OwnedDeleter
	Exams  OwnedDeleter
	Study  OwnedDeleter
}

// Service はユーザー管理のサービス層。
// 表示名の変更と退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	collections Collections
	contexts    ContextCloser
}

// NewService はServiceの新しいインスタンスを生成する。contextsはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	collections Collections,
	contexts ContextCloser,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		collections: collections,
		contexts:    contexts,
	}
}

// Rename は表示名を変更し、更新後のユーザーを返す。
func (s *Service) Rename(ctx context.Context, userID, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewValidationError("El nombre es obligatorio")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, model.NewValidationError(fmt.Sprintf("El nombre no puede superar los %d caracteres", MaxNameLength))
	}

	if err := s.userRepo.UpdateName(ctx, userID, name); err != nil {
		return nil, fmt.Errorf("failed to update display name: %w", err)
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewAuthError(model.ErrCodeUserNotFound)
	}

	slog.Info("表示名を変更しました", slog.String("user_id", userID))
	return user, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: study_sessions → exams → events → tasks → notes → sessions → user（+ CASCADE: identities）
// 最後にメモリ上の同期コンテキストを破棄する。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	// ユーザー存在確認
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewAuthError(model.ErrCodeUserNotFound)
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	steps := []struct {
		name    string
		deleter OwnedDeleter
	}{
		{"study sessions", s.collections.Study},
		{"exams", s.collections.Exams},
		{"events", s.collections.Events},
		{"tasks", s.collections.Tasks},
		{"notes", s.collections.Notes},
		{"sessions", s.sessionRepo},
	}
	for _, step := range steps {
		if step.deleter == nil {
			continue
		}
		if err := step.deleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete %s: %w", step.name, err)
		}
	}

	// ユーザーを削除（identitiesはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	closed := 0
	if s.contexts != nil {
		closed = s.contexts.CloseUser(userID)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
		slog.Int("closed_contexts", closed),
	)

	return nil
}
