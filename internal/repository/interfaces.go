// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"

	"github.com/hitoshi/secondbrain/internal/model"
)

// UserRepository はユーザー（プロフィール）データの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。大文字小文字は区別しない。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpsertProfile はプロフィールが存在しない場合のみ作成する。冪等。
	// 新規作成した場合はtrueを返す。
	UpsertProfile(ctx context.Context, user *model.User) (bool, error)

	// UpdateName は表示名を更新する。
	UpdateName(ctx context.Context, id, name string) error

	// UpdatePasswordHash はパスワードハッシュを更新する。
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentitiesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository はログイン手段の紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)

	// Create は既存ユーザーにidentityを紐付ける。
	Create(ctx context.Context, identity *model.Identity) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// NoteRepository はメモコレクションへのアクセスを提供する。
// すべての操作は所有者IDでスコープされる。
type NoteRepository interface {
	// List は所有者のメモをcreated_at降順で返す。
	List(ctx context.Context, userID string) ([]model.Note, error)
	// Create はメモを作成し、サーバー採番のIDとタイムスタンプ付きで返す。
	Create(ctx context.Context, note *model.Note) (*model.Note, error)
	// Update はパッチを適用し更新後のメモを返す。該当なしの場合はnot-foundエラー。
	Update(ctx context.Context, userID, id string, patch model.NotePatch) (*model.Note, error)
	// Delete はメモを削除する。該当なしの場合はnot-foundエラー。
	Delete(ctx context.Context, userID, id string) error
	// DeleteByUserID は所有者の全メモを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// TaskRepository はタスクコレクションへのアクセスを提供する。
type TaskRepository interface {
	// List は所有者のタスクをcreated_at降順で返す。
	List(ctx context.Context, userID string) ([]model.Task, error)
	Create(ctx context.Context, task *model.Task) (*model.Task, error)
	Update(ctx context.Context, userID, id string, patch model.TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// EventRepository はカレンダーイベントコレクションへのアクセスを提供する。
type EventRepository interface {
	// List は所有者のイベントをdate昇順で返す。
	List(ctx context.Context, userID string) ([]model.Event, error)
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	Update(ctx context.Context, userID, id string, patch model.EventPatch) (*model.Event, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// ExamRepository は試験計画コレクションへのアクセスを提供する。
type ExamRepository interface {
	// List は所有者の試験計画をdate昇順で返す。
	List(ctx context.Context, userID string) ([]model.Exam, error)
	Create(ctx context.Context, exam *model.Exam) (*model.Exam, error)
	Update(ctx context.Context, userID, id string, patch model.ExamPatch) (*model.Exam, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// StudyRepository はポモドーロ記録の永続化インターフェース。
type StudyRepository interface {
	// Create は完了した区間を記録する。
	Create(ctx context.Context, session *model.StudySession) (*model.StudySession, error)
	// SumMinutes は指定種別の合計分数を返す。
	SumMinutes(ctx context.Context, userID string, kind model.StudyKind) (int, error)
	// DeleteByUserID は所有者の全記録を削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}
