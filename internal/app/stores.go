package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hitoshi/secondbrain/internal/config"
	"github.com/hitoshi/secondbrain/internal/database"
	"github.com/hitoshi/secondbrain/internal/datasync"
	"github.com/hitoshi/secondbrain/internal/handler"
	"github.com/hitoshi/secondbrain/internal/localstore"
	"github.com/hitoshi/secondbrain/internal/repository"
	"github.com/hitoshi/secondbrain/internal/user"
)

// ストアの種類
const (
	storeKindPostgres = "postgres"
	storeKindLocal    = "local"
)

// stores はリモートストア（PostgreSQL）またはローカルストア（SQLite）上の全リポジトリ。
type stores struct {
	kind string

	users      repository.UserRepository
	identities repository.IdentityRepository
	sessions   repository.SessionRepository
	notes      repository.NoteRepository
	tasks      repository.TaskRepository
	events     repository.EventRepository
	exams      repository.ExamRepository
	study      repository.StudyRepository

	health handler.HealthChecker
	close  func() error
}

// openStores は設定に応じてストアを開き、疎通を確認する。
// DATABASE_URLが未設定の場合はLOCAL_STORE_PATHのローカルストアを使う。
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.UsesLocalStore() {
		return openLocalStores(ctx, cfg.LocalStorePath)
	}
	return openPostgresStores(ctx, cfg.DatabaseURL)
}

func openPostgresStores(ctx context.Context, databaseURL string) (*stores, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(databaseURL)),
	)
	return newPostgresStores(db), nil
}

func newPostgresStores(db *sql.DB) *stores {
	return &stores{
		kind:       storeKindPostgres,
		users:      repository.NewPostgresUserRepo(db),
		identities: repository.NewPostgresIdentityRepo(db),
		sessions:   repository.NewPostgresSessionRepo(db),
		notes:      repository.NewPostgresNoteRepo(db),
		tasks:      repository.NewPostgresTaskRepo(db),
		events:     repository.NewPostgresEventRepo(db),
		exams:      repository.NewPostgresExamRepo(db),
		study:      repository.NewPostgresStudyRepo(db),
		health:     db,
		close:      db.Close,
	}
}

func openLocalStores(ctx context.Context, path string) (*stores, error) {
	store, err := localstore.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	if err := store.PingContext(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to connect to local store: %w", err)
	}

	slog.Warn("DATABASE_URL is not set, using local store",
		slog.String("path", store.Path()),
	)
	return &stores{
		kind:       storeKindLocal,
		users:      localstore.NewUserRepo(store),
		identities: localstore.NewIdentityRepo(store),
		sessions:   localstore.NewSessionRepo(store),
		notes:      localstore.NewNoteRepo(store),
		tasks:      localstore.NewTaskRepo(store),
		events:     localstore.NewEventRepo(store),
		exams:      localstore.NewExamRepo(store),
		study:      localstore.NewStudyRepo(store),
		health:     store,
		close:      store.Close,
	}, nil
}

// accessors は同期コンテキスト用の4コレクションのアクセサを返す。
func (s *stores) accessors() datasync.Accessors {
	return datasync.Accessors{
		Notes:  s.notes,
		Tasks:  s.tasks,
		Events: s.events,
		Exams:  s.exams,
	}
}

// collections は退会時に削除するユーザーデータを返す。
func (s *stores) collections() user.Collections {
	return user.Collections{
		Notes:  s.notes,
		Tasks:  s.tasks,
		Events: s.events,
		Exams:  s.exams,
		Study:  s.study,
	}
}

// Close はストアを閉じる。
func (s *stores) Close() error {
	if s.close == nil {
		return nil
	}
	if err := s.close(); err != nil {
		return fmt.Errorf("failed to close %s store: %w", s.kind, err)
	}
	return nil
}
