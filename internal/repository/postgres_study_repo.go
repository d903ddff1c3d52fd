package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/secondbrain/internal/model"
)

// PostgresStudyRepo はPostgreSQLを使用したポモドーロ記録リポジトリ。
type PostgresStudyRepo struct {
	db *sql.DB
}

// NewPostgresStudyRepo はPostgresStudyRepoを生成する。
func NewPostgresStudyRepo(db *sql.DB) *PostgresStudyRepo {
	return &PostgresStudyRepo{db: db}
}

// Create は完了した区間を記録する。completed_atはDBのnow()で採番する。
func (r *PostgresStudyRepo) Create(ctx context.Context, session *model.StudySession) (*model.StudySession, error) {
	out := *session
	out.ID = uuid.New().String()
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO study_sessions (id, user_id, kind, minutes)
		 VALUES ($1, $2, $3, $4)
		 RETURNING completed_at`,
		out.ID, out.UserID, string(out.Kind), out.Minutes,
	).Scan(&out.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create study session: %w", err)
	}
	return &out, nil
}

// SumMinutes は指定種別の合計分数を返す。記録がない場合は0。
func (r *PostgresStudyRepo) SumMinutes(ctx context.Context, userID string, kind model.StudyKind) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(minutes), 0) FROM study_sessions WHERE user_id = $1 AND kind = $2`,
		userID, string(kind),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum study minutes: %w", err)
	}
	return total, nil
}

// DeleteByUserID は所有者の全記録を削除する。
func (r *PostgresStudyRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return deleteAllOwned(ctx, r.db, "study_sessions", userID)
}

// compile-time interface check
var _ StudyRepository = (*PostgresStudyRepo)(nil)
