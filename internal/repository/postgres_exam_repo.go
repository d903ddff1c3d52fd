package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/secondbrain/internal/model"
)

// PostgresExamRepo はPostgreSQLを使用した試験計画リポジトリ。
type PostgresExamRepo struct {
	db *sql.DB
}

// NewPostgresExamRepo はPostgresExamRepoを生成する。
func NewPostgresExamRepo(db *sql.DB) *PostgresExamRepo {
	return &PostgresExamRepo{db: db}
}

const examColumns = `id, user_id, subject, date, goal, reality, options, way_forward, completed, priority, created_at, updated_at`

func scanExam(row interface{ Scan(...any) error }) (model.Exam, error) {
	var e model.Exam
	var options []string
	var priority string
	err := row.Scan(&e.ID, &e.UserID, &e.Subject, &e.Date, &e.Goal, &e.Reality, pq.Array(&options),
		&e.WayForward, &e.Completed, &priority, &e.CreatedAt, &e.UpdatedAt)
	if options == nil {
		options = []string{}
	}
	e.Options = options
	e.Priority = model.ExamPriority(priority)
	return e, err
}

// List は所有者の試験計画をdate昇順で返す。
func (r *PostgresExamRepo) List(ctx context.Context, userID string) ([]model.Exam, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+examColumns+` FROM exams WHERE user_id = $1 ORDER BY date ASC, created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	defer rows.Close()

	exams := []model.Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exam: %w", err)
		}
		exams = append(exams, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exams: %w", err)
	}
	return exams, nil
}

// Create は試験計画を作成する。
func (r *PostgresExamRepo) Create(ctx context.Context, exam *model.Exam) (*model.Exam, error) {
	options := exam.Options
	if options == nil {
		options = []string{}
	}
	e, err := scanExam(r.db.QueryRowContext(ctx,
		`INSERT INTO exams (id, user_id, subject, date, goal, reality, options, way_forward, completed, priority)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+examColumns,
		uuid.New().String(), exam.UserID, exam.Subject, exam.Date, exam.Goal, exam.Reality,
		pq.Array(options), exam.WayForward, exam.Completed, string(exam.Priority),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}
	return &e, nil
}

// Update はパッチを適用し更新後の試験計画を返す。
func (r *PostgresExamRepo) Update(ctx context.Context, userID, id string, patch model.ExamPatch) (*model.Exam, error) {
	if !validRecordID(id) {
		return nil, model.NewNotFoundError("exams", id)
	}

	var set setClause
	if patch.Subject != nil {
		set.add("subject", *patch.Subject)
	}
	if patch.Date != nil {
		set.add("date", *patch.Date)
	}
	if patch.Goal != nil {
		set.add("goal", *patch.Goal)
	}
	if patch.Reality != nil {
		set.add("reality", *patch.Reality)
	}
	if patch.Options != nil {
		options := *patch.Options
		if options == nil {
			options = []string{}
		}
		set.add("options", pq.Array(options))
	}
	if patch.WayForward != nil {
		set.add("way_forward", *patch.WayForward)
	}
	if patch.Completed != nil {
		set.add("completed", *patch.Completed)
	}
	if patch.Priority != nil {
		set.add("priority", string(*patch.Priority))
	}
	clause, next := set.build()

	e, err := scanExam(r.db.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE exams SET %s WHERE id = $%d AND user_id = $%d RETURNING %s`,
			clause, next, next+1, examColumns),
		append(set.args, id, userID)...,
	))
	if err == sql.ErrNoRows {
		return nil, model.NewNotFoundError("exams", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update exam: %w", err)
	}
	return &e, nil
}

// Delete は試験計画を削除する。
func (r *PostgresExamRepo) Delete(ctx context.Context, userID, id string) error {
	return deleteOwned(ctx, r.db, "exams", userID, id)
}

// DeleteByUserID は所有者の全試験計画を削除する。
func (r *PostgresExamRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return deleteAllOwned(ctx, r.db, "exams", userID)
}

// compile-time interface check
var _ ExamRepository = (*PostgresExamRepo)(nil)
