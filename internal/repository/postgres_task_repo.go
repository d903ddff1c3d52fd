package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/secondbrain/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

const taskColumns = `id, user_id, title, description, completed, due_date, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (model.Task, error) {
	var t model.Task
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &t.DueDate, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// List は所有者のタスクをcreated_at降順で返す。
func (r *PostgresTaskRepo) List(ctx context.Context, userID string) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// Create はタスクを作成する。期限が空の場合はmodel.DefaultDueDateを保存する。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) (*model.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx,
		`INSERT INTO tasks (id, user_id, title, description, completed, due_date)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+taskColumns,
		uuid.New().String(), task.UserID, task.Title, task.Description, task.Completed,
		model.NormalizeDueDate(task.DueDate),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &t, nil
}

// Update はパッチを適用し更新後のタスクを返す。
func (r *PostgresTaskRepo) Update(ctx context.Context, userID, id string, patch model.TaskPatch) (*model.Task, error) {
	if !validRecordID(id) {
		return nil, model.NewNotFoundError("tasks", id)
	}

	var set setClause
	if patch.Title != nil {
		set.add("title", *patch.Title)
	}
	if patch.Description != nil {
		set.add("description", *patch.Description)
	}
	if patch.Completed != nil {
		set.add("completed", *patch.Completed)
	}
	if patch.DueDate != nil {
		set.add("due_date", model.NormalizeDueDate(*patch.DueDate))
	}
	clause, next := set.build()

	t, err := scanTask(r.db.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d AND user_id = $%d RETURNING %s`,
			clause, next, next+1, taskColumns),
		append(set.args, id, userID)...,
	))
	if err == sql.ErrNoRows {
		return nil, model.NewNotFoundError("tasks", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return &t, nil
}

// Delete はタスクを削除する。
func (r *PostgresTaskRepo) Delete(ctx context.Context, userID, id string) error {
	return deleteOwned(ctx, r.db, "tasks", userID, id)
}

// DeleteByUserID は所有者の全タスクを削除する。
func (r *PostgresTaskRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return deleteAllOwned(ctx, r.db, "tasks", userID)
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
