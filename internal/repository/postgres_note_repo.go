package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/secondbrain/internal/model"
)

// PostgresNoteRepo はPostgreSQLを使用したメモリポジトリ。
type PostgresNoteRepo struct {
	db *sql.DB
}

// NewPostgresNoteRepo はPostgresNoteRepoを生成する。
func NewPostgresNoteRepo(db *sql.DB) *PostgresNoteRepo {
	return &PostgresNoteRepo{db: db}
}

const noteColumns = `id, user_id, title, content, tags, created_at, updated_at`

func scanNote(row interface{ Scan(...any) error }) (model.Note, error) {
	var n model.Note
	var tags []string
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, pq.Array(&tags), &n.CreatedAt, &n.UpdatedAt)
	if tags == nil {
		tags = []string{}
	}
	n.Tags = tags
	return n, err
}

// List は所有者のメモをcreated_at降順で返す。
func (r *PostgresNoteRepo) List(ctx context.Context, userID string) ([]model.Note, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE user_id = $1 ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := []model.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}
	return notes, nil
}

// Create はメモを作成する。IDはUUIDで採番し、タイムスタンプはDBのnow()を使用する。
func (r *PostgresNoteRepo) Create(ctx context.Context, note *model.Note) (*model.Note, error) {
	n, err := scanNote(r.db.QueryRowContext(ctx,
		`INSERT INTO notes (id, user_id, title, content, tags)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+noteColumns,
		uuid.New().String(), note.UserID, note.Title, note.Content, pq.Array(model.NormalizeTags(note.Tags)),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return &n, nil
}

// Update はパッチを適用し更新後のメモを返す。
func (r *PostgresNoteRepo) Update(ctx context.Context, userID, id string, patch model.NotePatch) (*model.Note, error) {
	if !validRecordID(id) {
		return nil, model.NewNotFoundError("notes", id)
	}

	var set setClause
	if patch.Title != nil {
		set.add("title", *patch.Title)
	}
	if patch.Content != nil {
		set.add("content", *patch.Content)
	}
	if patch.Tags != nil {
		set.add("tags", pq.Array(model.NormalizeTags(*patch.Tags)))
	}
	clause, next := set.build()

	n, err := scanNote(r.db.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE notes SET %s WHERE id = $%d AND user_id = $%d RETURNING %s`,
			clause, next, next+1, noteColumns),
		append(set.args, id, userID)...,
	))
	if err == sql.ErrNoRows {
		return nil, model.NewNotFoundError("notes", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	return &n, nil
}

// Delete はメモを削除する。
func (r *PostgresNoteRepo) Delete(ctx context.Context, userID, id string) error {
	return deleteOwned(ctx, r.db, "notes", userID, id)
}

// DeleteByUserID は所有者の全メモを削除する。
func (r *PostgresNoteRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return deleteAllOwned(ctx, r.db, "notes", userID)
}

// deleteOwned は所有者スコープで1件削除する。該当なしの場合はnot-foundエラー。
// tableは定数のみを渡すこと。
func deleteOwned(ctx context.Context, db *sql.DB, table, userID, id string) error {
	if !validRecordID(id) {
		return model.NewNotFoundError(table, id)
	}
	result, err := db.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return model.NewNotFoundError(table, id)
	}
	return nil
}

// deleteAllOwned は所有者の全レコードを削除する。tableは定数のみを渡すこと。
func deleteAllOwned(ctx context.Context, db *sql.DB, table, userID string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete user records from %s: %w", table, err)
	}
	return nil
}

// compile-time interface check
var _ NoteRepository = (*PostgresNoteRepo)(nil)
