package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/secondbrain/internal/model"
)

// PostgresEventRepo はPostgreSQLを使用したカレンダーイベントリポジトリ。
type PostgresEventRepo struct {
	db *sql.DB
}

// NewPostgresEventRepo はPostgresEventRepoを生成する。
func NewPostgresEventRepo(db *sql.DB) *PostgresEventRepo {
	return &PostgresEventRepo{db: db}
}

const eventColumns = `id, user_id, title, description, date, type, color, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (model.Event, error) {
	var e model.Event
	var typ string
	err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Description, &e.Date, &typ, &e.Color, &e.CreatedAt, &e.UpdatedAt)
	e.Type = model.EventType(typ)
	return e, err
}

// List は所有者のイベントをdate昇順で返す。同日の場合は作成順。
func (r *PostgresEventRepo) List(ctx context.Context, userID string) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE user_id = $1 ORDER BY date ASC, created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// Create はイベントを作成する。
func (r *PostgresEventRepo) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx,
		`INSERT INTO events (id, user_id, title, description, date, type, color)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+eventColumns,
		uuid.New().String(), event.UserID, event.Title, event.Description, event.Date,
		string(event.Type), event.Color,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return &e, nil
}

// Update はパッチを適用し更新後のイベントを返す。
func (r *PostgresEventRepo) Update(ctx context.Context, userID, id string, patch model.EventPatch) (*model.Event, error) {
	if !validRecordID(id) {
		return nil, model.NewNotFoundError("events", id)
	}

	var set setClause
	if patch.Title != nil {
		set.add("title", *patch.Title)
	}
	if patch.Description != nil {
		set.add("description", *patch.Description)
	}
	if patch.Date != nil {
		set.add("date", *patch.Date)
	}
	if patch.Type != nil {
		set.add("type", string(*patch.Type))
	}
	if patch.Color != nil {
		set.add("color", *patch.Color)
	}
	clause, next := set.build()

	e, err := scanEvent(r.db.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE events SET %s WHERE id = $%d AND user_id = $%d RETURNING %s`,
			clause, next, next+1, eventColumns),
		append(set.args, id, userID)...,
	))
	if err == sql.ErrNoRows {
		return nil, model.NewNotFoundError("events", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return &e, nil
}

// Delete はイベントを削除する。
func (r *PostgresEventRepo) Delete(ctx context.Context, userID, id string) error {
	return deleteOwned(ctx, r.db, "events", userID, id)
}

// DeleteByUserID は所有者の全イベントを削除する。
func (r *PostgresEventRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return deleteAllOwned(ctx, r.db, "events", userID)
}

// compile-time interface check
var _ EventRepository = (*PostgresEventRepo)(nil)
