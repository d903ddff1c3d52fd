package model

import (
	"strings"
	"time"
)

// DefaultDueDate は期限未指定のタスクに設定される表示用の期限。
const DefaultDueDate = "Sin fecha"

// Task はユーザーのタスクを表す。
// DueDateは自由形式の文字列で、未指定時はDefaultDueDateになる。
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Completed   bool
	DueDate     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskPatch はタスクの部分更新内容を表す。nilのフィールドは変更しない。
type TaskPatch struct {
	Title       *string
	Description *string
	Completed   *bool
	DueDate     *string
}

// IsEmpty は更新対象のフィールドが1つもないかを返す。
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil && p.DueDate == nil
}

// Apply はパッチを適用した新しいTaskを返す。
func (t Task) Apply(p TaskPatch) Task {
	out := t
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Completed != nil {
		out.Completed = *p.Completed
	}
	if p.DueDate != nil {
		out.DueDate = NormalizeDueDate(*p.DueDate)
	}
	return out
}

// NormalizeDueDate は空の期限をDefaultDueDateに置き換える。
func NormalizeDueDate(dueDate string) string {
	if strings.TrimSpace(dueDate) == "" {
		return DefaultDueDate
	}
	return dueDate
}
