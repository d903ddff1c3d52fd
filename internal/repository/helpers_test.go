package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/secondbrain/internal/model"
)

func TestCollectionRepos_ImplementInterfaces(t *testing.T) {
	var _ NoteRepository = NewPostgresNoteRepo(nil)
	var _ TaskRepository = NewPostgresTaskRepo(nil)
	var _ EventRepository = NewPostgresEventRepo(nil)
	var _ ExamRepository = NewPostgresExamRepo(nil)
	var _ StudyRepository = NewPostgresStudyRepo(nil)
}

func TestValidRecordID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"3f2504e0-4f89-11d3-9a0c-0305e82c3301", true},
		{"", false},
		{"not-a-uuid", false},
		{"1234", false},
	}
	for _, tt := range tests {
		if got := validRecordID(tt.id); got != tt.want {
			t.Errorf("validRecordID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestSetClause_Build(t *testing.T) {
	var set setClause
	set.add("title", "a")
	set.add("content", "b")

	clause, next := set.build()

	want := "updated_at = now(), title = $1, content = $2"
	if clause != want {
		t.Errorf("clause = %q, want %q", clause, want)
	}
	if next != 3 {
		t.Errorf("next = %d, want 3", next)
	}
	if len(set.args) != 2 || set.args[0] != "a" || set.args[1] != "b" {
		t.Errorf("args = %v", set.args)
	}
}

func TestSetClause_EmptyOnlyTouchesUpdatedAt(t *testing.T) {
	var set setClause
	clause, next := set.build()
	if clause != "updated_at = now()" {
		t.Errorf("clause = %q", clause)
	}
	if next != 1 {
		t.Errorf("next = %d, want 1", next)
	}
}

// 不正なIDはクエリを発行せずnot-foundになる（db=nilでもパニックしない）
func TestCollectionRepos_InvalidIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	title := "x"

	checks := map[string]error{
		"note update": func() error {
			_, err := NewPostgresNoteRepo(nil).Update(ctx, "u", "bad", model.NotePatch{Title: &title})
			return err
		}(),
		"task update": func() error {
			_, err := NewPostgresTaskRepo(nil).Update(ctx, "u", "bad", model.TaskPatch{Title: &title})
			return err
		}(),
		"event update": func() error {
			_, err := NewPostgresEventRepo(nil).Update(ctx, "u", "bad", model.EventPatch{Title: &title})
			return err
		}(),
		"exam update": func() error {
			_, err := NewPostgresExamRepo(nil).Update(ctx, "u", "bad", model.ExamPatch{Subject: &title})
			return err
		}(),
		"note delete":  NewPostgresNoteRepo(nil).Delete(ctx, "u", "bad"),
		"exam delete":  NewPostgresExamRepo(nil).Delete(ctx, "u", "bad"),
		"event delete": NewPostgresEventRepo(nil).Delete(ctx, "u", "bad"),
		"task delete":  NewPostgresTaskRepo(nil).Delete(ctx, "u", "bad"),
	}
	for name, err := range checks {
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeNotFound {
			t.Errorf("%s: expected not-found APIError, got %v", name, err)
		}
	}
}
