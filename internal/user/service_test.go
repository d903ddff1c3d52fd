package user

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/hitoshi/secondbrain/internal/model"
	"github.com/hitoshi/secondbrain/internal/repository"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn   func(ctx context.Context, id string) (*model.User, error)
	updateNameFn func(ctx context.Context, id, name string) error
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	return nil
}
func (m *mockUserRepo) UpsertProfile(ctx context.Context, user *model.User) (bool, error) {
	return false, nil
}
func (m *mockUserRepo) UpdateName(ctx context.Context, id, name string) error {
	if m.updateNameFn != nil {
		return m.updateNameFn(ctx, id, name)
	}
	return nil
}
func (m *mockUserRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return nil
}
func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	return m.deleteByIDFn(ctx, id)
}

type mockSessionRepo struct {
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	return nil
}
func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}
func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	return nil
}
func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return m.deleteByUserIDFn(ctx, userID)
}
func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

type mockDeleter struct {
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockDeleter) DeleteByUserID(ctx context.Context, userID string) error {
	return m.deleteByUserIDFn(ctx, userID)
}

type mockCloser struct {
	closed []string
}

func (m *mockCloser) CloseUser(userID string) int {
	m.closed = append(m.closed, userID)
	return 1
}

var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ ContextCloser = (*mockCloser)(nil)

// --- テスト ---

// TestService_Withdraw は退会処理が全関連データを削除することを検証する。
func TestService_Withdraw(t *testing.T) {
	var order []string
	record := func(name string) *mockDeleter {
		return &mockDeleter{deleteByUserIDFn: func(ctx context.Context, userID string) error {
			order = append(order, name)
			return nil
		}}
	}

	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "test@example.com"}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			order = append(order, "user")
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		deleteByUserIDFn: func(ctx context.Context, userID string) error {
			order = append(order, "sessions")
			return nil
		},
	}
	closer := &mockCloser{}

	svc := NewService(userRepo, sessionRepo, Collections{
		Notes:  record("notes"),
		Tasks:  record("tasks"),
		Events: record("events"),
		Exams:  record("exams"),
		Study:  record("study"),
	}, closer)

	if err := svc.Withdraw(context.Background(), "user-1"); err != nil {
		t.Fatalf("Withdraw returned error: %v", err)
	}

	want := []string{"study", "exams", "events", "tasks", "notes", "sessions", "user"}
	if !slices.Equal(order, want) {
		t.Errorf("delete order = %v, want %v", order, want)
	}
	if !slices.Equal(closer.closed, []string{"user-1"}) {
		t.Errorf("closed contexts = %v, want [user-1]", closer.closed)
	}
}

// TestService_Withdraw_UserNotFound は存在しないユーザーの退会がエラーになることを検証する。
func TestService_Withdraw_UserNotFound(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
	}

	svc := NewService(userRepo, nil, Collections{}, nil)

	err := svc.Withdraw(context.Background(), "nonexistent-user")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Fatalf("expected auth/user-not-found, got %v", err)
	}
}

// TestService_Withdraw_StopsOnError は途中の削除失敗でユーザーを削除しないことを検証する。
func TestService_Withdraw_StopsOnError(t *testing.T) {
	userDeleted := false
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			userDeleted = true
			return nil
		},
	}
	dbErr := errors.New("db error")
	failing := &mockDeleter{deleteByUserIDFn: func(ctx context.Context, userID string) error {
		return dbErr
	}}

	svc := NewService(userRepo, nil, Collections{Tasks: failing}, nil)

	err := svc.Withdraw(context.Background(), "user-1")
	if !errors.Is(err, dbErr) {
		t.Fatalf("error = %v, want wrapped db error", err)
	}
	if want := "failed to delete tasks: db error"; err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
	if userDeleted {
		t.Error("user should not be deleted when a collection delete fails")
	}
}

func TestService_Rename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"trims", "  Lucía  ", "Lucía", false},
		{"empty", "   ", "", true},
		{"too long", strings.Repeat("a", MaxNameLength+1), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stored string
			userRepo := &mockUserRepo{
				updateNameFn: func(ctx context.Context, id, name string) error {
					stored = name
					return nil
				},
				findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
					return &model.User{ID: id, Name: stored}, nil
				},
			}
			svc := NewService(userRepo, nil, Collections{}, nil)

			got, err := svc.Rename(context.Background(), "user-1", tt.input)
			if tt.wantErr {
				var apiErr *model.APIError
				if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidArgument {
					t.Fatalf("expected invalid-argument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Rename() error = %v", err)
			}
			if got.Name != tt.want {
				t.Errorf("Name = %q, want %q", got.Name, tt.want)
			}
		})
	}
}
