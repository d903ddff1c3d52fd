package repository

import (
	"errors"
	"testing"

	"github.com/lib/pq"

	"github.com/hitoshi/secondbrain/internal/model"
)

// PostgresUserRepoはUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// PostgresIdentityRepoはIdentityRepositoryインターフェースを満たすことを検証
func TestPostgresIdentityRepo_ImplementsInterface(t *testing.T) {
	var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
}

// PostgresSessionRepoはSessionRepositoryインターフェースを満たすことを検証
func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

// NewPostgresUserRepoが正しく初期化されることを検証
func TestNewPostgresUserRepo_Initializes(t *testing.T) {
	if repo := NewPostgresUserRepo(nil); repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresSessionRepoが正しく初期化されることを検証
func TestNewPostgresSessionRepo_Initializes(t *testing.T) {
	if repo := NewPostgresSessionRepo(nil); repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

func TestClassifyPQError_EmailUniqueViolation(t *testing.T) {
	pqErr := &pq.Error{Code: "23505", Constraint: "users_email_lower_idx"}

	err := classifyPQError(pqErr)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeEmailAlreadyInUse {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeEmailAlreadyInUse)
	}
	var gotPQ *pq.Error
	if !errors.As(err, &gotPQ) {
		t.Error("original pq.Error should remain in the chain")
	}
}

func TestClassifyPQError_PassesThroughOtherErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"other constraint", &pq.Error{Code: "23505", Constraint: "identities_provider_provider_user_id_key"}},
		{"other code", &pq.Error{Code: "23503", Constraint: "users_email_lower_idx"}},
		{"plain error", errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyPQError(tt.err); got != tt.err {
				t.Errorf("classifyPQError() = %v, want unchanged %v", got, tt.err)
			}
		})
	}
}
