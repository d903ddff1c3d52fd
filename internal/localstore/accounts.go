package localstore

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/hitoshi/secondbrain/internal/model"
	"github.com/hitoshi/secondbrain/internal/repository"
)

// UserRepo はローカルストアのユーザーリポジトリ。
type UserRepo struct {
	s          *Store
	users      collection[userRecord]
	identities collection[identityRecord]
}

// NewUserRepo はUserRepoを生成する。
func NewUserRepo(s *Store) *UserRepo {
	return &UserRepo{
		s:          s,
		users:      collection[userRecord]{store: s, key: KeyUsers, owner: func(r userRecord) string { return r.ID }},
		identities: collection[identityRecord]{store: s, key: KeyIdentities, owner: func(r identityRecord) string { return r.UserID }},
	}
}

func (r *UserRepo) find(ctx context.Context, match func(userRecord) bool) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	all, err := r.users.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range all {
		if match(u) {
			return u.model(), nil
		}
	}
	return nil, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.find(ctx, func(u userRecord) bool { return u.ID == id })
}

// FindByEmail はメールアドレスでユーザーを検索する。大文字小文字は区別しない。
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.find(ctx, func(u userRecord) bool { return strings.EqualFold(u.Email, email) })
}

// CreateWithIdentity はユーザーとidentityを作成する。
// メールアドレスが既に使われている場合はauth/email-already-in-useを返す。
// identityの書き込みに失敗した場合は作成したユーザーを取り消す。
func (r *UserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	now := r.s.now()
	err := r.users.modify(ctx, func(all []userRecord) ([]userRecord, error) {
		for _, u := range all {
			if strings.EqualFold(u.Email, user.Email) || u.ID == user.ID {
				return nil, model.NewAuthError(model.ErrCodeEmailAlreadyInUse)
			}
		}
		return append(all, userRecord{
			ID: user.ID, Email: user.Email, Name: user.Name, PasswordHash: user.PasswordHash,
			CreatedAt: now, UpdatedAt: now,
		}), nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	err = r.identities.modify(ctx, func(all []identityRecord) ([]identityRecord, error) {
		for _, rec := range all {
			if rec.Provider == identity.Provider && rec.ProviderUserID == identity.ProviderUserID {
				return nil, model.NewAuthError(model.ErrCodeAccountExistsWithOtherCrd)
			}
		}
		return append(all, identityRecord{
			ID: identity.ID, UserID: identity.UserID, Provider: identity.Provider,
			ProviderUserID: identity.ProviderUserID, CreatedAt: now,
		}), nil
	})
	if err != nil {
		r.rollbackUser(ctx, user.ID)
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	identity.CreatedAt = now
	return nil
}

// rollbackUser はCreateWithIdentityで追加したユーザーを取り除く。
func (r *UserRepo) rollbackUser(ctx context.Context, id string) {
	err := r.users.modify(ctx, func(all []userRecord) ([]userRecord, error) {
		return slices.DeleteFunc(all, func(u userRecord) bool { return u.ID == id }), nil
	})
	if err != nil {
		slog.Error("ユーザー作成の取り消しに失敗しました",
			slog.String("user_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// UpsertProfile はプロフィールが存在しない場合のみ作成する。冪等。
func (r *UserRepo) UpsertProfile(ctx context.Context, user *model.User) (bool, error) {
	created := false
	err := r.users.modify(ctx, func(all []userRecord) ([]userRecord, error) {
		if indexOf(all, user.ID, func(u userRecord) string { return u.ID }) >= 0 {
			return all, nil
		}
		for _, u := range all {
			if strings.EqualFold(u.Email, user.Email) {
				return nil, model.NewAuthError(model.ErrCodeEmailAlreadyInUse)
			}
		}
		now := r.s.now()
		created = true
		return append(all, userRecord{
			ID: user.ID, Email: user.Email, Name: user.Name, PasswordHash: user.PasswordHash,
			CreatedAt: now, UpdatedAt: now,
		}), nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return created, nil
}

// UpdateName は表示名を更新する。
func (r *UserRepo) UpdateName(ctx context.Context, id, name string) error {
	return r.update(ctx, id, func(u *userRecord) { u.Name = name })
}

// UpdatePasswordHash はパスワードハッシュを更新する。
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	return r.update(ctx, id, func(u *userRecord) { u.PasswordHash = passwordHash })
}

func (r *UserRepo) update(ctx context.Context, id string, fn func(*userRecord)) error {
	return r.users.modify(ctx, func(all []userRecord) ([]userRecord, error) {
		i := indexOf(all, id, func(u userRecord) string { return u.ID })
		if i < 0 {
			return nil, model.NewAuthError(model.ErrCodeUserNotFound)
		}
		fn(&all[i])
		all[i].UpdatedAt = r.s.now()
		return all, nil
	})
}

// DeleteByID は指定IDのユーザーと紐付くidentityを削除する。
func (r *UserRepo) DeleteByID(ctx context.Context, id string) error {
	err := r.users.modify(ctx, func(all []userRecord) ([]userRecord, error) {
		i := indexOf(all, id, func(u userRecord) string { return u.ID })
		if i < 0 {
			return nil, fmt.Errorf("user not found: %s", id)
		}
		return slices.Delete(all, i, i+1), nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return r.identities.modifyOwned(ctx, id, func([]identityRecord) ([]identityRecord, error) {
		return nil, nil
	})
}

// IdentityRepo はローカルストアのidentityリポジトリ。
type IdentityRepo struct {
	s *Store
	c collection[identityRecord]
}

// NewIdentityRepo はIdentityRepoを生成する。
func NewIdentityRepo(s *Store) *IdentityRepo {
	return &IdentityRepo{
		s: s,
		c: collection[identityRecord]{store: s, key: KeyIdentities, owner: func(r identityRecord) string { return r.UserID }},
	}
}

// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
func (r *IdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	all, err := r.c.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range all {
		if rec.Provider == provider && rec.ProviderUserID == providerUserID {
			return &model.Identity{
				ID: rec.ID, UserID: rec.UserID, Provider: rec.Provider,
				ProviderUserID: rec.ProviderUserID, CreatedAt: rec.CreatedAt,
			}, nil
		}
	}
	return nil, nil
}

// Create は既存ユーザーにidentityを紐付ける。
func (r *IdentityRepo) Create(ctx context.Context, identity *model.Identity) error {
	identity.CreatedAt = r.s.now()
	return r.c.modify(ctx, func(all []identityRecord) ([]identityRecord, error) {
		for _, rec := range all {
			if rec.Provider == identity.Provider && rec.ProviderUserID == identity.ProviderUserID {
				return nil, model.NewAuthError(model.ErrCodeAccountExistsWithOtherCrd)
			}
		}
		return append(all, identityRecord{
			ID: identity.ID, UserID: identity.UserID, Provider: identity.Provider,
			ProviderUserID: identity.ProviderUserID, CreatedAt: identity.CreatedAt,
		}), nil
	})
}

// SessionRepo はローカルストアのセッションリポジトリ。
type SessionRepo struct {
	s *Store
	c collection[sessionRecord]
}

// NewSessionRepo はSessionRepoを生成する。
func NewSessionRepo(s *Store) *SessionRepo {
	return &SessionRepo{
		s: s,
		c: collection[sessionRecord]{store: s, key: KeySessions, owner: func(r sessionRecord) string { return r.UserID }},
	}
}

// Create はセッションを作成する。
func (r *SessionRepo) Create(ctx context.Context, session *model.Session) error {
	return r.c.modify(ctx, func(all []sessionRecord) ([]sessionRecord, error) {
		return append(all, sessionRecord{
			ID: session.ID, UserID: session.UserID, ExpiresAt: session.ExpiresAt, CreatedAt: session.CreatedAt,
		}), nil
	})
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *SessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	all, err := r.c.load(ctx)
	if err != nil {
		return nil, err
	}
	now := r.s.now()
	for _, rec := range all {
		if rec.ID != id {
			continue
		}
		session := &model.Session{ID: rec.ID, UserID: rec.UserID, ExpiresAt: rec.ExpiresAt, CreatedAt: rec.CreatedAt}
		if session.Expired(now) {
			return nil, nil
		}
		return session, nil
	}
	return nil, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *SessionRepo) DeleteByID(ctx context.Context, id string) error {
	return r.c.modify(ctx, func(all []sessionRecord) ([]sessionRecord, error) {
		return slices.DeleteFunc(all, func(rec sessionRecord) bool { return rec.ID == id }), nil
	})
}

// DeleteByUserID は指定ユーザーの全セッションを削除する。
func (r *SessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return r.c.modifyOwned(ctx, userID, func([]sessionRecord) ([]sessionRecord, error) {
		return nil, nil
	})
}

// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	var deleted int64
	now := r.s.now()
	err := r.c.modify(ctx, func(all []sessionRecord) ([]sessionRecord, error) {
		before := len(all)
		all = slices.DeleteFunc(all, func(rec sessionRecord) bool { return !rec.ExpiresAt.After(now) })
		deleted = int64(before - len(all))
		return all, nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// compile-time interface check
var (
	_ repository.UserRepository     = (*UserRepo)(nil)
	_ repository.IdentityRepository = (*IdentityRepo)(nil)
	_ repository.SessionRepository  = (*SessionRepo)(nil)
)

var (
	_ repository.UserRepository     = (*UserRepo)(nil)
	_ repository.IdentityRepository = (*IdentityRepo)(nil)
	_ repository.SessionRepository  = (*SessionRepo)(nil)
)
