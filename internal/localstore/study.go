package localstore

import (
	"context"

	"github.com/hitoshi/secondbrain/internal/model"
	"github.com/hitoshi/secondbrain/internal/repository"
)

// StudyRepo はローカルストアのポモドーロ記録リポジトリ。
type StudyRepo struct {
	s *Store
	c collection[studyRecord]
}

// NewStudyRepo はStudyRepoを生成する。
func NewStudyRepo(s *Store) *StudyRepo {
	return &StudyRepo{
		s: s,
		c: collection[studyRecord]{store: s, key: KeyStudy, owner: func(r studyRecord) string { return r.UserID }},
	}
}

// Create は完了した区間を記録する。
func (r *StudyRepo) Create(ctx context.Context, session *model.StudySession) (*model.StudySession, error) {
	out := *session
	out.ID = r.s.newID()
	out.CompletedAt = r.s.now()
	err := r.c.modify(ctx, func(all []studyRecord) ([]studyRecord, error) {
		return append(all, studyRecord{
			ID: out.ID, UserID: out.UserID, Kind: string(out.Kind), Minutes: out.Minutes, CompletedAt: out.CompletedAt,
		}), nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SumMinutes は指定種別の合計分数を返す。
func (r *StudyRepo) SumMinutes(ctx context.Context, userID string, kind model.StudyKind) (int, error) {
	records, err := r.c.owned(ctx, userID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, rec := range records {
		if rec.Kind == string(kind) {
			total += rec.Minutes
		}
	}
	return total, nil
}

// DeleteByUserID は所有者の全記録を削除する。
func (r *StudyRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return r.c.modifyOwned(ctx, userID, func([]studyRecord) ([]studyRecord, error) {
		return nil, nil
	})
}

var _ repository.StudyRepository = (*StudyRepo)(nil)
