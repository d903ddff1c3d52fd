package localstore

import (
	"context"
	"slices"

	"github.com/hitoshi/secondbrain/internal/model"
	"github.com/hitoshi/secondbrain/internal/repository"
)

// ExamRepo はローカルストアの試験計画リポジトリ。
type ExamRepo struct {
	s *Store
	c collection[examRecord]
}

// NewExamRepo はExamRepoを生成する。
func NewExamRepo(s *Store) *ExamRepo {
	return &ExamRepo{
		s: s,
		c: collection[examRecord]{store: s, key: KeyExams, owner: func(r examRecord) string { return r.UserID }},
	}
}

func examID(r examRecord) string { return r.ID }

// List は所有者の試験計画をdate昇順で返す。
func (r *ExamRepo) List(ctx context.Context, userID string) ([]model.Exam, error) {
	records, err := r.c.owned(ctx, userID)
	if err != nil {
		return nil, err
	}
	exams := make([]model.Exam, 0, len(records))
	for _, rec := range records {
		exams = append(exams, rec.model())
	}
	slices.SortStableFunc(exams, model.CompareExams)
	return exams, nil
}

// Create は試験計画を作成する。
func (r *ExamRepo) Create(ctx context.Context, exam *model.Exam) (*model.Exam, error) {
	now := r.s.now()
	out := *exam
	out.ID = r.s.newID()
	out.Options = append([]string{}, exam.Options...)
	out.CreatedAt = now
	out.UpdatedAt = now

	err := r.c.modify(ctx, func(all []examRecord) ([]examRecord, error) {
		return append(all, newExamRecord(out)), nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update はパッチを適用し更新後の試験計画を返す。
func (r *ExamRepo) Update(ctx context.Context, userID, id string, patch model.ExamPatch) (*model.Exam, error) {
	var updated model.Exam
	err := r.c.modifyOwned(ctx, userID, func(owned []examRecord) ([]examRecord, error) {
		i := indexOf(owned, id, examID)
		if i < 0 {
			return nil, model.NewNotFoundError("exams", id)
		}
		updated = owned[i].model().Apply(patch)
		updated.UpdatedAt = r.s.now()
		owned[i] = newExamRecord(updated)
		return owned, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete は試験計画を削除する。
func (r *ExamRepo) Delete(ctx context.Context, userID, id string) error {
	return r.c.modifyOwned(ctx, userID, func(owned []examRecord) ([]examRecord, error) {
		i := indexOf(owned, id, examID)
		if i < 0 {
			return nil, model.NewNotFoundError("exams", id)
		}
		return slices.Delete(owned, i, i+1), nil
	})
}

// DeleteByUserID は所有者の全試験計画を削除する。
func (r *ExamRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return r.c.modifyOwned(ctx, userID, func([]examRecord) ([]examRecord, error) {
		return nil, nil
	})
}

var _ repository.ExamRepository = (*ExamRepo)(nil)
