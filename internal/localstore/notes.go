package localstore

import (
	"context"
	"slices"

	"github.com/hitoshi/secondbrain/internal/model"
	"github.com/hitoshi/secondbrain/internal/repository"
)

// NoteRepo はローカルストアのメモリポジトリ。
type NoteRepo struct {
	s *Store
	c collection[noteRecord]
}

// NewNoteRepo はNoteRepoを生成する。
func NewNoteRepo(s *Store) *NoteRepo {
	return &NoteRepo{
		s: s,
		c: collection[noteRecord]{store: s, key: KeyNotes, owner: func(r noteRecord) string { return r.UserID }},
	}
}

func noteID(r noteRecord) string { return r.ID }

// List は所有者のメモをcreated_at降順で返す。
func (r *NoteRepo) List(ctx context.Context, userID string) ([]model.Note, error) {
	records, err := r.c.owned(ctx, userID)
	if err != nil {
		return nil, err
	}
	notes := make([]model.Note, 0, len(records))
	for _, rec := range records {
		notes = append(notes, rec.model())
	}
	slices.SortStableFunc(notes, model.CompareNotes)
	return notes, nil
}

// Create はメモを作成する。
func (r *NoteRepo) Create(ctx context.Context, note *model.Note) (*model.Note, error) {
	now := r.s.now()
	out := *note
	out.ID = r.s.newID()
	out.Tags = model.NormalizeTags(note.Tags)
	out.CreatedAt = now
	out.UpdatedAt = now

	err := r.c.modify(ctx, func(all []noteRecord) ([]noteRecord, error) {
		return append(all, newNoteRecord(out)), nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update はパッチを適用し更新後のメモを返す。
func (r *NoteRepo) Update(ctx context.Context, userID, id string, patch model.NotePatch) (*model.Note, error) {
	var updated model.Note
	err := r.c.modifyOwned(ctx, userID, func(owned []noteRecord) ([]noteRecord, error) {
		i := indexOf(owned, id, noteID)
		if i < 0 {
			return nil, model.NewNotFoundError("notes", id)
		}
		updated = owned[i].model().Apply(patch)
		updated.UpdatedAt = r.s.now()
		owned[i] = newNoteRecord(updated)
		return owned, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete はメモを削除する。
func (r *NoteRepo) Delete(ctx context.Context, userID, id string) error {
	return r.c.modifyOwned(ctx, userID, func(owned []noteRecord) ([]noteRecord, error) {
		i := indexOf(owned, id, noteID)
		if i < 0 {
			return nil, model.NewNotFoundError("notes", id)
		}
		return slices.Delete(owned, i, i+1), nil
	})
}

// DeleteByUserID は所有者の全メモを削除する。
func (r *NoteRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return r.c.modifyOwned(ctx, userID, func([]noteRecord) ([]noteRecord, error) {
		return nil, nil
	})
}

var _ repository.NoteRepository = (*NoteRepo)(nil)
