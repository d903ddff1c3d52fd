package localstore

import (
	"context"
	"slices"

	"github.com/hitoshi/secondbrain/internal/model"
	"github.com/hitoshi/secondbrain/internal/repository"
)

// EventRepo はローカルストアのイベントリポジトリ。
type EventRepo struct {
	s *Store
	c collection[eventRecord]
}

// NewEventRepo はEventRepoを生成する。
func NewEventRepo(s *Store) *EventRepo {
	return &EventRepo{
		s: s,
		c: collection[eventRecord]{store: s, key: KeyEvents, owner: func(r eventRecord) string { return r.UserID }},
	}
}

func eventID(r eventRecord) string { return r.ID }

// List は所有者のイベントをdate昇順で返す。
func (r *EventRepo) List(ctx context.Context, userID string) ([]model.Event, error) {
	records, err := r.c.owned(ctx, userID)
	if err != nil {
		return nil, err
	}
	events := make([]model.Event, 0, len(records))
	for _, rec := range records {
		events = append(events, rec.model())
	}
	slices.SortStableFunc(events, model.CompareEvents)
	return events, nil
}

// Create はイベントを作成する。
func (r *EventRepo) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	now := r.s.now()
	out := *event
	out.ID = r.s.newID()
	out.CreatedAt = now
	out.UpdatedAt = now

	err := r.c.modify(ctx, func(all []eventRecord) ([]eventRecord, error) {
		return append(all, newEventRecord(out)), nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update はパッチを適用し更新後のイベントを返す。
func (r *EventRepo) Update(ctx context.Context, userID, id string, patch model.EventPatch) (*model.Event, error) {
	var updated model.Event
	err := r.c.modifyOwned(ctx, userID, func(owned []eventRecord) ([]eventRecord, error) {
		i := indexOf(owned, id, eventID)
		if i < 0 {
			return nil, model.NewNotFoundError("events", id)
		}
		updated = owned[i].model().Apply(patch)
		updated.UpdatedAt = r.s.now()
		owned[i] = newEventRecord(updated)
		return owned, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete はイベントを削除する。
func (r *EventRepo) Delete(ctx context.Context, userID, id string) error {
	return r.c.modifyOwned(ctx, userID, func(owned []eventRecord) ([]eventRecord, error) {
		i := indexOf(owned, id, eventID)
		if i < 0 {
			return nil, model.NewNotFoundError("events", id)
		}
		return slices.Delete(owned, i, i+1), nil
	})
}

// DeleteByUserID は所有者の全イベントを削除する。
func (r *EventRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return r.c.modifyOwned(ctx, userID, func([]eventRecord) ([]eventRecord, error) {
		return nil, nil
	})
}

var _ repository.EventRepository = (*EventRepo)(nil)
