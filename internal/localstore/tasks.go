package localstore

import (
	"context"
	"slices"

	"github.com/hitoshi/secondbrain/internal/model"
	"github.com/hitoshi/secondbrain/internal/repository"
)

// TaskRepo はローカルストアのタスクリポジトリ。
type TaskRepo struct {
	s *Store
	c collection[taskRecord]
}

// NewTaskRepo はTaskRepoを生成する。
func NewTaskRepo(s *Store) *TaskRepo {
	return &TaskRepo{
		s: s,
		c: collection[taskRecord]{store: s, key: KeyTasks, owner: func(r taskRecord) string { return r.UserID }},
	}
}

func taskID(r taskRecord) string { return r.ID }

// List は所有者のタスクをcreated_at降順で返す。
func (r *TaskRepo) List(ctx context.Context, userID string) ([]model.Task, error) {
	records, err := r.c.owned(ctx, userID)
	if err != nil {
		return nil, err
	}
	tasks := make([]model.Task, 0, len(records))
	for _, rec := range records {
		tasks = append(tasks, rec.model())
	}
	slices.SortStableFunc(tasks, model.CompareTasks)
	return tasks, nil
}

// Create はタスクを作成する。
func (r *TaskRepo) Create(ctx context.Context, task *model.Task) (*model.Task, error) {
	now := r.s.now()
	out := *task
	out.ID = r.s.newID()
	out.DueDate = model.NormalizeDueDate(task.DueDate)
	out.CreatedAt = now
	out.UpdatedAt = now

	err := r.c.modify(ctx, func(all []taskRecord) ([]taskRecord, error) {
		return append(all, newTaskRecord(out)), nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update はパッチを適用し更新後のタスクを返す。
func (r *TaskRepo) Update(ctx context.Context, userID, id string, patch model.TaskPatch) (*model.Task, error) {
	var updated model.Task
	err := r.c.modifyOwned(ctx, userID, func(owned []taskRecord) ([]taskRecord, error) {
		i := indexOf(owned, id, taskID)
		if i < 0 {
			return nil, model.NewNotFoundError("tasks", id)
		}
		updated = owned[i].model().Apply(patch)
		updated.UpdatedAt = r.s.now()
		owned[i] = newTaskRecord(updated)
		return owned, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete はタスクを削除する。
func (r *TaskRepo) Delete(ctx context.Context, userID, id string) error {
	return r.c.modifyOwned(ctx, userID, func(owned []taskRecord) ([]taskRecord, error) {
		i := indexOf(owned, id, taskID)
		if i < 0 {
			return nil, model.NewNotFoundError("tasks", id)
		}
		return slices.Delete(owned, i, i+1), nil
	})
}

// DeleteByUserID は所有者の全タスクを削除する。
func (r *TaskRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return r.c.modifyOwned(ctx, userID, func([]taskRecord) ([]taskRecord, error) {
		return nil, nil
	})
}

var _ repository.TaskRepository = (*TaskRepo)(nil)
