package datasync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/secondbrain/internal/model"
)

// 変更操作の種類
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpToggle = "toggle"
)

// 変更操作の結果
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// begin は変更操作の前提条件を確認し、対象ユーザーと世代を返す。
func (c *Context) begin() (string, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state.Status {
	case StatusNoUser:
		return "", 0, model.NewDataError(model.ErrCodeUnauthenticated)
	case StatusLoading:
		return "", 0, model.NewDataError(model.ErrCodeFailedPrecondition)
	}
	c.lastUsed = c.now()
	return c.state.UserID, c.state.Generation, nil
}

// observe はリモート書き込みの結果を記録する。失敗はログに出力する。
func (c *Context) observe(collection, op, userID string, start time.Time, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
		c.logger.Error("リモートへの書き込みに失敗しました",
			slog.String("collection", collection),
			slog.String("op", op),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
	c.rec.ObserveMutation(collection, op, result, c.now().Sub(start))
}

// AddNote はメモを作成する。所有者は現在のユーザーになる。
func (c *Context) AddNote(ctx context.Context, note model.Note) (*model.Note, error) {
	userID, gen, err := c.begin()
	if err != nil {
		return nil, err
	}
	note.UserID = userID

	start := c.now()
	created, err := c.acc.Notes.Create(ctx, &note)
	c.observe("notes", OpCreate, userID, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to add note: %w", err)
	}
	c.dispatch(NoteSaved{Generation: gen, Note: *created})
	return created, nil
}

// UpdateNote はメモを部分更新する。
func (c *Context) UpdateNote(ctx context.Context, id string, patch model.NotePatch) (*model.Note, error) {
	userID, gen, err := c.begin()
	if err != nil {
		return nil, err
	}

	start := c.now()
	updated, err := c.acc.Notes.Update(ctx, userID, id, patch)
	c.observe("notes", OpUpdate, userID, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	c.dispatch(NoteSaved{Generation: gen, Note: *updated})
	return updated, nil
}

// DeleteNote はメモを削除する。
func (c *Context) DeleteNote(ctx context.Context, id string) error {
	userID, gen, err := c.begin()
	if err != nil {
		return err
	}

	start := c.now()
	err = c.acc.Notes.Delete(ctx, userID, id)
	c.observe("notes", OpDelete, userID, start, err)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	c.dispatch(NoteRemoved{Generation: gen, ID: id})
	return nil
}

// AddTask はタスクを作成する。期限が空の場合は"Sin fecha"、完了フラグはfalseで作成する。
func (c *Context) AddTask(ctx context.Context, task model.Task) (*model.Task, error) {
	userID, gen, err := c.begin()
	if err != nil {
		return nil, err
	}
	task.UserID = userID
	task.Completed = false
	task.DueDate = model.NormalizeDueDate(task.DueDate)

	start := c.now()
	created, err := c.acc.Tasks.Create(ctx, &task)
	c.observe("tasks", OpCreate, userID, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to add task: %w", err)
	}
	c.dispatch(TaskSaved{Generation: gen, Task: *created})
	return created, nil
}

// UpdateTask はタスクを部分更新する。
func (c *Context) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error) {
	userID, gen, err := c.begin()
	if err != nil {
		return nil, err
	}
	return c.updateTask(ctx, userID, gen, id, patch, OpUpdate)
}

func (c *Context) updateTask(ctx context.Context, userID string, gen uint64, id string, patch model.TaskPatch, op string) (*model.Task, error) {
	start := c.now()
	updated, err := c.acc.Tasks.Update(ctx, userID, id, patch)
	c.observe("tasks", op, userID, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to %s task: %w", op, err)
	}
	c.dispatch(TaskSaved{Generation: gen, Task: *updated})
	return updated, nil
}

// DeleteTask はタスクを削除する。
func (c *Context) DeleteTask(ctx context.Context, id string) error {
	userID, gen, err := c.begin()
	if err != nil {
		return err
	}

	start := c.now()
	err = c.acc.Tasks.Delete(ctx, userID, id)
	c.observe("tasks", OpDelete, userID, start, err)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	c.dispatch(TaskRemoved{Generation: gen, ID: id})
	return nil
}

// ToggleTask はミラー上の完了フラグを反転してリモートに書き込む。
// ミラーに存在しない場合はnot-foundを返す。
func (c *Context) ToggleTask(ctx context.Context, id string) (*model.Task, error) {
	userID, gen, err := c.begin()
	if err != nil {
		return nil, err
	}
	current, ok := c.findTask(id)
	if !ok {
		return nil, model.NewNotFoundError("tasks", id)
	}
	completed := !current.Completed
	return c.updateTask(ctx, userID, gen, id, model.TaskPatch{Completed: &completed}, OpToggle)
}

func (c *Context) findTask(id string) (model.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.state.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// AddEvent はイベントを作成する。
func (c *Context) AddEvent(ctx context.Context, event model.Event) (*model.Event, error) {
	userID, gen, err := c.begin()
	if err != nil {
		return nil, err
	}
	event.UserID = userID

	start := c.now()
	created, err := c.acc.Events.Create(ctx, &event)
	c.observe("events", OpCreate, userID, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to add event: %w", err)
	}
	c.dispatch(EventSaved{Generation: gen, Event: *created})
	return created, nil
}

// UpdateEvent はイベントを部分更新する。
func (c *Context) UpdateEvent(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	userID, gen, err := c.begin()
	if err != nil {
		return nil, err
	}

	start := c.now()
	updated, err := c.acc.Events.Update(ctx, userID, id, patch)
	c.observe("events", OpUpdate, userID, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	c.dispatch(EventSaved{Generation: gen, Event: *updated})
	return updated, nil
}

// DeleteEvent はイベントを削除する。
func (c *Context) DeleteEvent(ctx context.Context, id string) error {
	userID, gen, err := c.begin()
	if err != nil {
		return err
	}

	start := c.now()
	err = c.acc.Events.Delete(ctx, userID, id)
	c.observe("events", OpDelete, userID, start, err)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	c.dispatch(EventRemoved{Generation: gen, ID: id})
	return nil
}

// AddExam は試験計画を作成する。完了フラグはfalseで作成する。
func (c *Context) AddExam(ctx context.Context, exam model.Exam) (*model.Exam, error) {
	userID, gen, err := c.begin()
	if err != nil {
		return nil, err
	}
	exam.UserID = userID
	exam.Completed = false

	start := c.now()
	created, err := c.acc.Exams.Create(ctx, &exam)
	c.observe("exams", OpCreate, userID, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to add exam: %w", err)
	}
	c.dispatch(ExamSaved{Generation: gen, Exam: *created})
	return created, nil
}

// UpdateExam は試験計画を部分更新する。
func (c *Context) UpdateExam(ctx context.Context, id string, patch model.ExamPatch) (*model.Exam, error) {
	userID, gen, err := c.begin()
	if err != nil {
		return nil, err
	}
	return c.updateExam(ctx, userID, gen, id, patch, OpUpdate)
}

func (c *Context) updateExam(ctx context.Context, userID string, gen uint64, id string, patch model.ExamPatch, op string) (*model.Exam, error) {
	start := c.now()
	updated, err := c.acc.Exams.Update(ctx, userID, id, patch)
	c.observe("exams", op, userID, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to %s exam: %w", op, err)
	}
	c.dispatch(ExamSaved{Generation: gen, Exam: *updated})
	return updated, nil
}

// DeleteExam は試験計画を削除する。
func (c *Context) DeleteExam(ctx context.Context, id string) error {
	userID, gen, err := c.begin()
	if err != nil {
		return err
	}

	start := c.now()
	err = c.acc.Exams.Delete(ctx, userID, id)
	c.observe("exams", OpDelete, userID, start, err)
	if err != nil {
		return fmt.Errorf("failed to delete exam: %w", err)
	}
	c.dispatch(ExamRemoved{Generation: gen, ID: id})
	return nil
}

// ToggleExam はミラー上の完了フラグを反転してリモートに書き込む。
func (c *Context) ToggleExam(ctx context.Context, id string) (*model.Exam, error) {
	userID, gen, err := c.begin()
	if err != nil {
		return nil, err
	}
	current, ok := c.findExam(id)
	if !ok {
		return nil, model.NewNotFoundError("exams", id)
	}
	completed := !current.Completed
	return c.updateExam(ctx, userID, gen, id, model.ExamPatch{Completed: &completed}, OpToggle)
}

func (c *Context) findExam(id string) (model.Exam, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.state.Exams {
		if e.ID == id {
			return e, true
		}
	}
	return model.Exam{}, false
}
