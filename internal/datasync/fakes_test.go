package datasync

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hitoshi/secondbrain/internal/model"
)

var baseTime = time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

// memRepo はテスト用のインメモリアクセサ。エラーとフックで失敗や遅延を再現する。
type memRepo[T any, P any] struct {
	mu    sync.Mutex
	items []T
	seq   int

	idOf    func(T) string
	ownerOf func(T) string
	stamp   func(*T, string, time.Time)
	apply   func(T, P) T
	cmp     func(a, b T) int

	listErr   error
	createErr error
	updateErr error
	deleteErr error

	listCalls  int
	beforeList func(userID string)
}

func (r *memRepo[T, P]) List(ctx context.Context, userID string) ([]T, error) {
	if r.beforeList != nil {
		r.beforeList(userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := []T{}
	for _, it := range r.items {
		if r.ownerOf(it) == userID {
			out = append(out, it)
		}
	}
	slices.SortStableFunc(out, r.cmp)
	return out, nil
}

func (r *memRepo[T, P]) Create(ctx context.Context, item *T) (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.seq++
	out := *item
	r.stamp(&out, fmt.Sprintf("id-%d", r.seq), baseTime.Add(time.Duration(r.seq)*time.Minute))
	r.items = append(r.items, out)
	return &out, nil
}

func (r *memRepo[T, P]) Update(ctx context.Context, userID, id string, patch P) (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	for i, it := range r.items {
		if r.idOf(it) == id && r.ownerOf(it) == userID {
			r.items[i] = r.apply(it, patch)
			out := r.items[i]
			return &out, nil
		}
	}
	return nil, model.NewNotFoundError("test", id)
}

func (r *memRepo[T, P]) Delete(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	for i, it := range r.items {
		if r.idOf(it) == id && r.ownerOf(it) == userID {
			r.items = slices.Delete(r.items, i, i+1)
			return nil
		}
	}
	return model.NewNotFoundError("test", id)
}

func (r *memRepo[T, P]) DeleteByUserID(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = slices.DeleteFunc(r.items, func(it T) bool { return r.ownerOf(it) == userID })
	return nil
}

func (r *memRepo[T, P]) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls
}

func (r *memRepo[T, P]) setUpdateErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateErr = err
}

type fakeRepos struct {
	notes  *memRepo[model.Note, model.NotePatch]
	tasks  *memRepo[model.Task, model.TaskPatch]
	events *memRepo[model.Event, model.EventPatch]
	exams  *memRepo[model.Exam, model.ExamPatch]
}

func newFakeRepos() *fakeRepos {
	return &fakeRepos{
		notes: &memRepo[model.Note, model.NotePatch]{
			idOf:    func(n model.Note) string { return n.ID },
			ownerOf: func(n model.Note) string { return n.UserID },
			stamp: func(n *model.Note, id string, at time.Time) {
				n.ID, n.CreatedAt, n.UpdatedAt = id, at, at
			},
			apply: model.Note.Apply,
			cmp:   model.CompareNotes,
		},
		tasks: &memRepo[model.Task, model.TaskPatch]{
			idOf:    func(t model.Task) string { return t.ID },
			ownerOf: func(t model.Task) string { return t.UserID },
			stamp: func(t *model.Task, id string, at time.Time) {
				t.ID, t.CreatedAt, t.UpdatedAt = id, at, at
			},
			apply: model.Task.Apply,
			cmp:   model.CompareTasks,
		},
		events: &memRepo[model.Event, model.EventPatch]{
			idOf:    func(e model.Event) string { return e.ID },
			ownerOf: func(e model.Event) string { return e.UserID },
			stamp: func(e *model.Event, id string, at time.Time) {
				e.ID, e.CreatedAt, e.UpdatedAt = id, at, at
			},
			apply: model.Event.Apply,
			cmp:   model.CompareEvents,
		},
		exams: &memRepo[model.Exam, model.ExamPatch]{
			idOf:    func(e model.Exam) string { return e.ID },
			ownerOf: func(e model.Exam) string { return e.UserID },
			stamp: func(e *model.Exam, id string, at time.Time) {
				e.ID, e.CreatedAt, e.UpdatedAt = id, at, at
			},
			apply: model.Exam.Apply,
			cmp:   model.CompareExams,
		},
	}
}

func (f *fakeRepos) accessors() Accessors {
	return Accessors{Notes: f.notes, Tasks: f.tasks, Events: f.events, Exams: f.exams}
}

// fakeRecorder は記録されたメトリクスを保持する。
type fakeRecorder struct {
	mu        sync.Mutex
	loads     []string
	mutations []string
}

func (r *fakeRecorder) ObserveLoad(result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads = append(r.loads, result)
}

func (r *fakeRecorder) ObserveMutation(collection, op, result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mutations = append(r.mutations, collection+"/"+op+"/"+result)
}

func (r *fakeRecorder) snapshot() ([]string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.loads), slices.Clone(r.mutations)
}
