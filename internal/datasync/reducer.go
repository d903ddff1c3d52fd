package datasync

import (
	"slices"

	"github.com/hitoshi/secondbrain/internal/model"
)

// Status は同期コンテキストの状態。
type Status string

const (
	// StatusNoUser は未認証状態。4つのコレクションはすべて空。
	StatusNoUser Status = "no-user"
	// StatusLoading は認証済みユーザーのコレクションを読み込み中の状態。
	StatusLoading Status = "loading"
	// StatusReady はミラーが読み込み済みで、読み取りの正となる状態。
	StatusReady Status = "ready"
)

// State は1ユーザー分のミラー。Reduceは既存のスライスを変更せず、常に新しいStateを返す。
type State struct {
	Status     Status
	UserID     string
	Generation uint64

	Notes  []model.Note
	Tasks  []model.Task
	Events []model.Event
	Exams  []model.Exam
}

// Action はミラーの遷移を表す。
type Action interface {
	action()
}

// SignedOut はユーザーがサインアウトしたことを表す。
type SignedOut struct{}

// LoadStarted は新しい世代の読み込み開始を表す。
type LoadStarted struct {
	UserID     string
	Generation uint64
}

// LoadFinished は4コレクションの読み込み完了を表す。読み込みに失敗したコレクションは空。
type LoadFinished struct {
	Generation uint64
	Notes      []model.Note
	Tasks      []model.Task
	Events     []model.Event
	Exams      []model.Exam
}

// NoteSaved はリモートで作成・更新されたメモを表す。
type NoteSaved struct {
	Generation uint64
	Note       model.Note
}

// NoteRemoved はリモートで削除されたメモを表す。
type NoteRemoved struct {
	Generation uint64
	ID         string
}

// TaskSaved はリモートで作成・更新されたタスクを表す。
type TaskSaved struct {
	Generation uint64
	Task       model.Task
}

// TaskRemoved はリモートで削除されたタスクを表す。
type TaskRemoved struct {
	Generation uint64
	ID         string
}

// EventSaved はリモートで作成・更新されたイベントを表す。
type EventSaved struct {
	Generation uint64
	Event      model.Event
}

// EventRemoved はリモートで削除されたイベントを表す。
type EventRemoved struct {
	Generation uint64
	ID         string
}

// ExamSaved はリモートで作成・更新された試験計画を表す。
type ExamSaved struct {
	Generation uint64
	Exam       model.Exam
}

// ExamRemoved はリモートで削除された試験計画を表す。
type ExamRemoved struct {
	Generation uint64
	ID         string
}

func (SignedOut) action()    {}
func (LoadStarted) action()  {}
func (LoadFinished) action() {}
func (NoteSaved) action()    {}
func (NoteRemoved) action()  {}
func (TaskSaved) action()    {}
func (TaskRemoved) action()  {}
func (EventSaved) action()   {}
func (EventRemoved) action() {}
func (ExamSaved) action()    {}
func (ExamRemoved) action()  {}

// Reduce はアクションを適用した次の状態を返す。I/Oを行わない純粋関数。
//
// 世代が現在と一致しない読み込み完了・変更結果は破棄される。
// 変更結果はready状態でのみ反映され、反映後のコレクションは自然順序で並び替えられる。
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SignedOut:
		return emptyState(StatusNoUser, "", s.Generation)

	case LoadStarted:
		return emptyState(StatusLoading, a.UserID, a.Generation)

	case LoadFinished:
		if s.Status != StatusLoading || a.Generation != s.Generation {
			return s
		}
		next := s
		next.Status = StatusReady
		next.Notes = sorted(a.Notes, model.CompareNotes)
		next.Tasks = sorted(a.Tasks, model.CompareTasks)
		next.Events = sorted(a.Events, model.CompareEvents)
		next.Exams = sorted(a.Exams, model.CompareExams)
		return next

	case NoteSaved:
		if !s.accepts(a.Generation) {
			return s
		}
		s.Notes = upsert(s.Notes, a.Note, func(n model.Note) string { return n.ID }, model.CompareNotes)
	case NoteRemoved:
		if !s.accepts(a.Generation) {
			return s
		}
		s.Notes = remove(s.Notes, a.ID, func(n model.Note) string { return n.ID })

	case TaskSaved:
		if !s.accepts(a.Generation) {
			return s
		}
		s.Tasks = upsert(s.Tasks, a.Task, func(t model.Task) string { return t.ID }, model.CompareTasks)
	case TaskRemoved:
		if !s.accepts(a.Generation) {
			return s
		}
		s.Tasks = remove(s.Tasks, a.ID, func(t model.Task) string { return t.ID })

	case EventSaved:
		if !s.accepts(a.Generation) {
			return s
		}
		s.Events = upsert(s.Events, a.Event, func(e model.Event) string { return e.ID }, model.CompareEvents)
	case EventRemoved:
		if !s.accepts(a.Generation) {
			return s
		}
		s.Events = remove(s.Events, a.ID, func(e model.Event) string { return e.ID })

	case ExamSaved:
		if !s.accepts(a.Generation) {
			return s
		}
		s.Exams = upsert(s.Exams, a.Exam, func(e model.Exam) string { return e.ID }, model.CompareExams)
	case ExamRemoved:
		if !s.accepts(a.Generation) {
			return s
		}
		s.Exams = remove(s.Exams, a.ID, func(e model.Exam) string { return e.ID })
	}
	return s
}

// emptyState は4コレクションが空のStateを返す。
func emptyState(status Status, userID string, generation uint64) State {
	return State{
		Status:     status,
		UserID:     userID,
		Generation: generation,
		Notes:      []model.Note{},
		Tasks:      []model.Task{},
		Events:     []model.Event{},
		Exams:      []model.Exam{},
	}
}

func (s State) accepts(generation uint64) bool {
	return s.Status == StatusReady && s.Generation == generation
}

// Clone はスライスを複製したStateを返す。
func (s State) Clone() State {
	out := s
	out.Notes = slices.Clone(s.Notes)
	out.Tasks = slices.Clone(s.Tasks)
	out.Events = slices.Clone(s.Events)
	out.Exams = slices.Clone(s.Exams)
	return out
}

// sorted は並び替えた複製を返す。nilは空スライスになる。
func sorted[T any](items []T, cmp func(a, b T) int) []T {
	out := make([]T, len(items))
	copy(out, items)
	slices.SortStableFunc(out, cmp)
	return out
}

// upsert はidが一致する要素を置き換え、なければ追加した複製を返す。
func upsert[T any](items []T, item T, idOf func(T) string, cmp func(a, b T) int) []T {
	out := make([]T, 0, len(items)+1)
	replaced := false
	for _, it := range items {
		if idOf(it) == idOf(item) {
			out = append(out, item)
			replaced = true
			continue
		}
		out = append(out, it)
	}
	if !replaced {
		out = append(out, item)
	}
	slices.SortStableFunc(out, cmp)
	return out
}

// remove はidが一致する要素を除いた複製を返す。
func remove[T any](items []T, id string, idOf func(T) string) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if idOf(it) != id {
			out = append(out, it)
		}
	}
	return out
}
