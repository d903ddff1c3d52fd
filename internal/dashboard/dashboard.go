// Package dashboard はミラーから画面表示用の集計を組み立てる。
package dashboard

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/hitoshi/secondbrain/internal/datasync"
	"github.com/hitoshi/secondbrain/internal/model"
)

// 一覧の表示件数
const (
	MaxPendingTasks  = 5
	MaxUpcomingExams = 3
	MaxUpcomingEvent = 5
)

// Dashboard はダッシュボードの集計結果。
type Dashboard struct {
	NotesCount     int
	CompletedTasks int
	TotalTasks     int
	Progress       int // 完了タスクの割合（0〜100）
	StudyMinutes   int
	PendingTasks   []PendingTask
	UpcomingExams  []model.Exam
	UpcomingEvents []model.Event
}

// PendingTask は未完了タスクと解釈済みの期限。
// Dueは期限を解釈できなかった場合nil。
type PendingTask struct {
	model.Task
	Due *time.Time
}

var dueParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

var dueLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"2006-01-02T15:04",
	"02/01/2006",
}

// ParseDueDate は自由形式の期限を解釈する。ISO形式を優先し、次に自然言語として解釈する。
// DefaultDueDateや解釈できない文字列はfalseを返す。
func ParseDueDate(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == model.DefaultDueDate {
		return time.Time{}, false
	}
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, true
		}
	}
	r, err := dueParser.Parse(s, now)
	if err != nil || r == nil {
		return time.Time{}, false
	}
	return r.Time, true
}

// Build はスナップショットと学習時間からダッシュボードを組み立てる。
func Build(snapshot datasync.State, studyMinutes int, now time.Time) *Dashboard {
	d := &Dashboard{
		NotesCount:     len(snapshot.Notes),
		TotalTasks:     len(snapshot.Tasks),
		StudyMinutes:   studyMinutes,
		PendingTasks:   []PendingTask{},
		UpcomingExams:  []model.Exam{},
		UpcomingEvents: []model.Event{},
	}

	for _, t := range snapshot.Tasks {
		if t.Completed {
			d.CompletedTasks++
			continue
		}
		p := PendingTask{Task: t}
		if due, ok := ParseDueDate(t.DueDate, now); ok {
			p.Due = &due
		}
		d.PendingTasks = append(d.PendingTasks, p)
	}
	if d.TotalTasks > 0 {
		d.Progress = d.CompletedTasks * 100 / d.TotalTasks
	}

	slices.SortStableFunc(d.PendingTasks, comparePending)
	d.PendingTasks = d.PendingTasks[:min(len(d.PendingTasks), MaxPendingTasks)]

	today := now.Format(time.DateOnly)
	for _, e := range snapshot.Exams {
		if !e.Completed && e.Date >= today && len(d.UpcomingExams) < MaxUpcomingExams {
			d.UpcomingExams = append(d.UpcomingExams, e)
		}
	}
	for _, e := range snapshot.Events {
		if e.Date >= today && len(d.UpcomingEvents) < MaxUpcomingEvent {
			d.UpcomingEvents = append(d.UpcomingEvents, e)
		}
	}

	return d
}

// comparePending は期限の早い順に並べる。期限不明は末尾。
func comparePending(a, b PendingTask) int {
	switch {
	case a.Due == nil && b.Due == nil:
		return 0
	case a.Due == nil:
		return 1
	case b.Due == nil:
		return -1
	}
	return cmp.Compare(a.Due.UnixNano(), b.Due.UnixNano())
}
