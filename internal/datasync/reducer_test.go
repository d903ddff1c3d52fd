package datasync

import (
	"reflect"
	"testing"
	"time"

	"github.com/hitoshi/secondbrain/internal/model"
)

func readyState() State {
	s := Reduce(State{}, LoadStarted{UserID: "u1", Generation: 1})
	return Reduce(s, LoadFinished{
		Generation: 1,
		Notes: []model.Note{
			{ID: "n1", UserID: "u1", Title: "old", CreatedAt: baseTime},
			{ID: "n2", UserID: "u1", Title: "new", CreatedAt: baseTime.Add(time.Hour)},
		},
		Tasks: []model.Task{{ID: "t1", UserID: "u1", CreatedAt: baseTime}},
	})
}

func TestReduce_LoadFinishedSortsAndBecomesReady(t *testing.T) {
	s := readyState()
	if s.Status != StatusReady {
		t.Fatalf("Status = %q, want ready", s.Status)
	}
	if s.Notes[0].ID != "n2" {
		t.Errorf("notes should be newest first, got %s", s.Notes[0].ID)
	}
	if s.Events == nil || s.Exams == nil {
		t.Error("missing collections should be empty, not nil")
	}
}

func TestReduce_SignedOutClearsEverything(t *testing.T) {
	s := Reduce(readyState(), SignedOut{})
	if s.Status != StatusNoUser || s.UserID != "" {
		t.Errorf("unexpected state: %+v", s)
	}
	if len(s.Notes)+len(s.Tasks)+len(s.Events)+len(s.Exams) != 0 {
		t.Error("all collections must be empty after sign-out")
	}
}

func TestReduce_StaleLoadIsDiscarded(t *testing.T) {
	s := Reduce(State{}, LoadStarted{UserID: "u1", Generation: 1})
	s = Reduce(s, LoadStarted{UserID: "u2", Generation: 2})

	s = Reduce(s, LoadFinished{Generation: 1, Notes: []model.Note{{ID: "from-u1"}}})
	if s.Status != StatusLoading || len(s.Notes) != 0 {
		t.Fatalf("stale load must be ignored: %+v", s)
	}

	s = Reduce(s, LoadFinished{Generation: 2, Notes: []model.Note{{ID: "from-u2"}}})
	if s.Status != StatusReady || s.UserID != "u2" || s.Notes[0].ID != "from-u2" {
		t.Errorf("latest load should win: %+v", s)
	}
}

func TestReduce_SavedUpsertsAndResorts(t *testing.T) {
	s := readyState()

	s = Reduce(s, NoteSaved{Generation: 1, Note: model.Note{ID: "n3", CreatedAt: baseTime.Add(2 * time.Hour)}})
	if len(s.Notes) != 3 || s.Notes[0].ID != "n3" {
		t.Fatalf("new note should be first: %+v", s.Notes)
	}

	s = Reduce(s, NoteSaved{Generation: 1, Note: model.Note{ID: "n1", Title: "edited", CreatedAt: baseTime}})
	if len(s.Notes) != 3 || s.Notes[2].Title != "edited" {
		t.Errorf("existing note should be replaced in place: %+v", s.Notes)
	}
}

func TestReduce_RemovedDeletesByID(t *testing.T) {
	s := Reduce(readyState(), TaskRemoved{Generation: 1, ID: "t1"})
	if len(s.Tasks) != 0 {
		t.Errorf("task should be removed: %+v", s.Tasks)
	}
	s = Reduce(s, TaskRemoved{Generation: 1, ID: "missing"})
	if len(s.Tasks) != 0 {
		t.Error("removing a missing id is a no-op")
	}
}

func TestReduce_MutationFromOldGenerationIgnored(t *testing.T) {
	s := readyState()
	next := Reduce(s, EventSaved{Generation: 99, Event: model.Event{ID: "e1"}})
	if len(next.Events) != 0 {
		t.Error("mutation of a different generation must be ignored")
	}

	loading := Reduce(s, LoadStarted{UserID: "u1", Generation: 2})
	next = Reduce(loading, ExamSaved{Generation: 2, Exam: model.Exam{ID: "x"}})
	if len(next.Exams) != 0 {
		t.Error("mutation while loading must be ignored")
	}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	s := readyState()
	before := s.Clone()

	_ = Reduce(s, NoteSaved{Generation: 1, Note: model.Note{ID: "n1", Title: "changed"}})
	_ = Reduce(s, NoteRemoved{Generation: 1, ID: "n2"})
	_ = Reduce(s, SignedOut{})

	if !reflect.DeepEqual(s, before) {
		t.Error("Reduce must not modify the input state")
	}
}
