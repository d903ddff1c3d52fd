package localstore

import (
	"time"

	"github.com/hitoshi/secondbrain/internal/model"
)

// 永続化用のJSON表現。キー名はcamelCase。

type noteRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newNoteRecord(n model.Note) noteRecord {
	return noteRecord{
		ID: n.ID, UserID: n.UserID, Title: n.Title, Content: n.Content,
		Tags: n.Tags, CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt,
	}
}

func (r noteRecord) model() model.Note {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return model.Note{
		ID: r.ID, UserID: r.UserID, Title: r.Title, Content: r.Content,
		Tags: tags, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type taskRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	DueDate     string    `json:"dueDate"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newTaskRecord(t model.Task) taskRecord {
	return taskRecord{
		ID: t.ID, UserID: t.UserID, Title: t.Title, Description: t.Description,
		Completed: t.Completed, DueDate: t.DueDate, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	}
}

func (r taskRecord) model() model.Task {
	return model.Task{
		ID: r.ID, UserID: r.UserID, Title: r.Title, Description: r.Description,
		Completed: r.Completed, DueDate: model.NormalizeDueDate(r.DueDate),
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type eventRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	Type        string    `json:"type"`
	Color       string    `json:"color,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newEventRecord(e model.Event) eventRecord {
	return eventRecord{
		ID: e.ID, UserID: e.UserID, Title: e.Title, Description: e.Description,
		Date: e.Date, Type: string(e.Type), Color: e.Color,
		CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt,
	}
}

func (r eventRecord) model() model.Event {
	return model.Event{
		ID: r.ID, UserID: r.UserID, Title: r.Title, Description: r.Description,
		Date: r.Date, Type: model.EventType(r.Type), Color: r.Color,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type examRecord struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Subject    string    `json:"subject"`
	Date       string    `json:"date"`
	Goal       string    `json:"goal"`
	Reality    string    `json:"reality"`
	Options    []string  `json:"options"`
	WayForward string    `json:"wayForward"`
	Completed  bool      `json:"completed"`
	Priority   string    `json:"priority"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func newExamRecord(e model.Exam) examRecord {
	options := e.Options
	if options == nil {
		options = []string{}
	}
	return examRecord{
		ID: e.ID, UserID: e.UserID, Subject: e.Subject, Date: e.Date, Goal: e.Goal,
		Reality: e.Reality, Options: options, WayForward: e.WayForward, Completed: e.Completed,
		Priority: string(e.Priority), CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt,
	}
}

func (r examRecord) model() model.Exam {
	options := r.Options
	if options == nil {
		options = []string{}
	}
	return model.Exam{
		ID: r.ID, UserID: r.UserID, Subject: r.Subject, Date: r.Date, Goal: r.Goal,
		Reality: r.Reality, Options: options, WayForward: r.WayForward, Completed: r.Completed,
		Priority: model.ExamPriority(r.Priority), CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type userRecord struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (r userRecord) model() *model.User {
	return &model.User{
		ID: r.ID, Email: r.Email, Name: r.Name, PasswordHash: r.PasswordHash,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type identityRecord struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"providerUserId"`
	CreatedAt      time.Time `json:"createdAt"`
}

type sessionRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

type studyRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Kind        string    `json:"kind"`
	Minutes     int       `json:"minutes"`
	CompletedAt time.Time `json:"completedAt"`
}
