package model

import "time"

// EventType はカレンダーイベントの種別を表す。
type EventType string

const (
	EventTypeTask    EventType = "tarea"
	EventTypeDueDate EventType = "entrega"
	EventTypeProject EventType = "proyecto"
	EventTypeOther   EventType = "otro"
)

// Valid は定義済みの種別かを返す。
func (t EventType) Valid() bool {
	switch t {
	case EventTypeTask, EventTypeDueDate, EventTypeProject, EventTypeOther:
		return true
	default:
		return false
	}
}

// Event はカレンダーイベントを表す。
// DateはISO形式（YYYY-MM-DD または RFC 3339）の文字列で、昇順ソートのキーになる。
type Event struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Date        string
	Type        EventType
	Color       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventPatch はイベントの部分更新内容を表す。
type EventPatch struct {
	Title       *string
	Description *string
	Date        *string
	Type        *EventType
	Color       *string
}

// IsEmpty は更新対象のフィールドが1つもないかを返す。
func (p EventPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Date == nil && p.Type == nil && p.Color == nil
}

// Apply はパッチを適用した新しいEventを返す。
func (e Event) Apply(p EventPatch) Event {
	out := e
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Date != nil {
		out.Date = *p.Date
	}
	if p.Type != nil {
		out.Type = *p.Type
	}
	if p.Color != nil {
		out.Color = *p.Color
	}
	return out
}
