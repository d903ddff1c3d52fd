package model

import "time"

// ExamPriority は試験準備の優先度を表す。
type ExamPriority string

const (
	ExamPriorityHigh   ExamPriority = "alta"
	ExamPriorityMedium ExamPriority = "media"
	ExamPriorityLow    ExamPriority = "baja"
)

// Valid は定義済みの優先度かを返す。
func (p ExamPriority) Valid() bool {
	switch p {
	case ExamPriorityHigh, ExamPriorityMedium, ExamPriorityLow:
		return true
	default:
		return false
	}
}

// Exam はGROW法（Goal, Reality, Options, Way forward）による試験計画を表す。
type Exam struct {
	ID         string
	UserID     string
	Subject    string
	Date       string
	Goal       string
	Reality    string
	Options    []string
	WayForward string
	Completed  bool
	Priority   ExamPriority
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ExamPatch は試験計画の部分更新内容を表す。
type ExamPatch struct {
	Subject    *string
	Date       *string
	Goal       *string
	Reality    *string
	Options    *[]string
	WayForward *string
	Completed  *bool
	Priority   *ExamPriority
}

// IsEmpty は更新対象のフィールドが1つもないかを返す。
func (p ExamPatch) IsEmpty() bool {
	return p.Subject == nil && p.Date == nil && p.Goal == nil && p.Reality == nil &&
		p.Options == nil && p.WayForward == nil && p.Completed == nil && p.Priority == nil
}

// Apply はパッチを適用した新しいExamを返す。
func (e Exam) Apply(p ExamPatch) Exam {
	out := e
	if p.Subject != nil {
		out.Subject = *p.Subject
	}
	if p.Date != nil {
		out.Date = *p.Date
	}
	if p.Goal != nil {
		out.Goal = *p.Goal
	}
	if p.Reality != nil {
		out.Reality = *p.Reality
	}
	if p.Options != nil {
		out.Options = append([]string{}, (*p.Options)...)
	} else {
		out.Options = append([]string(nil), e.Options...)
	}
	if p.WayForward != nil {
		out.WayForward = *p.WayForward
	}
	if p.Completed != nil {
		out.Completed = *p.Completed
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	return out
}
