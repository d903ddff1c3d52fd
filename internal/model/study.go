package model

import "time"

// StudyKind はポモドーロの区間種別を表す。
type StudyKind string

const (
	StudyKindWork  StudyKind = "work"
	StudyKindBreak StudyKind = "break"
)

// Valid は定義済みの区間種別かを返す。
func (k StudyKind) Valid() bool {
	return k == StudyKindWork || k == StudyKindBreak
}

// StudySession は完了したポモドーロ区間の記録を表す。
type StudySession struct {
	ID          string
	UserID      string
	Kind        StudyKind
	Minutes     int
	CompletedAt time.Time
}
