package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/secondbrain/internal/dashboard"
)

// StudyTotaler は完了した作業時間の合計を返す。
type StudyTotaler interface {
	TotalMinutes(ctx context.Context, userID string) (int, error)
}

// DashboardHandler はダッシュボードのHTTPハンドラー。
type DashboardHandler struct {
	syncs SyncRegistry
	study StudyTotaler
	now   func() time.Time
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(syncs SyncRegistry, study StudyTotaler) *DashboardHandler {
	return &DashboardHandler{syncs: syncs, study: study, now: time.Now}
}

type pendingTaskResponse struct {
	taskResponse
	Due *time.Time `json:"due"`
}

type dashboardResponse struct {
	NotesCount     int                   `json:"notes_count"`
	CompletedTasks int                   `json:"completed_tasks"`
	TotalTasks     int                   `json:"total_tasks"`
	Progress       int                   `json:"progress"`
	StudyMinutes   int                   `json:"study_minutes"`
	PendingTasks   []pendingTaskResponse `json:"pending_tasks"`
	UpcomingExams  []examResponse        `json:"upcoming_exams"`
	UpcomingEvents []eventResponse       `json:"upcoming_events"`
}

// Get はミラーと学習記録からダッシュボードを組み立てて返す。
// GET /api/dashboard
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, ok := acquireSync(w, r, h.syncs)
	if !ok {
		return
	}
	minutes, err := h.study.TotalMinutes(r.Context(), sc.UserID())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	d := dashboard.Build(sc.Snapshot(), minutes, h.now())
	resp := dashboardResponse{
		NotesCount:     d.NotesCount,
		CompletedTasks: d.CompletedTasks,
		TotalTasks:     d.TotalTasks,
		Progress:       d.Progress,
		StudyMinutes:   d.StudyMinutes,
		PendingTasks:   make([]pendingTaskResponse, len(d.PendingTasks)),
		UpcomingExams:  make([]examResponse, len(d.UpcomingExams)),
		UpcomingEvents: make([]eventResponse, len(d.UpcomingEvents)),
	}
	for i, p := range d.PendingTasks {
		resp.PendingTasks[i] = pendingTaskResponse{taskResponse: toTaskResponse(p.Task), Due: p.Due}
	}
	for i, e := range d.UpcomingExams {
		resp.UpcomingExams[i] = toExamResponse(e)
	}
	for i, e := range d.UpcomingEvents {
		resp.UpcomingEvents[i] = toEventResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}
