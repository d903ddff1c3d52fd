// Package study はポモドーロ学習タイマーの記録を提供する。
package study

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/secondbrain/internal/model"
	"github.com/hitoshi/secondbrain/internal/repository"
)

// ポモドーロの既定区間（分）
const (
	DefaultWorkMinutes  = 25
	DefaultBreakMinutes = 5
	// MaxMinutes は1区間として記録できる上限
	MaxMinutes = 180
)

// Summary は学習時間の集計を表す。
type Summary struct {
	WorkMinutes  int
	BreakMinutes int
}

// Service はポモドーロ記録のサービス層。
type Service struct {
	repo repository.StudyRepository
}

// NewService はServiceを生成する。
func NewService(repo repository.StudyRepository) *Service {
	return &Service{repo: repo}
}

// RecordSession は完了した区間を記録する。minutesが0の場合は種別の既定値を使う。
func (s *Service) RecordSession(ctx context.Context, userID string, kind model.StudyKind, minutes int) (*model.StudySession, error) {
	if !kind.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("Tipo de sesión no válido: %q", kind))
	}
	if minutes == 0 {
		minutes = DefaultMinutes(kind)
	}
	if minutes < 1 || minutes > MaxMinutes {
		return nil, model.NewValidationError(fmt.Sprintf("La duración debe estar entre 1 y %d minutos", MaxMinutes))
	}

	recorded, err := s.repo.Create(ctx, &model.StudySession{
		UserID:  userID,
		Kind:    kind,
		Minutes: minutes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record study session: %w", err)
	}

	slog.Info("study session recorded",
		slog.String("user_id", userID),
		slog.String("kind", string(kind)),
		slog.Int("minutes", minutes),
	)
	return recorded, nil
}

// TotalMinutes は完了した作業区間の合計分数を返す。
func (s *Service) TotalMinutes(ctx context.Context, userID string) (int, error) {
	total, err := s.repo.SumMinutes(ctx, userID, model.StudyKindWork)
	if err != nil {
		return 0, fmt.Errorf("failed to sum work minutes: %w", err)
	}
	return total, nil
}

// Summarize は作業・休憩それぞれの合計分数を返す。
func (s *Service) Summarize(ctx context.Context, userID string) (*Summary, error) {
	work, err := s.TotalMinutes(ctx, userID)
	if err != nil {
		return nil, err
	}
	rest, err := s.repo.SumMinutes(ctx, userID, model.StudyKindBreak)
	if err != nil {
		return nil, fmt.Errorf("failed to sum break minutes: %w", err)
	}
	return &Summary{WorkMinutes: work, BreakMinutes: rest}, nil
}

// DefaultMinutes は区間種別の既定の長さを返す。
func DefaultMinutes(kind model.StudyKind) int {
	if kind == model.StudyKindBreak {
		return DefaultBreakMinutes
	}
	return DefaultWorkMinutes
}
