// Package cleanup は定期メンテナンスジョブを提供する。
// 期限切れセッションの削除と、アイドル状態の同期コンテキストの破棄を行う。
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// SessionPurger は期限切れセッションの一括削除インターフェース。
type SessionPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// IdlePruner は一定時間使われていない同期コンテキストを破棄するインターフェース。
type IdlePruner interface {
	EvictIdle(ctx context.Context, maxIdle time.Duration) (int, error)
}

// Recorder はクリーンアップ結果の記録先。
type Recorder interface {
	RecordSessionsPurged(count int64)
	RecordContextsEvicted(count int)
}

// DefaultMaxIdle は同期コンテキストを破棄するまでの既定のアイドル時間。
const DefaultMaxIdle = 30 * time.Minute

// CleanupJob は定期メンテナンスジョブ。
// 冪等な削除処理のみを行うため、何度実行してもよい。
type CleanupJob struct {
	sessions SessionPurger
	contexts IdlePruner
	recorder Recorder
	logger   *slog.Logger
	MaxIdle  time.Duration // 同期コンテキストのアイドル上限（デフォルト: 30分）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// contextsとrecorderはnilでもよい（workerプロセスには同期コンテキストがない）。
func NewCleanupJob(sessions SessionPurger, contexts IdlePruner, recorder Recorder, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		sessions: sessions,
		contexts: contexts,
		recorder: recorder,
		logger:   logger,
		MaxIdle:  DefaultMaxIdle,
	}
}

// Run は期限切れセッションを削除し、アイドルな同期コンテキストを破棄する。
// 一方が失敗しても他方は実行し、両方のエラーをまとめて返す。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	var errs []error

	purged, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		errs = append(errs, fmt.Errorf("failed to purge expired sessions: %w", err))
	}

	evicted := 0
	if j.contexts != nil {
		evicted, err = j.contexts.EvictIdle(ctx, j.MaxIdle)
		if err != nil {
			j.logger.Error("同期コンテキストの破棄に失敗しました",
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("failed to evict idle sync contexts: %w", err))
		}
	}

	if j.recorder != nil {
		j.recorder.RecordSessionsPurged(purged)
		j.recorder.RecordContextsEvicted(evicted)
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("sessions_purged", purged),
		slog.Int("contexts_evicted", evicted),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return errors.Join(errs...)
}

// Start は指定間隔のティッカーでジョブを起動する。起動直後に1回実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
		slog.Duration("max_idle", j.MaxIdle),
	)

	j.runLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			j.runLogged(ctx)
		}
	}
}

func (j *CleanupJob) runLogged(ctx context.Context) {
	if err := j.Run(ctx); err != nil && ctx.Err() == nil {
		j.logger.Error("クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}
