// Package datasync はユーザーごとのデータミラー（同期コンテキスト）を提供する。
//
// Contextはログイン時に4つのコレクションをリモートストアから並行して読み込み、
// 以降の読み取りはメモリ上のミラーから返す。変更操作は先にリモートへ書き込み、
// 成功した場合のみReduceでミラーに反映する。
package datasync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/secondbrain/internal/model"
	"github.com/hitoshi/secondbrain/internal/repository"
)

// Accessors は4コレクションのリモートアクセサ。
type Accessors struct {
	Notes  repository.NoteRepository
	Tasks  repository.TaskRepository
	Events repository.EventRepository
	Exams  repository.ExamRepository
}

// Recorder は読み込み・変更のメトリクスを記録する。
type Recorder interface {
	ObserveLoad(result string, duration time.Duration)
	ObserveMutation(collection, op, result string, duration time.Duration)
}

// 読み込み結果
const (
	LoadResultOK      = "ok"
	LoadResultPartial = "partial"
)

type nopRecorder struct{}

func (nopRecorder) ObserveLoad(string, time.Duration)                     {}
func (nopRecorder) ObserveMutation(string, string, string, time.Duration) {}

// Option はContextの設定を変更する。
type Option func(*Context)

// WithLogger はロガーを設定する。
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) { c.logger = logger }
}

// WithRecorder はメトリクスの記録先を設定する。
func WithRecorder(rec Recorder) Option {
	return func(c *Context) { c.rec = rec }
}

// WithClock は現在時刻の取得関数を設定する。
func WithClock(now func() time.Time) Option {
	return func(c *Context) { c.now = now }
}

// Context は1ユーザー分のミラーと、その読み込み・変更を行うエフェクト層。
type Context struct {
	acc    Accessors
	logger *slog.Logger
	rec    Recorder
	now    func() time.Time

	mu          sync.Mutex
	state       State
	ready       chan struct{}
	readyClosed bool
	cancelLoad  context.CancelFunc
	lastUsed    time.Time
}

// NewContext はno-user状態のContextを生成する。
func NewContext(acc Accessors, opts ...Option) *Context {
	c := &Context{
		acc:    acc,
		logger: slog.Default(),
		rec:    nopRecorder{},
		now:    time.Now,
		state:  emptyState(StatusNoUser, "", 0),
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.readyClosed = true
	close(c.ready)
	c.lastUsed = c.now()
	return c
}

// Start は認証済みユーザーを切り替え、読み込みをバックグラウンドで開始する。
// 空のuserIDはサインアウトとして扱い、ミラーを空にする。
// 進行中の古い読み込みは取り消され、その結果は世代の不一致により破棄される。
// 読み込みはctxが取り消されると中断されるため、リクエストより長く生存するctxを渡すこと。
func (c *Context) Start(ctx context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}
	c.lastUsed = c.now()

	if userID == "" {
		c.applyLocked(SignedOut{})
		return
	}

	gen := c.state.Generation + 1
	c.applyLocked(LoadStarted{UserID: userID, Generation: gen})

	loadCtx, cancel := context.WithCancel(ctx)
	c.cancelLoad = cancel
	go c.load(loadCtx, cancel, userID, gen)
}

// SetUser はStartを呼び出し、ready（またはno-user）になるまで待機する。
func (c *Context) SetUser(ctx context.Context, userID string) error {
	c.Start(ctx, userID)
	if userID == "" {
		return nil
	}
	return c.WaitReady(ctx)
}

// WaitReady はミラーがreadyになるまで待機する。no-userの場合はunauthenticatedを返す。
func (c *Context) WaitReady(ctx context.Context) error {
	for {
		c.mu.Lock()
		status := c.state.Status
		ready := c.ready
		c.mu.Unlock()

		switch status {
		case StatusReady:
			return nil
		case StatusNoUser:
			return model.NewDataError(model.ErrCodeUnauthenticated)
		}

		select {
		case <-ready:
		case <-ctx.Done():
			return fmt.Errorf("waiting for sync context: %w", ctx.Err())
		}
	}
}

// load は4コレクションを並行して読み込む。個別の失敗はログに記録し、そのコレクションを空とする。
func (c *Context) load(ctx context.Context, cancel context.CancelFunc, userID string, gen uint64) {
	defer cancel()
	start := c.now()

	var (
		g                             errgroup.Group
		notes                         []model.Note
		tasks                         []model.Task
		events                        []model.Event
		exams                         []model.Exam
		notesOK, tasksOK, evOK, exsOK bool
	)
	g.Go(func() error {
		notes, notesOK = fetch(ctx, c.logger, "notes", userID, c.acc.Notes.List)
		return nil
	})
	g.Go(func() error {
		tasks, tasksOK = fetch(ctx, c.logger, "tasks", userID, c.acc.Tasks.List)
		return nil
	})
	g.Go(func() error {
		events, evOK = fetch(ctx, c.logger, "events", userID, c.acc.Events.List)
		return nil
	})
	g.Go(func() error {
		exams, exsOK = fetch(ctx, c.logger, "exams", userID, c.acc.Exams.List)
		return nil
	})
	_ = g.Wait()

	applied := c.dispatch(LoadFinished{Generation: gen, Notes: notes, Tasks: tasks, Events: events, Exams: exams})
	if !applied {
		c.logger.Debug("古い世代の読み込み結果を破棄しました",
			slog.String("user_id", userID),
			slog.Uint64("generation", gen),
		)
		return
	}

	result := LoadResultOK
	if !(notesOK && tasksOK && evOK && exsOK) {
		result = LoadResultPartial
	}
	c.rec.ObserveLoad(result, c.now().Sub(start))
	c.logger.Info("データの読み込みが完了しました",
		slog.String("user_id", userID),
		slog.String("result", result),
	)
}

// fetch は1コレクションを読み込む。失敗した場合は空スライスとfalseを返す。
func fetch[T any](ctx context.Context, logger *slog.Logger, collection, userID string,
	list func(context.Context, string) ([]T, error)) ([]T, bool) {
	items, err := list(ctx, userID)
	if err != nil {
		logger.Error("コレクションの読み込みに失敗しました",
			slog.String("collection", collection),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return []T{}, false
	}
	return items, true
}

// dispatch はアクションを適用し、状態が変化した場合にtrueを返す。
func (c *Context) dispatch(a Action) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(a)
}

func (c *Context) applyLocked(a Action) bool {
	prev := c.state
	c.state = Reduce(c.state, a)
	changed := !sameState(prev, c.state)

	switch c.state.Status {
	case StatusLoading:
		if c.readyClosed {
			c.ready = make(chan struct{})
			c.readyClosed = false
		}
	default:
		if !c.readyClosed {
			close(c.ready)
			c.readyClosed = true
		}
	}
	return changed
}

// sameState はReduceが状態を変更しなかったかを判定する。
// Reduceは変更時に必ず新しいスライスを割り当てるため、スライスの同一性で比較できる。
func sameState(a, b State) bool {
	return a.Status == b.Status && a.UserID == b.UserID && a.Generation == b.Generation &&
		sameSlice(a.Notes, b.Notes) && sameSlice(a.Tasks, b.Tasks) &&
		sameSlice(a.Events, b.Events) && sameSlice(a.Exams, b.Exams)
}

func sameSlice[T any](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return (a == nil) == (b == nil)
	}
	return &a[0] == &b[0]
}

// Status は現在の状態を返す。
func (c *Context) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Status
}

// IsLoading はミラーが読み込み中かを返す。
func (c *Context) IsLoading() bool {
	return c.Status() == StatusLoading
}

// UserID は現在のユーザーIDを返す。no-userの場合は空文字。
func (c *Context) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.UserID
}

// Snapshot はミラーの複製を返す。
func (c *Context) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastUsed = c.now()
	return c.state.Clone()
}

// Notes はメモの複製を返す。
func (c *Context) Notes() []model.Note { return c.Snapshot().Notes }

// Tasks はタスクの複製を返す。
func (c *Context) Tasks() []model.Task { return c.Snapshot().Tasks }

// Events はイベントの複製を返す。
func (c *Context) Events() []model.Event { return c.Snapshot().Events }

// Exams は試験計画の複製を返す。
func (c *Context) Exams() []model.Exam { return c.Snapshot().Exams }

// LastUsed は最後に操作された時刻を返す。
func (c *Context) LastUsed() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}
