package datasync

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Registry はセッションIDごとのContextを管理する。
// サインアウト時のClose、退会・パスワード再設定時のCloseUserでミラーを破棄する。
type Registry struct {
	acc  Accessors
	opts []Option

	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	contexts map[string]*Context
}

// NewRegistry はRegistryを生成する。optsは生成する各Contextに適用される。
func NewRegistry(acc Accessors, opts ...Option) *Registry {
	base, cancel := context.WithCancel(context.Background())
	return &Registry{
		acc:      acc,
		opts:     opts,
		base:     base,
		cancel:   cancel,
		contexts: make(map[string]*Context),
	}
}

// Open はセッションのContextを返す。存在しない場合は生成して読み込みを開始する。
// 既存のContextのユーザーが異なる、またはno-userの場合は読み込み直す。
func (r *Registry) Open(sessionID, userID string) *Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contexts[sessionID]
	if !ok {
		c = NewContext(r.acc, r.opts...)
		r.contexts[sessionID] = c
	}
	if c.UserID() != userID || c.Status() == StatusNoUser {
		c.Start(r.base, userID)
	}
	return c
}

// Get はセッションのContextを返す。
func (r *Registry) Get(sessionID string) (*Context, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contexts[sessionID]
	return c, ok
}

// Acquire はOpenしたContextがreadyになるまで待機して返す。
func (r *Registry) Acquire(ctx context.Context, sessionID, userID string) (*Context, error) {
	c := r.Open(sessionID, userID)
	if err := c.WaitReady(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload はセッションのContextを同じユーザーで読み込み直す。
func (r *Registry) Reload(sessionID, userID string) *Context {
	c := r.Open(sessionID, userID)
	if c.Status() != StatusLoading {
		c.Start(r.base, userID)
	}
	return c
}

// Close はセッションのContextをno-userにして破棄する。
func (r *Registry) Close(sessionID string) {
	r.mu.Lock()
	c, ok := r.contexts[sessionID]
	delete(r.contexts, sessionID)
	r.mu.Unlock()

	if ok {
		c.Start(r.base, "")
	}
}

// CloseUser は指定ユーザーの全Contextを破棄し、破棄した件数を返す。
func (r *Registry) CloseUser(userID string) int {
	r.mu.Lock()
	var closed []*Context
	for id, c := range r.contexts {
		if c.UserID() == userID {
			closed = append(closed, c)
			delete(r.contexts, id)
		}
	}
	r.mu.Unlock()

	for _, c := range closed {
		c.Start(r.base, "")
	}
	return len(closed)
}

// EvictIdle はmaxIdle以上操作されていないContextを破棄し、破棄した件数を返す。
func (r *Registry) EvictIdle(ctx context.Context, maxIdle time.Duration) (int, error) {
	now := time.Now()

	r.mu.Lock()
	var evicted []*Context
	for id, c := range r.contexts {
		if now.Sub(c.LastUsed()) >= maxIdle {
			evicted = append(evicted, c)
			delete(r.contexts, id)
		}
	}
	r.mu.Unlock()

	for _, c := range evicted {
		c.Start(r.base, "")
	}
	if len(evicted) > 0 {
		slog.InfoContext(ctx, "アイドル状態の同期コンテキストを破棄しました",
			slog.Int("count", len(evicted)),
		)
	}
	return len(evicted), nil
}

// Len は管理中のContext数を返す。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contexts)
}

// Shutdown は進行中の読み込みをすべて取り消す。
func (r *Registry) Shutdown() {
	r.cancel()
}
