package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// collection は1つのキーに保存されたJSON配列を扱う。
type collection[R any] struct {
	store *Store
	key   string
	owner func(R) string
}

// load は配列全体を読み込む。値が存在しない場合は空配列を返す。
// JSONが壊れている場合はログを出力し、空配列として扱う。
func (c collection[R]) load(ctx context.Context) ([]R, error) {
	raw, err := c.store.get(ctx, c.key)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return []R{}, nil
	}
	var records []R
	if err := json.Unmarshal(raw, &records); err != nil {
		slog.Error("ローカルストアのデータが破損しているため空として扱います",
			slog.String("key", c.key),
			slog.String("error", err.Error()),
		)
		return []R{}, nil
	}
	if records == nil {
		records = []R{}
	}
	return records, nil
}

func (c collection[R]) save(ctx context.Context, records []R) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", c.key, err)
	}
	return c.store.put(ctx, c.key, raw)
}

// owned は所有者のレコードのみを返す。
func (c collection[R]) owned(ctx context.Context, userID string) ([]R, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	all, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	out, _ := partition(all, userID, c.owner)
	return out, nil
}

// modify は配列全体を読み込み、fnの結果で置き換える。fnがエラーを返した場合は書き込まない。
func (c collection[R]) modify(ctx context.Context, fn func(all []R) ([]R, error)) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	all, err := c.load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(all)
	if err != nil {
		return err
	}
	return c.save(ctx, next)
}

// modifyOwned は所有者のレコードだけをfnに渡し、結果で所有者分を丸ごと差し替える。
// 他ユーザーのレコードはそのまま保持される。
func (c collection[R]) modifyOwned(ctx context.Context, userID string, fn func(owned []R) ([]R, error)) error {
	return c.modify(ctx, func(all []R) ([]R, error) {
		owned, others := partition(all, userID, c.owner)
		next, err := fn(owned)
		if err != nil {
			return nil, err
		}
		return append(others, next...), nil
	})
}

// partition はレコードを所有者のものとそれ以外に分ける。
func partition[R any](all []R, userID string, owner func(R) string) (owned, others []R) {
	owned = []R{}
	others = []R{}
	for _, r := range all {
		if owner(r) == userID {
			owned = append(owned, r)
		} else {
			others = append(others, r)
		}
	}
	return owned, others
}

// indexOf はidが一致する最初のレコードの位置を返す。見つからない場合は-1。
func indexOf[R any](records []R, id string, idOf func(R) string) int {
	for i, r := range records {
		if idOf(r) == id {
			return i
		}
	}
	return -1
}
