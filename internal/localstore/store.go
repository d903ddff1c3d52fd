// Package localstore はDATABASE_URL未設定時に使用するローカルフォールバックストアを提供する。
//
// SQLiteファイル内の単一テーブル kv(key, value) に、コレクションごとに1エントリ、
// 全ユーザー分のレコードをJSON配列として保存する。読み出しは所有者で絞り込み、
// 書き込みは配列全体を読み直して所有者のレコードだけを差し替える。
// 1プロセスからの利用のみを想定しており、複数プロセスからの同時書き込みは保護しない。
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// 永続化キー
const (
	KeyNotes      = "segundo-cerebro-notes"
	KeyTasks      = "segundo-cerebro-tasks"
	KeyEvents     = "segundo-cerebro-events"
	KeyExams      = "segundo-cerebro-exams"
	KeyUsers      = "segundo-cerebro-users"
	KeyIdentities = "segundo-cerebro-identities"
	KeySessions   = "segundo-cerebro-sessions"
	KeyStudy      = "segundo-cerebro-study"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// Store はSQLiteベースのキーバリューストア。
type Store struct {
	db   *sql.DB
	path string

	// mu は読み込み〜書き戻しの一連の操作を直列化する。
	mu sync.Mutex

	now   func() time.Time
	newID func() string
}

// Open は指定パスのストアを開く。ファイルと親ディレクトリが存在しない場合は作成する。
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create local store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping local store: %w", err)
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return &Store{
		db:    db,
		path:  path,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}, nil
}

// Path はストアのファイルパスを返す。
func (s *Store) Path() string {
	return s.path
}

// PingContext は接続を確認する。
func (s *Store) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close はWALをチェックポイントしてから接続を閉じる。
func (s *Store) Close() error {
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.Join(fmt.Errorf("failed to checkpoint local store: %w", err), s.db.Close())
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close local store: %w", err)
	}
	return nil
}

// get はキーの値を返す。存在しない場合はnilを返す。
func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return []byte(value), nil
}

// put はキーの値を上書きする。
func (s *Store) put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(value),
	)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
