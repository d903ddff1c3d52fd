package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/secondbrain/internal/datasync"
	"github.com/hitoshi/secondbrain/internal/localstore"
	"github.com/hitoshi/secondbrain/internal/middleware"
	"github.com/hitoshi/secondbrain/internal/security"
)

const (
	testSessionID = "sess-1"
	testUserID    = "user-1"
)

// newTestRegistry はローカルストアを使った同期コンテキストのRegistryを生成する。
func newTestRegistry(t *testing.T) *datasync.Registry {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatalf("localstore.Open() error = %v", err)
	}
	reg := datasync.NewRegistry(datasync.Accessors{
		Notes:  localstore.NewNoteRepo(store),
		Tasks:  localstore.NewTaskRepo(store),
		Events: localstore.NewEventRepo(store),
		Exams:  localstore.NewExamRepo(store),
	})
	t.Cleanup(func() {
		reg.Shutdown()
		_ = store.Close()
	})
	return reg
}

var testSanitizer = security.NewTextSanitizer()

// withSession はセッションミドルウェア通過後のリクエストを再現する。
func withSession(r *http.Request) *http.Request {
	return r.WithContext(middleware.ContextWithSession(r.Context(), testSessionID, testUserID))
}

func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	switch v := body.(type) {
	case nil:
	case string:
		buf.WriteString(v)
	default:
		if err := json.NewEncoder(&buf).Encode(v); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v (body=%q)", err, w.Body.String())
	}
	return v
}

// assertAPIError はステータスコードと統一エラーフォーマットのコードを検証する。
func assertAPIError(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantCode string) middleware.ErrorResponseBody {
	t.Helper()
	if w.Code != wantStatus {
		t.Fatalf("status = %d, want %d (body=%s)", w.Code, wantStatus, w.Body.String())
	}
	body := decodeBody[middleware.ErrorResponseBody](t, w)
	if body.Code != wantCode {
		t.Errorf("code = %q, want %q", body.Code, wantCode)
	}
	if body.Message == "" || body.Category == "" {
		t.Errorf("error body should contain message and category: %+v", body)
	}
	return body
}
