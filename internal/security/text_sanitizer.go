// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はメモ・タスク・イベント・試験計画のテキスト項目からマークアップを除去する。
// 保存される値はプレーンテキストで、表示側でエスケープされる前提とする。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer はユーザー入力テキストのサニタイズ機能のインターフェース。
type Sanitizer interface {
	// Sanitize はタグを除去したプレーンテキストを返す。
	// script, styleの中身は本文ごと除去される。前後の空白は除去する。
	Sanitize(s string) string
	// SanitizeAll は各要素をSanitizeし、空になった要素を除いたスライスを返す。
	// 入力がnilでも空スライスを返す。
	SanitizeAll(values []string) []string
}

// maxSanitizePasses は実体参照の多重エンコードを展開する回数の上限。
const maxSanitizePasses = 8

// TextSanitizer はbluemondayのStrictPolicyを使ったSanitizerの実装。
// スレッドセーフ。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はタグを除去したプレーンテキストを返す。
// StrictPolicyがエスケープした実体参照は元の文字に戻す。
// 戻した結果にタグが現れた場合は再度除去し、出力が変わらなくなるまで繰り返す。
func (s *TextSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	out := raw
	for i := 0; i < maxSanitizePasses; i++ {
		next := s.pass(out)
		if next == out {
			return out
		}
		out = next
	}
	// 上限までに収束しない入力は実体参照を戻さずに返す。
	return strings.TrimSpace(s.policy.Sanitize(out))
}

func (s *TextSanitizer) pass(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}

// SanitizeAll は各要素をサニタイズする。空になった要素は除く。
func (s *TextSanitizer) SanitizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = s.Sanitize(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

var _ Sanitizer = (*TextSanitizer)(nil)
