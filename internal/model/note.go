package model

import (
	"strings"
	"time"
)

// Note はユーザーのメモを表す。
// CreatedAtは作成時にサーバーが付与し、編集では変更されない。
type Note struct {
	ID        string
	UserID    string
	Title     string
	Content   string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NotePatch はメモの部分更新内容を表す。nilのフィールドは変更しない。
type NotePatch struct {
	Title   *string
	Content *string
	Tags    *[]string
}

// IsEmpty は更新対象のフィールドが1つもないかを返す。
func (p NotePatch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Tags == nil
}

// Apply はパッチを適用した新しいNoteを返す。元のNoteは変更しない。
func (n Note) Apply(p NotePatch) Note {
	out := n
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Content != nil {
		out.Content = *p.Content
	}
	if p.Tags != nil {
		out.Tags = NormalizeTags(*p.Tags)
	} else {
		out.Tags = append([]string(nil), n.Tags...)
	}
	return out
}

// NormalizeTags はタグの前後空白を除去し、空文字と重複を取り除く。
// 最初に出現した順序を維持する。
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
