package model

import (
	"cmp"
	"strings"
)

// コレクションの自然順序。slices.SortStableFuncに渡す比較関数。
// メモ・タスクは作成日時の降順、イベント・試験は日付の昇順（同日は作成順）。

// CompareNotes はメモをcreated_at降順で比較する。
func CompareNotes(a, b Note) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// CompareTasks はタスクをcreated_at降順で比較する。
func CompareTasks(a, b Task) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// CompareEvents はイベントをdate昇順、同日はcreated_at昇順で比較する。
func CompareEvents(a, b Event) int {
	return cmp.Or(
		cmp.Compare(a.Date, b.Date),
		a.CreatedAt.Compare(b.CreatedAt),
	)
}

// CompareExams は試験計画をdate昇順、同日はcreated_at昇順で比較する。
func CompareExams(a, b Exam) int {
	return cmp.Or(
		cmp.Compare(a.Date, b.Date),
		a.CreatedAt.Compare(b.CreatedAt),
	)
}
