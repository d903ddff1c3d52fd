package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/secondbrain/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolation = "23505"

// usersEmailIndex はusers.emailの大文字小文字を区別しない一意インデックス名。
const usersEmailIndex = "users_email_lower_idx"

// classifyPQError はドメイン上の意味を持つ制約違反をAPIErrorに変換する。
// それ以外のエラーはそのまま返し、分類は上位層に委ねる。
func classifyPQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation && pqErr.Constraint == usersEmailIndex {
		return fmt.Errorf("%w: %w", model.NewAuthError(model.ErrCodeEmailAlreadyInUse), err)
	}
	return err
}

// validRecordID はIDがUUID形式かを判定する。
// UUID以外のIDはPostgreSQLの型エラーになるため、クエリ前に該当なしとして扱う。
func validRecordID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// setClause は部分更新用のSET句とパラメータを組み立てる。
type setClause struct {
	cols []string
	args []any
}

// add は列と値を追加する。プレースホルダ番号は追加順に採番される。
func (s *setClause) add(col string, v any) {
	s.args = append(s.args, v)
	s.cols = append(s.cols, fmt.Sprintf("%s = $%d", col, len(s.args)))
}

// build はupdated_atを含むSET句と、WHERE句用の次のプレースホルダ番号を返す。
func (s *setClause) build() (string, int) {
	clause := "updated_at = now()"
	for _, c := range s.cols {
		clause += ", " + c
	}
	return clause, len(s.args) + 1
}
