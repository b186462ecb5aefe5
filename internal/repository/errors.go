package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate は部分ユニークインデックス違反（同一組の有効行が既に存在する）を表す。
// アプリケーション側の存在確認をすり抜けた同時リクエストはこのエラーで検出される。
var ErrDuplicate = errors.New("duplicate active row")

// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolation = "23505"

// isUniqueViolation はエラーが一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
