package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound は更新・削除対象の行が存在しないことを示す。
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate は一意制約違反を示す。
	ErrDuplicate = errors.New("unique constraint violation")
)

// uniqueViolation はPostgreSQLの一意制約違反コード。
const uniqueViolation pq.ErrorCode = "23505"

// isUniqueViolation はerrがPostgreSQLの一意制約違反かどうかを返す。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
