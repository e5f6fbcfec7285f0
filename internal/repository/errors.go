package repository

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ErrDuplicate 违反唯一约束
var ErrDuplicate = errors.New("duplicate record")

// uniqueViolation postgres 唯一约束错误码
const uniqueViolation = "23505"

// translate 将各驱动的唯一约束错误统一为 ErrDuplicate
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicate
	}
	return err
}

// notFound 记录不存在时返回 true
func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
