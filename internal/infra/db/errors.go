package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// ClassifyError はリトライ可否の判断用にpostgresのエラーを分類する。
func ClassifyError(err error) ErrorClass {
	switch pgCode(err) {
	case codeSerializationFailure:
		return ErrorClassSerialization
	case codeDeadlockDetected:
		return ErrorClassDeadlock
	case codeLockNotAvailable:
		return ErrorClassTransient
	}
	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

func IsUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == codeForeignKeyViolation
}
