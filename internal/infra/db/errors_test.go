package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	wrap := func(code string) error {
		return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code})
	}

	assert.Equal(t, ErrorClassSerialization, ClassifyError(wrap("40001")))
	assert.Equal(t, ErrorClassDeadlock, ClassifyError(wrap("40P01")))
	assert.Equal(t, ErrorClassTransient, ClassifyError(wrap("55P03")))
	assert.Equal(t, ErrorClassPermanent, ClassifyError(wrap("23505")))
	assert.Equal(t, ErrorClassPermanent, ClassifyError(errors.New("boom")))
	assert.Equal(t, ErrorClassPermanent, ClassifyError(nil))

	assert.True(t, IsRetryable(wrap("40001")))
	assert.False(t, IsRetryable(wrap("23514")))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("create: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("duplicate")))
}
