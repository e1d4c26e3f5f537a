package base

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	excl := fmt.Errorf("create appointment: %w", &pgconn.PgError{Code: "23P01"})
	uniq := fmt.Errorf("create refund: %w", &pgconn.PgError{Code: "23505"})

	assert.True(t, IsExclusionViolation(excl))
	assert.False(t, IsUniqueViolation(excl))
	assert.True(t, IsUniqueViolation(uniq))
	assert.False(t, IsExclusionViolation(errors.New("boom")))

	assert.True(t, IsNotFound(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.False(t, IsNotFound(nil))
}
