package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	assert.True(t, IsUniqueViolation(dup))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert user: %w", dup)))
	assert.Equal(t, "users_email_key", ConstraintName(fmt.Errorf("wrapped: %w", dup)))

	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("duplicate")))
	assert.False(t, IsUniqueViolation(nil))
	assert.Equal(t, "", ConstraintName(errors.New("x")))
}

func TestIsCheckViolation(t *testing.T) {
	check := &pgconn.PgError{Code: "23514", ConstraintName: "students_check"}
	assert.True(t, IsCheckViolation(fmt.Errorf("insert student: %w", check)))
	assert.False(t, IsUniqueViolation(check))
	assert.False(t, IsCheckViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsCheckViolation(errors.New("check failed")))
}
