package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	tests := map[string]struct {
		err  error
		want Code
	}{
		"nil":            {err: nil, want: ""},
		"custom":         {err: New(CodeRoomFull, "room 101 is full"), want: CodeRoomFull},
		"wrapped custom": {err: fmt.Errorf("assign: %w", New(CodeTierMismatch, "tier")), want: CodeTierMismatch},
		"sentinel":       {err: fmt.Errorf("x: %w", ErrAlreadyResolved), want: CodeAlreadyResolved},
		"unknown":        {err: errors.New("connection reset"), want: CodeStorageError},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, CodeOf(tc.err))
		})
	}
}

func TestCustomErrorMatchesSentinelAndCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeStorageError, cause, "could not save")

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "could not save", err.Error())
	assert.Equal(t, cause, err.Cause())
}

func TestPublicMessageHidesStorageDetail(t *testing.T) {
	assert.Equal(t, "storage error", PublicMessage(Storage(errors.New("pq: relation rooms does not exist"))))
	assert.Equal(t, "storage error", PublicMessage(errors.New("raw driver failure")))
	assert.Equal(t, "room 101 is full", PublicMessage(New(CodeRoomFull, "room 101 is full")))
}

func TestWithDetail(t *testing.T) {
	err := New(CodeNotFound, "student not found").WithDetail("studentId", "abc")
	assert.Equal(t, "abc", err.Details["studentId"])
	assert.True(t, HasCode(err, CodeNotFound))
	assert.True(t, Is(err, ErrRoomFull, ErrNotFound))
}
