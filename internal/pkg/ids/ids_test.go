package ids

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortableIDsIncrease(t *testing.T) {
	at := time.Now()
	prev := NewSortableAt(at)
	for i := 0; i < 1000; i++ {
		next := NewSortableAt(at)
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestEntityIDIsUUID(t *testing.T) {
	_, err := uuid.Parse(NewEntityID())
	assert.NoError(t, err)
}
