// Package ids generates identifiers. Entities use random UUIDs; append-only
// records (logs, notifications) use ULIDs so that ids sort by creation time.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewEntityID returns a random identifier for students, rooms, requests and users.
func NewEntityID() string {
	return uuid.NewString()
}

// NewSortable returns a lexicographically sortable identifier.
func NewSortable() string {
	return NewSortableAt(time.Now())
}

// NewSortableAt returns a sortable identifier for the instant t.
// Identifiers generated for the same millisecond stay strictly increasing.
func NewSortableAt(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
