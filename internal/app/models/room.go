package models

import "time"

// Room is a bookable dormitory room or a storage room
type Room struct {
	ID           string    `json:"id" db:"id"`
	RoomNumber   string    `json:"roomNumber" db:"room_number"`
	Floor        int       `json:"floor" db:"floor"`
	Wing         string    `json:"wing,omitempty" db:"wing"`
	Kind         RoomKind  `json:"kind" db:"kind"`
	Capacity     int       `json:"capacity" db:"capacity"`
	RoomType     RoomType  `json:"roomType" db:"room_type"`
	CurrentCount int       `json:"currentCount" db:"current_count"`
	IsOccupied   bool      `json:"isOccupied" db:"is_occupied"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// RecomputeOccupied refreshes the derived occupied flag.
func (r *Room) RecomputeOccupied() {
	r.IsOccupied = r.CurrentCount >= r.Capacity
}

// IsStorage reports whether the room is non-residential.
func (r *Room) IsStorage() bool {
	return r.Kind == RoomKindStorage
}

// FreeBeds returns the remaining capacity.
func (r *Room) FreeBeds() int {
	if r.CurrentCount >= r.Capacity {
		return 0
	}
	return r.Capacity - r.CurrentCount
}
