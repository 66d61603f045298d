package dto

// CreateRoomRequest represents a request to add a room
type CreateRoomRequest struct {
	RequesterID string `json:"requesterId"`
	RoomNumber  string `json:"roomNumber" binding:"required,max=16" example:"305"`
	Floor       int    `json:"floor" binding:"min=0" example:"3"`
	Wing        string `json:"wing" binding:"omitempty,max=4" example:"A"`
	Kind        string `json:"kind" example:"ROOM" enums:"ROOM,STORAGE"`
	Capacity    int    `json:"capacity" binding:"min=0" example:"3"`
	RoomType    string `json:"roomType" example:"STANDARD" enums:"STANDARD,PREMIUM"`
}

// UpdateRoomRequest represents a partial room update
type UpdateRoomRequest struct {
	RequesterID string  `json:"requesterId"`
	Capacity    *int    `json:"capacity" binding:"omitempty,min=0"`
	Floor       *int    `json:"floor" binding:"omitempty,min=0"`
	Wing        *string `json:"wing" binding:"omitempty,max=4"`
	RoomType    *string `json:"roomType"`
}

// AssignRoomRequest places a student in the room named by the path
type AssignRoomRequest struct {
	RequesterID string `json:"requesterId"`
	StudentID   string `json:"studentId" binding:"required"`
}

// RequesterRequest carries only the acting user, for bodies of otherwise empty commands
type RequesterRequest struct {
	RequesterID string `json:"requesterId"`
}
