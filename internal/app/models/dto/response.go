package dto

import "time"

// APIResponse is the envelope of every JSON response
type APIResponse struct {
	Success   bool        `json:"success" example:"true"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty" example:"room is full"`
	Code      string      `json:"code,omitempty" example:"ROOM_FULL"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp" example:"2025-04-23T12:01:05.123Z"`
}

// NewSuccessResponse wraps data in a success envelope
func NewSuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewErrorResponse creates a failed envelope for code
func NewErrorResponse(code, message string) APIResponse {
	return APIResponse{
		Success:   false,
		Error:     message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

// MessageData is the payload of operations that return no entity
type MessageData struct {
	Message string `json:"message" example:"User deleted"`
}
