package dto

// CreateRequestRequest represents a new student-affairs request
type CreateRequestRequest struct {
	Type        string `json:"type" binding:"required" example:"CLEARANCE" enums:"DELETE_STUDENT,ROOM_CHANGE,MAINTENANCE,CLEARANCE,OTHER"`
	RequesterID string `json:"requesterId"`
	StudentID   string `json:"studentId"`
	Description string `json:"description" binding:"required,max=2000"`
	Reason      string `json:"reason" binding:"max=2000"`
	DesiredRoom string `json:"desiredRoom" example:"204"`
	RoomNumber  string `json:"roomNumber" example:"101"`
	Severity    string `json:"severity" example:"HIGH" enums:"LOW,MEDIUM,HIGH"`
}

// UpdateRequestStatusRequest is a manager's decision on a pending request
type UpdateRequestStatusRequest struct {
	Status          string `json:"status" binding:"required" example:"APPROVED" enums:"APPROVED,REJECTED"`
	ResolverID      string `json:"resolverId"`
	RejectionReason string `json:"rejectionReason" binding:"max=2000"`
}

// ExecuteRequestRequest triggers the follow-up action of an approved request
type ExecuteRequestRequest struct {
	ResolverID string `json:"resolverId"`
}
