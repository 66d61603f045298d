package dto

// CreateUserRequest represents a request to add a staff account
type CreateUserRequest struct {
	RequesterID string `json:"requesterId"`
	Name        string `json:"name" binding:"required,max=120" example:"Nora Supervisor"`
	Email       string `json:"email" binding:"required,email" example:"nora@housing.local"`
	Role        string `json:"role" binding:"required" example:"SUPERVISOR" enums:"MANAGER,SUPERVISOR"`
}

// UpdateUserRequest represents a partial staff account update
type UpdateUserRequest struct {
	RequesterID string  `json:"requesterId"`
	Name        *string `json:"name" binding:"omitempty,max=120"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Role        *string `json:"role"`
	IsActive    *bool   `json:"isActive"`
}
