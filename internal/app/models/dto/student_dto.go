package dto

// RegisterStudentRequest represents a new student record
type RegisterStudentRequest struct {
	RequesterID        string `json:"requesterId"`
	RegistrationNumber string `json:"registrationNumber" binding:"required,max=32" example:"2024-0117"`
	NationalID         string `json:"nationalId" binding:"required,max=32"`
	FirstName          string `json:"firstName" binding:"required,max=80"`
	LastName           string `json:"lastName" binding:"max=80"`
	Email              string `json:"email" binding:"omitempty,email"`
	Phone              string `json:"phone" binding:"max=32"`
	University         string `json:"university" example:"GOVERNMENT" enums:"GOVERNMENT,PRIVATE"`
	RoomType           string `json:"roomType" example:"STANDARD" enums:"STANDARD,PREMIUM"`
	Status             string `json:"status" example:"ACTIVE"`
}

// UpdateStudentRequest represents a partial student update. Room assignment
// goes through the room endpoints.
type UpdateStudentRequest struct {
	RequesterID string  `json:"requesterId"`
	NationalID  *string `json:"nationalId" binding:"omitempty,max=32"`
	FirstName   *string `json:"firstName" binding:"omitempty,max=80"`
	LastName    *string `json:"lastName" binding:"omitempty,max=80"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Phone       *string `json:"phone" binding:"omitempty,max=32"`
	University  *string `json:"university"`
	RoomType    *string `json:"roomType"`
	Status      *string `json:"status"`
}
