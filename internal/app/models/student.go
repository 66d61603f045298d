package models

import (
	"time"
)

// Student is a resident (or applicant) of the dormitory
type Student struct {
	ID                 string        `json:"id" db:"id"`
	RegistrationNumber string        `json:"registrationNumber" db:"registration_number"`
	NationalID         string        `json:"nationalId" db:"national_id"`
	FirstName          string        `json:"firstName" db:"first_name"`
	LastName           string        `json:"lastName" db:"last_name"`
	Email              string        `json:"email,omitempty" db:"email"`
	Phone              string        `json:"phone,omitempty" db:"phone"`
	University         University    `json:"university" db:"university"`
	RoomType           RoomType      `json:"roomType" db:"room_type"`
	Status             StudentStatus `json:"status" db:"status"`
	RoomNumber         *string       `json:"roomNumber" db:"room_number"`
	CheckInDate        *time.Time    `json:"checkInDate" db:"check_in_date"`
	CreatedAt          time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time     `json:"updatedAt" db:"updated_at"`
}

// FullName returns "First Last".
func (s *Student) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// IsHoused reports whether the student currently holds a room.
func (s *Student) IsHoused() bool {
	return s.RoomNumber != nil && *s.RoomNumber != ""
}

// TierConsistent checks the private-university rule.
func (s *Student) TierConsistent() bool {
	return s.University != UniversityPrivate || s.RoomType == RoomTypePremium
}
