package models

// RoleType defines the staff role of a user
type RoleType string

const (
	RoleManager    RoleType = "MANAGER"
	RoleSupervisor RoleType = "SUPERVISOR"
)

// Valid reports whether r is a known role.
func (r RoleType) Valid() bool {
	return r == RoleManager || r == RoleSupervisor
}

// University is the student's university affiliation
type University string

const (
	UniversityGovernment University = "GOVERNMENT"
	UniversityPrivate    University = "PRIVATE"
)

// Valid reports whether u is a known affiliation.
func (u University) Valid() bool {
	return u == UniversityGovernment || u == UniversityPrivate
}

// RoomType is the housing tier shared by students and rooms
type RoomType string

const (
	RoomTypeStandard RoomType = "STANDARD"
	RoomTypePremium  RoomType = "PREMIUM"
)

// Valid reports whether t is a known tier.
func (t RoomType) Valid() bool {
	return t == RoomTypeStandard || t == RoomTypePremium
}

// StudentStatus is the lifecycle status of a student
type StudentStatus string

const (
	StudentActive    StudentStatus = "ACTIVE"
	StudentInactive  StudentStatus = "INACTIVE"
	StudentGraduated StudentStatus = "GRADUATED"
	StudentSuspended StudentStatus = "SUSPENDED"
)

// Valid reports whether s is a known status.
func (s StudentStatus) Valid() bool {
	switch s {
	case StudentActive, StudentInactive, StudentGraduated, StudentSuspended:
		return true
	}
	return false
}

// RoomKind separates residential rooms from storage rooms
type RoomKind string

const (
	RoomKindResidential RoomKind = "ROOM"
	RoomKindStorage     RoomKind = "STORAGE"
)

// Valid reports whether k is a known room kind.
func (k RoomKind) Valid() bool {
	return k == RoomKindResidential || k == RoomKindStorage
}

// RequiredRoomType returns the tier a student of this affiliation must be housed in.
// Private-university students are always premium.
func RequiredRoomType(u University, requested RoomType) RoomType {
	if u == UniversityPrivate {
		return RoomTypePremium
	}
	return requested
}
