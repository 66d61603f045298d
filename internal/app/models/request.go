package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RequestType is the kind of action a request asks for
type RequestType string

const (
	RequestDeleteStudent RequestType = "DELETE_STUDENT"
	RequestRoomChange    RequestType = "ROOM_CHANGE"
	RequestMaintenance   RequestType = "MAINTENANCE"
	RequestClearance     RequestType = "CLEARANCE"
	RequestOther         RequestType = "OTHER"
)

// Valid reports whether t is a known request type.
func (t RequestType) Valid() bool {
	switch t {
	case RequestDeleteStudent, RequestRoomChange, RequestMaintenance, RequestClearance, RequestOther:
		return true
	}
	return false
}

// RequiresStudent reports whether requests of this type must reference a student.
func (t RequestType) RequiresStudent() bool {
	return t == RequestDeleteStudent || t == RequestRoomChange || t == RequestClearance
}

// RequestStatus is the position of a request in its lifecycle
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	return s == RequestPending || s == RequestApproved || s == RequestRejected
}

// IsDecision reports whether s is a terminal decision a resolver may pick.
func (s RequestStatus) IsDecision() bool {
	return s == RequestApproved || s == RequestRejected
}

// Request is a state-changing action awaiting a manager's decision
type Request struct {
	ID              string         `json:"id" db:"id"`
	Type            RequestType    `json:"type" db:"type"`
	Status          RequestStatus  `json:"status" db:"status"`
	StudentID       *string        `json:"studentId" db:"student_id"`
	Payload         RequestPayload `json:"payload" db:"payload"`
	RequesterID     string         `json:"requesterId" db:"requester_id"`
	ResolverID      *string        `json:"resolverId" db:"resolver_id"`
	RejectionReason *string        `json:"rejectionReason" db:"rejection_reason"`
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
	ResolvedAt      *time.Time     `json:"resolvedAt" db:"resolved_at"`
}

// Description returns the free-text description carried by the payload.
func (r *Request) Description() string {
	return r.Payload.Description()
}

// DeleteStudentPayload asks for a student record to be removed
type DeleteStudentPayload struct {
	Description string `json:"description"`
	StudentID   string `json:"studentId"`
	Reason      string `json:"reason,omitempty"`
}

// RoomChangePayload asks for a student to be moved
type RoomChangePayload struct {
	Description string `json:"description"`
	StudentID   string `json:"studentId"`
	FromRoom    string `json:"fromRoom,omitempty"`
	DesiredRoom string `json:"desiredRoom,omitempty"`
}

// Severity grades a maintenance report
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// MaintenancePayload reports a problem with a room
type MaintenancePayload struct {
	Description string   `json:"description"`
	RoomNumber  string   `json:"roomNumber,omitempty"`
	Severity    Severity `json:"severity,omitempty"`
}

// ClearancePayload asks for a student's room to be released
type ClearancePayload struct {
	Description string `json:"description"`
	StudentID   string `json:"studentId"`
	RoomNumber  string `json:"roomNumber,omitempty"`
}

// OtherPayload is a free-form request
type OtherPayload struct {
	Description string `json:"description"`
}

// RequestPayload is a tagged variant: Kind selects exactly one non-nil body.
type RequestPayload struct {
	Kind          RequestType           `json:"kind"`
	DeleteStudent *DeleteStudentPayload `json:"deleteStudent,omitempty"`
	RoomChange    *RoomChangePayload    `json:"roomChange,omitempty"`
	Maintenance   *MaintenancePayload   `json:"maintenance,omitempty"`
	Clearance     *ClearancePayload     `json:"clearance,omitempty"`
	Other         *OtherPayload         `json:"other,omitempty"`
}

// ErrPayloadMismatch is returned when the payload body does not match its kind.
var ErrPayloadMismatch = errors.New("request payload does not match its kind")

// NewRequestPayload builds the payload body for kind from the common submission fields.
func NewRequestPayload(kind RequestType, description, studentID string) (RequestPayload, error) {
	p := RequestPayload{Kind: kind}
	switch kind {
	case RequestDeleteStudent:
		p.DeleteStudent = &DeleteStudentPayload{Description: description, StudentID: studentID}
	case RequestRoomChange:
		p.RoomChange = &RoomChangePayload{Description: description, StudentID: studentID}
	case RequestMaintenance:
		p.Maintenance = &MaintenancePayload{Description: description}
	case RequestClearance:
		p.Clearance = &ClearancePayload{Description: description, StudentID: studentID}
	case RequestOther:
		p.Other = &OtherPayload{Description: description}
	default:
		return RequestPayload{}, fmt.Errorf("unknown request type %q", kind)
	}
	return p, nil
}

// Validate checks that exactly the body selected by Kind is set.
func (p RequestPayload) Validate() error {
	set := 0
	var matches bool
	if p.DeleteStudent != nil {
		set++
		matches = p.Kind == RequestDeleteStudent
	}
	if p.RoomChange != nil {
		set++
		matches = p.Kind == RequestRoomChange
	}
	if p.Maintenance != nil {
		set++
		matches = p.Kind == RequestMaintenance
	}
	if p.Clearance != nil {
		set++
		matches = p.Kind == RequestClearance
	}
	if p.Other != nil {
		set++
		matches = p.Kind == RequestOther
	}
	if set != 1 || !matches {
		return ErrPayloadMismatch
	}
	return nil
}

// Description returns the description of whichever body is set.
func (p RequestPayload) Description() string {
	switch {
	case p.DeleteStudent != nil:
		return p.DeleteStudent.Description
	case p.RoomChange != nil:
		return p.RoomChange.Description
	case p.Maintenance != nil:
		return p.Maintenance.Description
	case p.Clearance != nil:
		return p.Clearance.Description
	case p.Other != nil:
		return p.Other.Description
	}
	return ""
}

// StudentID returns the student referenced by the payload body, if any.
func (p RequestPayload) StudentID() string {
	switch {
	case p.DeleteStudent != nil:
		return p.DeleteStudent.StudentID
	case p.RoomChange != nil:
		return p.RoomChange.StudentID
	case p.Clearance != nil:
		return p.Clearance.StudentID
	}
	return ""
}

// UnmarshalJSON decodes and validates the tagged variant.
func (p *RequestPayload) UnmarshalJSON(data []byte) error {
	type plain RequestPayload
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	decoded.Kind = RequestType(strings.ToUpper(string(decoded.Kind)))
	candidate := RequestPayload(decoded)
	if err := candidate.Validate(); err != nil {
		return err
	}
	*p = candidate
	return nil
}
