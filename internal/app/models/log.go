package models

import "time"

// LogAction names a state-changing operation recorded in the audit trail
type LogAction string

const (
	ActionAssignRoom     LogAction = "ASSIGN_ROOM"
	ActionUnassignRoom   LogAction = "UNASSIGN_ROOM"
	ActionCreateRoom     LogAction = "CREATE_ROOM"
	ActionUpdateRoom     LogAction = "UPDATE_ROOM"
	ActionDeleteRoom     LogAction = "DELETE_ROOM"
	ActionSeedRooms      LogAction = "SEED_ROOMS"
	ActionCreateRequest  LogAction = "CREATE_REQUEST"
	ActionApproveRequest LogAction = "APPROVE_REQUEST"
	ActionRejectRequest  LogAction = "REJECT_REQUEST"
	ActionWorkflowError  LogAction = "WORKFLOW_ERROR"
	ActionCreateStudent  LogAction = "CREATE_STUDENT"
	ActionUpdateStudent  LogAction = "UPDATE_STUDENT"
	ActionDeleteStudent  LogAction = "DELETE_STUDENT"
	ActionCreateUser     LogAction = "CREATE_USER"
	ActionUpdateUser     LogAction = "UPDATE_USER"
	ActionDeleteUser     LogAction = "DELETE_USER"
	ActionResetPassword  LogAction = "RESET_PASSWORD"
	ActionBackupDatabase LogAction = "BACKUP_DATABASE"
)

// Valid reports whether a is a known action.
func (a LogAction) Valid() bool {
	switch a {
	case ActionAssignRoom, ActionUnassignRoom, ActionCreateRoom, ActionUpdateRoom, ActionDeleteRoom,
		ActionSeedRooms, ActionCreateRequest, ActionApproveRequest, ActionRejectRequest, ActionWorkflowError,
		ActionCreateStudent, ActionUpdateStudent, ActionDeleteStudent, ActionCreateUser, ActionUpdateUser,
		ActionDeleteUser, ActionResetPassword, ActionBackupDatabase:
		return true
	}
	return false
}

// LogMetadata holds typed scalar facts about the affected entity.
type LogMetadata map[string]interface{}

// Log is an immutable audit record
type Log struct {
	ID          string      `json:"id" db:"id"`
	Action      LogAction   `json:"action" db:"action"`
	UserID      string      `json:"userId" db:"user_id"`
	EntityType  string      `json:"entityType" db:"entity_type"`
	EntityID    string      `json:"entityId" db:"entity_id"`
	Metadata    LogMetadata `json:"metadata" db:"metadata"`
	Description string      `json:"description" db:"description"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
}
