// Package audit records role administration events for after-the-fact
// review. Every role or sid mutation that reaches the store produces one
// event, success or failure.
package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	EventTypeRoleCreate EventType = "role.create"
	EventTypeRoleDelete EventType = "role.delete"
	EventTypeSidBind    EventType = "sid.bind"
	EventTypeSidUnbind  EventType = "sid.unbind"

	EventTypeCrumbIssued   EventType = "crumb.issued"
	EventTypeCrumbRejected EventType = "crumb.rejected"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event represents a single audit log entry
type Event struct {
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Role context
	RoleType string `json:"role_type,omitempty"`
	RoleName string `json:"role_name,omitempty"`
	Sid      string `json:"sid,omitempty"`

	// Request context
	IPAddress string `json:"ip_address,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`

	Message      string `json:"message,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an audit event from JSON
func FromJSON(data []byte) (*Event, error) {
	var event Event
	err := json.Unmarshal(data, &event)
	return &event, err
}
