package messaging

import "attendance.tracker/internal/core/model"

// EventTypePunchRecorded marks a PunchEvent message on the punch events queue.
const EventTypePunchRecorded = "PUNCH_RECORDED"

// PunchMessage is the JSON payload sent via SQS for the punch events queue.
type PunchMessage struct {
	Type  string           `json:"type"`
	Event model.PunchEvent `json:"event"`
	// EmployeeID is duplicated at the top level so trace enrichment can read it.
	EmployeeID string `json:"employeeId"`
}

// NewPunchMessage wraps event for publishing.
func NewPunchMessage(event model.PunchEvent) PunchMessage {
	return PunchMessage{Type: EventTypePunchRecorded, Event: event, EmployeeID: event.EmployeeID}
}
