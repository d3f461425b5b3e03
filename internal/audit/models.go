package audit

import "time"

// Action names an audited domain action.
type Action string

const (
	ActionParticipationRegistered Action = "participation_registered"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Action      Action    `json:"action"`
	Timestamp   time.Time `json:"timestamp"`
	Subject     string    `json:"subject"`
	PersonID    string    `json:"person_id,omitempty"`
	ProjectCode string    `json:"project_code,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}
