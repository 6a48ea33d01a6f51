package arrival

import (
	"time"

	"github.com/jengzang/tripguide-backend-go/internal/models"
)

// State is the tracking state of the active plan
type State string

// State constants. Confirmed is tracked per stop in the arrival records.
const (
	StateIdle        State = "idle"
	StateWatching    State = "watching"
	StateCandidate   State = "candidate"
	StatePromptShown State = "prompt_shown"
	StateSnoozed     State = "snoozed"
)

// EventType names what happened during one machine step
type EventType string

// EventType constants
const (
	EventStateChanged     EventType = "state_changed"
	EventPromptShown      EventType = "prompt_shown"
	EventPromptCleared    EventType = "prompt_cleared"
	EventArrivalConfirmed EventType = "arrival_confirmed"
	EventArrivalSnoozed   EventType = "arrival_snoozed"
)

// Event is emitted by the machine for the notification sink and the guidance hand-off
type Event struct {
	Type           EventType       `json:"type"`
	Plan           models.PlanKey  `json:"plan"`
	State          State           `json:"state"`
	Stop           *models.StopKey `json:"stop,omitempty"`
	PromptID       string          `json:"promptId,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	DistanceMeters float64         `json:"distanceMeters,omitempty"`
	At             time.Time       `json:"at"`
}

// Prompt is the arrival question currently shown to the traveler
type Prompt struct {
	ID      string         `json:"id"`
	Stop    models.StopKey `json:"stop"`
	Title   string         `json:"title"`
	ShownAt time.Time      `json:"shownAt"`
}

// Snapshot is a consistent read of the machine between two steps
type Snapshot struct {
	Plan           models.PlanKey         `json:"plan"`
	Day            int                    `json:"day"`
	State          State                  `json:"state"`
	Target         *models.StopKey        `json:"target,omitempty"`
	CandidateSince *time.Time             `json:"candidateSince,omitempty"`
	Prompt         *Prompt                `json:"prompt,omitempty"`
	Profile        models.GeofenceProfile `json:"profile"`
	Records        []models.ArrivalRecord `json:"records"`
}

// FailureKind categorizes geolocation failures for the traveler.
// Every kind forces the machine to Idle.
type FailureKind string

// FailureKind constants
const (
	FailurePermissionDenied    FailureKind = "permission_denied"
	FailureTimeout             FailureKind = "timeout"
	FailurePositionUnavailable FailureKind = "position_unavailable"
)

// Valid reports whether the kind is known
func (k FailureKind) Valid() bool {
	switch k {
	case FailurePermissionDenied, FailureTimeout, FailurePositionUnavailable:
		return true
	}
	return false
}

// Message returns the traveler-facing explanation for the failure
func (k FailureKind) Message() string {
	switch k {
	case FailurePermissionDenied:
		return "Location access was denied. Enable it to get arrival prompts."
	case FailureTimeout:
		return "Finding your location took too long. Try again outdoors."
	case FailurePositionUnavailable:
		return "Your location is unavailable right now."
	default:
		return "Location tracking stopped."
	}
}
