package events

import "time"

const RegistrationLifecycleTopic = "incorp.registration.lifecycle.v1"

type RegistrationLifecycleEvent struct {
	EventType      string    `json:"event_type"`
	RequestID      string    `json:"request_id,omitempty"`
	RegistrationID string    `json:"registration_id"`
	Stage          string    `json:"stage"`
	Status         string    `json:"status"`
	ActorID        string    `json:"actor_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
