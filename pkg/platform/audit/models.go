// Package audit records what happened to registrations and roster entries.
//
// Domain code emits Events through a publisher; stores persist them. Stores
// only need Append; listing is optional and exposed through Lister.
package audit

import (
	"context"
	"time"
)

// EventCategory classifies events by retention and routing needs.
type EventCategory string

const (
	// CategoryCompliance covers actions with record-keeping significance and is
	// never sampled.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers operator actions and access violations.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine activity and may be sampled.
	CategoryOperations EventCategory = "operations"
)

// Action names an audited action.
type Action string

const (
	ActionRegistrationStarted   Action = "registration_started"
	ActionRegistrationSubmitted Action = "registration_submitted"
	ActionRegistrationAccepted  Action = "registration_accepted"
	ActionRegistrationRejected  Action = "registration_rejected"
	ActionRegistrationDiscarded Action = "registration_discarded"

	ActionStudentStatusChanged Action = "student_status_changed"
	ActionRosterSubmitted      Action = "roster_submitted"
	ActionRosterReloaded       Action = "roster_reloaded"
	ActionRosterPersisted      Action = "roster_persisted"
)

var actionCategories = map[Action]EventCategory{
	ActionRegistrationAccepted:  CategoryCompliance,
	ActionRegistrationRejected:  CategoryCompliance,
	ActionStudentStatusChanged:  CategorySecurity,
	ActionRosterSubmitted:       CategorySecurity,
	ActionRosterReloaded:        CategoryOperations,
	ActionRosterPersisted:       CategoryCompliance,
	ActionRegistrationStarted:   CategoryOperations,
	ActionRegistrationSubmitted: CategoryOperations,
	ActionRegistrationDiscarded: CategoryOperations,
}

// Category returns the category for a; unknown actions are operations.
func (a Action) Category() EventCategory {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is one audited fact. Subject is the form or student ID; no personal
// data beyond what an operator already sees is recorded.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Subject   string        `json:"subject"`
	Action    Action        `json:"action"`
	Decision  string        `json:"decision,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	ActorID   string        `json:"actor_id,omitempty"`
	ClientIP  string        `json:"client_ip,omitempty"`
}

// Normalize fills Category and Timestamp when unset.
func (e Event) Normalize(now time.Time) Event {
	if e.Category == "" {
		e.Category = e.Action.Category()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	return e
}

// Store persists events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Lister reads events back, newest last.
type Lister interface {
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
