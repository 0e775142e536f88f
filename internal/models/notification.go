package models

import (
	"encoding/json"
	"time"
)

type NotificationType string

const (
	NotificationTypeEmptyPrioritySlot NotificationType = "empty_priority_slot"
	NotificationTypeCustomerOverdue   NotificationType = "customer_overdue"
	NotificationTypeGapOpportunity    NotificationType = "gap_opportunity"
)

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityMedium NotificationPriority = "medium"
	NotificationPriorityHigh   NotificationPriority = "high"
)

type NotificationState string

const (
	NotificationStateActive    NotificationState = "active"
	NotificationStateSnoozed   NotificationState = "snoozed"
	NotificationStateDismissed NotificationState = "dismissed"
	NotificationStateActed     NotificationState = "acted"
)

// Notification is one actionable item on the smart feed. DedupeKey is unique
// among non-terminal rows for a business, which is what keeps a condition from
// stacking up duplicates while it persists.
type Notification struct {
	ID           string               `json:"id" db:"id"`
	BusinessID   string               `json:"business_id" db:"business_id"`
	Type         NotificationType     `json:"type" db:"type"`
	Title        string               `json:"title" db:"title"`
	Message      string               `json:"message" db:"message"`
	Priority     NotificationPriority `json:"priority" db:"priority"`
	Metadata     json.RawMessage      `json:"metadata,omitempty" db:"metadata"`
	DedupeKey    string               `json:"dedupe_key" db:"dedupe_key"`
	State        NotificationState    `json:"state" db:"state"`
	SnoozedUntil *time.Time           `json:"snoozed_until,omitempty" db:"snoozed_until"`
	CreatedAt    time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at" db:"updated_at"`
}

// Terminal reports whether the state admits no further transitions.
func (s NotificationState) Terminal() bool {
	return s == NotificationStateDismissed || s == NotificationStateActed
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// step. Snooze expiry is not a transition; an expired snooze simply counts as
// active again (see Visible).
func (s NotificationState) CanTransition(next NotificationState) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case NotificationStateDismissed, NotificationStateActed, NotificationStateSnoozed:
		return true
	default:
		return false
	}
}

// Visible reports whether the notification belongs on the active feed at the
// given instant: active rows always, snoozed rows once their snooze window has
// passed.
func (n Notification) Visible(now time.Time) bool {
	switch n.State {
	case NotificationStateActive:
		return true
	case NotificationStateSnoozed:
		return n.SnoozedUntil == nil || !now.Before(*n.SnoozedUntil)
	default:
		return false
	}
}
