// Package domain defines the feature board's entities, enumerations, fault
// taxonomy and the persistence contract shared by every store driver.
package domain

import (
	"strings"
	"time"
)

// EntityType identifies the type of record referenced by faults and rule violations.
type EntityType string

// Entity type constants.
const (
	EntityFeatureRequest EntityType = "feature_request"
	EntityComment        EntityType = "comment"
)

// Status captures where a feature request sits in the triage lifecycle.
type Status string

// Status values. The string form is the wire representation.
const (
	StatusProposed    Status = "proposed"
	StatusUnderReview Status = "under_review"
	StatusPlanned     Status = "planned"
	StatusInProgress  Status = "in_progress"
	StatusShipped     Status = "shipped"
	StatusRejected    Status = "rejected"
)

// DefaultStatus is assigned on creation when no status is supplied.
const DefaultStatus = StatusProposed

// Statuses lists every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusProposed, StatusUnderReview, StatusPlanned, StatusInProgress, StatusShipped, StatusRejected}
}

// ParseStatus resolves a raw value to a Status. Matching ignores case and
// surrounding whitespace.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", false
	}
	return s, true
}

// Valid reports whether s is a member of the enumeration.
func (s Status) Valid() bool {
	switch s {
	case StatusProposed, StatusUnderReview, StatusPlanned, StatusInProgress, StatusShipped, StatusRejected:
		return true
	}
	return false
}

// Label returns the human readable name of the status.
func (s Status) Label() string {
	switch s {
	case StatusProposed:
		return "Proposed"
	case StatusUnderReview:
		return "Under Review"
	case StatusPlanned:
		return "Planned"
	case StatusInProgress:
		return "In Progress"
	case StatusShipped:
		return "Shipped"
	case StatusRejected:
		return "Rejected"
	}
	return string(s)
}

// Priority ranks feature requests, P0 being the most urgent.
type Priority string

// Priority values.
const (
	PriorityP0 Priority = "p0"
	PriorityP1 Priority = "p1"
	PriorityP2 Priority = "p2"
	PriorityP3 Priority = "p3"
)

// DefaultPriority is assigned on creation when no priority is supplied.
const DefaultPriority = PriorityP2

// Priorities lists every priority from most to least urgent.
func Priorities() []Priority {
	return []Priority{PriorityP0, PriorityP1, PriorityP2, PriorityP3}
}

// ParsePriority resolves a raw value to a Priority, ignoring case and surrounding whitespace.
func ParsePriority(raw string) (Priority, bool) {
	p := Priority(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", false
	}
	return p, true
}

// Valid reports whether p is a member of the enumeration.
func (p Priority) Valid() bool {
	switch p {
	case PriorityP0, PriorityP1, PriorityP2, PriorityP3:
		return true
	}
	return false
}

// Label returns the human readable name of the priority.
func (p Priority) Label() string {
	switch p {
	case PriorityP0:
		return "P0 - Critical"
	case PriorityP1:
		return "P1 - High"
	case PriorityP2:
		return "P2 - Medium"
	case PriorityP3:
		return "P3 - Low"
	}
	return string(p)
}

// Comment is a discussion entry attached to a feature request.
type Comment struct {
	ID               string    `json:"id"`
	FeatureRequestID string    `json:"featureRequestId"`
	Content          string    `json:"content"`
	CreatedAt        time.Time `json:"createdAt"`
}

// FeatureRequest is a single idea tracked on the board.
type FeatureRequest struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	Comments    []Comment `json:"comments"`
}

// FeatureRequestFields are the caller supplied fields of a new feature request.
type FeatureRequestFields struct {
	Title       string
	Description string
	Status      Status
	Priority    Priority
}

// Clone returns a deep copy of the request. Comments is never nil on the copy.
func (r FeatureRequest) Clone() FeatureRequest {
	out := r
	out.Comments = make([]Comment, len(r.Comments))
	copy(out.Comments, r.Comments)
	return out
}
