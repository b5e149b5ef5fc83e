package models

import "time"

// CallOutStatus is the lifecycle state of a call-out
type CallOutStatus string

// Call-out statuses. Completed and cancelled are terminal.
const (
	CallOutActive    CallOutStatus = "active"
	CallOutCompleted CallOutStatus = "completed"
	CallOutCancelled CallOutStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible
func (s CallOutStatus) IsTerminal() bool {
	return s == CallOutCompleted || s == CallOutCancelled
}

// ResponseStatus is a member's availability answer to a call-out
type ResponseStatus string

// Response statuses
const (
	ResponseAvailable   ResponseStatus = "available"
	ResponseEnRoute     ResponseStatus = "en_route"
	ResponseUnavailable ResponseStatus = "unavailable"
)

// Valid reports whether s is a known response status
func (s ResponseStatus) Valid() bool {
	switch s {
	case ResponseAvailable, ResponseEnRoute, ResponseUnavailable:
		return true
	}
	return false
}

// CallOut holds the structure for the callouts collection in mongo
type CallOut struct {
	ID        string        `json:"id" bson:"_id"`
	Title     string        `json:"title" bson:"title"`
	Message   string        `json:"message" bson:"message"`
	Unit      string        `json:"unit,omitempty" bson:"unit,omitempty"`
	Status    CallOutStatus `json:"status" bson:"status"`
	CreatedBy string        `json:"createdBy" bson:"createdBy"`
	CreatedAt time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt" bson:"updatedAt"`
	ExpiresAt *time.Time    `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
	ClosedBy  string        `json:"closedBy,omitempty" bson:"closedBy,omitempty"`
	ClosedAt  *time.Time    `json:"closedAt,omitempty" bson:"closedAt,omitempty"`

	// computed at read time, never stored
	IsExpired       bool                   `json:"isExpired" bson:"-"`
	ResponseCount   int                    `json:"responseCount" bson:"-"`
	ResponseSummary map[ResponseStatus]int `json:"responseSummary,omitempty" bson:"-"`
}

// Expired reports whether the call-out is past its expiry at now
func (c *CallOut) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// AcceptsResponses reports whether a response may be recorded at now
func (c *CallOut) AcceptsResponses(now time.Time) bool {
	return c.Status == CallOutActive && !c.Expired(now)
}

// CallOutResponse holds the structure for the calloutresponses collection in mongo.
// UserName is a snapshot taken when the response was written.
type CallOutResponse struct {
	ID               string         `json:"id" bson:"_id"`
	CallOutID        string         `json:"callOutId" bson:"callOutId"`
	UserID           string         `json:"userId" bson:"userId"`
	UserName         string         `json:"userName" bson:"userName"`
	Status           ResponseStatus `json:"status" bson:"status"`
	EstimatedArrival *time.Time     `json:"estimatedArrival,omitempty" bson:"estimatedArrival,omitempty"`
	Notes            string         `json:"notes" bson:"notes"`
	RespondedAt      time.Time      `json:"respondedAt" bson:"respondedAt"`
	UpdatedAt        time.Time      `json:"updatedAt" bson:"updatedAt"`
}
