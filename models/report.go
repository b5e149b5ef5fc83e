package models

import "time"

// ReportStatus is the review state of a callout report
type ReportStatus string

// Report statuses. Approved is final; rejected may be edited and resubmitted.
const (
	ReportDraft       ReportStatus = "draft"
	ReportSubmitted   ReportStatus = "submitted"
	ReportUnderReview ReportStatus = "under_review"
	ReportApproved    ReportStatus = "approved"
	ReportRejected    ReportStatus = "rejected"
)

// Editable reports whether the submitter may still change the report body
func (s ReportStatus) Editable() bool {
	return s == ReportDraft || s == ReportRejected
}

// ReviewAction is an entry kind in a review history
type ReviewAction string

// Review actions
const (
	ReviewSubmit  ReviewAction = "submit"
	ReviewClaim   ReviewAction = "claim"
	ReviewApprove ReviewAction = "approve"
	ReviewReject  ReviewAction = "reject"
)

// ReviewEntry is one append-only record of a submission or review decision
type ReviewEntry struct {
	Action    ReviewAction `json:"action" bson:"action"`
	ActorID   string       `json:"actorId" bson:"actorId"`
	ActorName string       `json:"actorName" bson:"actorName"`
	Notes     string       `json:"notes,omitempty" bson:"notes,omitempty"`
	At        time.Time    `json:"at" bson:"at"`
}

// Attachment references an uploaded photo or document
type Attachment struct {
	URL        string    `json:"url" bson:"url"`
	Name       string    `json:"name,omitempty" bson:"name,omitempty"`
	UploadedAt time.Time `json:"uploadedAt" bson:"uploadedAt"`
}

// CalloutReport holds the structure for the calloutreports collection in mongo.
// SubmittedByName is a snapshot taken at creation.
type CalloutReport struct {
	ID              string        `json:"id" bson:"_id"`
	CalloutID       string        `json:"calloutId,omitempty" bson:"calloutId,omitempty"`
	MissionID       string        `json:"missionId,omitempty" bson:"missionId,omitempty"`
	SubmittedBy     string        `json:"submittedBy" bson:"submittedBy"`
	SubmittedByName string        `json:"submittedByName" bson:"submittedByName"`
	Date            time.Time     `json:"date" bson:"date"`
	StartTime       *time.Time    `json:"startTime,omitempty" bson:"startTime,omitempty"`
	EndTime         *time.Time    `json:"endTime,omitempty" bson:"endTime,omitempty"`
	IncidentType    string        `json:"incidentType" bson:"incidentType"`
	Location        string        `json:"location" bson:"location"`
	Notes           string        `json:"notes" bson:"notes"`
	Observations    string        `json:"observations" bson:"observations"`
	Photos          []Attachment  `json:"photos" bson:"photos"`
	Documents       []Attachment  `json:"documents" bson:"documents"`
	Status          ReportStatus  `json:"status" bson:"status"`
	SubmittedAt     *time.Time    `json:"submittedAt,omitempty" bson:"submittedAt,omitempty"`
	ReviewedBy      string        `json:"reviewedBy,omitempty" bson:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time    `json:"reviewedAt,omitempty" bson:"reviewedAt,omitempty"`
	ReviewNotes     string        `json:"reviewNotes,omitempty" bson:"reviewNotes,omitempty"`
	ReviewHistory   []ReviewEntry `json:"reviewHistory" bson:"reviewHistory"`
	Version         int64         `json:"version" bson:"version"`
	CreatedAt       time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt" bson:"updatedAt"`
}
