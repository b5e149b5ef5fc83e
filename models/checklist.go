package models

import "time"

// ChecklistTemplateItem defines one step of a template
type ChecklistTemplateItem struct {
	ItemID   string `json:"itemId" bson:"itemId"`
	Label    string `json:"label" bson:"label"`
	Required bool   `json:"required" bson:"required"`
}

// ChecklistTemplate holds the structure for the checklisttemplates collection in mongo
type ChecklistTemplate struct {
	ID          string                  `json:"id" bson:"_id"`
	Name        string                  `json:"name" bson:"name"`
	Description string                  `json:"description" bson:"description"`
	Category    string                  `json:"category" bson:"category"`
	Items       []ChecklistTemplateItem `json:"items" bson:"items"`
	CreatedBy   string                  `json:"createdBy" bson:"createdBy"`
	CreatedAt   time.Time               `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt" bson:"updatedAt"`
}

// ItemStatus is the state of a single checklist item
type ItemStatus string

// Item statuses
const (
	ItemPending  ItemStatus = "pending"
	ItemComplete ItemStatus = "complete"
	ItemNA       ItemStatus = "na"
)

// Valid reports whether s is a known item status
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemPending, ItemComplete, ItemNA:
		return true
	}
	return false
}

// ChecklistStatus is the overall state of a checklist instance
type ChecklistStatus string

// Checklist statuses
const (
	ChecklistNotStarted ChecklistStatus = "not_started"
	ChecklistInProgress ChecklistStatus = "in_progress"
	ChecklistCompleted  ChecklistStatus = "completed"
	ChecklistCancelled  ChecklistStatus = "cancelled"
)

// ChecklistReviewStatus is the review state of a completed checklist
type ChecklistReviewStatus string

// Checklist review statuses
const (
	ChecklistReviewPending  ChecklistReviewStatus = "pending"
	ChecklistReviewApproved ChecklistReviewStatus = "approved"
	ChecklistReviewRejected ChecklistReviewStatus = "rejected"
)

// ChecklistItem is the per-instance state of a template item
type ChecklistItem struct {
	ItemID      string     `json:"itemId" bson:"itemId"`
	Label       string     `json:"label" bson:"label"`
	Required    bool       `json:"required" bson:"required"`
	Status      ItemStatus `json:"status" bson:"status"`
	Notes       string     `json:"notes,omitempty" bson:"notes,omitempty"`
	CompletedBy string     `json:"completedBy,omitempty" bson:"completedBy,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// Checklist holds the structure for the checklists collection in mongo
type Checklist struct {
	ID            string                `json:"id" bson:"_id"`
	TemplateID    string                `json:"templateId" bson:"templateId"`
	Name          string                `json:"name" bson:"name"`
	CalloutID     string                `json:"calloutId,omitempty" bson:"calloutId,omitempty"`
	MissionID     string                `json:"missionId,omitempty" bson:"missionId,omitempty"`
	AssignedTo    string                `json:"assignedTo" bson:"assignedTo"`
	CreatedBy     string                `json:"createdBy" bson:"createdBy"`
	Items         []ChecklistItem       `json:"items" bson:"items"`
	Status        ChecklistStatus       `json:"status" bson:"status"`
	ReviewStatus  ChecklistReviewStatus `json:"reviewStatus,omitempty" bson:"reviewStatus,omitempty"`
	ReviewedBy    string                `json:"reviewedBy,omitempty" bson:"reviewedBy,omitempty"`
	ReviewedAt    *time.Time            `json:"reviewedAt,omitempty" bson:"reviewedAt,omitempty"`
	ReviewNotes   string                `json:"reviewNotes,omitempty" bson:"reviewNotes,omitempty"`
	ReviewHistory []ReviewEntry         `json:"reviewHistory" bson:"reviewHistory"`
	CompletedAt   *time.Time            `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	Version       int64                 `json:"version" bson:"version"`
	CreatedAt     time.Time             `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt" bson:"updatedAt"`
}

// DeriveStatus computes the overall status from item completion.
// Cancelled checklists keep their status.
func (c *Checklist) DeriveStatus() ChecklistStatus {
	if c.Status == ChecklistCancelled {
		return ChecklistCancelled
	}
	if len(c.Items) == 0 {
		return ChecklistNotStarted
	}
	done := 0
	for _, it := range c.Items {
		if it.Status == ItemComplete || it.Status == ItemNA {
			done++
		}
	}
	switch {
	case done == len(c.Items):
		return ChecklistCompleted
	case done == 0:
		return ChecklistNotStarted
	default:
		return ChecklistInProgress
	}
}
