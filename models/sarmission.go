package models

import "time"

// MissionType distinguishes real operations from training exercises
type MissionType string

// Mission types
const (
	MissionTypeActive   MissionType = "active"
	MissionTypeTraining MissionType = "training"
)

// MissionStatus is the lifecycle state of a SAR mission
type MissionStatus string

// Mission statuses
const (
	MissionPlanning  MissionStatus = "planning"
	MissionActive    MissionStatus = "active"
	MissionCompleted MissionStatus = "completed"
	MissionCancelled MissionStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible
func (s MissionStatus) IsTerminal() bool {
	return s == MissionCompleted || s == MissionCancelled
}

// SARMission holds the structure for the sarmissions collection in mongo
type SARMission struct {
	ID                  string        `json:"id" bson:"_id"`
	Name                string        `json:"name" bson:"name"`
	Description         string        `json:"description" bson:"description"`
	MissionType         MissionType   `json:"missionType" bson:"missionType"`
	Status              MissionStatus `json:"status" bson:"status"`
	IncidentCommanderID string        `json:"incidentCommanderId" bson:"incidentCommanderId"`
	IsPublicVisible     bool          `json:"isPublicVisible" bson:"isPublicVisible"`
	PublicMessage       string        `json:"publicMessage" bson:"publicMessage"`
	CreatedBy           string        `json:"createdBy" bson:"createdBy"`
	CreatedAt           time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt" bson:"updatedAt"`
	StartedAt           *time.Time    `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	CompletedAt         *time.Time    `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	CancelledAt         *time.Time    `json:"cancelledAt,omitempty" bson:"cancelledAt,omitempty"`

	Areas []SARMissionArea `json:"areas,omitempty" bson:"-"`
}

// PublicMission is the unauthenticated view of a mission
type PublicMission struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Status        MissionStatus `json:"status"`
	PublicMessage string        `json:"publicMessage"`
	StartedAt     *time.Time    `json:"startedAt,omitempty"`
}

// AreaStatus is the search state of a mission area
type AreaStatus string

// Area statuses. Cleared and completed are terminal.
const (
	AreaUnassigned AreaStatus = "unassigned"
	AreaSearching  AreaStatus = "searching"
	AreaCleared    AreaStatus = "cleared"
	AreaCompleted  AreaStatus = "completed"
)

// Valid reports whether s is a known area status
func (s AreaStatus) Valid() bool {
	switch s {
	case AreaUnassigned, AreaSearching, AreaCleared, AreaCompleted:
		return true
	}
	return false
}

// Coordinate is a single WGS84 point
type Coordinate struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// SARMissionArea holds the structure for the sarmissionareas collection in mongo
type SARMissionArea struct {
	ID          string       `json:"id" bson:"_id"`
	MissionID   string       `json:"missionId" bson:"missionId"`
	Order       int          `json:"order" bson:"order"`
	Name        string       `json:"name" bson:"name"`
	Coordinates []Coordinate `json:"coordinates" bson:"coordinates"`
	Status      AreaStatus   `json:"status" bson:"status"`
	AssignedTo  string       `json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	Notes       string       `json:"notes" bson:"notes"`
	CreatedAt   time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt" bson:"updatedAt"`
}
