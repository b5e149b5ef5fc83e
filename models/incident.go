package models

import "time"

// IncidentStatus is the lifecycle state of an incident
type IncidentStatus string

// Incident statuses. Incidents open as active since they describe an ongoing event.
const (
	IncidentActive    IncidentStatus = "active"
	IncidentResolved  IncidentStatus = "resolved"
	IncidentCancelled IncidentStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible
func (s IncidentStatus) IsTerminal() bool {
	return s == IncidentResolved || s == IncidentCancelled
}

// Incident holds the structure for the incidents collection in mongo.
// ResolvedAt is set if and only if Status is resolved.
type Incident struct {
	ID                  string         `json:"id" bson:"_id"`
	Title               string         `json:"title" bson:"title"`
	Description         string         `json:"description" bson:"description"`
	Type                string         `json:"type" bson:"type"`
	Status              IncidentStatus `json:"status" bson:"status"`
	IncidentCommanderID string         `json:"incidentCommanderId" bson:"incidentCommanderId"`
	Location            *Location      `json:"location,omitempty" bson:"location,omitempty"`
	CreatedBy           string         `json:"createdBy" bson:"createdBy"`
	StartedAt           time.Time      `json:"startedAt" bson:"startedAt"`
	ResolvedAt          *time.Time     `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
	CancelledAt         *time.Time     `json:"cancelledAt,omitempty" bson:"cancelledAt,omitempty"`
	CreatedAt           time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// Location is an optional place description with coordinates
type Location struct {
	Address   string  `json:"address,omitempty" bson:"address,omitempty"`
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// ResourceType is the kind of unit assigned to an incident
type ResourceType string

// Resource types
const (
	ResourcePersonnel ResourceType = "personnel"
	ResourceEquipment ResourceType = "equipment"
	ResourceVehicle   ResourceType = "vehicle"
)

// Valid reports whether t is a known resource type
func (t ResourceType) Valid() bool {
	switch t {
	case ResourcePersonnel, ResourceEquipment, ResourceVehicle:
		return true
	}
	return false
}

// ResourceStatus is the deployment state of an incident resource
type ResourceStatus string

// Resource statuses. Unavailable is terminal.
const (
	ResourceAssigned    ResourceStatus = "assigned"
	ResourceEnRoute     ResourceStatus = "en_route"
	ResourceOnScene     ResourceStatus = "on_scene"
	ResourceUnavailable ResourceStatus = "unavailable"
)

// Valid reports whether s is a known resource status
func (s ResourceStatus) Valid() bool {
	switch s {
	case ResourceAssigned, ResourceEnRoute, ResourceOnScene, ResourceUnavailable:
		return true
	}
	return false
}

// IncidentResource holds the structure for the incidentresources collection in mongo.
// Active mirrors Status != unavailable and backs the unique index on live assignments.
type IncidentResource struct {
	ID           string         `json:"id" bson:"_id"`
	IncidentID   string         `json:"incidentId" bson:"incidentId"`
	ResourceType ResourceType   `json:"resourceType" bson:"resourceType"`
	ResourceName string         `json:"resourceName" bson:"resourceName"`
	UserID       string         `json:"userId,omitempty" bson:"userId,omitempty"`
	Status       ResourceStatus `json:"status" bson:"status"`
	Active       bool           `json:"-" bson:"active"`
	Notes        string         `json:"notes" bson:"notes"`
	AssignedAt   time.Time      `json:"assignedAt" bson:"assignedAt"`
	UpdatedAt    time.Time      `json:"updatedAt" bson:"updatedAt"`
}
