package models

import "time"

// AssetCondition is the physical condition of a vehicle or piece of equipment
type AssetCondition string

// Asset conditions
const (
	ConditionGood AssetCondition = "good"
	ConditionFair AssetCondition = "fair"
	ConditionPoor AssetCondition = "poor"
)

// Valid reports whether c is a known condition
func (c AssetCondition) Valid() bool {
	switch c {
	case ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// VehicleStatus is the service state of a vehicle
type VehicleStatus string

// Vehicle statuses
const (
	VehicleAvailable    VehicleStatus = "available"
	VehicleInService    VehicleStatus = "in_service"
	VehicleOutOfService VehicleStatus = "out_of_service"
)

// Valid reports whether s is a known vehicle status
func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleAvailable, VehicleInService, VehicleOutOfService:
		return true
	}
	return false
}

// Vehicle holds the structure for the vehicles collection in mongo
type Vehicle struct {
	ID                  string         `json:"id" bson:"_id"`
	Name                string         `json:"name" bson:"name"`
	CallSign            string         `json:"callSign" bson:"callSign"`
	Type                string         `json:"type" bson:"type"`
	Status              VehicleStatus  `json:"status" bson:"status"`
	Condition           AssetCondition `json:"condition" bson:"condition"`
	Mileage             int            `json:"mileage" bson:"mileage"`
	LastInspectionDate  *time.Time     `json:"lastInspectionDate,omitempty" bson:"lastInspectionDate,omitempty"`
	NextInspectionDate  *time.Time     `json:"nextInspectionDate,omitempty" bson:"nextInspectionDate,omitempty"`
	NextMaintenanceDate *time.Time     `json:"nextMaintenanceDate,omitempty" bson:"nextMaintenanceDate,omitempty"`
	Notes               string         `json:"notes" bson:"notes"`
	CreatedBy           string         `json:"createdBy" bson:"createdBy"`
	CreatedAt           time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt" bson:"updatedAt"`

	InspectionDue  bool `json:"inspectionDue" bson:"-"`
	MaintenanceDue bool `json:"maintenanceDue" bson:"-"`
}

// MarkDue fills the computed due flags for now
func (v *Vehicle) MarkDue(now time.Time) {
	v.InspectionDue = v.NextInspectionDate != nil && !now.Before(*v.NextInspectionDate)
	v.MaintenanceDue = v.NextMaintenanceDate != nil && !now.Before(*v.NextMaintenanceDate)
}

// EquipmentStatus is the availability of a piece of equipment
type EquipmentStatus string

// Equipment statuses
const (
	EquipmentAvailable   EquipmentStatus = "available"
	EquipmentAssigned    EquipmentStatus = "assigned"
	EquipmentMaintenance EquipmentStatus = "maintenance"
	EquipmentRetired     EquipmentStatus = "retired"
)

// Valid reports whether s is a known equipment status
func (s EquipmentStatus) Valid() bool {
	switch s {
	case EquipmentAvailable, EquipmentAssigned, EquipmentMaintenance, EquipmentRetired:
		return true
	}
	return false
}

// Equipment holds the structure for the equipment collection in mongo
type Equipment struct {
	ID                 string          `json:"id" bson:"_id"`
	Name               string          `json:"name" bson:"name"`
	Category           string          `json:"category" bson:"category"`
	SerialNumber       string          `json:"serialNumber" bson:"serialNumber"`
	Status             EquipmentStatus `json:"status" bson:"status"`
	Condition          AssetCondition  `json:"condition" bson:"condition"`
	AssignedTo         string          `json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	LastInspectionDate *time.Time      `json:"lastInspectionDate,omitempty" bson:"lastInspectionDate,omitempty"`
	NextInspectionDate *time.Time      `json:"nextInspectionDate,omitempty" bson:"nextInspectionDate,omitempty"`
	Notes              string          `json:"notes" bson:"notes"`
	CreatedBy          string          `json:"createdBy" bson:"createdBy"`
	CreatedAt          time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt" bson:"updatedAt"`

	InspectionDue bool `json:"inspectionDue" bson:"-"`
}

// MarkDue fills the computed due flag for now
func (e *Equipment) MarkDue(now time.Time) {
	e.InspectionDue = e.Status != EquipmentRetired && e.NextInspectionDate != nil && !now.Before(*e.NextInspectionDate)
}
