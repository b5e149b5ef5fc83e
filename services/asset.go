package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
	"github.com/geijin5/apsar-emergency-api/notify"
)

// VehicleChange holds vehicle fields to set. Nil fields are left unchanged.
type VehicleChange struct {
	Name                *string                `json:"name"`
	CallSign            *string                `json:"callSign"`
	Type                *string                `json:"type"`
	Status              *models.VehicleStatus  `json:"status"`
	Condition           *models.AssetCondition `json:"condition"`
	Mileage             *int                   `json:"mileage"`
	LastInspectionDate  *time.Time             `json:"lastInspectionDate"`
	NextInspectionDate  *time.Time             `json:"nextInspectionDate"`
	NextMaintenanceDate *time.Time             `json:"nextMaintenanceDate"`
	Notes               *string                `json:"notes"`
}

// EquipmentChange holds equipment fields to set. Nil fields are left unchanged.
type EquipmentChange struct {
	Name               *string                 `json:"name"`
	Category           *string                 `json:"category"`
	SerialNumber       *string                 `json:"serialNumber"`
	Status             *models.EquipmentStatus `json:"status"`
	Condition          *models.AssetCondition  `json:"condition"`
	AssignedTo         *string                 `json:"assignedTo"`
	LastInspectionDate *time.Time              `json:"lastInspectionDate"`
	NextInspectionDate *time.Time              `json:"nextInspectionDate"`
	Notes              *string                 `json:"notes"`
}

// AssetService keeps vehicle and equipment records
type AssetService struct {
	vehicles   databases.VehicleDatabase
	equipment  databases.EquipmentDatabase
	dispatcher notify.Dispatcher
	clock      *clock
}

func (c VehicleChange) apply(v *models.Vehicle) error {
	if c.Name != nil {
		if blank(*c.Name) {
			return Validation("name cannot be empty")
		}
		v.Name = *c.Name
	}
	if c.CallSign != nil {
		v.CallSign = *c.CallSign
	}
	if c.Type != nil {
		v.Type = *c.Type
	}
	if c.Status != nil {
		if !c.Status.Valid() {
			return Validation("status must be one of available, in_service, out_of_service")
		}
		v.Status = *c.Status
	}
	if c.Condition != nil {
		if !c.Condition.Valid() {
			return Validation("condition must be one of good, fair, poor")
		}
		v.Condition = *c.Condition
	}
	if c.Mileage != nil {
		if *c.Mileage < 0 {
			return Validation("mileage cannot be negative")
		}
		v.Mileage = *c.Mileage
	}
	if c.LastInspectionDate != nil {
		v.LastInspectionDate = c.LastInspectionDate
	}
	if c.NextInspectionDate != nil {
		v.NextInspectionDate = c.NextInspectionDate
	}
	if c.NextMaintenanceDate != nil {
		v.NextMaintenanceDate = c.NextMaintenanceDate
	}
	if c.Notes != nil {
		v.Notes = *c.Notes
	}
	return nil
}

func (c EquipmentChange) apply(e *models.Equipment) error {
	if c.Name != nil {
		if blank(*c.Name) {
			return Validation("name cannot be empty")
		}
		e.Name = *c.Name
	}
	if c.Category != nil {
		e.Category = *c.Category
	}
	if c.SerialNumber != nil {
		e.SerialNumber = *c.SerialNumber
	}
	if c.Status != nil {
		if !c.Status.Valid() {
			return Validation("status must be one of available, assigned, maintenance, retired")
		}
		e.Status = *c.Status
	}
	if c.Condition != nil {
		if !c.Condition.Valid() {
			return Validation("condition must be one of good, fair, poor")
		}
		e.Condition = *c.Condition
	}
	if c.AssignedTo != nil {
		e.AssignedTo = *c.AssignedTo
	}
	if c.LastInspectionDate != nil {
		e.LastInspectionDate = c.LastInspectionDate
	}
	if c.NextInspectionDate != nil {
		e.NextInspectionDate = c.NextInspectionDate
	}
	if c.Notes != nil {
		e.Notes = *c.Notes
	}
	return nil
}

// CreateVehicle adds a vehicle. Status and condition default to available and good.
func (s *AssetService) CreateVehicle(ctx context.Context, actor models.Actor, in VehicleChange) (*models.Vehicle, error) {
	if !actor.HasRole(models.RoleOfficer) {
		return nil, Forbidden("only officers can manage vehicles")
	}
	if in.Name == nil {
		return nil, Validation("name is required")
	}
	now := s.clock.Now()
	v := &models.Vehicle{
		ID:        databases.NewID(),
		Status:    models.VehicleAvailable,
		Condition: models.ConditionGood,
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := in.apply(v); err != nil {
		return nil, err
	}
	if err := s.vehicles.InsertOne(ctx, v); err != nil {
		return nil, storeErr(err, "vehicle")
	}
	v.MarkDue(now)
	return v, nil
}

// UpdateVehicle changes a vehicle record
func (s *AssetService) UpdateVehicle(ctx context.Context, actor models.Actor, id string, in VehicleChange) (*models.Vehicle, error) {
	if !actor.HasRole(models.RoleOfficer) {
		return nil, Forbidden("only officers can manage vehicles")
	}
	v, err := s.vehicles.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "vehicle")
	}
	if err := in.apply(v); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	v.UpdatedAt = now
	if err := s.vehicles.Replace(ctx, v); err != nil {
		return nil, storeErr(err, "vehicle")
	}
	v.MarkDue(now)
	return v, nil
}

// GetVehicle returns one vehicle with its due flags
func (s *AssetService) GetVehicle(ctx context.Context, actor models.Actor, id string) (*models.Vehicle, error) {
	v, err := s.vehicles.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "vehicle")
	}
	v.MarkDue(s.clock.Now())
	return v, nil
}

// ListVehicles returns a page of vehicles by name
func (s *AssetService) ListVehicles(ctx context.Context, actor models.Actor, page databases.Page) ([]models.Vehicle, error) {
	list, err := s.vehicles.Find(ctx, page)
	if err != nil {
		return nil, storeErr(err, "vehicles")
	}
	now := s.clock.Now()
	for i := range list {
		list[i].MarkDue(now)
	}
	return list, nil
}

// CreateEquipment adds a piece of equipment. Status and condition default to available and good.
func (s *AssetService) CreateEquipment(ctx context.Context, actor models.Actor, in EquipmentChange) (*models.Equipment, error) {
	if !actor.HasRole(models.RoleOfficer) {
		return nil, Forbidden("only officers can manage equipment")
	}
	if in.Name == nil {
		return nil, Validation("name is required")
	}
	now := s.clock.Now()
	e := &models.Equipment{
		ID:        databases.NewID(),
		Status:    models.EquipmentAvailable,
		Condition: models.ConditionGood,
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := in.apply(e); err != nil {
		return nil, err
	}
	if err := s.equipment.InsertOne(ctx, e); err != nil {
		return nil, storeErr(err, "equipment")
	}
	e.MarkDue(now)
	return e, nil
}

// UpdateEquipment changes an equipment record
func (s *AssetService) UpdateEquipment(ctx context.Context, actor models.Actor, id string, in EquipmentChange) (*models.Equipment, error) {
	if !actor.HasRole(models.RoleOfficer) {
		return nil, Forbidden("only officers can manage equipment")
	}
	e, err := s.equipment.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "equipment")
	}
	if err := in.apply(e); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	e.UpdatedAt = now
	if err := s.equipment.Replace(ctx, e); err != nil {
		return nil, storeErr(err, "equipment")
	}
	e.MarkDue(now)
	return e, nil
}

// GetEquipment returns one piece of equipment with its due flag
func (s *AssetService) GetEquipment(ctx context.Context, actor models.Actor, id string) (*models.Equipment, error) {
	e, err := s.equipment.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "equipment")
	}
	e.MarkDue(s.clock.Now())
	return e, nil
}

// ListEquipment returns a page of equipment by name
func (s *AssetService) ListEquipment(ctx context.Context, actor models.Actor, page databases.Page) ([]models.Equipment, error) {
	list, err := s.equipment.Find(ctx, page)
	if err != nil {
		return nil, storeErr(err, "equipment")
	}
	now := s.clock.Now()
	for i := range list {
		list[i].MarkDue(now)
	}
	return list, nil
}

// RemindDue notifies officers about overdue vehicle and equipment inspections. It returns the
// number of overdue assets.
func (s *AssetService) RemindDue(ctx context.Context) (int, error) {
	now := s.clock.Now()
	vehicles, err := s.vehicles.FindDue(ctx, now)
	if err != nil {
		return 0, storeErr(err, "vehicles")
	}
	equipment, err := s.equipment.FindDue(ctx, now)
	if err != nil {
		return 0, storeErr(err, "equipment")
	}
	total := len(vehicles) + len(equipment)
	if total == 0 {
		return 0, nil
	}

	var names []interface{}
	for _, v := range vehicles {
		names = append(names, v.Name)
	}
	for _, e := range equipment {
		names = append(names, e.Name)
	}
	zap.S().Infow("assets due for inspection or maintenance", "vehicles", len(vehicles), "equipment", len(equipment))

	expires := now.Add(24 * time.Hour)
	s.dispatcher.Dispatch(ctx, notify.Message{
		Type:      models.NotificationAssetDue,
		Title:     "Assets due for inspection",
		Body:      fmt.Sprintf("%d assets need inspection or maintenance", total),
		Data:      map[string]interface{}{"assets": names},
		Audience:  &notify.Audience{MinRole: models.RoleOfficer},
		Channels:  []string{models.ChannelInApp},
		ExpiresAt: &expires,
	})
	return total, nil
}
