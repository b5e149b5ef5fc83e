package databases

// go generate: mockery --name VehicleDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/geijin5/apsar-emergency-api/models"
)

const (
	vehicleName   = "vehicles"
	equipmentName = "equipment"
)

// VehicleDatabase contains the methods to use with the vehicle database
type VehicleDatabase interface {
	InsertOne(context.Context, *models.Vehicle) error
	FindByID(context.Context, string) (*models.Vehicle, error)
	Find(context.Context, Page) ([]models.Vehicle, error)
	Replace(context.Context, *models.Vehicle) error
	// FindDue returns vehicles whose next inspection or maintenance date is at or before now
	FindDue(context.Context, time.Time) ([]models.Vehicle, error)
}

// EquipmentDatabase contains the methods to use with the equipment database
type EquipmentDatabase interface {
	InsertOne(context.Context, *models.Equipment) error
	FindByID(context.Context, string) (*models.Equipment, error)
	Find(context.Context, Page) ([]models.Equipment, error)
	Replace(context.Context, *models.Equipment) error
	// FindDue returns non-retired equipment whose next inspection date is at or before now
	FindDue(context.Context, time.Time) ([]models.Equipment, error)
}

type vehicleDatabase struct {
	db DatabaseHelper
}

type equipmentDatabase struct {
	db DatabaseHelper
}

// NewVehicleDatabase initializes a new instance of vehicle database with the provided db connection
func NewVehicleDatabase(db DatabaseHelper) VehicleDatabase {
	return &vehicleDatabase{
		db: db,
	}
}

// NewEquipmentDatabase initializes a new instance of equipment database with the provided db connection
func NewEquipmentDatabase(db DatabaseHelper) EquipmentDatabase {
	return &equipmentDatabase{
		db: db,
	}
}

func replaceByID(ctx context.Context, coll CollectionHelper, id string, doc interface{}) error {
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (v *vehicleDatabase) InsertOne(ctx context.Context, vehicle *models.Vehicle) error {
	_, err := v.db.Collection(vehicleName).InsertOne(ctx, vehicle)
	return err
}

func (v *vehicleDatabase) FindByID(ctx context.Context, id string) (*models.Vehicle, error) {
	return findByID[models.Vehicle](ctx, v.db.Collection(vehicleName), id)
}

func (v *vehicleDatabase) Find(ctx context.Context, p Page) ([]models.Vehicle, error) {
	opts := p.findOptions().SetSort(bson.D{{Key: "name", Value: 1}})
	return findAll[models.Vehicle](ctx, v.db.Collection(vehicleName), bson.M{}, opts)
}

func (v *vehicleDatabase) Replace(ctx context.Context, vehicle *models.Vehicle) error {
	return replaceByID(ctx, v.db.Collection(vehicleName), vehicle.ID, vehicle)
}

func (v *vehicleDatabase) FindDue(ctx context.Context, now time.Time) ([]models.Vehicle, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"nextInspectionDate": bson.M{"$lte": now}},
		bson.M{"nextMaintenanceDate": bson.M{"$lte": now}},
	}}
	return findAll[models.Vehicle](ctx, v.db.Collection(vehicleName), filter, options.Find())
}

func (e *equipmentDatabase) InsertOne(ctx context.Context, eq *models.Equipment) error {
	_, err := e.db.Collection(equipmentName).InsertOne(ctx, eq)
	return err
}

func (e *equipmentDatabase) FindByID(ctx context.Context, id string) (*models.Equipment, error) {
	return findByID[models.Equipment](ctx, e.db.Collection(equipmentName), id)
}

func (e *equipmentDatabase) Find(ctx context.Context, p Page) ([]models.Equipment, error) {
	opts := p.findOptions().SetSort(bson.D{{Key: "name", Value: 1}})
	return findAll[models.Equipment](ctx, e.db.Collection(equipmentName), bson.M{}, opts)
}

func (e *equipmentDatabase) Replace(ctx context.Context, eq *models.Equipment) error {
	return replaceByID(ctx, e.db.Collection(equipmentName), eq.ID, eq)
}

func (e *equipmentDatabase) FindDue(ctx context.Context, now time.Time) ([]models.Equipment, error) {
	filter := bson.M{
		"status":             bson.M{"$ne": models.EquipmentRetired},
		"nextInspectionDate": bson.M{"$lte": now},
	}
	return findAll[models.Equipment](ctx, e.db.Collection(equipmentName), filter, options.Find())
}
