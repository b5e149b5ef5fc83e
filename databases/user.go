package databases

// go generate: mockery --name UserDatabase

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/geijin5/apsar-emergency-api/models"
)

const userName = "users"

// UserFilter narrows user queries. An empty MinRole matches every role.
type UserFilter struct {
	MinRole    models.Role
	Unit       string
	ActiveOnly bool
}

// UserProfile holds the self-editable fields of a user. Nil fields are left unchanged.
type UserProfile struct {
	Name  *string
	Phone *string
	Unit  *string
}

// UserDatabase contains the methods to use with the user database
type UserDatabase interface {
	InsertOne(context.Context, *models.User) error
	FindByID(context.Context, string) (*models.User, error)
	FindByEmail(context.Context, string) (*models.User, error)
	Find(context.Context, UserFilter, Page) ([]models.User, error)
	// FindIDs pages through matching ids in ascending order, starting after afterID
	FindIDs(ctx context.Context, filter UserFilter, afterID string, limit int) ([]string, error)
	UpdateProfile(context.Context, string, UserProfile, time.Time) (*models.User, error)
	SetRole(context.Context, string, models.Role, time.Time) (*models.User, error)
	Deactivate(context.Context, string, time.Time) (*models.User, error)
}

type userDatabase struct {
	db DatabaseHelper
}

// NewUserDatabase initializes a new instance of user database with the provided db connection
func NewUserDatabase(db DatabaseHelper) UserDatabase {
	return &userDatabase{
		db: db,
	}
}

func (u *userDatabase) InsertOne(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	_, err := u.db.Collection(userName).InsertOne(ctx, user)
	return err
}

func (u *userDatabase) FindByID(ctx context.Context, id string) (*models.User, error) {
	return findByID[models.User](ctx, u.db.Collection(userName), id)
}

func (u *userDatabase) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email))}
	if err := u.db.Collection(userName).FindOne(ctx, filter).Decode(user); err != nil {
		return nil, err
	}
	return user, nil
}

func userQuery(f UserFilter) bson.M {
	filter := bson.M{}
	if f.MinRole != "" {
		filter["role"] = bson.M{"$in": models.RolesAtLeast(f.MinRole)}
	}
	if f.Unit != "" {
		filter["unit"] = f.Unit
	}
	if f.ActiveOnly {
		filter["isActive"] = true
	}
	return filter
}

func (u *userDatabase) Find(ctx context.Context, f UserFilter, p Page) ([]models.User, error) {
	opts := p.findOptions().SetSort(bson.D{{Key: "name", Value: 1}})
	return findAll[models.User](ctx, u.db.Collection(userName), userQuery(f), opts)
}

func (u *userDatabase) FindIDs(ctx context.Context, f UserFilter, afterID string, limit int) ([]string, error) {
	filter := userQuery(f)
	if afterID != "" {
		filter["_id"] = bson.M{"$gt": afterID}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"_id": 1})
	users, err := findAll[models.User](ctx, u.db.Collection(userName), filter, opts)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(users))
	for _, usr := range users {
		ids = append(ids, usr.ID)
	}
	return ids, nil
}

func (u *userDatabase) UpdateProfile(ctx context.Context, id string, p UserProfile, at time.Time) (*models.User, error) {
	set := bson.M{"updatedAt": at}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Phone != nil {
		set["phone"] = *p.Phone
	}
	if p.Unit != nil {
		set["unit"] = *p.Unit
	}
	user := &models.User{}
	if err := updateWhere(ctx, u.db.Collection(userName), id, nil, bson.M{"$set": set}, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (u *userDatabase) SetRole(ctx context.Context, id string, role models.Role, at time.Time) (*models.User, error) {
	user := &models.User{}
	update := bson.M{"$set": bson.M{"role": role, "updatedAt": at}}
	if err := updateWhere(ctx, u.db.Collection(userName), id, nil, update, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (u *userDatabase) Deactivate(ctx context.Context, id string, at time.Time) (*models.User, error) {
	user := &models.User{}
	update := bson.M{"$set": bson.M{"isActive": false, "updatedAt": at}}
	if err := updateWhere(ctx, u.db.Collection(userName), id, nil, update, user); err != nil {
		return nil, err
	}
	return user, nil
}
