package databases_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/geijin5/apsar-emergency-api/config"
	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/databases/mocks"
	"github.com/geijin5/apsar-emergency-api/models"
)

func TestNewUserDatabase(t *testing.T) {
	os.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	os.Setenv("DB_NAME", "test")
	conf, err := config.New()
	require.NoError(t, err)

	dbClient, err := databases.NewClient(conf)
	assert.NoError(t, err)

	db := databases.NewDatabase(conf, dbClient)

	userDB := databases.NewUserDatabase(db)

	assert.NotEmpty(t, userDB)
}

func TestUserDatabase_FindByID(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	srHelperErr := &mocks.SingleResultHelper{}
	srHelperCorrect := &mocks.SingleResultHelper{}

	srHelperErr.
		On("Decode", mock.Anything).
		Return(databases.ErrNotFound)

	srHelperCorrect.
		On("Decode", mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*models.User)
		arg.ID = "mocked-user"
		arg.Role = models.RoleOfficer
	})

	collectionHelper.
		On("FindOne", context.Background(), bson.M{"_id": "missing"}).
		Return(srHelperErr)
	collectionHelper.
		On("FindOne", context.Background(), bson.M{"_id": "mocked-user"}).
		Return(srHelperCorrect)

	dbHelper.On("Collection", "users").Return(collectionHelper)

	userDba := databases.NewUserDatabase(dbHelper)

	user, err := userDba.FindByID(context.Background(), "missing")
	assert.Nil(t, user)
	assert.ErrorIs(t, err, databases.ErrNotFound)

	user, err = userDba.FindByID(context.Background(), "mocked-user")
	assert.NoError(t, err)
	assert.Equal(t, &models.User{ID: "mocked-user", Role: models.RoleOfficer}, user)
}

func TestUserDatabase_FindByEmailLowercases(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	srHelper := &mocks.SingleResultHelper{}

	srHelper.On("Decode", mock.Anything).Return(nil)
	collectionHelper.
		On("FindOne", context.Background(), bson.M{"email": "ic@apsar.org"}).
		Return(srHelper)
	dbHelper.On("Collection", "users").Return(collectionHelper)

	_, err := databases.NewUserDatabase(dbHelper).FindByEmail(context.Background(), "  IC@apsar.org ")
	assert.NoError(t, err)
	collectionHelper.AssertExpectations(t)
}

func TestUserDatabase_Find(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	cursorErr := &mocks.CursorHelper{}
	cursorCorrect := &mocks.CursorHelper{}

	cursorErr.
		On("Decode", mock.Anything).
		Return(errors.New("mocked-error"))
	cursorCorrect.
		On("Decode", mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.User)
		*arg = []models.User{{ID: "mocked-user"}}
	})

	officers := bson.M{"role": bson.M{"$in": []models.Role{models.RoleOfficer, models.RoleAdmin}}, "isActive": true}
	collectionHelper.
		On("Find", context.Background(), officers, mock.Anything).
		Return(cursorCorrect, nil)
	collectionHelper.
		On("Find", context.Background(), bson.M{"unit": "k9"}, mock.Anything).
		Return(cursorErr, nil)
	dbHelper.On("Collection", "users").Return(collectionHelper)

	userDba := databases.NewUserDatabase(dbHelper)

	users, err := userDba.Find(context.Background(), databases.UserFilter{MinRole: models.RoleOfficer, ActiveOnly: true}, databases.Page{})
	assert.NoError(t, err)
	assert.Equal(t, []models.User{{ID: "mocked-user"}}, users)

	users, err = userDba.Find(context.Background(), databases.UserFilter{Unit: "k9"}, databases.Page{})
	assert.Empty(t, users)
	assert.EqualError(t, err, "mocked-error")
}

func TestUserDatabase_SetRoleMissing(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	srHelper := &mocks.SingleResultHelper{}

	srHelper.On("Decode", mock.Anything).Return(databases.ErrNotFound)
	collectionHelper.
		On("FindOneAndUpdate", context.Background(), bson.M{"_id": "gone"}, mock.Anything, mock.Anything).
		Return(srHelper)
	collectionHelper.
		On("CountDocuments", context.Background(), bson.M{"_id": "gone"}).
		Return(int64(0), nil)
	dbHelper.On("Collection", "users").Return(collectionHelper)

	user, err := databases.NewUserDatabase(dbHelper).SetRole(context.Background(), "gone", models.RoleAdmin, time.Now())
	assert.Nil(t, user)
	assert.ErrorIs(t, err, databases.ErrNotFound)
}
