package databases_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/databases/mocks"
	"github.com/geijin5/apsar-emergency-api/models"
)

func TestCallOutDatabase_CloseConditionFailed(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	srHelper := &mocks.SingleResultHelper{}

	srHelper.On("Decode", mock.Anything).Return(databases.ErrNotFound)
	collectionHelper.
		On("FindOneAndUpdate", context.Background(), bson.M{"_id": "co-1", "status": models.CallOutActive}, mock.Anything, mock.Anything).
		Return(srHelper)
	collectionHelper.
		On("CountDocuments", context.Background(), bson.M{"_id": "co-1"}).
		Return(int64(1), nil)
	dbHelper.On("Collection", "callouts").Return(collectionHelper)

	co, err := databases.NewCallOutDatabase(dbHelper).Close(context.Background(), "co-1", models.CallOutCompleted, "officer-1", time.Now())
	assert.Nil(t, co)
	assert.ErrorIs(t, err, databases.ErrConditionFailed)
}

func TestCallOutResponseDatabase_UpsertRetriesDuplicate(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	raced := &mocks.SingleResultHelper{}
	updated := &mocks.SingleResultHelper{}

	raced.On("Decode", mock.Anything).Return(databases.ErrDuplicate)
	updated.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*models.CallOutResponse)
		arg.ID = "resp-1"
		arg.Status = models.ResponseEnRoute
	})

	key := bson.M{"callOutId": "co-1", "userId": "u-1"}
	collectionHelper.
		On("FindOneAndUpdate", context.Background(), key, mock.Anything, mock.Anything).
		Return(raced).Once()
	collectionHelper.
		On("FindOneAndUpdate", context.Background(), key, mock.Anything, mock.Anything).
		Return(updated).Once()
	dbHelper.On("Collection", "calloutresponses").Return(collectionHelper)

	resp, err := databases.NewCallOutResponseDatabase(dbHelper).Upsert(context.Background(), &models.CallOutResponse{
		CallOutID: "co-1",
		UserID:    "u-1",
		Status:    models.ResponseEnRoute,
	})
	require.NoError(t, err)
	assert.Equal(t, "resp-1", resp.ID)
	collectionHelper.AssertNumberOfCalls(t, "FindOneAndUpdate", 2)
}

func TestCallOutResponseDatabase_Summaries(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	cursor := &mocks.CursorHelper{}

	cursor.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		decodeInto(t, []bson.M{
			{"_id": bson.M{"callOutId": "co-1", "status": "available"}, "count": 2},
			{"_id": bson.M{"callOutId": "co-1", "status": "en_route"}, "count": 1},
			{"_id": bson.M{"callOutId": "co-2", "status": "unavailable"}, "count": 4},
		}, args.Get(0))
	})
	collectionHelper.On("Aggregate", context.Background(), mock.Anything).Return(cursor, nil)
	dbHelper.On("Collection", "calloutresponses").Return(collectionHelper)

	sums, err := databases.NewCallOutResponseDatabase(dbHelper).Summaries(context.Background(), []string{"co-1", "co-2"})
	require.NoError(t, err)
	assert.Equal(t, 2, sums["co-1"][models.ResponseAvailable])
	assert.Equal(t, 1, sums["co-1"][models.ResponseEnRoute])
	assert.Equal(t, 4, sums["co-2"][models.ResponseUnavailable])
}

func TestCallOutResponseDatabase_SummariesEmpty(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	sums, err := databases.NewCallOutResponseDatabase(dbHelper).Summaries(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, sums)
	dbHelper.AssertNotCalled(t, "Collection", mock.Anything)
}

// decodeInto round-trips rows through bson into out, which points at a slice of any row type
func decodeInto(t *testing.T, rows interface{}, out interface{}) {
	t.Helper()
	data, err := bson.Marshal(bson.M{"v": rows})
	require.NoError(t, err)
	holder := reflect.New(reflect.StructOf([]reflect.StructField{{
		Name: "V",
		Type: reflect.TypeOf(out).Elem(),
		Tag:  `bson:"v"`,
	}}))
	require.NoError(t, bson.Unmarshal(data, holder.Interface()))
	reflect.ValueOf(out).Elem().Set(holder.Elem().Field(0))
}

func TestCallOutResponseDatabase_RevertRemovesNewRow(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	collectionHelper.On("DeleteOne", context.Background(), bson.M{"_id": "resp-1"}).Return(int64(1), nil)
	dbHelper.On("Collection", "calloutresponses").Return(collectionHelper)

	written := &models.CallOutResponse{ID: "resp-1", UpdatedAt: time.Now()}
	err := databases.NewCallOutResponseDatabase(dbHelper).Revert(context.Background(), written, nil)
	require.NoError(t, err)
	collectionHelper.AssertNumberOfCalls(t, "DeleteOne", 1)
	collectionHelper.AssertNotCalled(t, "ReplaceOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestCallOutResponseDatabase_RevertRestoresPrevious(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	prev := &models.CallOutResponse{ID: "resp-1", Status: models.ResponseAvailable}
	collectionHelper.
		On("ReplaceOne", context.Background(), bson.M{"_id": "resp-1", "updatedAt": at}, prev).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil)
	dbHelper.On("Collection", "calloutresponses").Return(collectionHelper)

	written := &models.CallOutResponse{ID: "resp-1", Status: models.ResponseEnRoute, UpdatedAt: at}
	err := databases.NewCallOutResponseDatabase(dbHelper).Revert(context.Background(), written, prev)
	require.NoError(t, err)
	collectionHelper.AssertNumberOfCalls(t, "ReplaceOne", 1)
}
