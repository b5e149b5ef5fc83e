package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
)

func TestCreateRoomRules(t *testing.T) {
	f := newFixture(t)

	direct, err := f.svc.Chat.CreateRoom(ctx(), memberA, RoomInput{Type: models.RoomDirect, Members: []string{memberB.UserID}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{memberA.UserID, memberB.UserID}, direct.Members)

	_, err = f.svc.Chat.CreateRoom(ctx(), memberA, RoomInput{Type: models.RoomDirect, Members: []string{memberA.UserID}})
	assertKind(t, err, KindValidation)
	_, err = f.svc.Chat.CreateRoom(ctx(), memberA, RoomInput{Type: models.RoomGroup, Name: "Ground team", Members: []string{memberB.UserID}})
	assertKind(t, err, KindForbidden)
	_, err = f.svc.Chat.CreateRoom(ctx(), officer, RoomInput{Type: models.RoomUnit, Name: "K9"})
	assertKind(t, err, KindValidation)
	_, err = f.svc.Chat.CreateRoom(ctx(), officer, RoomInput{Type: "channel", Name: "x"})
	assertKind(t, err, KindValidation)

	_, err = f.svc.Chat.CreateRoom(ctx(), officer, RoomInput{Type: models.RoomGeneral, Name: "Everyone"})
	require.NoError(t, err)

	rooms, err := f.svc.Chat.ListRooms(ctx(), memberB)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
	rooms, err = f.svc.Chat.ListRooms(ctx(), models.Actor{UserID: "outsider", Role: models.RoleMember})
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
}

func TestChatMessages(t *testing.T) {
	f := newFixture(t)
	room, err := f.svc.Chat.CreateRoom(ctx(), officer, RoomInput{Type: models.RoomGroup, Name: "Ground team", Members: []string{memberA.UserID, memberB.UserID}})
	require.NoError(t, err)

	outsider := models.Actor{UserID: "outsider", Role: models.RoleMember}
	_, err = f.svc.Chat.PostMessage(ctx(), outsider, room.ID, "hello")
	assertKind(t, err, KindForbidden)
	_, err = f.svc.Chat.PostMessage(ctx(), memberA, room.ID, "")
	assertKind(t, err, KindValidation)

	msg, err := f.svc.Chat.PostMessage(ctx(), memberA, room.ID, "At the trailhead")
	require.NoError(t, err)
	assert.Equal(t, memberA.Name, msg.UserName)

	notes := f.recorder.OfType(models.NotificationChatMessage)
	require.Len(t, notes, 1)
	assert.ElementsMatch(t, []string{officer.UserID, memberB.UserID}, notes[0].RecipientIDs)

	_, err = f.svc.Chat.EditMessage(ctx(), memberB, room.ID, msg.ID, "changed")
	assertKind(t, err, KindForbidden)

	f.advance(time.Minute)
	edited, err := f.svc.Chat.EditMessage(ctx(), memberA, room.ID, msg.ID, "At the north trailhead")
	require.NoError(t, err)
	assert.True(t, edited.IsEdited)
	require.Len(t, edited.Edits, 1)
	assert.Equal(t, "At the trailhead", edited.Edits[0].Message)

	_, err = f.svc.Chat.DeleteMessage(ctx(), memberB, room.ID, msg.ID)
	assertKind(t, err, KindForbidden)

	deleted, err := f.svc.Chat.DeleteMessage(ctx(), officer, room.ID, msg.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.Equal(t, officer.UserID, deleted.DeletedBy)

	again, err := f.svc.Chat.DeleteMessage(ctx(), memberA, room.ID, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, officer.UserID, again.DeletedBy)

	_, err = f.svc.Chat.EditMessage(ctx(), memberA, room.ID, msg.ID, "undo")
	assertKind(t, err, KindInvalidState)

	// soft deleted messages stay in the log
	stored, err := f.store.ChatMessages.FindByID(ctx(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "At the north trailhead", stored.Message)

	memberView, err := f.svc.Chat.ListMessages(ctx(), memberB, room.ID, databases.Page{})
	require.NoError(t, err)
	require.Len(t, memberView, 1)
	assert.Empty(t, memberView[0].Message)

	officerView, err := f.svc.Chat.ListMessages(ctx(), officer, room.ID, databases.Page{})
	require.NoError(t, err)
	require.Len(t, officerView, 1)
	assert.Equal(t, "At the north trailhead", officerView[0].Message)
}

func TestChatMarkRead(t *testing.T) {
	f := newFixture(t)
	room, err := f.svc.Chat.CreateRoom(ctx(), memberA, RoomInput{Type: models.RoomDirect, Members: []string{memberB.UserID}})
	require.NoError(t, err)
	for _, text := range []string{"one", "two"} {
		_, err := f.svc.Chat.PostMessage(ctx(), memberA, room.ID, text)
		require.NoError(t, err)
	}

	n, err := f.svc.Chat.MarkRead(ctx(), memberB, room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = f.svc.Chat.MarkRead(ctx(), memberB, room.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.svc.Chat.MarkRead(ctx(), memberA, room.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGeneralRoomPostsDoNotNotify(t *testing.T) {
	f := newFixture(t)
	room, err := f.svc.Chat.CreateRoom(ctx(), officer, RoomInput{Type: models.RoomGeneral, Name: "Everyone"})
	require.NoError(t, err)
	_, err = f.svc.Chat.PostMessage(ctx(), memberA, room.ID, "Anyone free Saturday?")
	require.NoError(t, err)
	assert.Empty(t, f.recorder.OfType(models.NotificationChatMessage))
}

func TestUnitRoomFollowsUnitChanges(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Users.InsertOne(ctx(), &models.User{
		ID:       memberB.UserID,
		Email:    "blair@apsar.org",
		Name:     memberB.Name,
		Role:     models.RoleMember,
		IsActive: true,
	}))
	room, err := f.svc.Chat.CreateRoom(ctx(), officer, RoomInput{Type: models.RoomUnit, Name: "K9 team", Unit: "k9"})
	require.NoError(t, err)

	_, err = f.svc.Chat.PostMessage(ctx(), memberB, room.ID, "can I join?")
	assertKind(t, err, KindForbidden)

	k9 := "k9"
	_, err = f.store.Users.UpdateProfile(ctx(), memberB.UserID, databases.UserProfile{Unit: &k9}, f.now)
	require.NoError(t, err)

	_, err = f.svc.Chat.PostMessage(ctx(), memberB, room.ID, "Ready with Rex")
	require.NoError(t, err)
	rooms, err := f.svc.Chat.ListRooms(ctx(), memberB)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, room.ID, rooms[0].ID)

	_, err = f.svc.Chat.PostMessage(ctx(), officer, room.ID, "Stage at the north lot")
	require.NoError(t, err)
	notes := f.recorder.OfType(models.NotificationChatMessage)
	require.Len(t, notes, 2)
	assert.Equal(t, []string{officer.UserID}, notes[0].RecipientIDs)
	assert.Equal(t, []string{memberB.UserID}, notes[1].RecipientIDs)

	swift := "swiftwater"
	_, err = f.store.Users.UpdateProfile(ctx(), memberB.UserID, databases.UserProfile{Unit: &swift}, f.now)
	require.NoError(t, err)
	_, err = f.svc.Chat.ListMessages(ctx(), memberB, room.ID, databases.Page{})
	assertKind(t, err, KindForbidden)
}
