package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/geijin5/apsar-emergency-api/api"
	"github.com/geijin5/apsar-emergency-api/services"
)

// Chat exported for testing purposes
type Chat struct {
	Svc *services.ChatService
}

type messageBody struct {
	Message string `json:"message"`
}

// RoomsHandler returns the rooms the caller can read
func (c Chat) RoomsHandler(w http.ResponseWriter, r *http.Request) {
	items, err := c.Svc.ListRooms(r.Context(), actorOf(r))
	respond(w, http.StatusOK, list(items), err)
}

// CreateRoomHandler opens a room
func (c Chat) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var in services.RoomInput
	if err := decode(w, r, &in); err != nil {
		api.WriteError(w, err)
		return
	}
	room, err := c.Svc.CreateRoom(r.Context(), actorOf(r), in)
	respond(w, http.StatusCreated, room, err)
}

// MessagesHandler returns a page of a room's messages, newest first
func (c Chat) MessagesHandler(w http.ResponseWriter, r *http.Request) {
	items, err := c.Svc.ListMessages(r.Context(), actorOf(r), mux.Vars(r)["id"], getPage(r))
	respond(w, http.StatusOK, list(items), err)
}

// PostMessageHandler posts to a room
func (c Chat) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	var body messageBody
	if err := decode(w, r, &body); err != nil {
		api.WriteError(w, err)
		return
	}
	msg, err := c.Svc.PostMessage(r.Context(), actorOf(r), mux.Vars(r)["id"], body.Message)
	respond(w, http.StatusCreated, msg, err)
}

// EditMessageHandler edits the caller's message
func (c Chat) EditMessageHandler(w http.ResponseWriter, r *http.Request) {
	var body messageBody
	if err := decode(w, r, &body); err != nil {
		api.WriteError(w, err)
		return
	}
	vars := mux.Vars(r)
	msg, err := c.Svc.EditMessage(r.Context(), actorOf(r), vars["id"], vars["messageId"], body.Message)
	respond(w, http.StatusOK, msg, err)
}

// DeleteMessageHandler flags a message as deleted
func (c Chat) DeleteMessageHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	msg, err := c.Svc.DeleteMessage(r.Context(), actorOf(r), vars["id"], vars["messageId"])
	respond(w, http.StatusOK, msg, err)
}

// MarkReadHandler marks every message of a room read for the caller
func (c Chat) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	n, err := c.Svc.MarkRead(r.Context(), actorOf(r), mux.Vars(r)["id"])
	respond(w, http.StatusOK, map[string]int64{"updated": n}, err)
}
