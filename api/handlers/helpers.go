package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/geijin5/apsar-emergency-api/api"
	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
	"github.com/geijin5/apsar-emergency-api/services"
)

// maxBody bounds request bodies
const maxBody = 1 << 20

func actorOf(r *http.Request) models.Actor {
	actor, _ := api.ActorFrom(r.Context())
	return actor
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return services.Validation("invalid request body: %v", err)
	}
	return nil
}

// decodeOptional is decode for endpoints whose body may be empty
func decodeOptional(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return services.Validation("invalid request body: %v", err)
	}
	return nil
}

// getPage reads limit and page from the query string
func getPage(r *http.Request) databases.Page {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	page, _ := strconv.Atoi(q.Get("page"))
	return databases.Page{Limit: limit, Page: page}.Normalize()
}

// list keeps empty results encoded as [] instead of null
func list[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func respond(w http.ResponseWriter, status int, v interface{}, err error) {
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, status, v)
}

type statusBody struct {
	Status string `json:"status"`
}

type reviewBody struct {
	Action models.ReviewAction `json:"action"`
	Notes  string              `json:"notes"`
}
