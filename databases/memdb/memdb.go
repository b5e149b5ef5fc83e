// Package memdb is an in-memory implementation of the entity databases. Documents are stored
// bson-encoded so reads never alias writes and computed fields are dropped the way mongo drops them.
package memdb

import (
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/geijin5/apsar-emergency-api/databases"
)

// New returns a Store whose databases all live in process memory
func New() *databases.Store {
	users := &userDB{t: newTable(userID)}
	return &databases.Store{
		Users:             users,
		CallOuts:          &callOutDB{t: newTable(callOutID)},
		CallOutResponses:  &callOutResponseDB{t: newTable(responseID)},
		Missions:          &missionDB{t: newTable(missionID)},
		MissionAreas:      &areaDB{t: newTable(areaID)},
		Incidents:         &incidentDB{t: newTable(incidentID)},
		IncidentResources: &resourceDB{t: newTable(resourceID)},
		Reports:           &reportDB{t: newTable(reportID)},
		Templates:         &templateDB{t: newTable(templateID)},
		Checklists:        &checklistDB{t: newTable(checklistID)},
		ChatRooms:         &roomDB{t: newTable(roomID)},
		ChatMessages:      &messageDB{t: newTable(messageID)},
		Vehicles:          &vehicleDB{t: newTable(vehicleID)},
		Equipment:         &equipmentDB{t: newTable(equipmentID)},
		Notifications:     &notificationDB{t: newTable(notificationID)},
		PushTokens:        &pushTokenDB{t: newTable(pushTokenID)},
		RevokedTokens:     &revokedTokenDB{t: newTable(revokedTokenID)},
		SchedulerLocks:    &lockDB{t: newTable(lockID)},
	}
}

// table is a mutex guarded map of bson documents keyed by id
type table[T any] struct {
	mu   sync.RWMutex
	rows map[string][]byte
	id   func(*T) string
}

func newTable[T any](id func(*T) string) *table[T] {
	return &table[T]{rows: map[string][]byte{}, id: id}
}

func encode[T any](v *T) []byte {
	raw, err := bson.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}

func decode[T any](raw []byte) *T {
	v := new(T)
	if err := bson.Unmarshal(raw, v); err != nil {
		panic(err)
	}
	return v
}

// insert stores v unless its id exists or conflict reports a clash with an existing row
func (t *table[T]) insert(v *T, conflict func(existing *T) bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.id(v)
	if _, ok := t.rows[id]; ok {
		return databases.ErrDuplicate
	}
	if conflict != nil {
		for _, raw := range t.rows {
			if conflict(decode[T](raw)) {
				return databases.ErrDuplicate
			}
		}
	}
	t.rows[id] = encode(v)
	return nil
}

func (t *table[T]) get(id string) (*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	raw, ok := t.rows[id]
	if !ok {
		return nil, databases.ErrNotFound
	}
	return decode[T](raw), nil
}

// find returns a copy of every row matching match, or every row when match is nil
func (t *table[T]) find(match func(*T) bool) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]T, 0, len(t.rows))
	for _, raw := range t.rows {
		v := decode[T](raw)
		if match == nil || match(v) {
			out = append(out, *v)
		}
	}
	return out
}

func (t *table[T]) first(match func(*T) bool) (*T, error) {
	rows := t.find(match)
	if len(rows) == 0 {
		return nil, databases.ErrNotFound
	}
	return &rows[0], nil
}

// update applies fn to the row with id under the write lock. fn may veto the write by
// returning an error.
func (t *table[T]) update(id string, fn func(*T) error) (*T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	raw, ok := t.rows[id]
	if !ok {
		return nil, databases.ErrNotFound
	}
	v := decode[T](raw)
	if err := fn(v); err != nil {
		return nil, err
	}
	t.rows[id] = encode(v)
	return decode[T](t.rows[id]), nil
}

// updateAll applies fn to every matching row and returns how many were changed
func (t *table[T]) updateAll(match func(*T) bool, fn func(*T)) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var n int64
	for id, raw := range t.rows {
		v := decode[T](raw)
		if match(v) {
			fn(v)
			t.rows[id] = encode(v)
			n++
		}
	}
	return n
}

// upsert updates the first row matching match or inserts the row built by create
func (t *table[T]) upsert(match func(*T) bool, apply func(*T), create func() *T) *T {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, raw := range t.rows {
		v := decode[T](raw)
		if match(v) {
			apply(v)
			t.rows[id] = encode(v)
			return decode[T](t.rows[id])
		}
	}
	v := create()
	apply(v)
	t.rows[t.id(v)] = encode(v)
	return decode[T](t.rows[t.id(v)])
}

func (t *table[T]) replace(id string, v *T, cond func(existing *T) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	raw, ok := t.rows[id]
	if !ok {
		return databases.ErrNotFound
	}
	if cond != nil {
		if err := cond(decode[T](raw)); err != nil {
			return err
		}
	}
	t.rows[id] = encode(v)
	return nil
}

// revert removes the row id when prev is nil, otherwise puts prev back while unchanged still
// holds for the stored row
func (t *table[T]) revert(id string, prev *T, unchanged func(existing *T) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	raw, ok := t.rows[id]
	if !ok {
		return
	}
	if prev == nil {
		delete(t.rows, id)
		return
	}
	if unchanged(decode[T](raw)) {
		t.rows[id] = encode(prev)
	}
}

func (t *table[T]) remove(match func(*T) bool) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var n int64
	for id, raw := range t.rows {
		if match(decode[T](raw)) {
			delete(t.rows, id)
			n++
		}
	}
	return n
}

func (t *table[T]) count(match func(*T) bool) int64 {
	return int64(len(t.find(match)))
}

func sortBy[T any](rows []T, less func(a, b *T) bool) []T {
	sort.SliceStable(rows, func(i, j int) bool { return less(&rows[i], &rows[j]) })
	return rows
}

// paginate sorts rows with less and cuts the requested page
func paginate[T any](rows []T, p databases.Page, less func(a, b *T) bool) []T {
	sortBy(rows, less)
	p = p.Normalize()
	start := p.Skip()
	if start >= len(rows) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}
