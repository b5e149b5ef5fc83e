// Package services holds the coordination rules of the API: call-outs, incidents, SAR missions,
// the review workflow, checklists, chat, assets, users and notifications. Every operation takes
// the authenticated actor, writes through the entity store first and then hands side-effect
// notifications to the dispatcher.
package services

import (
	"strings"
	"time"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/notify"
)

// clock is shared by every service so tests can move time for all of them at once
type clock struct {
	now func() time.Time
}

func (c *clock) Now() time.Time {
	if c.now == nil {
		return time.Now().UTC()
	}
	return c.now()
}

// Services bundles one instance of each service, constructed once at process start
type Services struct {
	CallOuts      *CallOutService
	Incidents     *IncidentService
	Missions      *MissionService
	Reports       *ReportService
	Checklists    *ChecklistService
	Chat          *ChatService
	Assets        *AssetService
	Users         *UserService
	Notifications *NotificationService

	clock *clock
}

// New wires every service to store and dispatcher
func New(store *databases.Store, dispatcher notify.Dispatcher) *Services {
	c := &clock{}
	return &Services{
		CallOuts: &CallOutService{
			callOuts:   store.CallOuts,
			responses:  store.CallOutResponses,
			dispatcher: dispatcher,
			clock:      c,
		},
		Incidents: &IncidentService{
			incidents:  store.Incidents,
			resources:  store.IncidentResources,
			dispatcher: dispatcher,
			clock:      c,
		},
		Missions: &MissionService{
			missions:   store.Missions,
			areas:      store.MissionAreas,
			dispatcher: dispatcher,
			clock:      c,
		},
		Reports: &ReportService{
			reports:    store.Reports,
			dispatcher: dispatcher,
			clock:      c,
		},
		Checklists: &ChecklistService{
			templates:  store.Templates,
			checklists: store.Checklists,
			dispatcher: dispatcher,
			clock:      c,
		},
		Chat: &ChatService{
			users:      store.Users,
			rooms:      store.ChatRooms,
			messages:   store.ChatMessages,
			dispatcher: dispatcher,
			clock:      c,
		},
		Assets: &AssetService{
			vehicles:   store.Vehicles,
			equipment:  store.Equipment,
			dispatcher: dispatcher,
			clock:      c,
		},
		Users: &UserService{
			users: store.Users,
			clock: c,
		},
		Notifications: &NotificationService{
			notifications: store.Notifications,
			tokens:        store.PushTokens,
			revoked:       store.RevokedTokens,
			clock:         c,
		},
		clock: c,
	}
}

// SetClock replaces the time source of every service
func (s *Services) SetClock(now func() time.Time) {
	s.clock.now = now
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
