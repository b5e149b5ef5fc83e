package databases

// Store bundles every entity database the services depend on
type Store struct {
	Users             UserDatabase
	CallOuts          CallOutDatabase
	CallOutResponses  CallOutResponseDatabase
	Missions          SARMissionDatabase
	MissionAreas      SARMissionAreaDatabase
	Incidents         IncidentDatabase
	IncidentResources IncidentResourceDatabase
	Reports           CalloutReportDatabase
	Templates         ChecklistTemplateDatabase
	Checklists        ChecklistDatabase
	ChatRooms         ChatRoomDatabase
	ChatMessages      ChatMessageDatabase
	Vehicles          VehicleDatabase
	Equipment         EquipmentDatabase
	Notifications     NotificationDatabase
	PushTokens        PushTokenDatabase
	RevokedTokens     RevokedTokenDatabase
	SchedulerLocks    SchedulerLockDatabase
}

// NewMongoStore wires every entity database to the mongo database db
func NewMongoStore(db DatabaseHelper) *Store {
	return &Store{
		Users:             NewUserDatabase(db),
		CallOuts:          NewCallOutDatabase(db),
		CallOutResponses:  NewCallOutResponseDatabase(db),
		Missions:          NewSARMissionDatabase(db),
		MissionAreas:      NewSARMissionAreaDatabase(db),
		Incidents:         NewIncidentDatabase(db),
		IncidentResources: NewIncidentResourceDatabase(db),
		Reports:           NewCalloutReportDatabase(db),
		Templates:         NewChecklistTemplateDatabase(db),
		Checklists:        NewChecklistDatabase(db),
		ChatRooms:         NewChatRoomDatabase(db),
		ChatMessages:      NewChatMessageDatabase(db),
		Vehicles:          NewVehicleDatabase(db),
		Equipment:         NewEquipmentDatabase(db),
		Notifications:     NewNotificationDatabase(db),
		PushTokens:        NewPushTokenDatabase(db),
		RevokedTokens:     NewRevokedTokenDatabase(db),
		SchedulerLocks:    NewSchedulerLockDatabase(db),
	}
}
