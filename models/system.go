package models

import "time"

// HealthCheckResponse returns the health check response struct
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}

// RevokedToken holds the structure for the revokedtokens collection in mongo
type RevokedToken struct {
	TokenID   string    `json:"tokenId" bson:"_id"`
	UserID    string    `json:"userId" bson:"userId"`
	ExpiresAt time.Time `json:"expiresAt" bson:"expiresAt"`
}

// SchedulerLock holds the structure for the schedulerlocks collection in mongo
type SchedulerLock struct {
	Name      string    `json:"name" bson:"_id"`
	Owner     string    `json:"owner" bson:"owner"`
	ExpiresAt time.Time `json:"expiresAt" bson:"expiresAt"`
}
