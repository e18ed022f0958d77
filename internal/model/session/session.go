package session

import "time"

// DefaultID is used when an inbound turn carries no session identifier.
const DefaultID = "demo"

// Session is the canonical intel snapshot captured on the first turn of a conversation.
// It is written once and never updated.
type Session struct {
	ID              string    `json:"sessionId"`
	StartTime       time.Time `json:"startTime"`
	ScammerIP       string    `json:"scammerIp"`
	ScammerLocation string    `json:"scammerLocation"`
	ScammerLat      float64   `json:"scammerLat"`
	ScammerLng      float64   `json:"scammerLng"`
}

// NewSession snapshots the given profile as the canonical intel for id.
func NewSession(id string, profile Profile, startTime time.Time) Session {
	return Session{
		ID:              id,
		StartTime:       startTime.UTC(),
		ScammerIP:       profile.IP,
		ScammerLocation: profile.Location,
		ScammerLat:      profile.Lat,
		ScammerLng:      profile.Lng,
	}
}
