package model

import "time"

// User is the identity and timezone profile consulted by every tool call.
type User struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Email     string    `json:"email" bson:"email" validate:"required,email"`
	Timezone  string    `json:"timezone" bson:"timezone"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// TimezoneOrUTC returns the stored timezone, defaulting to UTC for profiles
// that never set one.
func (u *User) TimezoneOrUTC() string {
	if u.Timezone == "" {
		return "UTC"
	}
	return u.Timezone
}

// TimezoneUpdateResult is returned by the timezone tool; the current local
// time lets the reasoning loop resolve relative dates within the same turn.
type TimezoneUpdateResult struct {
	Status           string `json:"status"`
	Message          string `json:"message"`
	CurrentLocalTime string `json:"current_user_time,omitempty"`
}
