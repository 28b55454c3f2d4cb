package account

import "time"

// Profile is the identity established by an explicit login.
type Profile struct {
	Username   string    `json:"username"`
	Name       string    `json:"name"`
	LoggedInAt time.Time `json:"loggedInAt"`
}
