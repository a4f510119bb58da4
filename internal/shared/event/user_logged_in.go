package event

import "time"

const UserLoggedInDestination string = "identity.user_logged_in"

type UserLoggedInMessage struct {
	UserID int64     `json:"user_id"`
	Email  string    `json:"email"`
	Method string    `json:"method"`
	IP     string    `json:"ip"`
	Device string    `json:"device"`
	At     time.Time `json:"at"`
}
