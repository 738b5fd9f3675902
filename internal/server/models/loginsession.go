package models

import "time"

// LoginSession records a device a user signed in from, one row per
// (user, ip, user agent).
type LoginSession struct {
	ID        string
	UserID    string
	IP        string
	UserAgent string
	LastSeen  time.Time
}
