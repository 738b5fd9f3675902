package models

import "time"

// RefreshToken is the server-side record of a live refresh token. Token is the
// correlation id carried in the token header, not the token itself.
type RefreshToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
