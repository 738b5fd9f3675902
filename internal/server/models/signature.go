package models

import "time"

// UserSignature is the single live revocation epoch of a user. Its value is
// stamped into every access token minted for the user and is replaced in place
// on "logout everywhere".
type UserSignature struct {
	Signature string
	UserID    string
	CreatedAt time.Time
	UpdatedAt *time.Time
}
