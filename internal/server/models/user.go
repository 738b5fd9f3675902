// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an identity record. Username and Email are each globally unique.
type User struct {
	ID          string
	Username    string
	Email       string
	FullName    string
	Password    string // password digest, never the plaintext
	IsSuperuser bool
	LastLogin   *time.Time
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}
