package model

import "time"

// Account represents one of the user's money accounts.
type Account struct {
	CreatedAt time.Time
	ID        string
	Name      string
	IsActive  bool
}
