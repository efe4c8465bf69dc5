package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the platform user record. The social-graph service only reads it:
// identity, the name/email used for friendship snapshots, and the engagement
// counters the classifier looks at.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name"`
	MoodEntryCount int       `json:"mood_entry_count"`
	TotalXP        int       `json:"total_xp"`
	Searchable     bool      `json:"searchable"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type UserSummary struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
}
