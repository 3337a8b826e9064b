package entity

import (
	"gorm.io/gorm"
)

// Thread is a named conversation owned by one user and bound to one persona.
type Thread struct {
	gorm.Model

	UserID        string `gorm:"not null;uniqueIndex:idx_threads_owner_name"`
	Name          string `gorm:"not null;uniqueIndex:idx_threads_owner_name"`
	PersonaPrompt string `gorm:"type:text;not null"`

	Messages []Message `gorm:"foreignKey:ThreadID"`
}
