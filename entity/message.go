package entity

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

type (
	// Message is one immutable turn half. CreatedAt is its timestamp.
	Message struct {
		gorm.Model

		ThreadID uint                                `gorm:"not null;index:idx_messages_thread"`
		Role     Role                                `gorm:"not null"`
		Content  string                              `gorm:"type:text;not null"`
		Metadata datatypes.JSONType[MessageMetadata] `gorm:"type:json"`
	}

	// MessageMetadata records how an assistant reply was produced.
	MessageMetadata struct {
		Model        string `json:"model,omitempty"`
		InputTokens  int    `json:"input_tokens,omitempty"`
		OutputTokens int    `json:"output_tokens,omitempty"`
	}
)
