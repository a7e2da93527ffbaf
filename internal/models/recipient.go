package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RecipientChannelLink  = "LINK"
	RecipientStatusOpened = "OPENED"
)

// Recipient is an email identity that opened a transfer. The pair
// (TransferID, Email) is unique.
type Recipient struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	TransferID string     `json:"transferId" gorm:"size:64;not null;uniqueIndex:idx_recipient_transfer_email"`
	Email      string     `json:"email" gorm:"not null;uniqueIndex:idx_recipient_transfer_email"`
	Channel    string     `json:"channel" gorm:"size:16;not null;default:'LINK'"`
	Status     string     `json:"status" gorm:"size:16;not null"`
	OpenedAt   *time.Time `json:"openedAt"`
	CreatedAt  time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt  time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (Recipient) TableName() string {
	return "recipients"
}

func (r *Recipient) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
