package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccessEvent string

const (
	AccessEventView     AccessEvent = "VIEW"
	AccessEventDownload AccessEvent = "DOWNLOAD"
	AccessEventBlocked  AccessEvent = "BLOCKED"
)

// UnknownIP is recorded when the requester address cannot be determined.
const UnknownIP = "unknown"

// AccessLog is an append-only record of one access attempt.
type AccessLog struct {
	ID          uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	TransferID  string      `json:"transferId" gorm:"size:64;not null;index:idx_access_log_transfer_created,priority:1"`
	RecipientID *uuid.UUID  `json:"recipientId" gorm:"type:uuid;index"`
	Event       AccessEvent `json:"event" gorm:"size:16;not null"`
	IP          string      `json:"ip" gorm:"size:64;not null;default:'unknown'"`
	Country     *string     `json:"country" gorm:"size:8"`
	UserAgent   *string     `json:"userAgent" gorm:"type:text"`
	Allowed     bool        `json:"allowed" gorm:"not null"`
	CreatedAt   time.Time   `json:"createdAt" gorm:"not null;index:idx_access_log_transfer_created,priority:2"`
}

func (AccessLog) TableName() string {
	return "access_logs"
}

func (l *AccessLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
