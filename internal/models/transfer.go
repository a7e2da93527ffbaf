package models

import (
	"time"

	"github.com/google/uuid"
)

type TransferType string

const (
	TransferTypeFile TransferType = "FILE"
	TransferTypeLink TransferType = "LINK"
)

type TransferStatus string

const (
	TransferStatusDraft   TransferStatus = "DRAFT"
	TransferStatusActive  TransferStatus = "ACTIVE"
	TransferStatusExpired TransferStatus = "EXPIRED"
	TransferStatusRevoked TransferStatus = "REVOKED"
)

// Terminal reports whether no further transition can leave s.
func (s TransferStatus) Terminal() bool {
	return s == TransferStatusExpired || s == TransferStatusRevoked
}

type Transfer struct {
	ID            string         `json:"id" gorm:"primaryKey;size:64"` // public share slug
	CreatorID     uuid.UUID      `json:"creatorId" gorm:"type:uuid;not null;index"`
	Type          TransferType   `json:"type" gorm:"size:8;not null;default:'FILE'"`
	Title         string         `json:"title" gorm:"not null"`
	Description   *string        `json:"description"`
	Status        TransferStatus `json:"status" gorm:"size:16;not null;default:'ACTIVE';index"`
	StorageKey    *string        `json:"-"`
	FileName      *string        `json:"fileName"`
	FileSize      *int64         `json:"fileSize"` // bytes
	ContentType   *string        `json:"contentType"`
	LinkTarget    *string        `json:"linkTarget"`
	PasscodeHash  *string        `json:"-"`
	ExpiresAt     *time.Time     `json:"expiresAt" gorm:"index"`
	MaxDownloads  *int           `json:"maxDownloads"`
	DownloadCount int            `json:"downloadCount" gorm:"not null;default:0"`
	ViewOnce      bool           `json:"viewOnce" gorm:"not null;default:false"`
	AllowReshare  bool           `json:"allowReshare" gorm:"not null"` // false means an email is required to view
	RevokedAt     *time.Time     `json:"revokedAt"`
	CreatedAt     time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
	Recipients    []Recipient    `json:"-" gorm:"foreignKey:TransferID;constraint:OnDelete:CASCADE"`
	AccessLogs    []AccessLog    `json:"-" gorm:"foreignKey:TransferID;constraint:OnDelete:CASCADE"`
}

func (Transfer) TableName() string {
	return "transfers"
}

// HasPasscode reports whether viewers must present a passcode.
func (t *Transfer) HasPasscode() bool {
	return t.PasscodeHash != nil && *t.PasscodeHash != ""
}

// RequiresEmail reports whether the email gate is active.
func (t *Transfer) RequiresEmail() bool {
	return !t.AllowReshare
}

// LimitReached reports whether the download cap has been consumed.
func (t *Transfer) LimitReached() bool {
	return t.MaxDownloads != nil && t.DownloadCount >= *t.MaxDownloads
}

// PastExpiry reports whether now is after the configured expiry.
func (t *Transfer) PastExpiry(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}
