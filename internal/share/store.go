package share

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rohits-web03/sharegate/internal/models"
)

// Store is the record store for transfers, recipients and access logs.
// Implementations must return ErrNotFound for unknown transfer ids.
type Store interface {
	FindTransfer(ctx context.Context, id string) (*models.Transfer, error)
	CreateTransfer(ctx context.Context, t *models.Transfer) error
	UpdateTransfer(ctx context.Context, id string, changes TransferChanges) (*models.Transfer, error)

	// UpdateTransferStatus moves a non-terminal transfer to status and returns
	// the current record. A transfer already in a terminal state is returned
	// unchanged.
	UpdateTransferStatus(ctx context.Context, id string, status models.TransferStatus, at time.Time) (*models.Transfer, error)

	// IncrementDownloadCount adds one to the download counter in a single
	// conditional update. It returns ErrDownloadLimitReached, without
	// changing anything, when the cap is already consumed.
	IncrementDownloadCount(ctx context.Context, id string) (*models.Transfer, error)

	// ExpireDue moves every ACTIVE transfer whose expiry is before now to EXPIRED.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)

	// DeleteTransfer removes the transfer with its recipients and access logs.
	DeleteTransfer(ctx context.Context, id string) error
	ListTransfersByCreator(ctx context.Context, creatorID uuid.UUID) ([]TransferSummary, error)

	CreateAccessLog(ctx context.Context, entry *models.AccessLog) error
	// ListAccessLogs returns logs newest first. A limit <= 0 returns all of them.
	ListAccessLogs(ctx context.Context, transferID string, limit int) ([]models.AccessLog, error)

	// UpsertRecipient inserts or reopens the (transferID, email) recipient atomically.
	UpsertRecipient(ctx context.Context, transferID, email string, openedAt time.Time) (*models.Recipient, error)
	CountRecipients(ctx context.Context, transferID string) (int64, error)
}

// BlobStore holds the bytes behind FILE transfers.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key, fileName string, inline bool, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// TransferChanges lists owner edits. Nil fields are left untouched.
// SetPasscode distinguishes "leave the passcode alone" from "clear it"
// (SetPasscode with a nil PasscodeHash).
type TransferChanges struct {
	Title             *string
	Description       *string
	ExpiresAt         *time.Time
	ClearExpiresAt    bool
	MaxDownloads      *int
	ClearMaxDownloads bool
	ViewOnce          *bool
	AllowReshare      *bool
	SetPasscode       bool
	PasscodeHash      *string
}

// Empty reports whether the changes would not modify anything.
func (c TransferChanges) Empty() bool {
	return c.Title == nil && c.Description == nil && c.ExpiresAt == nil && !c.ClearExpiresAt &&
		c.MaxDownloads == nil && !c.ClearMaxDownloads && c.ViewOnce == nil && c.AllowReshare == nil && !c.SetPasscode
}

// TransferSummary is a dashboard row: the transfer plus its activity counts.
type TransferSummary struct {
	models.Transfer
	AccessLogCount int64 `json:"accessLogCount"`
	RecipientCount int64 `json:"recipientCount"`
}
