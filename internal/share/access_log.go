package share

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rohits-web03/sharegate/internal/models"
)

// RequestMeta is what the transport layer knows about the requester.
type RequestMeta struct {
	IP        string
	UserAgent string
	Country   string
}

// AccessLogger appends access attempts to the record store. Writes are
// best-effort: a failure is reported through the logger and never changes
// the outcome of the request that triggered it.
type AccessLogger struct {
	store  Store
	clock  Clock
	logger *slog.Logger
}

func NewAccessLogger(store Store, clock Clock, logger *slog.Logger) *AccessLogger {
	return &AccessLogger{store: store, clock: clock, logger: logger}
}

// LogAccess records one attempt and returns the stored row, or nil when the
// write failed.
func (a *AccessLogger) LogAccess(ctx context.Context, transferID string, recipientID *uuid.UUID, event models.AccessEvent, allowed bool, meta RequestMeta) *models.AccessLog {
	entry := &models.AccessLog{
		TransferID:  transferID,
		RecipientID: recipientID,
		Event:       event,
		IP:          meta.IP,
		Country:     optional(meta.Country),
		UserAgent:   optional(meta.UserAgent),
		Allowed:     allowed,
		CreatedAt:   a.clock.Now(),
	}
	if entry.IP == "" {
		entry.IP = models.UnknownIP
	}

	if err := a.store.CreateAccessLog(ctx, entry); err != nil {
		a.logger.Error("failed to record access",
			"transfer_id", transferID,
			"event", event,
			"allowed", allowed,
			"error", err,
		)
		return nil
	}
	return entry
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
