package share

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rohits-web03/sharegate/internal/models"
)

// Lifecycle owns transfer state transitions:
//
//	DRAFT -> ACTIVE -> {EXPIRED, REVOKED}
//
// EXPIRED and REVOKED are terminal. Transitions requested from a terminal
// state are silent no-ops.
type Lifecycle struct {
	store  Store
	clock  Clock
	logger *slog.Logger
}

func NewLifecycle(store Store, clock Clock, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{store: store, clock: clock, logger: logger}
}

// Create stores t as ACTIVE. Content is finalized before the record exists,
// so transfers never sit in DRAFT.
func (l *Lifecycle) Create(ctx context.Context, t *models.Transfer) error {
	t.Status = models.TransferStatusActive
	t.DownloadCount = 0
	if err := l.store.CreateTransfer(ctx, t); err != nil {
		return fmt.Errorf("creating transfer: %w", err)
	}
	l.logger.Info("transfer created", "transfer_id", t.ID, "type", t.Type)
	return nil
}

// CheckExpiry moves t to EXPIRED when it is ACTIVE and past its expiry.
// It reports whether this call found the transfer expired; calling it again
// on the now-EXPIRED transfer returns false.
func (l *Lifecycle) CheckExpiry(ctx context.Context, t *models.Transfer) (bool, error) {
	if t.Status != models.TransferStatusActive || !t.PastExpiry(l.clock.Now()) {
		return false, nil
	}
	if err := l.transition(ctx, t, models.TransferStatusExpired); err != nil {
		return false, err
	}
	return true, nil
}

// Revoke moves t to REVOKED.
func (l *Lifecycle) Revoke(ctx context.Context, t *models.Transfer) error {
	return l.transition(ctx, t, models.TransferStatusRevoked)
}

// ConsumeViewOnce expires a view-once transfer after its single view was granted.
func (l *Lifecycle) ConsumeViewOnce(ctx context.Context, t *models.Transfer) error {
	if !t.ViewOnce {
		return nil
	}
	return l.transition(ctx, t, models.TransferStatusExpired)
}

// IncrementDownload atomically counts one download against the cap.
func (l *Lifecycle) IncrementDownload(ctx context.Context, id string) (*models.Transfer, error) {
	t, err := l.store.IncrementDownloadCount(ctx, id)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("download counted", "transfer_id", id, "download_count", t.DownloadCount)
	return t, nil
}

// SweepExpired expires every overdue ACTIVE transfer in one statement.
func (l *Lifecycle) SweepExpired(ctx context.Context) (int64, error) {
	n, err := l.store.ExpireDue(ctx, l.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("expiring overdue transfers: %w", err)
	}
	if n > 0 {
		l.logger.Info("expired overdue transfers", "count", n)
	}
	return n, nil
}

func (l *Lifecycle) transition(ctx context.Context, t *models.Transfer, to models.TransferStatus) error {
	if t.Status.Terminal() {
		return nil
	}
	from := t.Status
	updated, err := l.store.UpdateTransferStatus(ctx, t.ID, to, l.clock.Now())
	if err != nil {
		return fmt.Errorf("moving transfer %s to %s: %w", t.ID, to, err)
	}
	*t = *updated
	if t.Status == to {
		l.logger.Info("transfer status changed", "transfer_id", t.ID, "from", from, "to", to)
	}
	return nil
}
