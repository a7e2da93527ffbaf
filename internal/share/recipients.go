package share

import (
	"context"
	"fmt"

	"github.com/rohits-web03/sharegate/internal/models"
)

// RecipientTracker records which email identities opened a transfer.
type RecipientTracker struct {
	store Store
	clock Clock
}

func NewRecipientTracker(store Store, clock Clock) *RecipientTracker {
	return &RecipientTracker{store: store, clock: clock}
}

// Upsert marks (transferID, email) as OPENED now, creating the recipient on
// first open. Concurrent first opens resolve to a single row through the
// store's uniqueness constraint.
func (r *RecipientTracker) Upsert(ctx context.Context, transferID, email string) (*models.Recipient, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("recipient email: %w", ErrInvalidInput)
	}
	rec, err := r.store.UpsertRecipient(ctx, transferID, email, r.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("upserting recipient: %w", err)
	}
	return rec, nil
}
