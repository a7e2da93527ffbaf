package testutil

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rohits-web03/sharegate/internal/models"
	"github.com/rohits-web03/sharegate/internal/share"
)

// ErrInjected is returned by MemoryStore operations configured to fail.
var ErrInjected = errors.New("injected failure")

// MemoryStore is an in-memory share.Store. Every method holds one lock, which
// gives it the same atomicity as the conditional updates of the SQL store.
type MemoryStore struct {
	mu         sync.Mutex
	transfers  map[string]models.Transfer
	recipients map[string]models.Recipient // keyed by transferID + "\x00" + email
	logs       []models.AccessLog

	FailAccessLogs bool
	FailRecipients bool
}

var _ share.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transfers:  map[string]models.Transfer{},
		recipients: map[string]models.Recipient{},
	}
}

// Put stores t as-is, bypassing lifecycle rules. Use it to seed fixtures.
func (s *MemoryStore) Put(t models.Transfer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers[t.ID] = t
}

// Transfer returns a copy of the stored transfer.
func (s *MemoryStore) Transfer(id string) (models.Transfer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[id]
	return t, ok
}

// Logs returns every stored access log in insertion order.
func (s *MemoryStore) Logs() []models.AccessLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.logs)
}

// Recipients returns every stored recipient.
func (s *MemoryStore) Recipients() []models.Recipient {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Recipient, 0, len(s.recipients))
	for _, r := range s.recipients {
		out = append(out, r)
	}
	return out
}

func (s *MemoryStore) FindTransfer(_ context.Context, id string) (*models.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[id]
	if !ok {
		return nil, share.ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) CreateTransfer(_ context.Context, t *models.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.transfers[t.ID]; exists {
		return errors.New("duplicate transfer id")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.UpdatedAt = t.CreatedAt
	s.transfers[t.ID] = *t
	return nil
}

func (s *MemoryStore) UpdateTransfer(_ context.Context, id string, c share.TransferChanges) (*models.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[id]
	if !ok {
		return nil, share.ErrNotFound
	}
	if c.Title != nil {
		t.Title = *c.Title
	}
	if c.Description != nil {
		t.Description = c.Description
	}
	if c.ExpiresAt != nil {
		t.ExpiresAt = c.ExpiresAt
	} else if c.ClearExpiresAt {
		t.ExpiresAt = nil
	}
	if c.MaxDownloads != nil {
		t.MaxDownloads = c.MaxDownloads
	} else if c.ClearMaxDownloads {
		t.MaxDownloads = nil
	}
	if c.ViewOnce != nil {
		t.ViewOnce = *c.ViewOnce
	}
	if c.AllowReshare != nil {
		t.AllowReshare = *c.AllowReshare
	}
	if c.SetPasscode {
		t.PasscodeHash = c.PasscodeHash
	}
	s.transfers[id] = t
	return &t, nil
}

func (s *MemoryStore) UpdateTransferStatus(_ context.Context, id string, status models.TransferStatus, at time.Time) (*models.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[id]
	if !ok {
		return nil, share.ErrNotFound
	}
	if !t.Status.Terminal() {
		t.Status = status
		if status == models.TransferStatusRevoked {
			t.RevokedAt = &at
		}
		s.transfers[id] = t
	}
	return &t, nil
}

func (s *MemoryStore) IncrementDownloadCount(_ context.Context, id string) (*models.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[id]
	if !ok {
		return nil, share.ErrNotFound
	}
	if t.LimitReached() {
		return nil, share.ErrDownloadLimitReached
	}
	t.DownloadCount++
	s.transfers[id] = t
	return &t, nil
}

func (s *MemoryStore) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.transfers {
		if t.Status == models.TransferStatusActive && t.ExpiresAt != nil && t.ExpiresAt.Before(now) {
			t.Status = models.TransferStatusExpired
			s.transfers[id] = t
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) DeleteTransfer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transfers[id]; !ok {
		return share.ErrNotFound
	}
	delete(s.transfers, id)
	for k, r := range s.recipients {
		if r.TransferID == id {
			delete(s.recipients, k)
		}
	}
	s.logs = slices.DeleteFunc(s.logs, func(l models.AccessLog) bool { return l.TransferID == id })
	return nil
}

func (s *MemoryStore) ListTransfersByCreator(_ context.Context, creatorID uuid.UUID) ([]share.TransferSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []share.TransferSummary
	for _, t := range s.transfers {
		if t.CreatorID != creatorID {
			continue
		}
		sum := share.TransferSummary{Transfer: t}
		for _, l := range s.logs {
			if l.TransferID == t.ID {
				sum.AccessLogCount++
			}
		}
		for _, r := range s.recipients {
			if r.TransferID == t.ID {
				sum.RecipientCount++
			}
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CreateAccessLog(_ context.Context, entry *models.AccessLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAccessLogs {
		return ErrInjected
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	s.logs = append(s.logs, *entry)
	return nil
}

func (s *MemoryStore) ListAccessLogs(_ context.Context, transferID string, limit int) ([]models.AccessLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AccessLog
	for _, l := range s.logs {
		if l.TransferID == transferID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpsertRecipient(_ context.Context, transferID, email string, openedAt time.Time) (*models.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailRecipients {
		return nil, ErrInjected
	}
	key := transferID + "\x00" + email
	r, ok := s.recipients[key]
	if !ok {
		r = models.Recipient{
			ID:         uuid.New(),
			TransferID: transferID,
			Email:      email,
			Channel:    models.RecipientChannelLink,
			CreatedAt:  openedAt,
		}
	}
	r.Status = models.RecipientStatusOpened
	r.OpenedAt = &openedAt
	r.UpdatedAt = openedAt
	s.recipients[key] = r
	return &r, nil
}

func (s *MemoryStore) CountRecipients(_ context.Context, transferID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.recipients {
		if r.TransferID == transferID {
			n++
		}
	}
	return n, nil
}
