package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rohits-web03/sharegate/internal/models"
	"github.com/rohits-web03/sharegate/internal/share"
)

var terminalStatuses = []string{
	string(models.TransferStatusExpired),
	string(models.TransferStatusRevoked),
}

// TransferStore is the gorm-backed share.Store.
type TransferStore struct {
	db *gorm.DB
}

var _ share.Store = (*TransferStore)(nil)

func NewTransferStore(db *gorm.DB) *TransferStore {
	return &TransferStore{db: db}
}

func (s *TransferStore) FindTransfer(ctx context.Context, id string) (*models.Transfer, error) {
	var t models.Transfer
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, share.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding transfer: %w", err)
	}
	return &t, nil
}

func (s *TransferStore) CreateTransfer(ctx context.Context, t *models.Transfer) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *TransferStore) UpdateTransfer(ctx context.Context, id string, changes share.TransferChanges) (*models.Transfer, error) {
	updates := map[string]any{}
	if changes.Title != nil {
		updates["title"] = *changes.Title
	}
	if changes.Description != nil {
		updates["description"] = *changes.Description
	}
	if changes.ExpiresAt != nil {
		updates["expires_at"] = *changes.ExpiresAt
	} else if changes.ClearExpiresAt {
		updates["expires_at"] = nil
	}
	if changes.MaxDownloads != nil {
		updates["max_downloads"] = *changes.MaxDownloads
	} else if changes.ClearMaxDownloads {
		updates["max_downloads"] = nil
	}
	if changes.ViewOnce != nil {
		updates["view_once"] = *changes.ViewOnce
	}
	if changes.AllowReshare != nil {
		updates["allow_reshare"] = *changes.AllowReshare
	}
	if changes.SetPasscode {
		updates["passcode_hash"] = changes.PasscodeHash
	}

	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.Transfer{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
	}
	return s.FindTransfer(ctx, id)
}

// UpdateTransferStatus only touches rows that are not already terminal, so
// concurrent expire/revoke calls settle on whichever landed first.
func (s *TransferStore) UpdateTransferStatus(ctx context.Context, id string, status models.TransferStatus, at time.Time) (*models.Transfer, error) {
	updates := map[string]any{"status": string(status)}
	if status == models.TransferStatusRevoked {
		updates["revoked_at"] = at
	}

	err := s.db.WithContext(ctx).
		Model(&models.Transfer{}).
		Where("id = ? AND status NOT IN ?", id, terminalStatuses).
		Updates(updates).Error
	if err != nil {
		return nil, err
	}
	return s.FindTransfer(ctx, id)
}

func (s *TransferStore) IncrementDownloadCount(ctx context.Context, id string) (*models.Transfer, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Transfer{}).
		Where("id = ? AND (max_downloads IS NULL OR download_count < max_downloads)", id).
		UpdateColumn("download_count", gorm.Expr("download_count + ?", 1))
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		if _, err := s.FindTransfer(ctx, id); err != nil {
			return nil, err
		}
		return nil, share.ErrDownloadLimitReached
	}
	return s.FindTransfer(ctx, id)
}

func (s *TransferStore) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Transfer{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", string(models.TransferStatusActive), now).
		Update("status", string(models.TransferStatusExpired))
	return res.RowsAffected, res.Error
}

func (s *TransferStore) DeleteTransfer(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("transfer_id = ?", id).Delete(&models.AccessLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("transfer_id = ?", id).Delete(&models.Recipient{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Transfer{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return share.ErrNotFound
		}
		return nil
	})
}

type transferCount struct {
	TransferID string
	N          int64
}

func (s *TransferStore) ListTransfersByCreator(ctx context.Context, creatorID uuid.UUID) ([]share.TransferSummary, error) {
	var transfers []models.Transfer
	err := s.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at desc").
		Find(&transfers).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]share.TransferSummary, len(transfers))
	if len(transfers) == 0 {
		return summaries, nil
	}

	ids := make([]string, len(transfers))
	for i, t := range transfers {
		ids[i] = t.ID
	}

	var logCounts, recipientCounts []transferCount
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.countByTransfer(gctx, &models.AccessLog{}, ids, &logCounts)
	})
	g.Go(func() error {
		return s.countByTransfer(gctx, &models.Recipient{}, ids, &recipientCounts)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logsByID := indexCounts(logCounts)
	recipientsByID := indexCounts(recipientCounts)
	for i, t := range transfers {
		summaries[i] = share.TransferSummary{
			Transfer:       t,
			AccessLogCount: logsByID[t.ID],
			RecipientCount: recipientsByID[t.ID],
		}
	}
	return summaries, nil
}

func (s *TransferStore) countByTransfer(ctx context.Context, model any, ids []string, out *[]transferCount) error {
	return s.db.WithContext(ctx).
		Model(model).
		Select("transfer_id, COUNT(*) AS n").
		Where("transfer_id IN ?", ids).
		Group("transfer_id").
		Scan(out).Error
}

func indexCounts(rows []transferCount) map[string]int64 {
	m := make(map[string]int64, len(rows))
	for _, r := range rows {
		m[r.TransferID] = r.N
	}
	return m
}

func (s *TransferStore) CreateAccessLog(ctx context.Context, entry *models.AccessLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *TransferStore) ListAccessLogs(ctx context.Context, transferID string, limit int) ([]models.AccessLog, error) {
	q := s.db.WithContext(ctx).
		Where("transfer_id = ?", transferID).
		Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var logs []models.AccessLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// UpsertRecipient relies on the unique (transfer_id, email) index: the
// insert and the reopen happen in one statement.
func (s *TransferStore) UpsertRecipient(ctx context.Context, transferID, email string, openedAt time.Time) (*models.Recipient, error) {
	rec := models.Recipient{
		TransferID: transferID,
		Email:      email,
		Channel:    models.RecipientChannelLink,
		Status:     models.RecipientStatusOpened,
		OpenedAt:   &openedAt,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "transfer_id"}, {Name: "email"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":     models.RecipientStatusOpened,
			"opened_at":  openedAt,
			"updated_at": openedAt,
		}),
	}).Create(&rec).Error
	if err != nil {
		return nil, err
	}

	var stored models.Recipient
	err = s.db.WithContext(ctx).
		Where("transfer_id = ? AND email = ?", transferID, email).
		First(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *TransferStore) CountRecipients(ctx context.Context, transferID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Recipient{}).
		Where("transfer_id = ?", transferID).
		Count(&n).Error
	return n, err
}
