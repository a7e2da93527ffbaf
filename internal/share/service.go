package share

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rohits-web03/sharegate/internal/models"
	"github.com/rohits-web03/sharegate/internal/utils"
)

const (
	defaultTitle       = "Untitled Transfer"
	ownerRecentLogs    = 50
	defaultGrantTTL    = 15 * time.Minute
	defaultPresignTTL  = 15 * time.Minute
	storageKeyPrefix   = "transfers"
	maxFileNameLength  = 255
	maxTitleLength     = 200
	maxPasscodeLength  = 72
	maxLinkTargetBytes = 2048
)

type Options struct {
	GrantSecret string
	GrantTTL    time.Duration
	PresignTTL  time.Duration
	AppURL      string
	AppName     string
}

// Service wires the gate, lifecycle, recipient tracking and access logging
// into the viewer and owner operations.
type Service struct {
	store      Store
	blobs      BlobStore
	hasher     Hasher
	evaluator  *Evaluator
	lifecycle  *Lifecycle
	accessLog  *AccessLogger
	recipients *RecipientTracker
	grants     *GrantIssuer
	clock      Clock
	logger     *slog.Logger
	opts       Options
}

func NewService(store Store, blobs BlobStore, hasher Hasher, clock Clock, logger *slog.Logger, opts Options) *Service {
	if opts.GrantTTL <= 0 {
		opts.GrantTTL = defaultGrantTTL
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = defaultPresignTTL
	}
	opts.AppURL = strings.TrimRight(opts.AppURL, "/")

	return &Service{
		store:      store,
		blobs:      blobs,
		hasher:     hasher,
		evaluator:  NewEvaluator(hasher),
		lifecycle:  NewLifecycle(store, clock, logger),
		accessLog:  NewAccessLogger(store, clock, logger),
		recipients: NewRecipientTracker(store, clock),
		grants:     NewGrantIssuer(opts.GrantSecret, opts.GrantTTL, clock),
		clock:      clock,
		logger:     logger,
		opts:       opts,
	}
}

// ---------- VIEWER ----------

// Preview is the transfer metadata that is safe to show before the gate.
type Preview struct {
	ID               string              `json:"id"`
	Title            string              `json:"title"`
	Description      *string             `json:"description"`
	Type             models.TransferType `json:"type"`
	FileName         *string             `json:"fileName"`
	FileSize         *int64              `json:"fileSize"`
	RequiresPasscode bool                `json:"requiresPasscode"`
	RequiresEmail    bool                `json:"requiresEmail"`
	ViewOnce         bool                `json:"viewOnce"`
	CreatedAt        time.Time           `json:"createdAt"`
	Branding         string              `json:"branding"`
}

// Access is the content descriptor handed to a viewer that passed the gate.
type Access struct {
	Type           models.TransferType `json:"type"`
	FileName       *string             `json:"fileName,omitempty"`
	ContentType    *string             `json:"contentType,omitempty"`
	LinkTarget     *string             `json:"linkTarget,omitempty"`
	ViewURL        string              `json:"viewUrl,omitempty"`
	Grant          string              `json:"grant"`
	GrantExpiresAt time.Time           `json:"grantExpiresAt"`
}

// Download is the result of a counted download.
type Download struct {
	URL           string `json:"url"`
	DownloadCount int    `json:"downloadCount"`
}

// Preview returns pre-gate metadata, refusing transfers that no credentials
// could open.
func (s *Service) Preview(ctx context.Context, id string) (*Preview, error) {
	t, err := s.store.FindTransfer(ctx, id)
	if err != nil {
		return nil, err
	}

	if d := s.evaluator.Gate(t, s.clock.Now()); !d.Allowed {
		if d.Expire {
			s.expire(ctx, t)
		}
		return nil, denied(d.Reason)
	}

	return &Preview{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		Type:             t.Type,
		FileName:         t.FileName,
		FileSize:         t.FileSize,
		RequiresPasscode: t.HasPasscode(),
		RequiresEmail:    t.RequiresEmail(),
		ViewOnce:         t.ViewOnce,
		CreatedAt:        t.CreatedAt,
		Branding:         s.opts.AppName,
	}, nil
}

// Verify runs the gate for a view request. On ALLOW it tracks the
// recipient, records the VIEW and consumes view-once transfers; those side
// effects are best-effort and never turn an ALLOW into a failure.
//
// Two concurrent views of a view-once transfer may both be granted. Both
// are logged and the transfer ends EXPIRED either way.
func (s *Service) Verify(ctx context.Context, id string, creds Credentials, meta RequestMeta) (*Access, error) {
	t, err := s.store.FindTransfer(ctx, id)
	if err != nil {
		return nil, err
	}

	d := s.evaluator.Evaluate(t, creds, s.clock.Now())
	if !d.Allowed {
		if d.Expire {
			s.expire(ctx, t)
		}
		if d.LogBlocked {
			s.accessLog.LogAccess(ctx, t.ID, nil, models.AccessEventBlocked, false, meta)
		}
		s.logger.Debug("access denied", "transfer_id", t.ID, "reason", d.Reason, "ip", meta.IP)
		return nil, denied(d.Reason)
	}

	var recipientID *uuid.UUID
	if email := creds.normalizedEmail(); email != "" {
		rec, err := s.recipients.Upsert(ctx, t.ID, email)
		if err != nil {
			s.logger.Error("failed to track recipient", "transfer_id", t.ID, "error", err)
		} else {
			recipientID = &rec.ID
		}
	}

	s.accessLog.LogAccess(ctx, t.ID, recipientID, models.AccessEventView, true, meta)

	if t.ViewOnce {
		snapshot := *t
		if err := s.lifecycle.ConsumeViewOnce(ctx, &snapshot); err != nil {
			s.logger.Error("failed to consume view-once transfer", "transfer_id", t.ID, "error", err)
		}
	}

	grant, grantExpires, err := s.grants.Issue(t.ID, recipientID)
	if err != nil {
		return nil, err
	}

	access := &Access{
		Type:           t.Type,
		FileName:       t.FileName,
		ContentType:    t.ContentType,
		Grant:          grant,
		GrantExpiresAt: grantExpires,
	}

	switch t.Type {
	case models.TransferTypeLink:
		access.LinkTarget = t.LinkTarget
	case models.TransferTypeFile:
		if t.StorageKey != nil {
			viewURL, err := s.blobs.PresignGet(ctx, *t.StorageKey, deref(t.FileName), true, s.opts.PresignTTL)
			if err != nil {
				return nil, fmt.Errorf("presigning view url: %w", err)
			}
			access.ViewURL = viewURL
		}
	}

	return access, nil
}

// Download counts one download for a viewer holding a grant and returns
// where to fetch the content. Grants do not outlive a revoke or a time
// expiry; only the view-once transition leaves them usable. The counter update is a single conditional
// write, so concurrent downloads can never push it past the cap.
func (s *Service) Download(ctx context.Context, id, grant string, meta RequestMeta) (*Download, error) {
	claims, err := s.grants.Parse(grant, id)
	if err != nil {
		return nil, err
	}

	t, err := s.store.FindTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case t.Status == models.TransferStatusRevoked || t.Status == models.TransferStatusDraft:
		return nil, denied(ReasonLinkInactive)
	case t.PastExpiry(s.clock.Now()):
		s.expire(ctx, t)
		return nil, denied(ReasonLinkExpired)
	case t.Status == models.TransferStatusExpired && !t.ViewOnce:
		return nil, denied(ReasonLinkExpired)
	}

	t, err = s.lifecycle.IncrementDownload(ctx, id)
	if errors.Is(err, ErrDownloadLimitReached) {
		return nil, denied(ReasonDownloadLimitReached)
	}
	if err != nil {
		return nil, fmt.Errorf("counting download: %w", err)
	}

	s.accessLog.LogAccess(ctx, t.ID, claims.Recipient(), models.AccessEventDownload, true, meta)

	out := &Download{DownloadCount: t.DownloadCount}
	switch {
	case t.Type == models.TransferTypeLink && t.LinkTarget != nil:
		out.URL = *t.LinkTarget
	case t.StorageKey != nil:
		out.URL, err = s.blobs.PresignGet(ctx, *t.StorageKey, deref(t.FileName), false, s.opts.PresignTTL)
		if err != nil {
			return nil, fmt.Errorf("presigning download url: %w", err)
		}
	}
	return out, nil
}

// expire applies a pending expiry discovered by the gate. The denial stands
// whether or not the write succeeds.
func (s *Service) expire(ctx context.Context, t *models.Transfer) {
	if _, err := s.lifecycle.CheckExpiry(ctx, t); err != nil {
		s.logger.Error("failed to expire transfer", "transfer_id", t.ID, "error", err)
	}
}

// SweepExpired is run on a schedule so owners see expiry without waiting
// for a viewer to trip it.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.lifecycle.SweepExpired(ctx)
}

// ---------- OWNER ----------

// Upload is the file content supplied when creating a FILE transfer.
type Upload struct {
	FileName    string
	Size        int64
	ContentType string
	Body        io.Reader
}

type CreateInput struct {
	Type         models.TransferType
	Title        string
	Description  string
	LinkTarget   string
	Passcode     string
	ExpiresAt    *time.Time
	MaxDownloads *int
	RequireEmail bool
	ViewOnce     bool
	Upload       *Upload
}

// Created is a new transfer together with its public URL.
type Created struct {
	Transfer *models.Transfer `json:"transfer"`
	ShareURL string           `json:"shareUrl"`
}

func (s *Service) CreateTransfer(ctx context.Context, creatorID uuid.UUID, in CreateInput) (*Created, error) {
	if in.Type == "" {
		in.Type = models.TransferTypeFile
	}
	if err := s.validateCreate(in); err != nil {
		return nil, err
	}

	t := &models.Transfer{
		ID:           utils.GenerateSlug(),
		CreatorID:    creatorID,
		Type:         in.Type,
		Title:        strings.TrimSpace(in.Title),
		Description:  optional(strings.TrimSpace(in.Description)),
		ExpiresAt:    in.ExpiresAt,
		MaxDownloads: in.MaxDownloads,
		ViewOnce:     in.ViewOnce,
		AllowReshare: !in.RequireEmail,
	}

	if in.Passcode != "" {
		digest, err := s.hasher.Hash(in.Passcode)
		if err != nil {
			return nil, err
		}
		t.PasscodeHash = &digest
	}

	switch in.Type {
	case models.TransferTypeLink:
		target := strings.TrimSpace(in.LinkTarget)
		t.LinkTarget = &target
	case models.TransferTypeFile:
		name := path.Base(strings.ReplaceAll(in.Upload.FileName, "\\", "/"))
		key := fmt.Sprintf("%s/%s/%s", storageKeyPrefix, uuid.NewString(), name)
		if err := s.blobs.Put(ctx, key, in.Upload.Body, in.Upload.Size, in.Upload.ContentType); err != nil {
			return nil, fmt.Errorf("storing upload: %w", err)
		}
		t.StorageKey = &key
		t.FileName = &name
		t.FileSize = &in.Upload.Size
		t.ContentType = optional(in.Upload.ContentType)
	}

	if t.Title == "" {
		t.Title = defaultTitle
		if t.FileName != nil {
			t.Title = *t.FileName
		}
	}

	if err := s.lifecycle.Create(ctx, t); err != nil {
		if t.StorageKey != nil {
			s.removeBlob(ctx, t.ID, *t.StorageKey)
		}
		return nil, err
	}

	return &Created{Transfer: t, ShareURL: s.ShareURL(t.ID)}, nil
}

// ShareURL is the public viewer address for a transfer.
func (s *Service) ShareURL(id string) string {
	return fmt.Sprintf("%s/view/%s", s.opts.AppURL, id)
}

func (s *Service) validateCreate(in CreateInput) error {
	if len(in.Title) > maxTitleLength {
		return fmt.Errorf("title too long: %w", ErrInvalidInput)
	}
	if len(in.Passcode) > maxPasscodeLength {
		return fmt.Errorf("passcode too long: %w", ErrInvalidInput)
	}
	if in.MaxDownloads != nil && *in.MaxDownloads <= 0 {
		return fmt.Errorf("maxDownloads must be positive: %w", ErrInvalidInput)
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(s.clock.Now()) {
		return fmt.Errorf("expiresAt must be in the future: %w", ErrInvalidInput)
	}

	switch in.Type {
	case models.TransferTypeLink:
		if err := validateLinkTarget(in.LinkTarget); err != nil {
			return err
		}
	case models.TransferTypeFile:
		if in.Upload == nil || in.Upload.Body == nil {
			return fmt.Errorf("file transfer without upload: %w", ErrInvalidInput)
		}
		if in.Upload.FileName == "" || len(in.Upload.FileName) > maxFileNameLength {
			return fmt.Errorf("invalid file name: %w", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("unknown transfer type %q: %w", in.Type, ErrInvalidInput)
	}
	return nil
}

func validateLinkTarget(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxLinkTargetBytes {
		return fmt.Errorf("invalid link target: %w", ErrInvalidInput)
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("link target must be an http(s) url: %w", ErrInvalidInput)
	}
	return nil
}

func (s *Service) ListTransfers(ctx context.Context, creatorID uuid.UUID) ([]TransferSummary, error) {
	return s.store.ListTransfersByCreator(ctx, creatorID)
}

// Detail is the owner view of one transfer.
type Detail struct {
	Transfer   *models.Transfer   `json:"transfer"`
	ShareURL   string             `json:"shareUrl"`
	Recipients int64              `json:"recipients"`
	AccessLogs []models.AccessLog `json:"accessLogs"`
}

func (s *Service) GetTransfer(ctx context.Context, creatorID uuid.UUID, id string) (*Detail, error) {
	t, err := s.owned(ctx, creatorID, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.lifecycle.CheckExpiry(ctx, t); err != nil {
		s.logger.Error("failed to expire transfer", "transfer_id", t.ID, "error", err)
	}

	detail := &Detail{Transfer: t, ShareURL: s.ShareURL(t.ID)}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logs, err := s.store.ListAccessLogs(gctx, t.ID, ownerRecentLogs)
		detail.AccessLogs = logs
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountRecipients(gctx, t.ID)
		detail.Recipients = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading transfer activity: %w", err)
	}
	return detail, nil
}

// UpdateInput holds owner edits; nil fields are unchanged. An empty
// Passcode clears the passcode, ClearExpiresAt and ClearMaxDownloads drop
// those limits. Status only accepts REVOKED.
type UpdateInput struct {
	Title             *string
	Description       *string
	ExpiresAt         *time.Time
	ClearExpiresAt    bool
	MaxDownloads      *int
	ClearMaxDownloads bool
	Passcode          *string
	ViewOnce          *bool
	RequireEmail      *bool
	Status            *models.TransferStatus
}

func (s *Service) UpdateTransfer(ctx context.Context, creatorID uuid.UUID, id string, in UpdateInput) (*models.Transfer, error) {
	t, err := s.owned(ctx, creatorID, id)
	if err != nil {
		return nil, err
	}

	if in.Status != nil && *in.Status != t.Status && *in.Status != models.TransferStatusRevoked {
		return nil, fmt.Errorf("status can only be changed to %s: %w", models.TransferStatusRevoked, ErrInvalidInput)
	}

	if (in.ClearExpiresAt && in.ExpiresAt != nil) || (in.ClearMaxDownloads && in.MaxDownloads != nil) {
		return nil, fmt.Errorf("cannot set and clear the same field: %w", ErrInvalidInput)
	}

	changes := TransferChanges{
		Title:             in.Title,
		Description:       in.Description,
		ExpiresAt:         in.ExpiresAt,
		ClearExpiresAt:    in.ClearExpiresAt,
		MaxDownloads:      in.MaxDownloads,
		ClearMaxDownloads: in.ClearMaxDownloads,
		ViewOnce:          in.ViewOnce,
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" || len(title) > maxTitleLength {
			return nil, fmt.Errorf("invalid title: %w", ErrInvalidInput)
		}
		changes.Title = &title
	}
	if in.MaxDownloads != nil && *in.MaxDownloads <= 0 {
		return nil, fmt.Errorf("maxDownloads must be positive: %w", ErrInvalidInput)
	}
	if in.RequireEmail != nil {
		allow := !*in.RequireEmail
		changes.AllowReshare = &allow
	}
	if in.Passcode != nil {
		changes.SetPasscode = true
		if *in.Passcode != "" {
			digest, err := s.hasher.Hash(*in.Passcode)
			if err != nil {
				return nil, err
			}
			changes.PasscodeHash = &digest
		}
	}

	if !changes.Empty() {
		if t, err = s.store.UpdateTransfer(ctx, t.ID, changes); err != nil {
			return nil, fmt.Errorf("updating transfer: %w", err)
		}
	}

	if in.Status != nil && *in.Status == models.TransferStatusRevoked {
		if err := s.lifecycle.Revoke(ctx, t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// RevokeTransfer is idempotent: revoking an already terminal transfer
// returns it unchanged.
func (s *Service) RevokeTransfer(ctx context.Context, creatorID uuid.UUID, id string) (*models.Transfer, error) {
	t, err := s.owned(ctx, creatorID, id)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.Revoke(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteResult reports whether the backing blob was removed as well.
type DeleteResult struct {
	StorageCleaned bool `json:"storageCleaned"`
}

// DeleteTransfer removes the record, its recipients and logs, then the
// blob. A blob failure does not undo the delete; it is logged for operators.
func (s *Service) DeleteTransfer(ctx context.Context, creatorID uuid.UUID, id string) (*DeleteResult, error) {
	t, err := s.owned(ctx, creatorID, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteTransfer(ctx, t.ID); err != nil {
		return nil, fmt.Errorf("deleting transfer: %w", err)
	}
	s.logger.Info("transfer deleted", "transfer_id", t.ID)

	res := &DeleteResult{StorageCleaned: true}
	if t.StorageKey != nil {
		res.StorageCleaned = s.removeBlob(ctx, t.ID, *t.StorageKey)
	}
	return res, nil
}

// Analytics recomputes the report from the full log set on every call.
func (s *Service) Analytics(ctx context.Context, creatorID uuid.UUID, id string) (*Report, error) {
	t, err := s.owned(ctx, creatorID, id)
	if err != nil {
		return nil, err
	}

	var (
		logs       []models.AccessLog
		recipients int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		logs, err = s.store.ListAccessLogs(gctx, t.ID, 0)
		return err
	})
	g.Go(func() error {
		var err error
		recipients, err = s.store.CountRecipients(gctx, t.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading analytics: %w", err)
	}

	report := ComputeAnalytics(t.ID, logs, s.clock.Now())
	report.Summary.DownloadCount = t.DownloadCount
	report.Summary.MaxDownloads = t.MaxDownloads
	report.Summary.Recipients = recipients
	return &report, nil
}

func (s *Service) owned(ctx context.Context, creatorID uuid.UUID, id string) (*models.Transfer, error) {
	t, err := s.store.FindTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.CreatorID != creatorID {
		return nil, ErrForbidden
	}
	return t, nil
}

func (s *Service) removeBlob(ctx context.Context, transferID, key string) bool {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Error("failed to delete transfer content",
			"transfer_id", transferID,
			"storage_key", key,
			"error", err,
		)
		return false
	}
	return true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
