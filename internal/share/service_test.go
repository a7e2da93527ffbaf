package share_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohits-web03/sharegate/internal/models"
	"github.com/rohits-web03/sharegate/internal/share"
)

func TestVerify_ExpiredTransferStaysExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	past := f.clock.Now().Add(-time.Minute)
	tr := f.seed(t, func(tr *models.Transfer) { tr.ExpiresAt = &past })

	_, err := f.svc.Verify(ctx, tr.ID, share.Credentials{}, viewer)
	assert.Equal(t, share.ReasonLinkExpired, reasonOf(t, err))
	assert.Equal(t, models.TransferStatusExpired, f.status(t, tr.ID))

	_, err = f.svc.Verify(ctx, tr.ID, share.Credentials{}, viewer)
	assert.Equal(t, share.ReasonLinkExpired, reasonOf(t, err))
	assert.Empty(t, f.store.Logs())
}

func TestVerify_Passcode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.seed(t, f.withPasscode(t, "1234"))

	_, err := f.svc.Verify(ctx, tr.ID, share.Credentials{}, viewer)
	assert.Equal(t, share.ReasonPasscodeRequired, reasonOf(t, err))
	assert.Empty(t, f.store.Logs(), "a missing passcode is not an attempt")

	_, err = f.svc.Verify(ctx, tr.ID, share.Credentials{Passcode: "0000"}, viewer)
	assert.Equal(t, share.ReasonInvalidPasscode, reasonOf(t, err))

	logs := f.store.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, models.AccessEventBlocked, logs[0].Event)
	assert.False(t, logs[0].Allowed)
	assert.Equal(t, viewer.IP, logs[0].IP)

	access, err := f.svc.Verify(ctx, tr.ID, share.Credentials{Passcode: "1234"}, viewer)
	require.NoError(t, err)
	assert.Equal(t, tr.LinkTarget, access.LinkTarget)
	assert.NotEmpty(t, access.Grant)
	assert.Equal(t, 1, countEvents(f.store.Logs(), models.AccessEventView))
}

func TestVerify_UnknownTransfer(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Verify(context.Background(), "nope", share.Credentials{}, viewer)
	assert.ErrorIs(t, err, share.ErrNotFound)
}

func TestVerify_InactiveStatuses(t *testing.T) {
	f := newFixture(t)
	for _, status := range []models.TransferStatus{models.TransferStatusDraft, models.TransferStatusRevoked} {
		tr := f.seed(t, func(tr *models.Transfer) { tr.Status = status })
		_, err := f.svc.Verify(context.Background(), tr.ID, share.Credentials{}, viewer)
		assert.Equal(t, share.ReasonLinkInactive, reasonOf(t, err), status)
	}
}

func TestVerify_ViewOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.seed(t, func(tr *models.Transfer) { tr.ViewOnce = true })

	access, err := f.svc.Verify(ctx, tr.ID, share.Credentials{}, viewer)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusExpired, f.status(t, tr.ID))

	_, err = f.svc.Verify(ctx, tr.ID, share.Credentials{}, viewer)
	assert.Equal(t, share.ReasonLinkExpired, reasonOf(t, err))
	assert.Equal(t, 1, countEvents(f.store.Logs(), models.AccessEventView))

	// The grant from the single view still allows fetching the content.
	dl, err := f.svc.Download(ctx, tr.ID, access.Grant, viewer)
	require.NoError(t, err)
	assert.Equal(t, *tr.LinkTarget, dl.URL)
}

func TestVerify_ViewOnceConcurrent(t *testing.T) {
	f := newFixture(t)
	tr := f.seed(t, func(tr *models.Transfer) { tr.ViewOnce = true })

	const viewers = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for range viewers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Verify(context.Background(), tr.ID, share.Credentials{}, viewer); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, granted, 1)
	assert.Equal(t, granted, countEvents(f.store.Logs(), models.AccessEventView))
	assert.Equal(t, models.TransferStatusExpired, f.status(t, tr.ID))
}

func TestDownload_SingleDownloadCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.seed(t, func(tr *models.Transfer) { tr.MaxDownloads = intPtr(1) })

	access, err := f.svc.Verify(ctx, tr.ID, share.Credentials{}, viewer)
	require.NoError(t, err)

	dl, err := f.svc.Download(ctx, tr.ID, access.Grant, viewer)
	require.NoError(t, err)
	assert.Equal(t, 1, dl.DownloadCount)

	_, err = f.svc.Download(ctx, tr.ID, access.Grant, viewer)
	assert.Equal(t, share.ReasonDownloadLimitReached, reasonOf(t, err))

	_, err = f.svc.Verify(ctx, tr.ID, share.Credentials{}, viewer)
	assert.Equal(t, share.ReasonDownloadLimitReached, reasonOf(t, err))

	logs := f.store.Logs()
	assert.Equal(t, 1, countEvents(logs, models.AccessEventDownload))
	assert.Equal(t, 0, countEvents(logs, models.AccessEventBlocked))
	stored, _ := f.store.Transfer(tr.ID)
	assert.Equal(t, 1, stored.DownloadCount)
}

func TestDownload_ConcurrentNeverExceedsCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.seed(t, func(tr *models.Transfer) {
		tr.MaxDownloads = intPtr(3)
		tr.DownloadCount = 2
	})
	access, err := f.svc.Verify(ctx, tr.ID, share.Credentials{}, viewer)
	require.NoError(t, err)

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		capped    int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Download(ctx, tr.ID, access.Grant, viewer)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if r, ok := share.DeniedReason(err); ok && r == share.ReasonDownloadLimitReached {
				capped++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, capped)
	stored, _ := f.store.Transfer(tr.ID)
	assert.Equal(t, 3, stored.DownloadCount)
}

func TestDownload_Grants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.seed(t, nil)
	other := f.seed(t, nil)

	access, err := f.svc.Verify(ctx, tr.ID, share.Credentials{}, viewer)
	require.NoError(t, err)

	_, err = f.svc.Download(ctx, tr.ID, "", viewer)
	assert.ErrorIs(t, err, share.ErrInvalidGrant)

	_, err = f.svc.Download(ctx, other.ID, access.Grant, viewer)
	assert.ErrorIs(t, err, share.ErrInvalidGrant)

	f.clock.Advance(time.Hour)
	_, err = f.svc.Download(ctx, tr.ID, access.Grant, viewer)
	assert.ErrorIs(t, err, share.ErrInvalidGrant)

	stored, _ := f.store.Transfer(tr.ID)
	assert.Zero(t, stored.DownloadCount)
}

func TestDownload_RevokedAfterVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.seed(t, nil)

	access, err := f.svc.Verify(ctx, tr.ID, share.Credentials{}, viewer)
	require.NoError(t, err)

	_, err = f.svc.RevokeTransfer(ctx, ownerID, tr.ID)
	require.NoError(t, err)

	_, err = f.svc.Download(ctx, tr.ID, access.Grant, viewer)
	assert.Equal(t, share.ReasonLinkInactive, reasonOf(t, err))
}

func TestDownload_TimeExpiryEndsGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	expires := f.clock.Now().Add(time.Minute)
	tr := f.seed(t, func(tr *models.Transfer) { tr.ExpiresAt = &expires })

	access, err := f.svc.Verify(ctx, tr.ID, share.Credentials{}, viewer)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	require.True(t, access.GrantExpiresAt.After(f.clock.Now()), "grant itself is still within its TTL")

	_, err = f.svc.Download(ctx, tr.ID, access.Grant, viewer)
	assert.Equal(t, share.ReasonLinkExpired, reasonOf(t, err))
	assert.Equal(t, models.TransferStatusExpired, f.status(t, tr.ID))

	// Once swept to EXPIRED the grant stays refused.
	_, err = f.svc.Download(ctx, tr.ID, access.Grant, viewer)
	assert.Equal(t, share.ReasonLinkExpired, reasonOf(t, err))

	stored, _ := f.store.Transfer(tr.ID)
	assert.Zero(t, stored.DownloadCount)
	assert.Zero(t, countEvents(f.store.Logs(), models.AccessEventDownload))
}

func TestDownload_SweptExpiryEndsGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	expires := f.clock.Now().Add(time.Minute)
	tr := f.seed(t, func(tr *models.Transfer) { tr.ExpiresAt = &expires })

	access, err := f.svc.Verify(ctx, tr.ID, share.Credentials{}, viewer)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	n, err := f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = f.svc.Download(ctx, tr.ID, access.Grant, viewer)
	assert.Equal(t, share.ReasonLinkExpired, reasonOf(t, err))
}

func TestVerify_EmailGateTracksRecipients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.seed(t, func(tr *models.Transfer) { tr.AllowReshare = false })

	_, err := f.svc.Verify(ctx, tr.ID, share.Credentials{Email: "   "}, viewer)
	assert.Equal(t, share.ReasonEmailRequired, reasonOf(t, err))
	assert.Empty(t, f.store.Logs())

	_, err = f.svc.Verify(ctx, tr.ID, share.Credentials{Email: " Alice@Example.com "}, viewer)
	require.NoError(t, err)
	first := f.store.Recipients()
	require.Len(t, first, 1)
	assert.Equal(t, "alice@example.com", first[0].Email)
	assert.Equal(t, models.RecipientStatusOpened, first[0].Status)

	f.clock.Advance(time.Minute)
	access, err := f.svc.Verify(ctx, tr.ID, share.Credentials{Email: "alice@example.com"}, viewer)
	require.NoError(t, err)

	second := f.store.Recipients()
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.True(t, second[0].OpenedAt.After(*first[0].OpenedAt))

	logs := f.store.Logs()
	require.Len(t, logs, 2)
	for _, l := range logs {
		require.NotNil(t, l.RecipientID)
		assert.Equal(t, second[0].ID, *l.RecipientID)
	}

	_, err = f.svc.Download(ctx, tr.ID, access.Grant, viewer)
	require.NoError(t, err)
	dl := f.store.Logs()[2]
	require.NotNil(t, dl.RecipientID)
	assert.Equal(t, second[0].ID, *dl.RecipientID)
}

func TestVerify_SideEffectFailuresDoNotDeny(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.seed(t, func(tr *models.Transfer) { tr.AllowReshare = false })
	f.store.FailAccessLogs = true
	f.store.FailRecipients = true

	access, err := f.svc.Verify(ctx, tr.ID, share.Credentials{Email: "bob@example.com"}, viewer)
	require.NoError(t, err)
	assert.NotEmpty(t, access.Grant)
	assert.Empty(t, f.store.Logs())

	dl, err := f.svc.Download(ctx, tr.ID, access.Grant, viewer)
	require.NoError(t, err)
	assert.Equal(t, 1, dl.DownloadCount)
}

func TestVerify_UnknownIP(t *testing.T) {
	f := newFixture(t)
	tr := f.seed(t, nil)

	_, err := f.svc.Verify(context.Background(), tr.ID, share.Credentials{}, share.RequestMeta{})
	require.NoError(t, err)

	logs := f.store.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, models.UnknownIP, logs[0].IP)
	assert.Nil(t, logs[0].Country)
	assert.Nil(t, logs[0].UserAgent)
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tr := f.seed(t, f.withPasscode(t, "secret"))
	p, err := f.svc.Preview(ctx, tr.ID)
	require.NoError(t, err)
	assert.True(t, p.RequiresPasscode)
	assert.False(t, p.RequiresEmail)
	assert.Equal(t, "ShareGate", p.Branding)
	assert.Empty(t, f.store.Logs(), "previews are not logged")

	past := f.clock.Now().Add(-time.Second)
	expired := f.seed(t, func(tr *models.Transfer) { tr.ExpiresAt = &past })
	_, err = f.svc.Preview(ctx, expired.ID)
	assert.Equal(t, share.ReasonLinkExpired, reasonOf(t, err))
	assert.Equal(t, models.TransferStatusExpired, f.status(t, expired.ID))
}

func TestCreateTransfer_File(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateTransfer(ctx, ownerID, share.CreateInput{
		Type:     models.TransferTypeFile,
		Passcode: "hunter2",
		Upload: &share.Upload{
			FileName:    `C:\reports\q3.pdf`,
			Size:        5,
			ContentType: "application/pdf",
			Body:        strings.NewReader("%PDF-"),
		},
	})
	require.NoError(t, err)

	tr := created.Transfer
	assert.Equal(t, models.TransferStatusActive, tr.Status)
	assert.Equal(t, "q3.pdf", tr.Title)
	assert.Equal(t, "https://share.test/view/"+tr.ID, created.ShareURL)
	assert.Len(t, tr.ID, 12)
	require.NotNil(t, tr.StorageKey)
	assert.True(t, strings.HasPrefix(*tr.StorageKey, "transfers/"))
	assert.True(t, strings.HasSuffix(*tr.StorageKey, "/q3.pdf"))
	require.NotNil(t, tr.PasscodeHash)
	assert.NotEqual(t, "hunter2", *tr.PasscodeHash)

	body, ok := f.blobs.Object(*tr.StorageKey)
	require.True(t, ok)
	assert.Equal(t, "%PDF-", string(body))

	access, err := f.svc.Verify(ctx, tr.ID, share.Credentials{Passcode: "hunter2"}, viewer)
	require.NoError(t, err)
	assert.Contains(t, access.ViewURL, "disposition=inline")

	dl, err := f.svc.Download(ctx, tr.ID, access.Grant, viewer)
	require.NoError(t, err)
	assert.Contains(t, dl.URL, "disposition=attachment")
}

func TestCreateTransfer_Link(t *testing.T) {
	f := newFixture(t)
	expires := f.clock.Now().Add(24 * time.Hour)

	created, err := f.svc.CreateTransfer(context.Background(), ownerID, share.CreateInput{
		Type:         models.TransferTypeLink,
		LinkTarget:   " https://example.com/a ",
		ExpiresAt:    &expires,
		MaxDownloads: intPtr(5),
		RequireEmail: true,
	})
	require.NoError(t, err)
	tr := created.Transfer
	assert.Equal(t, "Untitled Transfer", tr.Title)
	assert.Equal(t, "https://example.com/a", *tr.LinkTarget)
	assert.True(t, tr.RequiresEmail())
	assert.Zero(t, f.blobs.Len())
}

func TestCreateTransfer_Validation(t *testing.T) {
	f := newFixture(t)
	past := f.clock.Now().Add(-time.Hour)

	tests := []struct {
		name string
		in   share.CreateInput
	}{
		{"file without upload", share.CreateInput{Type: models.TransferTypeFile}},
		{"link without target", share.CreateInput{Type: models.TransferTypeLink}},
		{"non-http link", share.CreateInput{Type: models.TransferTypeLink, LinkTarget: "javascript:alert(1)"}},
		{"unknown type", share.CreateInput{Type: "FOLDER"}},
		{"zero cap", share.CreateInput{Type: models.TransferTypeLink, LinkTarget: "https://x.test", MaxDownloads: intPtr(0)}},
		{"past expiry", share.CreateInput{Type: models.TransferTypeLink, LinkTarget: "https://x.test", ExpiresAt: &past}},
		{"long title", share.CreateInput{Type: models.TransferTypeLink, LinkTarget: "https://x.test", Title: strings.Repeat("a", 201)}},
		{"long passcode", share.CreateInput{Type: models.TransferTypeLink, LinkTarget: "https://x.test", Passcode: strings.Repeat("p", 73)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateTransfer(context.Background(), ownerID, tt.in)
			assert.ErrorIs(t, err, share.ErrInvalidInput)
		})
	}
	assert.Zero(t, f.blobs.Len())
}

func TestUpdateTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.seed(t, f.withPasscode(t, "1234"))

	t.Run("clearing the passcode opens the transfer", func(t *testing.T) {
		cleared := ""
		updated, err := f.svc.UpdateTransfer(ctx, ownerID, tr.ID, share.UpdateInput{Passcode: &cleared})
		require.NoError(t, err)
		assert.False(t, updated.HasPasscode())

		_, err = f.svc.Verify(ctx, tr.ID, share.Credentials{}, viewer)
		require.NoError(t, err)
	})

	t.Run("only REVOKED is accepted as a status", func(t *testing.T) {
		expired := models.TransferStatusExpired
		_, err := f.svc.UpdateTransfer(ctx, ownerID, tr.ID, share.UpdateInput{Status: &expired})
		assert.ErrorIs(t, err, share.ErrInvalidInput)
		assert.Equal(t, models.TransferStatusActive, f.status(t, tr.ID))
	})

	t.Run("blank title", func(t *testing.T) {
		blank := "  "
		_, err := f.svc.UpdateTransfer(ctx, ownerID, tr.ID, share.UpdateInput{Title: &blank})
		assert.ErrorIs(t, err, share.ErrInvalidInput)
	})

	t.Run("clearing expiry and download cap", func(t *testing.T) {
		expires := f.clock.Now().Add(time.Hour)
		updated, err := f.svc.UpdateTransfer(ctx, ownerID, tr.ID, share.UpdateInput{
			ExpiresAt:    &expires,
			MaxDownloads: intPtr(3),
		})
		require.NoError(t, err)
		require.NotNil(t, updated.ExpiresAt)
		require.NotNil(t, updated.MaxDownloads)

		updated, err = f.svc.UpdateTransfer(ctx, ownerID, tr.ID, share.UpdateInput{
			ClearExpiresAt:    true,
			ClearMaxDownloads: true,
		})
		require.NoError(t, err)
		assert.Nil(t, updated.ExpiresAt)
		assert.Nil(t, updated.MaxDownloads)

		stored, _ := f.store.Transfer(tr.ID)
		assert.Nil(t, stored.ExpiresAt)
		assert.Nil(t, stored.MaxDownloads)
	})

	t.Run("set and clear together", func(t *testing.T) {
		_, err := f.svc.UpdateTransfer(ctx, ownerID, tr.ID, share.UpdateInput{
			MaxDownloads:      intPtr(2),
			ClearMaxDownloads: true,
		})
		assert.ErrorIs(t, err, share.ErrInvalidInput)
	})

	t.Run("edit and revoke", func(t *testing.T) {
		title := "Renamed"
		requireEmail := true
		revoked := models.TransferStatusRevoked
		updated, err := f.svc.UpdateTransfer(ctx, ownerID, tr.ID, share.UpdateInput{
			Title:        &title,
			RequireEmail: &requireEmail,
			Status:       &revoked,
		})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Title)
		assert.True(t, updated.RequiresEmail())
		assert.Equal(t, models.TransferStatusRevoked, updated.Status)
		assert.NotNil(t, updated.RevokedAt)
	})
}

func TestOwnerOperations_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.seed(t, nil)
	stranger := uuid.New()

	_, err := f.svc.GetTransfer(ctx, stranger, tr.ID)
	assert.ErrorIs(t, err, share.ErrForbidden)
	_, err = f.svc.RevokeTransfer(ctx, stranger, tr.ID)
	assert.ErrorIs(t, err, share.ErrForbidden)
	_, err = f.svc.DeleteTransfer(ctx, stranger, tr.ID)
	assert.ErrorIs(t, err, share.ErrForbidden)
	_, err = f.svc.Analytics(ctx, stranger, tr.ID)
	assert.ErrorIs(t, err, share.ErrForbidden)

	_, err = f.svc.GetTransfer(ctx, ownerID, "missing")
	assert.ErrorIs(t, err, share.ErrNotFound)

	assert.Equal(t, models.TransferStatusActive, f.status(t, tr.ID))
}

func TestRevokeTransfer_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.seed(t, nil)

	first, err := f.svc.RevokeTransfer(ctx, ownerID, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusRevoked, first.Status)

	second, err := f.svc.RevokeTransfer(ctx, ownerID, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusRevoked, second.Status)

	_, err = f.svc.Verify(ctx, tr.ID, share.Credentials{}, viewer)
	assert.Equal(t, share.ReasonLinkInactive, reasonOf(t, err))
}

func TestGetTransfer_AppliesExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	expires := f.clock.Now().Add(time.Minute)
	tr := f.seed(t, func(tr *models.Transfer) { tr.ExpiresAt = &expires })

	_, err := f.svc.Verify(ctx, tr.ID, share.Credentials{}, viewer)
	require.NoError(t, err)
	f.clock.Advance(2 * time.Minute)

	detail, err := f.svc.GetTransfer(ctx, ownerID, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusExpired, detail.Transfer.Status)
	assert.Len(t, detail.AccessLogs, 1)
	assert.Equal(t, "https://share.test/view/"+tr.ID, detail.ShareURL)
}

func TestDeleteTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateTransfer(ctx, ownerID, share.CreateInput{
		Type:   models.TransferTypeFile,
		Upload: &share.Upload{FileName: "a.txt", Size: 1, Body: strings.NewReader("a")},
	})
	require.NoError(t, err)
	id := created.Transfer.ID
	_, err = f.svc.Verify(ctx, id, share.Credentials{}, viewer)
	require.NoError(t, err)

	res, err := f.svc.DeleteTransfer(ctx, ownerID, id)
	require.NoError(t, err)
	assert.True(t, res.StorageCleaned)
	assert.Zero(t, f.blobs.Len())
	assert.Empty(t, f.store.Logs())

	_, err = f.svc.Verify(ctx, id, share.Credentials{}, viewer)
	assert.ErrorIs(t, err, share.ErrNotFound)
}

func TestDeleteTransfer_StorageFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.CreateTransfer(ctx, ownerID, share.CreateInput{
		Type:   models.TransferTypeFile,
		Upload: &share.Upload{FileName: "a.txt", Size: 1, Body: strings.NewReader("a")},
	})
	require.NoError(t, err)
	f.blobs.FailDelete = true

	res, err := f.svc.DeleteTransfer(ctx, ownerID, created.Transfer.ID)
	require.NoError(t, err)
	assert.False(t, res.StorageCleaned)
	_, ok := f.store.Transfer(created.Transfer.ID)
	assert.False(t, ok, "record is removed even when the blob is not")
}

func TestAnalytics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.seed(t, func(tr *models.Transfer) {
		digest, err := f.hasher.Hash("pw")
		require.NoError(t, err)
		tr.PasscodeHash = &digest
		tr.MaxDownloads = intPtr(10)
	})

	us := share.RequestMeta{IP: "198.51.100.1", Country: "US"}
	fr := share.RequestMeta{IP: "198.51.100.2", Country: "FR"}

	var grant string
	for _, meta := range []share.RequestMeta{us, us, fr} {
		access, err := f.svc.Verify(ctx, tr.ID, share.Credentials{Passcode: "pw", Email: "x@example.com"}, meta)
		require.NoError(t, err)
		grant = access.Grant
		f.clock.Advance(time.Second)
	}
	_, err := f.svc.Download(ctx, tr.ID, grant, fr)
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	_, err = f.svc.Verify(ctx, tr.ID, share.Credentials{Passcode: "wrong"}, share.RequestMeta{IP: "198.51.100.3"})
	require.Error(t, err)

	report, err := f.svc.Analytics(ctx, ownerID, tr.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Summary.TotalViews)
	assert.Equal(t, 1, report.Summary.TotalDownloads)
	assert.Equal(t, 1, report.Summary.BlockedAttempts)
	assert.Equal(t, 3, report.Summary.UniqueViewers)
	assert.Equal(t, 1, report.Summary.DownloadCount)
	assert.Equal(t, intPtr(10), report.Summary.MaxDownloads)
	assert.Equal(t, int64(1), report.Summary.Recipients)
	assert.Equal(t, map[string]int{"US": 2, "FR": 2}, report.ViewsByCountry)
	assert.Len(t, report.RecentActivity, 5)
	assert.Equal(t, models.AccessEventBlocked, report.RecentActivity[0].Event)
}

func TestListTransfers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.seed(t, nil)
	f.seed(t, func(tr *models.Transfer) { tr.CreatorID = uuid.New() })

	_, err := f.svc.Verify(ctx, mine.ID, share.Credentials{}, viewer)
	require.NoError(t, err)

	list, err := f.svc.ListTransfers(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)
	assert.Equal(t, int64(1), list[0].AccessLogCount)
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t)
	past := f.clock.Now().Add(-time.Hour)
	tr := f.seed(t, func(tr *models.Transfer) { tr.ExpiresAt = &past })

	n, err := f.svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, models.TransferStatusExpired, f.status(t, tr.ID))
}
