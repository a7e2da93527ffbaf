package share_test

import (
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rohits-web03/sharegate/internal/logging"
	"github.com/rohits-web03/sharegate/internal/models"
	"github.com/rohits-web03/sharegate/internal/share"
	"github.com/rohits-web03/sharegate/internal/testutil"
)

var ownerID = uuid.MustParse("11111111-1111-1111-1111-111111111111")

type fixture struct {
	svc    *share.Service
	store  *testutil.MemoryStore
	blobs  *testutil.MemoryBlobStore
	clock  *testutil.StubClock
	hasher *share.BcryptHasher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  testutil.NewMemoryStore(),
		blobs:  testutil.NewMemoryBlobStore(),
		clock:  testutil.FixedClock(),
		hasher: share.NewBcryptHasher(bcrypt.MinCost),
	}
	f.svc = share.NewService(f.store, f.blobs, f.hasher, f.clock, logging.Nop(), share.Options{
		GrantSecret: "test-secret",
		AppURL:      "https://share.test/",
		AppName:     "ShareGate",
	})
	return f
}

// seed stores an ACTIVE link transfer owned by ownerID, adjusted by mutate.
func (f *fixture) seed(t *testing.T, mutate func(*models.Transfer)) models.Transfer {
	t.Helper()
	target := "https://example.com/deck.pdf"
	tr := models.Transfer{
		ID:           "t-" + uuid.NewString()[:8],
		CreatorID:    ownerID,
		Type:         models.TransferTypeLink,
		Title:        "Quarterly deck",
		Status:       models.TransferStatusActive,
		LinkTarget:   &target,
		AllowReshare: true,
		CreatedAt:    f.clock.Now(),
	}
	if mutate != nil {
		mutate(&tr)
	}
	f.store.Put(tr)
	return tr
}

func (f *fixture) withPasscode(t *testing.T, passcode string) func(*models.Transfer) {
	t.Helper()
	digest, err := f.hasher.Hash(passcode)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	return func(tr *models.Transfer) { tr.PasscodeHash = &digest }
}

func (f *fixture) status(t *testing.T, id string) models.TransferStatus {
	t.Helper()
	tr, ok := f.store.Transfer(id)
	if !ok {
		t.Fatalf("transfer %s not found", id)
	}
	return tr.Status
}

func countEvents(logs []models.AccessLog, event models.AccessEvent) int {
	n := 0
	for _, l := range logs {
		if l.Event == event {
			n++
		}
	}
	return n
}

func intPtr(n int) *int { return &n }

func reasonOf(t *testing.T, err error) share.Reason {
	t.Helper()
	reason, ok := share.DeniedReason(err)
	if !ok {
		t.Fatalf("expected access denied error, got %v", err)
	}
	return reason
}

var viewer = share.RequestMeta{IP: "203.0.113.10", UserAgent: "test-agent", Country: "US"}
