package repositories_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rohits-web03/sharegate/internal/models"
	"github.com/rohits-web03/sharegate/internal/repositories"
)

var (
	owner = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	epoch = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
)

// newTestDB opens a migrated SQLite database in a temp dir. One connection
// keeps concurrent writers from tripping SQLite's locking.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "sharegate.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, repositories.Migrate(db))
	return db
}

func createTransfer(t *testing.T, store *repositories.TransferStore, mutate func(*models.Transfer)) *models.Transfer {
	t.Helper()
	target := "https://example.com/file"
	tr := &models.Transfer{
		ID:           "tr-" + uuid.NewString()[:8],
		CreatorID:    owner,
		Type:         models.TransferTypeLink,
		Title:        "Test transfer",
		Status:       models.TransferStatusActive,
		LinkTarget:   &target,
		AllowReshare: true,
		CreatedAt:    epoch,
	}
	if mutate != nil {
		mutate(tr)
	}
	require.NoError(t, store.CreateTransfer(t.Context(), tr))
	return tr
}
