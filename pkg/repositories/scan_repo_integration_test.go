package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/database"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/models"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/repositories"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/testutils"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScanRepository_Integration(t *testing.T) {
	testutils.RequireDocker(t)
	dsn, terminate, err := testutils.StartPostgresForTests()
	require.NoError(t, err)
	defer terminate()

	logger := zap.NewNop()
	ctx := context.Background()

	version, err := database.RunMigrations(logger, dsn)
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)
	// A second run on a current schema changes nothing.
	version, err = database.RunMigrations(logger, dsn)
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)

	db, disconnect, err := database.New(ctx, logger, database.Config{PrimaryDSN: dsn, MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	defer disconnect()
	repo := repositories.NewScanRepository(db)

	key, err := utils.DecodeString(testutils.TestAESKey)
	require.NoError(t, err)
	encrypted, err := utils.EncryptAES([]byte("upi://pay?pa=shop@bank"), key)
	require.NoError(t, err)

	base := time.Now().UTC().Truncate(time.Microsecond)
	fraud := models.ScanRecord{
		ID:          uuid.New(),
		TraceID:     "trace-fraud",
		ImageSha256: utils.Sha256Hex([]byte("fraud.png")),
		FileName:    "fraud.png",
		State:       pkg.ScanStateSuccess,
		Fraud:       true,
		Confidence:  "0.9",
		Reason:      "suspicious domain",
		ContentType: "upi",
		DecodedData: encrypted,
		CreatedAt:   base.Add(2 * time.Second),
	}
	failed := models.ScanRecord{
		ID:          uuid.New(),
		TraceID:     "trace-failed",
		ImageSha256: utils.Sha256Hex([]byte("failed.png")),
		FileName:    "failed.png",
		State:       pkg.ScanStateError,
		CreatedAt:   base.Add(time.Second),
	}
	safe := models.ScanRecord{
		ID:          uuid.New(),
		TraceID:     "trace-safe",
		ImageSha256: utils.Sha256Hex([]byte("safe.png")),
		FileName:    "safe.png",
		State:       pkg.ScanStateSuccess,
		Confidence:  "Low",
		CreatedAt:   base,
	}
	for _, r := range []models.ScanRecord{safe, fraud, failed} {
		require.NoError(t, repo.Create(ctx, r))
	}

	t.Run("lists newest first and pages", func(t *testing.T) {
		first, err := repo.List(ctx, 1, 2)
		require.NoError(t, err)
		require.Len(t, first, 2)
		assert.Equal(t, fraud.ID, first[0].ID)
		assert.Equal(t, failed.ID, first[1].ID)

		second, err := repo.List(ctx, 2, 2)
		require.NoError(t, err)
		require.Len(t, second, 1)
		assert.Equal(t, safe.ID, second[0].ID)

		empty, err := repo.List(ctx, 3, 2)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("stores every column", func(t *testing.T) {
		records, err := repo.List(ctx, 1, 1)
		require.NoError(t, err)
		require.Len(t, records, 1)
		got := records[0]

		assert.Equal(t, fraud.TraceID, got.TraceID)
		assert.Equal(t, fraud.ImageSha256, got.ImageSha256)
		assert.Equal(t, fraud.FileName, got.FileName)
		assert.Equal(t, pkg.ScanStateSuccess, got.State)
		assert.True(t, got.Fraud)
		assert.Equal(t, "0.9", got.Confidence)
		assert.Equal(t, "suspicious domain", got.Reason)
		assert.Equal(t, "upi", got.ContentType)
		assert.True(t, fraud.CreatedAt.Equal(got.CreatedAt))

		plain, err := utils.DecryptAES(got.DecodedData, key)
		require.NoError(t, err)
		assert.Equal(t, "upi://pay?pa=shop@bank", string(plain))
	})

	t.Run("duplicate ids are ignored", func(t *testing.T) {
		dup := fraud
		dup.FileName = "renamed.png"
		require.NoError(t, repo.Create(ctx, dup))

		all, err := repo.List(ctx, 1, 10)
		require.NoError(t, err)
		assert.Len(t, all, 3)
		assert.Equal(t, "fraud.png", all[0].FileName)
	})
}
