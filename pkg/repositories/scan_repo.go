package repositories

import (
	"context"
	"fmt"

	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/database"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/models"
)

type ScanRepository interface {
	// Create stores one completed scan.
	Create(ctx context.Context, record models.ScanRecord) error
	// List returns scans newest first; pageNumber is 1-based.
	List(ctx context.Context, pageNumber int, size int) ([]models.ScanRecord, error)
}

type ScanRepositoryImpl struct {
	db *database.DB
}

func NewScanRepository(db *database.DB) ScanRepository {
	return &ScanRepositoryImpl{db: db}
}

func (s ScanRepositoryImpl) Create(ctx context.Context, record models.ScanRecord) error {
	_, err := s.db.Exec(ctx, `
						INSERT INTO scan_results (id, trace_id, image_sha256, file_name, state, fraud, confidence, reason, content_type, decoded_data, created_at)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) ON CONFLICT DO NOTHING`,
		record.ID,
		record.TraceID,
		record.ImageSha256,
		record.FileName,
		record.State,
		record.Fraud,
		record.Confidence,
		record.Reason,
		record.ContentType,
		record.DecodedData,
		record.CreatedAt,
	)
	return err
}

func (s ScanRepositoryImpl) List(ctx context.Context, pageNumber int, size int) ([]models.ScanRecord, error) {
	if pageNumber < 1 {
		pageNumber = 1
	}
	offset := (pageNumber - 1) * size
	if offset < 0 {
		return nil, fmt.Errorf("page %d of size %d is out of range", pageNumber, size)
	}
	rows, err := s.db.Query(ctx, `SELECT id, trace_id, image_sha256, file_name, state, fraud, confidence, reason, content_type, decoded_data, created_at
		FROM scan_results
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, size, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := make([]models.ScanRecord, 0, size)
	for rows.Next() {
		var record models.ScanRecord
		if err = rows.Scan(
			&record.ID,
			&record.TraceID,
			&record.ImageSha256,
			&record.FileName,
			&record.State,
			&record.Fraud,
			&record.Confidence,
			&record.Reason,
			&record.ContentType,
			&record.DecodedData,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
