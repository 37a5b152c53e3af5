package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg"
)

// ScanRecord maps to table `scan_results`.
// DecodedData holds the AES-GCM ciphertext of the decoded QR payload.
type ScanRecord struct {
	ID          uuid.UUID
	TraceID     string
	ImageSha256 string
	FileName    string
	State       pkg.ScanState
	Fraud       bool
	Confidence  string
	Reason      string
	ContentType string
	DecodedData string
	CreatedAt   time.Time
}
