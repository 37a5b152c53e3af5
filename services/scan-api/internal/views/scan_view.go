package views

import (
	"time"

	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/analyzer"
)

// ScanResponse is the body of POST /api/v1/scans.
type ScanResponse struct {
	TraceID string          `json:"traceId"`
	Status  analyzer.Status `json:"status"`
}

// MaxHistoryPage bounds ?page so the row offset stays well inside int range.
const MaxHistoryPage = 10000

// HistoryQuery binds GET /api/v1/scans query parameters.
type HistoryQuery struct {
	Page int `form:"page,default=1" binding:"min=1,max=10000"`
	Size int `form:"size,default=20" binding:"min=1"`
}

// ScanHistoryItem is one entry of GET /api/v1/scans.
type ScanHistoryItem struct {
	ID          string    `json:"id"`
	TraceID     string    `json:"traceId"`
	ImageSha256 string    `json:"imageSha256"`
	FileName    string    `json:"fileName"`
	State       string    `json:"state"`
	Fraud       bool      `json:"fraud"`
	Confidence  string    `json:"confidence,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
	DecodedData string    `json:"decodedData,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ScanHistoryResponse struct {
	TraceID string            `json:"traceId"`
	Page    int               `json:"page"`
	Size    int               `json:"size"`
	Items   []ScanHistoryItem `json:"items"`
}
