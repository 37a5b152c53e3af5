package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/analyzer"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/models"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/repositories"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/utils"
	"github.com/nimeshabuddhika/qr-fraud-scanner/services/scan-api/internal/observability"
	"github.com/nimeshabuddhika/qr-fraud-scanner/services/scan-api/internal/views"
	"go.uber.org/zap"
)

type ScanService interface {
	// Scan runs one upload through the analyzer and returns the terminal status.
	Scan(ctx context.Context, traceID string, file *analyzer.ImageFile) analyzer.Status
	// History lists recorded scans, newest first.
	History(ctx context.Context, traceID string, page, size int) ([]views.ScanHistoryItem, error)
}

// ScanServiceConfig holds dependencies for the scan service.
// A nil ScanRepo disables history.
type ScanServiceConfig struct {
	Logger        *zap.Logger
	Analyzer      analyzer.UploadAnalyzer
	ScanRepo      repositories.ScanRepository
	EncryptionKey []byte
	PageLimit     int
}

type ScanServiceImpl struct {
	logger        *zap.Logger
	analyzer      analyzer.UploadAnalyzer
	scanRepo      repositories.ScanRepository
	encryptionKey []byte
	pageLimit     int
}

func NewScanService(cfg ScanServiceConfig) ScanService {
	return &ScanServiceImpl{
		logger:        cfg.Logger,
		analyzer:      cfg.Analyzer,
		scanRepo:      cfg.ScanRepo,
		encryptionKey: cfg.EncryptionKey,
		pageLimit:     cfg.PageLimit,
	}
}

func (s *ScanServiceImpl) Scan(ctx context.Context, traceID string, file *analyzer.ImageFile) analyzer.Status {
	start := time.Now()
	observability.InflightScans.Inc()
	status := s.analyzer.Analyze(ctx, traceID, file, analyzer.NewDisplay())
	observability.InflightScans.Dec()

	observability.ScanLatency.WithLabelValues(string(status.State)).Observe(time.Since(start).Seconds())
	observability.ScansTotal.WithLabelValues(string(status.State), verdictLabel(status)).Inc()

	// Nothing was submitted when no file was selected.
	if file != nil && len(file.Data) > 0 {
		s.record(ctx, traceID, file, status)
	}
	return status
}

func (s *ScanServiceImpl) record(ctx context.Context, traceID string, file *analyzer.ImageFile, status analyzer.Status) {
	if s.scanRepo == nil {
		return
	}
	record := models.ScanRecord{
		ID:          uuid.New(),
		TraceID:     traceID,
		ImageSha256: utils.Sha256Hex(file.Data),
		FileName:    file.Name,
		State:       status.State,
		CreatedAt:   time.Now().UTC(),
	}
	if status.Result != nil {
		record.Fraud = status.Result.Fraud
		record.Confidence = status.Result.Confidence.String()
		record.Reason = status.Result.Reason
		record.ContentType = status.Result.ContentType
		if !utils.IsEmpty(status.Result.DecodedData) {
			encrypted, err := utils.EncryptAES([]byte(status.Result.DecodedData), s.encryptionKey)
			if err != nil {
				s.logger.Error("failed_to_encrypt_decoded_data", zap.String(pkg.TraceId, traceID), zap.Error(err))
			} else {
				record.DecodedData = encrypted
			}
		}
	}
	if err := s.scanRepo.Create(ctx, record); err != nil {
		observability.HistoryWriteFailures.Inc()
		s.logger.Error("failed_to_record_scan", zap.String(pkg.TraceId, traceID), zap.Error(err))
		return
	}
	s.logger.Debug("scan_recorded", zap.String(pkg.TraceId, traceID), zap.String("scan_id", record.ID.String()))
}

func (s *ScanServiceImpl) History(ctx context.Context, traceID string, page, size int) ([]views.ScanHistoryItem, error) {
	if s.scanRepo == nil {
		return nil, pkg.NewAppError(pkg.ErrUnavailableCode, "scan history is disabled", pkg.ErrHistoryDisabled)
	}
	if s.pageLimit > 0 && size > s.pageLimit {
		size = s.pageLimit
	}
	records, err := s.scanRepo.List(ctx, page, size)
	if err != nil {
		return nil, pkg.HandleSQLError(traceID, s.logger, err)
	}

	items := make([]views.ScanHistoryItem, 0, len(records))
	for _, r := range records {
		item := views.ScanHistoryItem{
			ID:          r.ID.String(),
			TraceID:     r.TraceID,
			ImageSha256: r.ImageSha256,
			FileName:    r.FileName,
			State:       string(r.State),
			Fraud:       r.Fraud,
			Confidence:  r.Confidence,
			Reason:      r.Reason,
			ContentType: r.ContentType,
			CreatedAt:   r.CreatedAt,
		}
		if !utils.IsEmpty(r.DecodedData) {
			plain, err := utils.DecryptAES(r.DecodedData, s.encryptionKey)
			if err != nil {
				s.logger.Warn("failed_to_decrypt_decoded_data", zap.String(pkg.TraceId, traceID), zap.String("scan_id", item.ID), zap.Error(err))
			} else {
				item.DecodedData = string(plain)
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func verdictLabel(status analyzer.Status) string {
	switch {
	case status.Result == nil:
		return "none"
	case status.Result.Fraud:
		return "fraud"
	default:
		return "safe"
	}
}
