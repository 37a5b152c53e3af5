package analyzer

import (
	"context"

	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/analysis"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/dtos"
	"go.uber.org/zap"
)

// ImageFile is the file the user selected. A nil *ImageFile means nothing was selected.
type ImageFile struct {
	Name string
	Data []byte
}

// UploadAnalyzer drives one scan: validate, submit, render.
type UploadAnalyzer interface {
	Analyze(ctx context.Context, traceID string, file *ImageFile, surface StatusSurface) Status
}

// UploadAnalyzerConfig holds dependencies for the upload analyzer.
type UploadAnalyzerConfig struct {
	Logger  *zap.Logger
	Backend analysis.Backend
}

type uploadAnalyzer struct {
	logger  *zap.Logger
	backend analysis.Backend
}

// NewUploadAnalyzer creates an UploadAnalyzer. It keeps no per-scan state and
// may be shared between concurrent callers.
func NewUploadAnalyzer(cfg UploadAnalyzerConfig) UploadAnalyzer {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &uploadAnalyzer{logger: logger, backend: cfg.Backend}
}

// Analyze runs Idle -> Analyzing -> (Success | Error). Every status it reaches is
// rendered on the surface; the terminal one is also returned.
// Missing input never reaches the backend, and backend failures are logged and
// collapsed into one generic message without any retry.
func (u *uploadAnalyzer) Analyze(ctx context.Context, traceID string, file *ImageFile, surface StatusSurface) Status {
	if surface == nil {
		surface = discardSurface{}
	}
	if file == nil || len(file.Data) == 0 {
		status := selectFileStatus()
		surface.Render(status)
		return status
	}

	surface.Render(analyzingStatus())

	resp, err := u.backend.Analyze(ctx, traceID, dtos.AnalysisRequest{
		FileName: file.Name,
		Image:    file.Data,
	})
	if err != nil {
		u.logger.Error("qr_analysis_failed",
			zap.String(pkg.TraceId, traceID),
			zap.String("file", file.Name),
			zap.Error(err))
		status := unreachableStatus()
		surface.Render(status)
		return status
	}

	status := RenderVerdict(resp)
	u.logger.Info("qr_analysis_completed",
		zap.String(pkg.TraceId, traceID),
		zap.Bool("fraud", resp.Fraud),
		zap.String("confidence", resp.Confidence.String()))
	surface.Render(status)
	return status
}

type discardSurface struct{}

func (discardSurface) Render(Status) {}
