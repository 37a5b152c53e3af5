package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/analyzer"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/utils"
	"github.com/nimeshabuddhika/qr-fraud-scanner/services/scan-api/internal/services"
	"github.com/nimeshabuddhika/qr-fraud-scanner/services/scan-api/internal/views"
	"go.uber.org/zap"
)

type ScanHandler struct {
	logger         *zap.Logger
	service        services.ScanService
	maxUploadBytes int64
}

func NewScanHandler(logger *zap.Logger, svc services.ScanService, maxUploadBytes int64) *ScanHandler {
	return &ScanHandler{logger: logger, service: svc, maxUploadBytes: maxUploadBytes}
}

// RegisterRoutes registers scan routes on the provided router group.
func (h *ScanHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/scans", h.CreateScan)
	r.GET("/scans", h.ListScans)
}

// CreateScan accepts a multipart upload with the QR image in field "image".
// The body always carries the rendered status; the HTTP code tells
// 200 verdict, 400 nothing selected, 502 backend unreachable.
func (h *ScanHandler) CreateScan(c *gin.Context) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		h.writeError(c, traceID, pkg.NewAppError(pkg.ErrServerCode, "missing trace id", err))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	file, err := h.readUpload(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(c, traceID, pkg.NewAppError(pkg.ErrPayloadTooLarge, pkg.ErrPayloadTooLarge.Message, err))
			return
		}
		h.writeError(c, traceID, pkg.NewAppError(pkg.ErrInvalidInputCode, "failed to read upload", err))
		return
	}

	status := h.service.Scan(c.Request.Context(), traceID, file)

	code := http.StatusOK
	switch {
	case file == nil || len(file.Data) == 0:
		code = http.StatusBadRequest
	case status.State == pkg.ScanStateError:
		code = http.StatusBadGateway
	}
	c.JSON(code, views.ScanResponse{TraceID: traceID, Status: status})
}

// readUpload returns nil, nil when the request carries no image.
func (h *ScanHandler) readUpload(c *gin.Context) (*analyzer.ImageFile, error) {
	header, err := c.FormFile(pkg.ImageFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		h.logger.Debug("no_image_in_request", zap.Error(err))
		return nil, nil
	}
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &analyzer.ImageFile{Name: header.Filename, Data: data}, nil
}

func (h *ScanHandler) ListScans(c *gin.Context) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		h.writeError(c, traceID, pkg.NewAppError(pkg.ErrServerCode, "missing trace id", err))
		return
	}

	var q views.HistoryQuery
	if err = c.ShouldBindQuery(&q); err != nil {
		h.writeError(c, traceID, pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid query parameters", err))
		return
	}

	items, err := h.service.History(c.Request.Context(), traceID, q.Page, q.Size)
	if err != nil {
		h.writeError(c, traceID, err)
		return
	}
	c.JSON(http.StatusOK, views.ScanHistoryResponse{
		TraceID: traceID,
		Page:    q.Page,
		Size:    len(items),
		Items:   items,
	})
}

func (h *ScanHandler) writeError(c *gin.Context, traceID string, err error) {
	resp := pkg.ToErrorResponse(h.logger, traceID, err)
	c.JSON(resp.Status, resp)
}
