package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/dtos"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/utils"
	"go.uber.org/zap"
)

const (
	AnalyzePath = "/analyze"

	// maxErrorBodyBytes bounds how much of a failed response is kept for diagnostics.
	maxErrorBodyBytes = 512
)

// Backend submits one image to the QR fraud analysis service.
type Backend interface {
	Analyze(ctx context.Context, traceID string, req dtos.AnalysisRequest) (dtos.AnalysisResponse, error)
}

// ClientConfig holds dependencies for the HTTP analysis backend.
type ClientConfig struct {
	Logger     *zap.Logger
	BaseURL    string // e.g. http://127.0.0.1:8000
	HTTPClient *http.Client
}

type Client struct {
	logger     *zap.Logger
	analyzeURL string
	httpClient *http.Client
}

// NewClient creates a Backend posting to <BaseURL>/analyze.
// A nil HTTPClient is replaced by utils.NewHTTPClient defaults.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = utils.NewHTTPClient()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		logger:     logger,
		analyzeURL: strings.TrimRight(cfg.BaseURL, "/") + AnalyzePath,
		httpClient: httpClient,
	}
}

// Analyze posts the image as multipart form data and decodes the JSON verdict.
// It performs exactly one attempt.
func (c *Client) Analyze(ctx context.Context, traceID string, req dtos.AnalysisRequest) (dtos.AnalysisResponse, error) {
	var out dtos.AnalysisResponse
	if len(req.Image) == 0 {
		return out, pkg.NewAppError(pkg.ErrInvalidInputCode, "image is required", pkg.ErrNoImageSelected)
	}

	body, contentType, err := encodeMultipart(req)
	if err != nil {
		return out, pkg.NewAppError(pkg.ErrServerCode, "failed to encode upload", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.analyzeURL, body)
	if err != nil {
		return out, pkg.NewAppError(pkg.ErrServerCode, "failed to build backend request", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	if !utils.IsEmpty(traceID) {
		httpReq.Header.Set(pkg.HeaderTraceId, traceID)
	}

	c.logger.Debug("submitting_image_for_analysis",
		zap.String(pkg.TraceId, traceID),
		zap.String("url", c.analyzeURL),
		zap.Int("bytes", len(req.Image)))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return out, pkg.NewAppError(pkg.ErrBackendUnavailableCode, "backend unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return out, pkg.NewAppError(pkg.ErrBackendBadStatusCode,
			fmt.Sprintf("backend returned status %d", resp.StatusCode),
			fmt.Errorf("body: %s", bytes.TrimSpace(snippet)))
	}

	if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return dtos.AnalysisResponse{}, pkg.NewAppError(pkg.ErrBackendBadResponseCode, "failed to decode backend response", err)
	}
	return out, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeMultipart(req dtos.AnalysisRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fileName := req.FileName
	if utils.IsEmpty(fileName) {
		fileName = "upload"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(pkg.ImageFormField), quoteEscaper.Replace(fileName)))
	header.Set("Content-Type", http.DetectContentType(req.Image))

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err = part.Write(req.Image); err != nil {
		return nil, "", err
	}
	if err = w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
