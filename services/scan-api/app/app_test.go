package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/analysis"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/analyzer"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/models"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/repositories"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/utils"
	"github.com/nimeshabuddhika/qr-fraud-scanner/services/scan-api/app"
	"github.com/nimeshabuddhika/qr-fraud-scanner/services/scan-api/internal/services"
	"github.com/nimeshabuddhika/qr-fraud-scanner/services/scan-api/internal/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAESKey = "Zk6IWX04Qm7ThZ5dJi8Xo4zyb8g9wfcxr5jxa1i3JKU="

func init() {
	gin.SetMode(gin.TestMode)
}

type backendStub struct {
	calls atomic.Int32
	srv   *httptest.Server
}

func startBackend(t *testing.T, body string) *backendStub {
	t.Helper()
	b := &backendStub{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(b.srv.Close)
	return b
}

type routerOptions struct {
	limiter        *pkg.DistributedLimiter
	scanRepo       repositories.ScanRepository
	encryptionKey  []byte
	pageLimit      int
	maxUploadBytes int64
}

func newRouter(t *testing.T, backendURL string, limiter *pkg.DistributedLimiter) *gin.Engine {
	t.Helper()
	return newRouterWith(t, backendURL, routerOptions{limiter: limiter})
}

func newRouterWith(t *testing.T, backendURL string, opts routerOptions) *gin.Engine {
	t.Helper()
	if opts.maxUploadBytes == 0 {
		opts.maxUploadBytes = 1 << 20
	}
	logger := zap.NewNop()
	uploadAnalyzer := analyzer.NewUploadAnalyzer(analyzer.UploadAnalyzerConfig{
		Logger:  logger,
		Backend: analysis.NewClient(analysis.ClientConfig{Logger: logger, BaseURL: backendURL}),
	})
	scanService := services.NewScanService(services.ScanServiceConfig{
		Logger:        logger,
		Analyzer:      uploadAnalyzer,
		ScanRepo:      opts.scanRepo,
		EncryptionKey: opts.encryptionKey,
		PageLimit:     opts.pageLimit,
	})
	return app.NewRouter(app.RouterConfig{
		Logger:         logger,
		ScanService:    scanService,
		Limiter:        opts.limiter,
		MaxUploadBytes: opts.maxUploadBytes,
	})
}

// memoryScanRepo keeps scans in insertion order and lists them newest first.
type memoryScanRepo struct {
	mu      sync.Mutex
	records []models.ScanRecord
}

func (m *memoryScanRepo) Create(_ context.Context, record models.ScanRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *memoryScanRepo) List(_ context.Context, pageNumber int, size int) ([]models.ScanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sorted := make([]models.ScanRecord, len(m.records))
	copy(sorted, m.records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	start := (pageNumber - 1) * size
	if start >= len(sorted) {
		return []models.ScanRecord{}, nil
	}
	end := start + size
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[start:end], nil
}

func uploadRequest(t *testing.T, withFile bool) *http.Request {
	t.Helper()
	if withFile {
		return uploadRequestWithImage(t, []byte("png-bytes"))
	}
	return uploadRequestWithImage(t, nil)
}

func uploadRequestWithImage(t *testing.T, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if image != nil {
		part, err := w.CreateFormFile("image", "qr.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("note", "nothing selected"))
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeScan(t *testing.T, rec *httptest.ResponseRecorder) views.ScanResponse {
	t.Helper()
	var out views.ScanResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestCreateScan_FraudVerdict(t *testing.T) {
	backend := startBackend(t, `{"fraud":true,"confidence":0.9,"reason":"suspicious domain","decoded_data":"http://x.example"}`)
	r := newRouter(t, backend.srv.URL, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, true))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(pkg.HeaderTraceId))
	out := decodeScan(t, rec)
	assert.Equal(t, rec.Header().Get(pkg.HeaderTraceId), out.TraceID)
	assert.Equal(t, analyzer.StyleAlert, out.Status.Style)
	assert.Contains(t, out.Status.Message, "0.9")
	assert.Contains(t, out.Status.Message, "suspicious domain")
	assert.EqualValues(t, 1, backend.calls.Load())
}

func TestCreateScan_SafeVerdict(t *testing.T) {
	backend := startBackend(t, `{"fraud":false,"confidence":0.1,"reason":"looks fine"}`)
	r := newRouter(t, backend.srv.URL, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, true))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, analyzer.StyleSafe, decodeScan(t, rec).Status.Style)
}

func TestCreateScan_NoFileSelected(t *testing.T) {
	backend := startBackend(t, `{"fraud":false}`)
	r := newRouter(t, backend.srv.URL, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, false))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, analyzer.MsgSelectFile, decodeScan(t, rec).Status.Message)
	assert.EqualValues(t, 0, backend.calls.Load())
}

func TestCreateScan_BackendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	r := newRouter(t, url, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, true))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	out := decodeScan(t, rec)
	assert.Equal(t, analyzer.MsgBackendUnreachable, out.Status.Message)
	assert.Equal(t, analyzer.StyleError, out.Status.Style)
}

func TestCreateScan_TraceIDIsPropagated(t *testing.T) {
	var gotTrace atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTrace.Store(r.Header.Get(pkg.HeaderTraceId))
		_, _ = w.Write([]byte(`{"fraud":false}`))
	}))
	defer srv.Close()
	r := newRouter(t, srv.URL, nil)

	req := uploadRequest(t, true)
	req.Header.Set(pkg.HeaderTraceId, "trace-from-client")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "trace-from-client", rec.Header().Get(pkg.HeaderTraceId))
	assert.Equal(t, "trace-from-client", gotTrace.Load())
}

func TestCreateScan_UploadTooLarge(t *testing.T) {
	backend := startBackend(t, `{"fraud":false}`)
	r := newRouterWith(t, backend.srv.URL, routerOptions{maxUploadBytes: 1024})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequestWithImage(t, bytes.Repeat([]byte{0x89}, 4096)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	var out pkg.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Equal(t, pkg.ErrPayloadTooLarge.Code, out.Code)
	assert.Equal(t, rec.Header().Get(pkg.HeaderTraceId), out.TraceID)
	assert.EqualValues(t, 0, backend.calls.Load())
}

func TestListScans_PagesNewestFirstWithDecryptedData(t *testing.T) {
	key, err := utils.DecodeString(testAESKey)
	require.NoError(t, err)
	encrypted, err := utils.EncryptAES([]byte("upi://pay?pa=shop@bank"), key)
	require.NoError(t, err)

	now := time.Now().UTC()
	repo := &memoryScanRepo{}
	for i, name := range []string{"oldest.png", "middle.png", "newest.png"} {
		require.NoError(t, repo.Create(context.Background(), models.ScanRecord{
			ID:          uuid.New(),
			TraceID:     "trace-" + name,
			ImageSha256: utils.Sha256Hex([]byte(name)),
			FileName:    name,
			State:       pkg.ScanStateSuccess,
			Confidence:  "High",
			DecodedData: encrypted,
			CreatedAt:   now.Add(time.Duration(i) * time.Minute),
		}))
	}
	r := newRouterWith(t, "http://127.0.0.1:1", routerOptions{scanRepo: repo, encryptionKey: key, pageLimit: 50})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scans?page=1&size=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var first views.ScanHistoryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&first))
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, 2, first.Size)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "newest.png", first.Items[0].FileName)
	assert.Equal(t, "middle.png", first.Items[1].FileName)
	assert.Equal(t, "upi://pay?pa=shop@bank", first.Items[0].DecodedData)
	assert.Equal(t, "High", first.Items[0].Confidence)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scans?page=2&size=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var second views.ScanHistoryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&second))
	assert.Equal(t, 2, second.Page)
	assert.Equal(t, 1, second.Size)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "oldest.png", second.Items[0].FileName)
}

func TestListScans_SizeIsCappedByPageLimit(t *testing.T) {
	repo := &memoryScanRepo{}
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(context.Background(), models.ScanRecord{
			ID:        uuid.New(),
			State:     pkg.ScanStateError,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}))
	}
	r := newRouterWith(t, "http://127.0.0.1:1", routerOptions{scanRepo: repo, pageLimit: 3})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scans?size=100", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var out views.ScanHistoryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Equal(t, 3, out.Size)
}

func TestCreateScan_RecordsHistory(t *testing.T) {
	backend := startBackend(t, `{"fraud":true,"confidence":"High","decoded_data":"http://phish.example"}`)
	key, err := utils.DecodeString(testAESKey)
	require.NoError(t, err)
	repo := &memoryScanRepo{}
	r := newRouterWith(t, backend.srv.URL, routerOptions{scanRepo: repo, encryptionKey: key, pageLimit: 50})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, true))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scans", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var out views.ScanHistoryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.Len(t, out.Items, 1)
	assert.True(t, out.Items[0].Fraud)
	assert.Equal(t, "http://phish.example", out.Items[0].DecodedData)
	assert.NotContains(t, repo.records[0].DecodedData, "phish")
}

func TestListScans_PageOutOfRange(t *testing.T) {
	r := newRouterWith(t, "http://127.0.0.1:1", routerOptions{scanRepo: &memoryScanRepo{}})

	rec := httptest.NewRecorder()
	target := fmt.Sprintf("/api/v1/scans?page=%d&size=200", views.MaxHistoryPage+1)
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var out pkg.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Equal(t, pkg.ErrInvalidInputCode.Code, out.Code)
}

func TestListScans_HistoryDisabled(t *testing.T) {
	r := newRouter(t, "http://127.0.0.1:1", nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scans?page=1&size=10", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var out pkg.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Equal(t, pkg.ErrUnavailableCode.Code, out.Code)
}

func TestListScans_InvalidQuery(t *testing.T) {
	r := newRouter(t, "http://127.0.0.1:1", nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scans?page=0", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit_RejectsBeyondBurst(t *testing.T) {
	backend := startBackend(t, `{"fraud":false}`)
	limiter := pkg.NewDistributedLimiter(nil, "test", 1, 1, time.Second, zap.NewNop())
	r := newRouter(t, backend.srv.URL, limiter)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, uploadRequest(t, true))
	second := httptest.NewRecorder()
	r.ServeHTTP(second, uploadRequest(t, true))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.EqualValues(t, 1, backend.calls.Load())
}

func TestBaseRoutes(t *testing.T) {
	r := newRouter(t, "http://127.0.0.1:1", nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="qrInput"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
