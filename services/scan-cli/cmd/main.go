package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/analysis"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/analyzer"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/utils"
	"github.com/nimeshabuddhika/qr-fraud-scanner/services/scan-cli/configs"
	"go.uber.org/zap"
)

const (
	exitSafe  = 0
	exitError = 1
	exitFraud = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	flags := flag.NewFlagSet("scan-cli", flag.ContinueOnError)
	filePath := flags.String("file", "", "Path to the QR image to analyze")
	backendFlag := flags.String("backend", "", "Override analysis backend base URL (e.g. http://127.0.0.1:8000)")
	if err := flags.Parse(args); err != nil {
		return exitError
	}

	pkg.InitLogger("scan-cli", pkg.LogToStderr)
	logger := pkg.Logger
	defer func() { _ = logger.Sync() }()

	cfg, err := configs.Load(logger)
	if cfg != nil && *backendFlag != "" {
		cfg.BackendURL = strings.TrimRight(*backendFlag, "/")
		err = cfg.Validate(logger)
	}
	if err != nil {
		logger.Error("failed_to_load_config", zap.Error(err))
		return exitError
	}

	file, err := readImage(*filePath)
	if err != nil {
		logger.Error("failed_to_read_image", zap.String("path", *filePath), zap.Error(err))
		_, _ = fmt.Fprintf(stdout, "[%s] %s\n", analyzer.StyleError, err.Error())
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	uploadAnalyzer := analyzer.NewUploadAnalyzer(analyzer.UploadAnalyzerConfig{
		Logger: logger,
		Backend: analysis.NewClient(analysis.ClientConfig{
			Logger:     logger,
			BaseURL:    cfg.BackendURL,
			HTTPClient: utils.NewHTTPClient(cfg.HTTPClientOptions()...),
		}),
	})
	status := uploadAnalyzer.Analyze(ctx, uuid.New().String(), file, analyzer.NewWriterSurface(stdout))
	return exitCode(status)
}

// readImage returns nil without error when no path was given, so the
// analyzer reports the missing selection itself.
func readImage(path string) (*analyzer.ImageFile, error) {
	if utils.IsEmpty(path) {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	if err != nil {
		return nil, err
	}
	return &analyzer.ImageFile{Name: filepath.Base(path), Data: data}, nil
}

func exitCode(status analyzer.Status) int {
	switch {
	case status.State != pkg.ScanStateSuccess:
		return exitError
	case status.IsFraud():
		return exitFraud
	default:
		return exitSafe
	}
}
