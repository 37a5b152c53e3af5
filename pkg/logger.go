package pkg

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Logger *zap.Logger

// Log sinks. scan-cli prints verdicts on stdout, so its logs go to stderr.
const (
	LogToStdout = "stdout"
	LogToStderr = "stderr"
)

// InitLogger initializes the global Logger for the named service based on the current gin mode.
// Every entry carries a "service" field.
func InitLogger(service, sink string) {
	if sink != LogToStderr {
		sink = LogToStdout
	}

	var config zap.Config
	if gin.ReleaseMode == gin.Mode() {
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{sink}
		config.ErrorOutputPaths = []string{LogToStderr}
	} else {
		config = zap.NewDevelopmentConfig()
		config.OutputPaths = []string{sink}
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := config.Build(
		zap.AddStacktrace(zap.DPanicLevel),
		zap.Fields(zap.String("service", service)),
	)
	if err != nil {
		panic(err)
	}
	Logger = logger
}
