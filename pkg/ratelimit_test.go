package pkg_test

import (
	"context"
	"testing"
	"time"

	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDistributedLimiter_LocalOnlyExhaustsBurst(t *testing.T) {
	limiter := pkg.NewDistributedLimiter(nil, "test", 1, 2, time.Second, zap.NewNop())

	assert.True(t, limiter.Allow(context.Background()))
	assert.True(t, limiter.Allow(context.Background()))
	assert.False(t, limiter.Allow(context.Background()))
}

func TestDistributedLimiter_ZeroRateIsUnlimited(t *testing.T) {
	limiter := pkg.NewDistributedLimiter(nil, "test", 0, 0, 0, zap.NewNop())

	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow(context.Background()))
	}
}
