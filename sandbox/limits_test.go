package sandbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testCeilings() *Config {
	return &Config{
		PythonCommand:         "python3 -I -B",
		DefaultTimeoutSeconds: 5.0,
		MaxTimeoutSeconds:     10.0,
		DefaultMemoryBytes:    50 * 1024 * 1024,
		MaxMemoryBytes:        256 * 1024 * 1024,
		MaxOutputBytes:        64 * 1024,
		MaxStdinBytes:         1024 * 1024,
		MaxProcs:              16,
	}
}

func TestBuildLimits(t *testing.T) {
	cfg := testCeilings()

	t.Run("DefaultsApplyWhenUnset", func(t *testing.T) {
		limits := BuildLimits(SubmissionRequest{}, cfg)
		assert.Equal(t, 5*time.Second, limits.WallTimeout)
		assert.Equal(t, int64(5), limits.CPUSeconds)
		assert.Equal(t, int64(50*1024*1024), limits.MemoryBytes)
		assert.Equal(t, int64(64*1024), limits.MaxOutputBytes)
		assert.Equal(t, int64(16), limits.MaxProcs)
	})

	t.Run("CallerHintHonoredBelowCeiling", func(t *testing.T) {
		limits := BuildLimits(SubmissionRequest{TimeoutSeconds: 2.5, MemoryLimitBytes: 100 * 1024 * 1024}, cfg)
		assert.Equal(t, 2500*time.Millisecond, limits.WallTimeout)
		assert.Equal(t, int64(3), limits.CPUSeconds)
		assert.Equal(t, int64(100*1024*1024), limits.MemoryBytes)
	})

	t.Run("CeilingWinsOverCallerRequest", func(t *testing.T) {
		limits := BuildLimits(SubmissionRequest{TimeoutSeconds: 600, MemoryLimitBytes: 1 << 40}, cfg)
		assert.Equal(t, 10*time.Second, limits.WallTimeout)
		assert.Equal(t, int64(256*1024*1024), limits.MemoryBytes)
	})

	t.Run("NegativeValuesFallBackToDefaults", func(t *testing.T) {
		limits := BuildLimits(SubmissionRequest{TimeoutSeconds: -1, MemoryLimitBytes: -5}, cfg)
		assert.Equal(t, 5*time.Second, limits.WallTimeout)
		assert.Equal(t, int64(50*1024*1024), limits.MemoryBytes)
	})
}

func TestLimitSpecEnv(t *testing.T) {
	limits := LimitSpec{
		CPUSeconds:   3,
		MemoryBytes:  1024,
		MaxFileBytes: 2048,
		MaxProcs:     8,
	}
	env := limits.Env()
	assert.Contains(t, env, "GRADEBOX_LIMIT_CPU_SECONDS=3")
	assert.Contains(t, env, "GRADEBOX_LIMIT_MEMORY_BYTES=1024")
	assert.Contains(t, env, "GRADEBOX_LIMIT_FILE_BYTES=2048")
	assert.Contains(t, env, "GRADEBOX_LIMIT_PROCS=8")
}
