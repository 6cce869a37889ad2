package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type syncRecorder struct {
	bytes.Buffer
	synced bool
}

func (s *syncRecorder) Sync() error {
	s.synced = true
	return nil
}

func newRecordingLogger(out *syncRecorder) *zap.Logger {
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(enc, out, zapcore.InfoLevel))
}

func TestFinish_flushesBeforeFailureExit(t *testing.T) {
	out := &syncRecorder{}
	code := finish(newRecordingLogger(out), errors.New("open database: connection refused"))

	assert.Equal(t, 1, code)
	assert.True(t, out.synced)
	assert.Contains(t, out.String(), "server stopped")
	assert.Contains(t, out.String(), "connection refused")
}

func TestFinish_cleanShutdown(t *testing.T) {
	out := &syncRecorder{}
	assert.Equal(t, 0, finish(newRecordingLogger(out), nil))
	assert.True(t, out.synced)
	assert.Empty(t, out.String())
}
