package iblshadows

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDefaultLogger(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewDefaultLoggerTo("ibl", false, &out, &errOut)

	l.Debugf("hidden %d", 1)
	assert.Zero(t, out.Len())

	l.SetDebug(true)
	assert.True(t, l.DebugEnabled())
	l.Debugf("shown %d", 2)
	assert.Contains(t, out.String(), "[ibl] DEBUG: shown 2")

	l.Infof("hello")
	assert.Contains(t, out.String(), "[ibl] INFO: hello")

	l.Warnf("careful")
	l.Errorf("broken")
	assert.Contains(t, errOut.String(), "[ibl] WARN: careful")
	assert.Contains(t, errOut.String(), "[ibl] ERROR: broken")
	assert.NotContains(t, out.String(), "careful")
}

func TestDefaultLogger_NoPrefix(t *testing.T) {
	var out bytes.Buffer
	l := NewDefaultLoggerTo("", false, &out, &out)
	l.Infof("plain")
	assert.Contains(t, out.String(), " INFO: plain")
	assert.NotContains(t, out.String(), "[")
}

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core))

	l.Debugf("gated")
	assert.Zero(t, logs.Len())

	l.SetDebug(true)
	l.Debugf("voxelized %d meshes", 3)
	l.Warnf("IBL Shadows Renderer could not enable PrePass, aborting.")
	l.Errorf("broken %s", "pipe")

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, "voxelized 3 meshes", entries[0].Message)
		assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
		assert.Equal(t, "broken pipe", entries[2].Message)
	}
	assert.NoError(t, l.Sync())
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.SetDebug(true)
	assert.False(t, l.DebugEnabled())
	assert.NotPanics(t, func() { l.Errorf("nothing %d", 1) })
	assert.NotPanics(t, func() { NewZapLogger(nil).Infof("nothing") })
}
