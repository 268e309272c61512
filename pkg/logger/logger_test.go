package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMsg(t *testing.T) {
	assert.Equal(t, "hello", formatMsg("hello"))
	assert.Equal(t, "order approved orderID=ord-1 qty=3", formatMsg("order approved", "orderID", "ord-1", "qty", 3))
	assert.Equal(t, "odd key=missing", formatMsg("odd", "key"))
}

func TestLevelFiltering(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewLoggerWithOutput("warn", &out, &errOut)

	l.Debug("debug line")
	l.Info("info line")
	l.Warn("warn line")
	l.Error("error line")

	assert.NotContains(t, out.String(), "debug line")
	assert.NotContains(t, out.String(), "info line")
	assert.Contains(t, out.String(), "warn line")
	assert.Contains(t, errOut.String(), "error line")
}

func TestWithPrefixesFields(t *testing.T) {
	var out bytes.Buffer
	l := NewLoggerWithOutput("info", &out, &out).With("component", "outbox")

	l.Info("started", "batch", 10)

	assert.Contains(t, out.String(), "started component=outbox batch=10")
}
