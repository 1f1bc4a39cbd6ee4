package logger

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func encodeEntry(t *testing.T, enc zapcore.Encoder) string {
	t.Helper()

	buf, err := enc.EncodeEntry(zapcore.Entry{
		Level:   zapcore.InfoLevel,
		Time:    time.Unix(1700000000, 0).UTC(),
		Message: "hello",
	}, nil)
	require.NoError(t, err)
	return buf.String()
}

func TestNewStdoutEncoder_JSON(t *testing.T) {
	t.Parallel()

	// Arrange
	enc := newStdoutEncoder("json", encoderConfig("json"))

	// Act
	line := encodeEntry(t, enc)

	// Assert
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &payload))
	require.Equal(t, "hello", payload["msg"])
}

func TestNewStdoutEncoder_Console(t *testing.T) {
	t.Parallel()

	// Arrange
	enc := newStdoutEncoder("console", encoderConfig("console"))

	// Act
	line := encodeEntry(t, enc)

	// Assert
	require.False(t, strings.HasPrefix(line, "{"))
	require.Contains(t, line, "hello")
}
