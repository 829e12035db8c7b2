package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew_RoleField verifies that every entry carries the role field.
func TestNew_RoleField(t *testing.T) {
	var buf bytes.Buffer
	l := New("kappa", &buf)

	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kappa", entry["role"])
	_, hasTime := entry["time"]
	assert.True(t, hasTime, "expected 'time' field in log entry")
}

// TestNew_CallerFieldName verifies that the caller field is named "func" and
// holds a function name.
func TestNew_CallerFieldName(t *testing.T) {
	var buf bytes.Buffer
	l := New("caller", &buf)
	l.Info().Msg("where")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "func", zerolog.CallerFieldName)
	assert.Contains(t, entry["func"], "TestNew_CallerFieldName")
}

// TestNew_GlobalLevelIsDebug verifies that New sets the global zerolog level
// to Debug.
func TestNew_GlobalLevelIsDebug(t *testing.T) {
	require.NotNil(t, New("level", &bytes.Buffer{}))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

// TestNewConsoleLogger_HumanReadable verifies that console output is not JSON
// and contains the message.
func TestNewConsoleLogger_HumanReadable(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger("cli", &buf)

	l.Info().Str("file", "tokens.csv").Msg("loaded")

	out := buf.String()
	assert.Contains(t, out, "loaded")
	assert.Contains(t, out, "file=tokens.csv")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

// TestNop_DiscardsOutput verifies that a Nop logger produces no output.
func TestNop_DiscardsOutput(t *testing.T) {
	var buf bytes.Buffer
	l := Nop()
	l.Logger = l.Output(&buf)

	l.Info().Msg("should be discarded")

	assert.Empty(t, buf.String())
}

// TestSetLevel filters entries below the chosen level and rejects unknown names.
func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New("level", &buf)

	require.NoError(t, l.SetLevel("warn"))
	l.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	l.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")

	assert.Error(t, l.SetLevel("loud"))
}

// TestGetChildLogger_InheritsFields verifies that the child logger inherits
// the parent's fields.
func TestGetChildLogger_InheritsFields(t *testing.T) {
	var buf bytes.Buffer
	parent := New("inherited", &buf)

	child := parent.GetChildLogger()
	assert.NotSame(t, parent, child)
	child.Info().Msg("child message")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "inherited", entry["role"])
}

// TestFromContext_RoundTrip verifies that a logger attached with WithContext
// is recovered by FromContext, and that a bare context still yields a logger.
func TestFromContext_RoundTrip(t *testing.T) {
	bare := FromContext(context.Background())
	require.NotNil(t, bare)
	assert.Equal(t, zerolog.Disabled, bare.GetLevel())

	var buf bytes.Buffer
	l := New("ctx", &buf)
	ctx := l.WithContext(context.Background())

	FromContext(ctx).Info().Msg("from context")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ctx", entry["role"])
}
