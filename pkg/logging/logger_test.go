package logging_test

import (
	"context"
	"testing"

	"github.com/agentstation/cwemap/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogger(t *testing.T) {
	require.NotNil(t, logging.Default())

	tl := logging.CaptureLoggingForTest(t)
	logging.Default().Info().Str("group", "weakness").Int("count", 3).Msg("Indexed entities")
	logging.FromContext(context.Background()).Warn().Msg("Dangling edge")

	assert.Equal(t, 2, tl.Count())
	assert.True(t, tl.Contains(`"group":"weakness"`))
	assert.True(t, tl.Contains("Dangling edge"))
}

func TestDisableLoggingForTest(t *testing.T) {
	logging.DisableLoggingForTest(t)
	// Nop logger must not panic and must accept events.
	logging.Default().Error().Msg("discarded")
}

func TestContextHelpers(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)

	ctx = logging.WithBuildID(ctx, "b-123")
	ctx = logging.WithOperation(ctx, "update")
	ctx = logging.WithGroup(ctx, "category")
	ctx = logging.WithEntity(ctx, "700")
	ctx = logging.WithSource(ctx, "https://cwe.mitre.org")
	ctx = logging.WithField(ctx, "attempt", 1)

	logging.FromContext(ctx).Info().Msg("linking")

	line := tl.Output()
	for _, want := range []string{
		`"build_id":"b-123"`,
		`"operation":"update"`,
		`"group":"category"`,
		`"entity_id":"700"`,
		`"source":"https://cwe.mitre.org"`,
		`"attempt":1`,
	} {
		assert.Contains(t, line, want)
	}
	assert.Equal(t, "b-123", logging.BuildID(ctx))
}

func TestFromContextFallbacks(t *testing.T) {
	assert.Equal(t, logging.Default(), logging.FromContext(context.Background()))
	//nolint:staticcheck // nil context is handled explicitly
	assert.Equal(t, logging.Default(), logging.FromContext(nil))
	assert.Equal(t, "", logging.BuildID(context.Background()))

	ctx := logging.WithLogger(context.Background(), nil)
	assert.Equal(t, logging.Default(), logging.FromContext(ctx))
}

func TestTestLogger(t *testing.T) {
	tl := logging.NewTestLogger(t)
	assert.Empty(t, tl.Lines())

	tl.Debug().Msg("one")
	tl.Trace().Msg("two")
	assert.Equal(t, 2, tl.Count())

	tl.Clear()
	assert.Equal(t, 0, tl.Count())
}
