package envconfig

import (
	"log/slog"
	"testing"

	"github.com/jmorganca/modalfusion/logutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	t.Setenv("MODALFUSION_DEBUG", "")
	LoadConfig()
	require.False(t, Debug)
	t.Setenv("MODALFUSION_DEBUG", "false")
	LoadConfig()
	require.False(t, Debug)
	t.Setenv("MODALFUSION_DEBUG", "1")
	LoadConfig()
	require.True(t, Debug)
	t.Setenv("MODALFUSION_DEBUG", "yes please")
	LoadConfig()
	require.True(t, Debug)
}

func TestSeed(t *testing.T) {
	cases := map[string]uint64{
		"":        0,
		"42":      42,
		" \"7\" ": 7,
		"-1":      0,
		"abc":     0,
	}

	for value, want := range cases {
		t.Run(value, func(t *testing.T) {
			t.Setenv("MODALFUSION_SEED", value)
			LoadConfig()
			assert.Equal(t, want, Seed)
		})
	}
}

func TestLogLevel(t *testing.T) {
	t.Setenv("MODALFUSION_DEBUG", "")
	t.Setenv("MODALFUSION_TRACE", "")
	LoadConfig()
	assert.Equal(t, slog.LevelInfo, LogLevel())

	t.Setenv("MODALFUSION_DEBUG", "1")
	LoadConfig()
	assert.Equal(t, slog.LevelDebug, LogLevel())

	t.Setenv("MODALFUSION_TRACE", "1")
	LoadConfig()
	assert.Equal(t, logutil.LevelTrace, LogLevel())
}

func TestParamsPath(t *testing.T) {
	t.Setenv("MODALFUSION_PARAMS", "'/tmp/params.yaml'")
	LoadConfig()
	assert.Equal(t, "/tmp/params.yaml", ParamsPath)
}
