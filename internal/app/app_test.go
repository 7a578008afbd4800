package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/searchive/searchive/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Config{}
	cfg.Archive.Root = t.TempDir()
	cfg.Archive.Provider = "memory"
	cfg.Search.APIKey = "test-token"
	cfg.Search.RequestsPerSecond = 10
	cfg.Search.DefaultCount = 5
	cfg.Extract.TimeoutSeconds = 5
	cfg.Extract.MaxTextLength = 1000
	cfg.Extract.Concurrency = 2
	cfg.Server.Port = 8080
	return cfg
}

func TestBuildWiresLocalServices(t *testing.T) {
	cfg := testConfig(t)

	a, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Logger())
	require.NotNil(t, a.Session())
	require.NotNil(t, a.Archive())
	require.Equal(t, cfg.Archive.Root, a.Config().Archive.Root)
	require.Zero(t, a.Archive().URLCount())
}

func TestBuildRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Search.APIKey = ""
	_, err := Build(context.Background(), cfg)
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.Archive.Provider = "tape"
	_, err = Build(context.Background(), cfg)
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.Search.RequestsPerSecond = 0
	_, err = Build(context.Background(), cfg)
	require.Error(t, err)
}
