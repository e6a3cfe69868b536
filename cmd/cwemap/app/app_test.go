package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/cwemap"
	"github.com/agentstation/cwemap/internal/cmd/application"
	"github.com/agentstation/cwemap/internal/cmd/cmdtest"
	"github.com/agentstation/cwemap/pkg/catalog"
	"github.com/agentstation/cwemap/pkg/version"
)

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	isolate(t)
	logger := zerolog.Nop()
	opts = append([]Option{
		WithConfig(&Config{DataDir: filepath.Join(t.TempDir(), "cwe"), LogFormat: "json", LogOutput: "discard"}),
		WithLogger(&logger),
	}, opts...)
	a, err := New("1.0.0", "abc123", "2025-01-01", "test", opts...)
	require.NoError(t, err)
	return a
}

// execute runs the root command and returns its standard output.
func execute(t *testing.T, a *App, args ...string) (string, error) {
	t.Helper()
	root := a.createRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNew(t *testing.T) {
	a := newTestApp(t)

	assert.Equal(t, "1.0.0", a.Version())
	assert.Equal(t, "abc123", a.Commit())
	assert.Equal(t, "2025-01-01", a.Date())
	assert.Equal(t, "test", a.BuiltBy())
	assert.NotNil(t, a.Logger())
	assert.NotNil(t, a.Config())
}

func TestClientSingleton(t *testing.T) {
	a := newTestApp(t)

	const goroutines = 50
	var wg sync.WaitGroup
	clients := make([]application.Client, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			c, err := a.Client()
			assert.NoError(t, err)
			clients[idx] = c
		}(i)
	}
	wg.Wait()

	for _, c := range clients[1:] {
		assert.Same(t, clients[0], c)
	}
	assert.Equal(t, a.Config().DataDir, clients[0].DataDir())

	custom, err := a.Client(cwemap.WithCacheSize(8))
	require.NoError(t, err)
	assert.NotSame(t, clients[0], custom, "options create a new client")
}

func TestVersionProvider(t *testing.T) {
	a := newTestApp(t)
	assert.NotNil(t, a.VersionProvider())

	b := newTestApp(t, WithVersionProvider(version.Static("4.16")))
	v, err := b.VersionProvider().RemoteVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4.16", v)
}

func TestExecute(t *testing.T) {
	client := cmdtest.InstalledClient(t)
	a := newTestApp(t, WithClient(client))

	t.Run("get", func(t *testing.T) {
		out, err := execute(t, a, "get", "CWE-79", "-o", "json")
		require.NoError(t, err)

		var e catalog.Entity
		require.NoError(t, json.Unmarshal([]byte(out), &e))
		assert.Equal(t, "79", e.ID)
		assert.Equal(t, catalog.GroupWeakness, e.Group)
	})

	t.Run("list", func(t *testing.T) {
		out, err := execute(t, a, "list", "weaknesses", "--exclude-status", "deprecated", "--format", "json")
		require.NoError(t, err)

		var entities []catalog.Entity
		require.NoError(t, json.Unmarshal([]byte(out), &entities))
		assert.Len(t, entities, 2)
	})

	t.Run("version", func(t *testing.T) {
		out, err := execute(t, a, "version")
		require.NoError(t, err)
		assert.Equal(t, "cwemap 1.0.0\n", out)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := execute(t, a, "status", "-o", "xml")
		require.Error(t, err)
	})

	t.Run("unknown command", func(t *testing.T) {
		_, err := execute(t, a, "frobnicate")
		require.Error(t, err)
	})
}

func TestExecuteConfigFlag(t *testing.T) {
	a := newTestApp(t)
	dir := filepath.Join(t.TempDir(), "from-config")
	path := filepath.Join(t.TempDir(), "cwemap.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: "+dir+"\nlog_output: discard\n"), 0o644))

	out, err := execute(t, a, "status", "--config", path, "-o", "json")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, dir), "status should report %s: %s", dir, out)
}

func TestWriteMetrics(t *testing.T) {
	a := newTestApp(t)
	a.config.MetricsFile = filepath.Join(t.TempDir(), "cwemap.prom")

	c, err := a.Client(cwemap.WithSource(&cmdtest.Source{Doc: cmdtest.Document("4.16")}))
	require.NoError(t, err)
	_, err = c.Update(context.Background())
	require.NoError(t, err)

	require.NoError(t, a.WriteMetrics())
	data, err := os.ReadFile(a.config.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `cwemap_builds_total{result="success"} 1`)
	assert.Contains(t, string(data), `cwemap_catalog_info{version="4.16"} 1`)

	a.config.MetricsFile = ""
	assert.NoError(t, a.WriteMetrics())
}
