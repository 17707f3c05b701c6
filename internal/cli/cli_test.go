package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/artic-select/internal/config"
	"github.com/Sternrassler/artic-select/internal/testutil"
)

// useMock points the configuration at a mock API for the duration of the test.
func useMock(t *testing.T, records int) *testutil.MockArtic {
	t.Helper()
	mock := testutil.NewMockArtic(testutil.Records(1, records))
	t.Cleanup(mock.Close)

	t.Setenv("ARTIC_BASE_URL", mock.URL()+"/api/v1")
	t.Setenv("ARTIC_RATE_LIMIT", "0")
	t.Setenv("ARTIC_LOG_LEVEL", "error")
	return mock
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "browse")
	assert.Contains(t, names, "select")
	assert.Contains(t, names, "serve")
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{"config", "log-level", "log-pretty", "log-file", "redis"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestSelectCmd_JSON(t *testing.T) {
	mock := useMock(t, 40)

	out, _, err := execute(t, "select", "--count", "15", "--json")
	require.NoError(t, err)

	var got selectOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 15, got.Selected)
	assert.Equal(t, 15, got.Added)
	assert.Equal(t, []int{2}, got.FetchedPages)
	assert.Equal(t, "fill_to", got.Policy)
	require.Len(t, got.Records, 15)
	assert.Equal(t, 1, got.Records[0].ID)
	assert.Equal(t, 15, got.Records[14].ID)

	assert.Equal(t, 1, mock.PageRequestCount(1))
	assert.Equal(t, 1, mock.PageRequestCount(2))
}

func TestSelectCmd_StartPage(t *testing.T) {
	useMock(t, 40)

	out, _, err := execute(t, "select", "--count", "5", "--page", "3", "--json")
	require.NoError(t, err)

	var got selectOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Records, 5)
	assert.Equal(t, 25, got.Records[0].ID)
	assert.Empty(t, got.FetchedPages)
}

func TestSelectCmd_Saturated(t *testing.T) {
	useMock(t, 14)

	out, _, err := execute(t, "select", "--count", "30", "--json")
	require.NoError(t, err)

	var got selectOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 14, got.Selected)
	assert.True(t, got.Saturated)
}

func TestSelectCmd_Table(t *testing.T) {
	useMock(t, 40)

	out, _, err := execute(t, "select", "--count", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "Artwork 1")
	assert.Contains(t, out, "Artwork 3")
	assert.NotContains(t, out, "Artwork 4")
	assert.Contains(t, out, "Selected 3 artworks (3 added)")
}

func TestSelectCmd_InvalidFlags(t *testing.T) {
	useMock(t, 40)

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing count", args: []string{"select"}},
		{name: "zero count", args: []string{"select", "--count", "0"}},
		{name: "negative count", args: []string{"select", "--count", "-2"}},
		{name: "invalid page", args: []string{"select", "--count", "2", "--page", "0"}},
		{name: "unknown policy", args: []string{"select", "--count", "2", "--policy", "most"}},
		{name: "unknown log level", args: []string{"select", "--count", "2", "--log-level", "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestSelectCmd_UpstreamFailure(t *testing.T) {
	mock := useMock(t, 40)
	mock.SetPageResponse(2, testutil.NewServerErrorResponse())

	_, _, err := execute(t, "select", "--count", "20", "--json")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bulk selection")
}

func TestSelectCmd_ConfigFile(t *testing.T) {
	useMock(t, 40)
	path := filepath.Join(t.TempDir(), "artic.toml")
	require.NoError(t, os.WriteFile(path, []byte(`bulk_policy = "add_new"`), 0o600))

	out, _, err := execute(t, "select", "--config", path, "--count", "2", "--json")
	require.NoError(t, err)

	var got selectOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "add_new", got.Policy)
}

func TestSelectCmd_LogFile(t *testing.T) {
	useMock(t, 40)
	path := filepath.Join(t.TempDir(), "artic.log")

	_, stderr, err := execute(t, "select", "--count", "2", "--json", "--log-level", "info", "--log-file", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Bulk selection finished")
	assert.NotContains(t, stderr, "Bulk selection finished")
}

func TestSelectCmd_RedisUnreachable(t *testing.T) {
	useMock(t, 40)

	_, _, err := execute(t, "select", "--count", "2", "--redis", "127.0.0.1:1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestSelectCmd_LogFileClosedOnError(t *testing.T) {
	mock := testutil.NewMockArtic(testutil.Records(1, 40))
	t.Cleanup(mock.Close)
	mock.SetPageResponse(1, testutil.NewServerErrorResponse())

	cfg := config.Default()
	cfg.BaseURL = mock.URL() + "/api/v1"
	cfg.RateLimit = 0
	opts := &rootOptions{
		logFile: filepath.Join(t.TempDir(), "artic.log"),
		cfg:     cfg,
	}

	cmd := newSelectCmd(opts)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--count", "5"})

	require.Error(t, cmd.Execute())
	assert.Nil(t, opts.logSink, "log file left open after a failed run")
}
