package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Ledger {
	t.Helper()

	sqlite, err := NewSQLiteLedger(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Ledger{
		"file":   NewFileLedger(afero.NewMemMapFs(), "/data/state.json"),
		"sqlite": sqlite,
	}
}

func TestLedger_GetPutList(t *testing.T) {
	ctx := context.Background()
	stamp := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := l.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			first := Entry{
				Task:      "counter-1",
				RepoName:  "counter-1",
				RepoURL:   "https://github.com/octo/counter-1",
				CommitSHA: "aaa",
				PagesURL:  "https://octo.github.io/counter-1/",
				LastRound: 1,
				UpdatedAt: stamp,
			}
			require.NoError(t, l.Put(ctx, first))

			got, ok, err := l.Get(ctx, "counter-1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, first, got)

			// whole-entry upsert, last writer wins
			second := first
			second.CommitSHA = "bbb"
			second.LastRound = 2
			require.NoError(t, l.Put(ctx, second))

			got, _, err = l.Get(ctx, "counter-1")
			require.NoError(t, err)
			assert.Equal(t, second, got)

			require.NoError(t, l.Put(ctx, Entry{Task: "alpha", RepoName: "alpha", LastRound: 1, UpdatedAt: stamp}))

			all, err := l.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "alpha", all[0].Task)
			assert.Equal(t, "counter-1", all[1].Task)
		})
	}
}

func TestLedger_PutRequiresTask(t *testing.T) {
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, l.Put(context.Background(), Entry{RepoName: "x"}))
		})
	}
}

func TestFileLedger_ReadsLegacyStateFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	legacy := `{
  "weather-app": {
    "repo_name": "weather-app",
    "repo_url": "https://github.com/octo/weather-app",
    "commit_sha": "abc123",
    "pages_url": "https://octo.github.io/weather-app/",
    "last_round": 2
  }
}`
	require.NoError(t, afero.WriteFile(fs, "state.json", []byte(legacy), 0o644))

	e, ok, err := NewFileLedger(fs, "").Get(context.Background(), "weather-app")

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "weather-app", e.Task)
	assert.Equal(t, "abc123", e.CommitSHA)
	assert.Equal(t, 2, e.LastRound)
}

func TestFileLedger_CorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "state.json", []byte("{not json"), 0o644))

	_, _, err := NewFileLedger(fs, "state.json").Get(context.Background(), "x")

	assert.Error(t, err)
}

func TestFileLedger_LeavesNoTempFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := NewFileLedger(fs, "/var/lib/pagewing/state.json")

	require.NoError(t, l.Put(context.Background(), Entry{Task: "a", LastRound: 1}))
	require.NoError(t, l.Put(context.Background(), Entry{Task: "b", LastRound: 1}))

	matches, err := afero.Glob(fs, "/var/lib/pagewing/*")
	require.NoError(t, err)
	assert.Equal(t, []string{"/var/lib/pagewing/state.json"}, matches)
}

func TestSQLiteLedger_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	l, err := NewSQLiteLedger(path)
	require.NoError(t, err)
	require.NoError(t, l.Put(ctx, Entry{Task: "t", RepoName: "t", LastRound: 3}))
	require.NoError(t, l.Close())

	l, err = NewSQLiteLedger(path)
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	e, ok, err := l.Get(ctx, "t")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, e.LastRound)
	assert.False(t, e.UpdatedAt.IsZero())
}

func TestOpen(t *testing.T) {
	l, err := Open(Config{Driver: DriverFile, Path: "state.json"}, afero.NewMemMapFs())
	require.NoError(t, err)
	assert.IsType(t, &FileLedger{}, l)

	l, err = Open(Config{Driver: DriverSQLite, Path: ":memory:"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteLedger{}, l)
	require.NoError(t, l.Close())

	_, err = Open(Config{Driver: "redis"}, nil)
	assert.Error(t, err)
}
