package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/josephgoksu/PageWing/internal/fileset"
	"github.com/josephgoksu/PageWing/internal/ledger"
	"github.com/josephgoksu/PageWing/internal/publish"
)

func TestLoadRoundFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "round.json", []byte(`{
  "email": "student@example.com",
  "task": "sum-of-sales",
  "round": 2,
  "nonce": "ab12",
  "brief": "Sum the sales column",
  "checks": ["Repo is public"],
  "evaluation_url": "https://eval.example.com/notify",
  "attachments": [{"name": "data.csv", "url": "data:text/csv;base64,YSxiCjEsMgo="}]
}`), 0o644))

	req, err := loadRoundFile(fs, "round.json")
	require.NoError(t, err)

	assert.Equal(t, "sum-of-sales", req.Task)
	assert.Equal(t, 2, req.Round)
	assert.Equal(t, []string{"Repo is public"}, req.Checks)
	require.Len(t, req.Attachments, 1)
	assert.Equal(t, "data.csv", req.Attachments[0].Name)
}

func TestLoadRoundFile_YAMLDefaultsToRoundOne(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "round.yaml", []byte("task: hello\nbrief: Say hello\n"), 0o644))

	req, err := loadRoundFile(fs, "round.yaml")
	require.NoError(t, err)
	assert.Equal(t, 1, req.Round)
	assert.Empty(t, req.EvaluationURL)
}

func TestLoadRoundFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing task", "brief: x\n"},
		{"slash in task", "task: a/b\nbrief: x\n"},
		{"bad attachment", "task: t\nbrief: x\nattachments:\n  - name: a\n    url: not-a-data-uri\n"},
		{"not yaml", "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "r.yaml", []byte(tt.body), 0o644))
			_, err := loadRoundFile(fs, "r.yaml")
			assert.Error(t, err)
		})
	}

	_, err := loadRoundFile(afero.NewMemMapFs(), "absent.json")
	assert.Error(t, err)
}

func TestWriteSite(t *testing.T) {
	ctx := context.Background()
	mem := publish.NewMemoryStore(dryRunOwner)
	repo, err := mem.Create(ctx, "hello")
	require.NoError(t, err)
	_, err = mem.WriteRevision(ctx, repo, fileset.Set{
		"index.html":    "<html></html>",
		"assets/app.js": "console.log(1)",
	}, "Round 1: hello")
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	require.NoError(t, writeSite(fs, "/out", mem, "hello"))

	got, err := afero.ReadFile(fs, "/out/assets/app.js")
	require.NoError(t, err)
	assert.Equal(t, "console.log(1)", string(got))

	assert.Error(t, writeSite(fs, "/out", mem, "unknown"))
}

func TestWriteSite_RejectsEscapingPaths(t *testing.T) {
	ctx := context.Background()
	mem := publish.NewMemoryStore(dryRunOwner)
	repo, err := mem.Create(ctx, "evil")
	require.NoError(t, err)
	_, err = mem.WriteRevision(ctx, repo, fileset.Set{"../x": "nope"}, "Round 1: evil")
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	assert.Error(t, writeSite(fs, "/out", mem, "evil"))
	exists, _ := afero.Exists(fs, "/x")
	assert.False(t, exists)
}

func TestRenderEntries(t *testing.T) {
	entries := []ledger.Entry{{
		Task:      "hello",
		RepoName:  "hello",
		PagesURL:  "https://octo.github.io/hello/",
		CommitSHA: "0123456789",
		LastRound: 1,
		UpdatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}}

	var buf bytes.Buffer
	require.NoError(t, renderEntries(&buf, formatJSON, entries))
	var decoded []ledger.Entry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "hello", decoded[0].Task)

	buf.Reset()
	require.NoError(t, renderEntries(&buf, formatYAML, entries))
	var fromYAML []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, "https://octo.github.io/hello/", fromYAML[0]["pages_url"])

	buf.Reset()
	require.NoError(t, renderEntries(&buf, formatTable, entries))
	assert.Contains(t, buf.String(), "0123456")

	buf.Reset()
	require.NoError(t, renderEntries(&buf, formatTable, nil))
	assert.Contains(t, buf.String(), "No tasks published yet.")
}
