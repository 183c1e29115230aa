package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/PageWing/internal/assemble"
	"github.com/josephgoksu/PageWing/internal/attachments"
	"github.com/josephgoksu/PageWing/internal/extract"
	"github.com/josephgoksu/PageWing/internal/fileset"
	"github.com/josephgoksu/PageWing/internal/ledger"
	"github.com/josephgoksu/PageWing/internal/llm"
	"github.com/josephgoksu/PageWing/internal/notify"
	"github.com/josephgoksu/PageWing/internal/publish"
	"github.com/josephgoksu/PageWing/internal/telemetry"
)

type fakeModel struct {
	replies      []string
	err          error
	instructions []string
}

func (f *fakeModel) Complete(_ context.Context, instruction string) (string, error) {
	f.instructions = append(f.instructions, instruction)
	if f.err != nil {
		return "", f.err
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

type fakeDispatcher struct {
	mu       sync.Mutex
	payloads []notify.Payload
	urls     []string
}

func (f *fakeDispatcher) Dispatch(url string, p notify.Payload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	f.payloads = append(f.payloads, p)
}

type recordingTelemetry struct {
	events []string
	props  []telemetry.Properties
}

func (r *recordingTelemetry) Track(event string, props map[string]any) {
	r.events = append(r.events, event)
	r.props = append(r.props, props)
}

func (r *recordingTelemetry) Close() error { return nil }

type fixture struct {
	runner   *Runner
	store    *publish.MemoryStore
	ledger   ledger.Ledger
	model    *fakeModel
	notifier *fakeDispatcher
	tel      *recordingTelemetry
}

func newFixture(t *testing.T, replies ...string) *fixture {
	t.Helper()
	f := &fixture{
		store:    publish.NewMemoryStore("octo"),
		ledger:   ledger.NewFileLedger(afero.NewMemMapFs(), ledger.DefaultFilePath),
		model:    &fakeModel{replies: replies},
		notifier: &fakeDispatcher{},
		tel:      &recordingTelemetry{},
	}
	f.runner = New(Deps{
		Ledger:    f.ledger,
		Store:     f.store,
		Model:     f.model,
		Notifier:  f.notifier,
		Telemetry: f.tel,
	})
	return f
}

func (f *fixture) tip(t *testing.T, name string) fileset.Set {
	t.Helper()
	revs := f.store.Revisions(name)
	require.NotEmpty(t, revs)
	return revs[len(revs)-1].Files
}

const counterReply = `{"index.html": "<!DOCTYPE html><html><body><button>+</button></body></html>", "README.md": "# Counter"}`

func TestRun_RoundOneCreatesSite(t *testing.T) {
	f := newFixture(t, counterReply)

	res, err := f.runner.Run(context.Background(), Request{
		Email:         "student@example.com",
		Task:          "counter-1",
		Round:         1,
		Nonce:         "n-1",
		Brief:         "counter app",
		Checks:        []string{"must have a button"},
		EvaluationURL: "https://eval.example.com/notify",
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "Successfully processed round 1", res.Message)
	assert.Equal(t, "https://github.com/octo/counter-1", res.RepoURL)
	assert.Equal(t, "https://octo.github.io/counter-1/", res.PagesURL)

	files := f.tip(t, "counter-1")
	assert.True(t, files.Has(fileset.EntryPoint))
	assert.True(t, files.Has(fileset.License))
	assert.False(t, files.Has(fileset.Manifest))
	assert.True(t, f.store.Serving("counter-1"))

	revs := f.store.Revisions("counter-1")
	require.Len(t, revs, 1)
	assert.Equal(t, "Round 1: counter app", revs[0].Message)
	assert.Equal(t, res.CommitSHA, revs[0].ID)

	entry, ok, err := f.ledger.Get(context.Background(), "counter-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, entry.LastRound)
	assert.Equal(t, res.CommitSHA, entry.CommitSHA)

	require.Len(t, f.notifier.payloads, 1)
	assert.Equal(t, "https://eval.example.com/notify", f.notifier.urls[0])
	assert.Equal(t, notify.Payload{
		Email:     "student@example.com",
		Task:      "counter-1",
		Round:     1,
		Nonce:     "n-1",
		RepoURL:   res.RepoURL,
		CommitSHA: res.CommitSHA,
		PagesURL:  res.PagesURL,
	}, f.notifier.payloads[0])

	assert.Equal(t, []string{telemetry.EventRoundCompleted}, f.tel.events)
}

func TestRun_LedgerMissTouchesNothing(t *testing.T) {
	f := newFixture(t, counterReply)

	_, err := f.runner.Run(context.Background(), Request{Task: "unknown", Round: 2, Brief: "more"})

	require.ErrorIs(t, err, ErrLedgerMiss)
	assert.Equal(t, KindClient, Classify(err))
	assert.Zero(t, f.store.Calls(), "store must not be called")
	assert.Empty(t, f.model.instructions, "model must not be called")
	assert.Empty(t, f.notifier.payloads)
	assert.Equal(t, []string{telemetry.EventRoundFailed}, f.tel.events)
	assert.Equal(t, string(KindClient), f.tel.props[0]["error_kind"])
}

func TestRun_RepairsTruncatedEntryPoint(t *testing.T) {
	f := newFixture(t, `{"index.html": "<html><body>Hi</body>"}`)

	_, err := f.runner.Run(context.Background(), Request{Task: "hi", Round: 1, Brief: "hello"})
	require.NoError(t, err)

	html := f.tip(t, "hi")[fileset.EntryPoint]
	assert.True(t, strings.HasSuffix(html, "</html>"), "got %q", html)
}

func TestRun_RoundTwoCarriesForward(t *testing.T) {
	f := newFixture(t,
		`{"index.html": "<html><body>v1</body></html>", "style.css": "body{}", "README.md": "# v1"}`,
		`{"index.html": "<html><body>v2</body></html>", "app.js": "console.log(1)"}`,
	)
	ctx := context.Background()

	_, err := f.runner.Run(ctx, Request{
		Task:        "carry",
		Round:       1,
		Brief:       "first",
		Attachments: []attachments.Attachment{{Name: "a.txt", URL: "data:text/plain;base64,SGk="}},
	})
	require.NoError(t, err)

	res, err := f.runner.Run(ctx, Request{
		Task:        "carry",
		Round:       2,
		Brief:       "second",
		Checks:      []string{"Repo is PUBLIC"},
		Attachments: []attachments.Attachment{{Name: "b.txt", URL: "data:text/plain;base64,SG8="}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Successfully processed round 2", res.Message)

	files := f.tip(t, "carry")
	assert.Equal(t, "<html><body>v2</body></html>", files[fileset.EntryPoint])
	assert.Equal(t, "body{}", files["style.css"])
	assert.Equal(t, "# v1", files[fileset.Documentation])
	assert.Equal(t, "console.log(1)", files["app.js"])
	assert.Contains(t, files[fileset.Manifest], `"a.txt"`)
	assert.Contains(t, files[fileset.Manifest], `"b.txt"`)
	assert.Len(t, f.store.Revisions("carry"), 2)

	// round 2 is a modification of the prior round's code, manifest excluded
	require.Len(t, f.model.instructions, 2)
	second := f.model.instructions[1]
	assert.Contains(t, second, "=== style.css ===")
	assert.NotContains(t, second, "=== attachments.js ===")
	assert.Contains(t, second, "a.txt")
	assert.Contains(t, second, "b.txt")

	entry, ok, err := f.ledger.Get(ctx, "carry")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, entry.LastRound)
}

func TestRun_RoundOneReplacesExistingDestination(t *testing.T) {
	f := newFixture(t, counterReply)
	ctx := context.Background()

	_, err := f.runner.Run(ctx, Request{Task: "again", Round: 1, Brief: "one"})
	require.NoError(t, err)
	_, err = f.runner.Run(ctx, Request{Task: "again", Round: 1, Brief: "one again"})
	require.NoError(t, err)

	revs := f.store.Revisions("again")
	require.Len(t, revs, 1, "round 1 starts a fresh history")
	assert.Equal(t, "Round 1: one again", revs[0].Message)
}

func TestRun_PublicCheckOnlyForcesPublic(t *testing.T) {
	f := newFixture(t, counterReply)
	ctx := context.Background()

	_, err := f.runner.Run(ctx, Request{Task: "vis", Round: 1, Brief: "b"})
	require.NoError(t, err)

	f.store.SetPrivate("vis", true)
	_, err = f.runner.Run(ctx, Request{Task: "vis", Round: 2, Brief: "b", Checks: []string{"keep it private"}})
	require.NoError(t, err)
	assert.True(t, f.store.Private("vis"), "nothing forces private, nothing undoes it either")

	_, err = f.runner.Run(ctx, Request{Task: "vis", Round: 3, Brief: "b", Checks: []string{"Repository must be public"}})
	require.NoError(t, err)
	assert.False(t, f.store.Private("vis"))
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
		want  error
		kind  Kind
	}{
		{
			name:  "truncated generation",
			model: &fakeModel{err: llm.ErrTruncatedGeneration},
			want:  llm.ErrTruncatedGeneration,
			kind:  KindGeneration,
		},
		{
			name:  "unparsable reply",
			model: &fakeModel{replies: []string{"I cannot help with that."}},
			want:  extract.ErrUnparsableGeneration,
			kind:  KindGeneration,
		},
		{
			name:  "missing entry point",
			model: &fakeModel{replies: []string{`{"app.js": "x"}`}},
			want:  assemble.ErrMissingEntryPoint,
			kind:  KindGeneration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.runner.deps.Model = tt.model

			_, err := f.runner.Run(context.Background(), Request{Task: "fail", Round: 1, Brief: "b", EvaluationURL: "https://e.example.com"})

			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.kind, Classify(err))
			assert.Empty(t, f.store.Revisions("fail"), "no revision on failure")
			assert.Empty(t, f.notifier.payloads, "no notification on failure")
			_, ok, _ := f.ledger.Get(context.Background(), "fail")
			assert.False(t, ok)
		})
	}
}

func TestRun_SkipsNotificationWithoutURL(t *testing.T) {
	f := newFixture(t, counterReply)

	_, err := f.runner.Run(context.Background(), Request{Task: "quiet", Round: 1, Brief: "b"})
	require.NoError(t, err)
	assert.Empty(t, f.notifier.payloads)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{ErrLedgerMiss, KindClient},
		{llm.ErrGenerationUnavailable, KindGeneration},
		{&extract.UnparsableError{Preview: "x"}, KindGeneration},
		{publish.ErrPublicationFailed, KindPublication},
		{errors.New("disk full"), KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), "%v", tt.err)
	}
}
