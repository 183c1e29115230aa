package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// DefaultFilePath matches the state file written by earlier deployments.
const DefaultFilePath = "state.json"

// FileLedger stores every entry in one JSON document keyed by task name.
type FileLedger struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewFileLedger creates a ledger backed by path on fs.
func NewFileLedger(fs afero.Fs, path string) *FileLedger {
	if path == "" {
		path = DefaultFilePath
	}
	return &FileLedger{fs: fs, path: path}
}

func (l *FileLedger) load() (map[string]Entry, error) {
	data, err := afero.ReadFile(l.fs, l.path)
	if os.IsNotExist(err) {
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	state := map[string]Entry{}
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse ledger %s: %w", l.path, err)
	}
	for task, e := range state {
		e.Task = task
		state[task] = e
	}
	return state, nil
}

// save writes state to a temp file and renames it over the ledger.
func (l *FileLedger) save(state map[string]Entry) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := l.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	tmp, err := afero.TempFile(l.fs, dir, ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = l.fs.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = l.fs.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = l.fs.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := l.fs.Rename(tmpName, l.path); err != nil {
		_ = l.fs.Remove(tmpName)
		return fmt.Errorf("rename ledger: %w", err)
	}
	return nil
}

func (l *FileLedger) Get(_ context.Context, task string) (Entry, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load()
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := state[task]
	return e, ok, nil
}

func (l *FileLedger) Put(_ context.Context, e Entry) error {
	if e.Task == "" {
		return fmt.Errorf("ledger entry has no task name")
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load()
	if err != nil {
		return err
	}
	state[e.Task] = e
	return l.save(state)
}

func (l *FileLedger) List(_ context.Context) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(state))
	for _, e := range state {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Task < out[j].Task })
	return out, nil
}

func (l *FileLedger) Close() error { return nil }
