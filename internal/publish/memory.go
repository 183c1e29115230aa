package publish

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/josephgoksu/PageWing/internal/fileset"
)

// Revision is one commit recorded by a MemoryStore.
type Revision struct {
	ID      string
	Parent  string
	Message string
	Files   fileset.Set
}

type memoryRepo struct {
	repo      Repo
	revisions []Revision
	serving   bool
}

// MemoryStore is an in-process Store used for dry runs and tests.
type MemoryStore struct {
	owner string
	calls atomic.Int64

	mu    sync.Mutex
	repos map[string]*memoryRepo
}

// NewMemoryStore creates an empty store whose URLs use owner.
func NewMemoryStore(owner string) *MemoryStore {
	return &MemoryStore{owner: owner, repos: make(map[string]*memoryRepo)}
}

// Calls reports how many Store methods touching content have been invoked.
func (m *MemoryStore) Calls() int64 { return m.calls.Load() }

// Revisions returns the history of name, oldest first.
func (m *MemoryStore) Revisions(name string) []Revision {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.repos[name]
	if !ok {
		return nil
	}
	return append([]Revision(nil), r.revisions...)
}

// Serving reports whether ActivateServing was called for name.
func (m *MemoryStore) Serving(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.repos[name]
	return ok && r.serving
}

// SetPrivate flips the visibility of an existing repo.
func (m *MemoryStore) SetPrivate(name string, private bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.repos[name]; ok {
		r.repo.Private = private
	}
}

// Private reports the visibility of name.
func (m *MemoryStore) Private(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.repos[name]
	return ok && r.repo.Private
}

func (m *MemoryStore) lookup(name string) (*memoryRepo, error) {
	r, ok := m.repos[name]
	if !ok {
		return nil, fmt.Errorf("%w: repository %s/%s not found", ErrPublicationFailed, m.owner, name)
	}
	return r, nil
}

func (m *MemoryStore) Exists(_ context.Context, name string) (bool, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.repos[name]
	return ok, nil
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.repos, name)
	return nil
}

func (m *MemoryStore) Create(_ context.Context, name string) (*Repo, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.repos[name]; ok {
		return nil, fmt.Errorf("%w: repository %s already exists", ErrPublicationFailed, name)
	}
	r := &memoryRepo{repo: Repo{Owner: m.owner, Name: name, DefaultBranch: defaultBranch}}
	m.repos[name] = r
	repo := r.repo
	return &repo, nil
}

func (m *MemoryStore) Get(_ context.Context, name string) (*Repo, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	repo := r.repo
	return &repo, nil
}

func (m *MemoryStore) ReadAll(_ context.Context, repo *Repo) (fileset.Set, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.lookup(repo.Name)
	if err != nil {
		return nil, err
	}
	if len(r.revisions) == 0 {
		return fileset.Set{}, nil
	}
	return r.revisions[len(r.revisions)-1].Files.Clone(), nil
}

func (m *MemoryStore) WriteRevision(_ context.Context, repo *Repo, files fileset.Set, message string) (string, error) {
	m.calls.Add(1)
	if len(files) == 0 {
		return "", fmt.Errorf("%w: no files to write", ErrPublicationFailed)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.lookup(repo.Name)
	if err != nil {
		return "", err
	}

	tree := fileset.Set{}
	parent := ""
	if n := len(r.revisions); n > 0 {
		tree = r.revisions[n-1].Files.Clone()
		parent = r.revisions[n-1].ID
	}
	tree = tree.Overlay(files)

	rev := Revision{
		ID:      revisionID(parent, message, tree),
		Parent:  parent,
		Message: message,
		Files:   tree,
	}
	r.revisions = append(r.revisions, rev)
	return rev.ID, nil
}

func (m *MemoryStore) ActivateServing(_ context.Context, repo *Repo) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.lookup(repo.Name)
	if err != nil {
		return err
	}
	r.serving = true
	return nil
}

func (m *MemoryStore) EnsurePublic(_ context.Context, repo *Repo) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.lookup(repo.Name)
	if err != nil {
		return err
	}
	r.repo.Private = false
	repo.Private = false
	return nil
}

func (m *MemoryStore) CanonicalURL(name string) string {
	return fmt.Sprintf(canonicalURLFormat, githubHost, m.owner, name)
}

func (m *MemoryStore) SiteURL(name string) string {
	return fmt.Sprintf(pagesHostTemplate, m.owner, name)
}

// revisionID hashes the revision like git does: parent, message and tree content.
func revisionID(parent, message string, tree fileset.Set) string {
	h := sha1.New()
	fmt.Fprintf(h, "parent %s\n%s\n", parent, message)
	for _, p := range tree.Paths() {
		fmt.Fprintf(h, "%s\x00%s\x00", p, tree[p])
	}
	return hex.EncodeToString(h.Sum(nil))
}
