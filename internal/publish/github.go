package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/go-github/v68/github"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/josephgoksu/PageWing/internal/fileset"
)

const (
	defaultBranch      = "main"
	defaultPagesWait   = 5 * time.Second
	defaultDeleteWait  = 2 * time.Second
	blobFetchLimit     = 8
	fileMode           = "100644"
	repoDescription    = "Auto-generated project"
	githubHost         = "https://github.com"
	pagesHostTemplate  = "https://%s.github.io/%s/"
	canonicalURLFormat = "%s/%s/%s"
)

// GitHubConfig configures a GitHubStore.
type GitHubConfig struct {
	Token  string
	Owner  string
	Branch string
	// PagesWait is how long to let Pages activation propagate.
	PagesWait time.Duration
	// DeleteWait lets a deletion settle before the name is reused.
	DeleteWait time.Duration
	// BaseURL overrides the API endpoint (GitHub Enterprise, tests).
	BaseURL string
}

// GitHubStore implements Store on top of the GitHub REST API.
type GitHubStore struct {
	client *github.Client
	cfg    GitHubConfig
	log    *zap.Logger
}

// NewGitHubStore creates a store authenticated with cfg.Token.
func NewGitHubStore(cfg GitHubConfig, log *zap.Logger) (*GitHubStore, error) {
	if cfg.Token == "" {
		return nil, errors.New("github token is required")
	}
	if cfg.Owner == "" {
		return nil, errors.New("github owner is required")
	}
	if cfg.Branch == "" {
		cfg.Branch = defaultBranch
	}
	if log == nil {
		log = zap.NewNop()
	}

	client := github.NewClient(nil).WithAuthToken(cfg.Token)
	if cfg.BaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		client.BaseURL = base
	}

	return &GitHubStore{client: client, cfg: cfg, log: log}, nil
}

// DefaultGitHubConfig returns the waits used against github.com.
func DefaultGitHubConfig() GitHubConfig {
	return GitHubConfig{
		Branch:     defaultBranch,
		PagesWait:  defaultPagesWait,
		DeleteWait: defaultDeleteWait,
	}
}

func (s *GitHubStore) Exists(ctx context.Context, name string) (bool, error) {
	_, resp, err := s.client.Repositories.Get(ctx, s.cfg.Owner, name)
	if err != nil {
		if statusOf(resp) == http.StatusNotFound {
			return false, nil
		}
		return false, wrap("get repository", err)
	}
	return true, nil
}

func (s *GitHubStore) Delete(ctx context.Context, name string) error {
	resp, err := s.client.Repositories.Delete(ctx, s.cfg.Owner, name)
	if err != nil {
		if statusOf(resp) == http.StatusNotFound {
			return nil
		}
		return wrap("delete repository", err)
	}
	s.log.Info("deleted repository", zap.String("repo", name))
	return sleep(ctx, s.cfg.DeleteWait)
}

func (s *GitHubStore) Create(ctx context.Context, name string) (*Repo, error) {
	repo, _, err := s.client.Repositories.Create(ctx, "", &github.Repository{
		Name:        github.Ptr(name),
		Description: github.Ptr(repoDescription),
		Private:     github.Ptr(false),
		AutoInit:    github.Ptr(false),
	})
	if err != nil {
		return nil, wrap("create repository", err)
	}
	s.log.Info("created public repository", zap.String("repo", name))
	return s.toRepo(repo), nil
}

func (s *GitHubStore) Get(ctx context.Context, name string) (*Repo, error) {
	repo, _, err := s.client.Repositories.Get(ctx, s.cfg.Owner, name)
	if err != nil {
		return nil, wrap("get repository", err)
	}
	return s.toRepo(repo), nil
}

func (s *GitHubStore) toRepo(r *github.Repository) *Repo {
	owner := r.GetOwner().GetLogin()
	if owner == "" {
		owner = s.cfg.Owner
	}
	return &Repo{
		Owner:         owner,
		Name:          r.GetName(),
		DefaultBranch: s.cfg.Branch,
		Private:       r.GetPrivate(),
	}
}

// tip returns the branch head commit, or "" when the branch has no commits.
// GitHub answers 409 for a repository without any commits and 404 for a
// missing branch.
func (s *GitHubStore) tip(ctx context.Context, repo *Repo) (string, error) {
	ref, resp, err := s.client.Git.GetRef(ctx, repo.Owner, repo.Name, "refs/heads/"+repo.DefaultBranch)
	if err != nil {
		switch statusOf(resp) {
		case http.StatusNotFound, http.StatusConflict:
			return "", nil
		}
		return "", wrap("get branch ref", err)
	}
	return ref.GetObject().GetSHA(), nil
}

func (s *GitHubStore) ReadAll(ctx context.Context, repo *Repo) (fileset.Set, error) {
	head, err := s.tip(ctx, repo)
	if err != nil {
		return nil, err
	}
	if head == "" {
		return fileset.Set{}, nil
	}

	commit, _, err := s.client.Git.GetCommit(ctx, repo.Owner, repo.Name, head)
	if err != nil {
		return nil, wrap("get commit", err)
	}
	tree, _, err := s.client.Git.GetTree(ctx, repo.Owner, repo.Name, commit.GetTree().GetSHA(), true)
	if err != nil {
		return nil, wrap("get tree", err)
	}
	if tree.GetTruncated() {
		s.log.Warn("tree listing truncated, some files will not be carried forward",
			zap.String("repo", repo.Name))
	}

	var (
		mu    sync.Mutex
		files = fileset.Set{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(blobFetchLimit)

	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		path, sha := entry.GetPath(), entry.GetSHA()
		g.Go(func() error {
			raw, _, err := s.client.Git.GetBlobRaw(gctx, repo.Owner, repo.Name, sha)
			if err != nil {
				return wrap("get blob "+path, err)
			}
			if !utf8.Valid(raw) {
				s.log.Debug("skipping binary file", zap.String("path", path))
				return nil
			}
			mu.Lock()
			files[path] = string(raw)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.log.Debug("read repository files", zap.String("repo", repo.Name), zap.Int("count", len(files)))
	return files, nil
}

func (s *GitHubStore) WriteRevision(ctx context.Context, repo *Repo, files fileset.Set, message string) (string, error) {
	if len(files) == 0 {
		return "", fmt.Errorf("%w: no files to write", ErrPublicationFailed)
	}

	head, err := s.tip(ctx, repo)
	if err != nil {
		return "", err
	}

	paths := files.Paths()
	if head == "" {
		// Git data endpoints reject empty repositories, so the first file goes
		// through the contents API to create the initial commit.
		first := paths[0]
		res, _, err := s.client.Repositories.CreateFile(ctx, repo.Owner, repo.Name, first, &github.RepositoryContentFileOptions{
			Message: github.Ptr(message),
			Content: []byte(files[first]),
			Branch:  github.Ptr(repo.DefaultBranch),
		})
		if err != nil {
			return "", wrap("create initial file", err)
		}
		head = res.Commit.GetSHA()
		paths = paths[1:]
		if len(paths) == 0 {
			return head, nil
		}
	}

	return s.commitTree(ctx, repo, head, files, paths, message)
}

// commitTree layers paths onto the tree of parent, commits once and moves the branch.
func (s *GitHubStore) commitTree(ctx context.Context, repo *Repo, parent string, files fileset.Set, paths []string, message string) (string, error) {
	parentCommit, _, err := s.client.Git.GetCommit(ctx, repo.Owner, repo.Name, parent)
	if err != nil {
		return "", wrap("get parent commit", err)
	}

	entries := make([]*github.TreeEntry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, &github.TreeEntry{
			Path:    github.Ptr(p),
			Mode:    github.Ptr(fileMode),
			Type:    github.Ptr("blob"),
			Content: github.Ptr(files[p]),
		})
	}

	tree, _, err := s.client.Git.CreateTree(ctx, repo.Owner, repo.Name, parentCommit.GetTree().GetSHA(), entries)
	if err != nil {
		return "", wrap("create tree", err)
	}

	commit, _, err := s.client.Git.CreateCommit(ctx, repo.Owner, repo.Name, &github.Commit{
		Message: github.Ptr(message),
		Tree:    &github.Tree{SHA: tree.SHA},
		Parents: []*github.Commit{{SHA: github.Ptr(parent)}},
	}, nil)
	if err != nil {
		return "", wrap("create commit", err)
	}

	_, _, err = s.client.Git.UpdateRef(ctx, repo.Owner, repo.Name, &github.Reference{
		Ref:    github.Ptr("refs/heads/" + repo.DefaultBranch),
		Object: &github.GitObject{SHA: commit.SHA},
	}, false)
	if err != nil {
		return "", wrap("update branch ref", err)
	}

	s.log.Info("committed revision",
		zap.String("repo", repo.Name),
		zap.String("sha", commit.GetSHA()),
		zap.Int("files", len(paths)))
	return commit.GetSHA(), nil
}

func (s *GitHubStore) ActivateServing(ctx context.Context, repo *Repo) error {
	source := &github.PagesSource{
		Branch: github.Ptr(repo.DefaultBranch),
		Path:   github.Ptr("/"),
	}

	_, resp, err := s.client.Repositories.EnablePages(ctx, repo.Owner, repo.Name, &github.Pages{Source: source})
	if err != nil {
		if statusOf(resp) == http.StatusConflict {
			s.log.Debug("pages already enabled", zap.String("repo", repo.Name))
			return nil
		}
		s.log.Debug("enable pages failed, updating source instead", zap.Error(err))
		if _, uerr := s.client.Repositories.UpdatePages(ctx, repo.Owner, repo.Name, &github.PagesUpdate{Source: source}); uerr != nil {
			return wrap("activate pages", errors.Join(err, uerr))
		}
	}

	return sleep(ctx, s.cfg.PagesWait)
}

func (s *GitHubStore) EnsurePublic(ctx context.Context, repo *Repo) error {
	if _, _, err := s.client.Repositories.Edit(ctx, repo.Owner, repo.Name, &github.Repository{
		Private: github.Ptr(false),
	}); err != nil {
		return wrap("make repository public", err)
	}
	repo.Private = false
	return nil
}

func (s *GitHubStore) CanonicalURL(name string) string {
	return fmt.Sprintf(canonicalURLFormat, githubHost, s.cfg.Owner, name)
}

func (s *GitHubStore) SiteURL(name string) string {
	return fmt.Sprintf(pagesHostTemplate, s.cfg.Owner, name)
}

func statusOf(resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}

// wrap tags err as a publication failure and names the rate limit when hit.
func wrap(op string, err error) error {
	var rle *github.RateLimitError
	var abuse *github.AbuseRateLimitError
	switch {
	case errors.As(err, &rle):
		return fmt.Errorf("%w: %s: rate limited until %s: %w", ErrPublicationFailed, op, rle.Rate.Reset.Time.Format(time.RFC3339), err)
	case errors.As(err, &abuse):
		return fmt.Errorf("%w: %s: secondary rate limit: %w", ErrPublicationFailed, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrPublicationFailed, op, err)
}
