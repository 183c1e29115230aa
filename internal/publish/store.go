// Package publish writes assembled file sets to a content store as single
// revisions and activates public serving of the result.
package publish

import (
	"context"
	"errors"
	"time"

	"github.com/josephgoksu/PageWing/internal/fileset"
)

// ErrPublicationFailed wraps every content-store failure.
var ErrPublicationFailed = errors.New("publication failed")

// Repo is a handle to a destination in the content store.
type Repo struct {
	Owner         string
	Name          string
	DefaultBranch string
	Private       bool
}

// Store is the content-hosting collaborator used by a round.
type Store interface {
	Exists(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error
	Create(ctx context.Context, name string) (*Repo, error)
	Get(ctx context.Context, name string) (*Repo, error)
	// ReadAll returns every UTF-8 file on the repo's branch tip.
	ReadAll(ctx context.Context, repo *Repo) (fileset.Set, error)
	// WriteRevision makes files the content of the branch tip in exactly one
	// caller-visible revision and returns its id.
	WriteRevision(ctx context.Context, repo *Repo, files fileset.Set, message string) (string, error)
	// ActivateServing enables static-site serving. Already active is not an error.
	ActivateServing(ctx context.Context, repo *Repo) error
	EnsurePublic(ctx context.Context, repo *Repo) error
	CanonicalURL(name string) string
	SiteURL(name string) string
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
