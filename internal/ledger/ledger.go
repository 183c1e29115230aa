// Package ledger records the latest published snapshot of every task.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"
)

// Entry is the durable record of a task's latest successful round.
type Entry struct {
	Task      string    `json:"task" yaml:"task"`
	RepoName  string    `json:"repo_name" yaml:"repo_name"`
	RepoURL   string    `json:"repo_url" yaml:"repo_url"`
	CommitSHA string    `json:"commit_sha" yaml:"commit_sha"`
	PagesURL  string    `json:"pages_url" yaml:"pages_url"`
	LastRound int       `json:"last_round" yaml:"last_round"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Ledger maps task names to entries. Writes replace the whole entry and the
// last writer wins.
type Ledger interface {
	Get(ctx context.Context, task string) (Entry, bool, error)
	Put(ctx context.Context, e Entry) error
	List(ctx context.Context) ([]Entry, error)
	Close() error
}

// Drivers accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Config selects and locates the ledger backend.
type Config struct {
	Driver string
	Path   string
}

// Open returns the ledger described by cfg. fs is only used by the file driver.
func Open(cfg Config, fs afero.Fs) (Ledger, error) {
	switch cfg.Driver {
	case DriverFile, "":
		if fs == nil {
			fs = afero.NewOsFs()
		}
		return NewFileLedger(fs, cfg.Path), nil
	case DriverSQLite:
		return NewSQLiteLedger(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported ledger driver: %s (supported: file, sqlite)", cfg.Driver)
	}
}
