// Package pipeline runs one generation-and-publication round for a task.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/josephgoksu/PageWing/internal/assemble"
	"github.com/josephgoksu/PageWing/internal/attachments"
	"github.com/josephgoksu/PageWing/internal/extract"
	"github.com/josephgoksu/PageWing/internal/fileset"
	"github.com/josephgoksu/PageWing/internal/ledger"
	"github.com/josephgoksu/PageWing/internal/logger"
	"github.com/josephgoksu/PageWing/internal/notify"
	"github.com/josephgoksu/PageWing/internal/prompt"
	"github.com/josephgoksu/PageWing/internal/publish"
	"github.com/josephgoksu/PageWing/internal/telemetry"
)

const publicTrigger = "public"

// Completer produces the model's raw reply for an instruction.
type Completer interface {
	Complete(ctx context.Context, instruction string) (string, error)
}

// Dispatcher delivers completion notices without blocking the round.
type Dispatcher interface {
	Dispatch(url string, p notify.Payload)
}

// Request is one round submitted for a task.
type Request struct {
	Email         string
	Task          string
	Round         int
	Nonce         string
	Brief         string
	Checks        []string
	EvaluationURL string
	Attachments   []attachments.Attachment
}

// Result describes the published revision of a successful round.
type Result struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RepoURL   string `json:"repo_url"`
	CommitSHA string `json:"commit_sha"`
	PagesURL  string `json:"pages_url"`
}

// Deps are the collaborators of a Runner. Notifier and Telemetry are optional.
type Deps struct {
	Ledger     ledger.Ledger
	Store      publish.Store
	Model      Completer
	Reconciler *attachments.Reconciler
	Assembler  *assemble.Assembler
	Notifier   Dispatcher
	Telemetry  telemetry.Client
	Log        *zap.Logger
}

// Runner executes rounds. It does not serialize rounds for the same task;
// callers must hold a per-task lock for the duration of Run.
type Runner struct {
	deps Deps
	log  *zap.Logger
}

// New creates a Runner, filling optional dependencies with no-op defaults.
func New(deps Deps) *Runner {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Reconciler == nil {
		deps.Reconciler = attachments.NewReconciler(deps.Log)
	}
	if deps.Assembler == nil {
		deps.Assembler = assemble.New(deps.Log)
	}
	if deps.Telemetry == nil {
		deps.Telemetry = telemetry.NewNoopClient()
	}
	return &Runner{deps: deps, log: deps.Log}
}

// Run executes a single round and returns the published revision.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	log := r.log.With(zap.String("task", req.Task), zap.Int("round", req.Round))
	logger.SetRound(req.Task, req.Round)

	res, files, err := r.run(ctx, log, req)
	props := telemetry.Properties{
		"round":       req.Round,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		props["error_kind"] = string(Classify(err))
		r.deps.Telemetry.Track(telemetry.EventRoundFailed, props)
		log.Error("round failed", zap.String("kind", string(Classify(err))), zap.Error(err))
		return Result{}, err
	}

	props["files"] = files
	r.deps.Telemetry.Track(telemetry.EventRoundCompleted, props)
	log.Info("round completed",
		zap.String("commit", res.CommitSHA),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

func (r *Runner) run(ctx context.Context, log *zap.Logger, req Request) (Result, int, error) {
	repo, prior, err := r.destination(ctx, log, req)
	if err != nil {
		return Result{}, 0, err
	}

	reconciled := r.deps.Reconciler.Reconcile(prior[fileset.Manifest], req.Attachments)
	log.Debug("reconciled attachments", zap.Strings("names", reconciled.Names))

	instruction := prompt.Build(prompt.Input{
		Brief:           req.Brief,
		Checks:          req.Checks,
		AttachmentNames: reconciled.Names,
		Prior:           prior,
	})
	logger.SetLastInstruction(instruction)

	raw, err := r.deps.Model.Complete(ctx, instruction)
	if err != nil {
		return Result{}, 0, err
	}

	extracted, err := extract.Parse(raw)
	if err != nil {
		return Result{}, 0, err
	}
	log.Debug("extracted files",
		zap.Strings("paths", extracted.Files.Paths()),
		zap.Stringer("strategy", extracted.Strategy))

	files, err := r.deps.Assembler.Assemble(assemble.Input{
		Round:     req.Round,
		Prior:     prior,
		Extracted: extracted.Files,
		Manifest:  reconciled.Manifest,
		Checks:    req.Checks,
		Brief:     req.Brief,
		TaskName:  repo.Name,
	})
	if err != nil {
		return Result{}, 0, err
	}

	sha, err := r.deps.Store.WriteRevision(ctx, repo, files, fmt.Sprintf("Round %d: %s", req.Round, req.Brief))
	if err != nil {
		return Result{}, 0, err
	}

	if err := r.deps.Store.ActivateServing(ctx, repo); err != nil {
		log.Warn("could not activate serving", zap.Error(err))
	}
	if mentions(req.Checks, publicTrigger) {
		if err := r.deps.Store.EnsurePublic(ctx, repo); err != nil {
			log.Warn("could not ensure repository is public", zap.Error(err))
		}
	}

	res := Result{
		Success:   true,
		Message:   fmt.Sprintf("Successfully processed round %d", req.Round),
		RepoURL:   r.deps.Store.CanonicalURL(repo.Name),
		CommitSHA: sha,
		PagesURL:  r.deps.Store.SiteURL(repo.Name),
	}

	if err := r.deps.Ledger.Put(ctx, ledger.Entry{
		Task:      req.Task,
		RepoName:  repo.Name,
		RepoURL:   res.RepoURL,
		CommitSHA: res.CommitSHA,
		PagesURL:  res.PagesURL,
		LastRound: req.Round,
	}); err != nil {
		return Result{}, 0, fmt.Errorf("update ledger: %w", err)
	}

	if r.deps.Notifier != nil && req.EvaluationURL != "" {
		r.deps.Notifier.Dispatch(req.EvaluationURL, notify.Payload{
			Email:     req.Email,
			Task:      req.Task,
			Round:     req.Round,
			Nonce:     req.Nonce,
			RepoURL:   res.RepoURL,
			CommitSHA: res.CommitSHA,
			PagesURL:  res.PagesURL,
		})
	}

	return res, len(files), nil
}

// destination resolves the repo for the round along with its current files.
// Round 1 always starts from a freshly created repo.
func (r *Runner) destination(ctx context.Context, log *zap.Logger, req Request) (*publish.Repo, fileset.Set, error) {
	if req.Round <= 1 {
		exists, err := r.deps.Store.Exists(ctx, req.Task)
		if err != nil {
			return nil, nil, err
		}
		if exists {
			log.Info("deleting existing repository for round 1")
			if err := r.deps.Store.Delete(ctx, req.Task); err != nil {
				return nil, nil, err
			}
		}
		repo, err := r.deps.Store.Create(ctx, req.Task)
		if err != nil {
			return nil, nil, err
		}
		return repo, fileset.Set{}, nil
	}

	entry, ok, err := r.deps.Ledger.Get(ctx, req.Task)
	if err != nil {
		return nil, nil, fmt.Errorf("read ledger: %w", err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w %s", ErrLedgerMiss, req.Task)
	}

	name := entry.RepoName
	if name == "" {
		name = req.Task
	}
	repo, err := r.deps.Store.Get(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	prior, err := r.deps.Store.ReadAll(ctx, repo)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("loaded prior round", zap.Int("files", len(prior)), zap.Int("last_round", entry.LastRound))
	return repo, prior, nil
}

// mentions reports whether any check contains needle, ignoring case.
func mentions(checks []string, needle string) bool {
	fold := cases.Fold()
	needle = fold.String(needle)
	for _, c := range checks {
		if strings.Contains(fold.String(c), needle) {
			return true
		}
	}
	return false
}
