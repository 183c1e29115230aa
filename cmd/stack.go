package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/josephgoksu/PageWing/internal/config"
	"github.com/josephgoksu/PageWing/internal/ledger"
	"github.com/josephgoksu/PageWing/internal/llm"
	"github.com/josephgoksu/PageWing/internal/lock"
	"github.com/josephgoksu/PageWing/internal/notify"
	"github.com/josephgoksu/PageWing/internal/pipeline"
	"github.com/josephgoksu/PageWing/internal/prompt"
	"github.com/josephgoksu/PageWing/internal/publish"
	"github.com/josephgoksu/PageWing/internal/telemetry"
)

// dryRunOwner names the account in URLs produced by a dry run.
const dryRunOwner = "dry-run"

// stack is the fully wired round pipeline.
type stack struct {
	runner    *pipeline.Runner
	ledger    ledger.Ledger
	store     publish.Store
	notifier  *notify.Notifier
	telemetry telemetry.Client
	locks     *lock.KeyedMutex
}

type stackOptions struct {
	// dryRun publishes to memory and keeps the ledger in memory.
	dryRun bool
	// notify enables completion notices.
	notify bool
}

func buildStack(ctx context.Context, cfg *config.Config, log *zap.Logger, opts stackOptions) (*stack, error) {
	chatCfg, err := cfg.LLM.ChatConfig()
	if err != nil {
		return nil, err
	}
	chat, err := llm.NewChatModel(ctx, chatCfg)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	log.Debug("chat model ready",
		zap.String("provider", string(chatCfg.Provider)),
		zap.String("model", chatCfg.Model))
	gen := llm.NewGenerator(chat, prompt.SystemPrompt, cfg.LLM.GeneratorOptions(), log)

	s := &stack{locks: lock.NewKeyedMutex()}

	if opts.dryRun {
		s.store = publish.NewMemoryStore(dryRunOwner)
		s.ledger = ledger.NewFileLedger(afero.NewMemMapFs(), ledger.DefaultFilePath)
	} else {
		gh, err := publish.NewGitHubStore(publish.GitHubConfig{
			Token:      cfg.GitHub.Token,
			Owner:      cfg.GitHub.Owner,
			Branch:     cfg.GitHub.Branch,
			PagesWait:  cfg.GitHub.PagesWait,
			DeleteWait: cfg.GitHub.DeleteWait,
		}, log)
		if err != nil {
			return nil, err
		}
		s.store = gh
		if s.ledger, err = openLedger(); err != nil {
			return nil, err
		}
	}

	s.telemetry, err = telemetry.New(cfg.Telemetry.Enabled, telemetry.ClientConfig{
		APIKey:   cfg.Telemetry.APIKey,
		Endpoint: cfg.Telemetry.Endpoint,
		Version:  version,
	}, log)
	if err != nil {
		log.Warn("telemetry disabled", zap.Error(err))
		s.telemetry = telemetry.NewNoopClient()
	}

	deps := pipeline.Deps{
		Ledger:    s.ledger,
		Store:     s.store,
		Model:     gen,
		Telemetry: s.telemetry,
		Log:       log,
	}
	if opts.notify && !opts.dryRun {
		s.notifier = notify.New(cfg.Notify.Timeout, log)
		deps.Notifier = s.notifier
	}
	s.runner = pipeline.New(deps)
	return s, nil
}

// Close drains notifications and releases the ledger and telemetry.
func (s *stack) Close() {
	if s.notifier != nil {
		s.notifier.Wait()
	}
	_ = s.telemetry.Close()
	_ = s.ledger.Close()
}
