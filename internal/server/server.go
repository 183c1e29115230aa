// Package server exposes the round pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/josephgoksu/PageWing/internal/ledger"
	"github.com/josephgoksu/PageWing/internal/lock"
	"github.com/josephgoksu/PageWing/internal/pipeline"
)

const (
	readHeaderTimeout = 10 * time.Second
	maxBodyBytes      = 32 << 20
)

// RoundRunner executes one round.
type RoundRunner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Drainer waits for background work started by finished rounds.
type Drainer interface {
	Wait()
}

// Options configures the listener and authentication.
type Options struct {
	Port   int
	Secret string
}

// Deps are the collaborators the handlers use. Locks and Drainer are optional.
type Deps struct {
	Runner  RoundRunner
	Ledger  ledger.Ledger
	Locks   *lock.KeyedMutex
	Drainer Drainer
	Log     *zap.Logger
}

type Server struct {
	runner   RoundRunner
	ledger   ledger.Ledger
	locks    *lock.KeyedMutex
	drainer  Drainer
	validate *validator.Validate
	log      *zap.Logger
	secret   string
	port     int
	server   *http.Server
}

func New(opts Options, deps Deps) (*Server, error) {
	if deps.Runner == nil || deps.Ledger == nil {
		return nil, errors.New("server requires a round runner and a ledger")
	}
	if opts.Secret == "" {
		return nil, errors.New("server secret is required")
	}
	if deps.Locks == nil {
		deps.Locks = lock.NewKeyedMutex()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}

	s := &Server{
		runner:   deps.Runner,
		ledger:   deps.Ledger,
		locks:    deps.Locks,
		drainer:  deps.Drainer,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      deps.Log,
		secret:   opts.Secret,
		port:     opts.Port,
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.registerRoutes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start(wg *sync.WaitGroup, errChan chan<- error) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		s.log.Info("api server listening", zap.Int("port", s.port))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()
}

// Shutdown stops accepting requests, waits for in-flight rounds and then for
// pending notifications, all bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	if s.drainer == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		s.drainer.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain notifications: %w", ctx.Err())
	}
}
