// Package notify reports finished rounds to the caller's evaluation endpoint.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single notification.
const DefaultTimeout = 30 * time.Second

// Payload is posted as JSON to the evaluation URL.
type Payload struct {
	Email     string `json:"email"`
	Task      string `json:"task"`
	Round     int    `json:"round"`
	Nonce     string `json:"nonce"`
	RepoURL   string `json:"repo_url"`
	CommitSHA string `json:"commit_sha"`
	PagesURL  string `json:"pages_url"`
}

// Notifier posts payloads. Failures never propagate to the round.
type Notifier struct {
	client  *http.Client
	timeout time.Duration
	log     *zap.Logger
	wg      sync.WaitGroup
}

// New creates a Notifier. A non-positive timeout uses DefaultTimeout.
func New(timeout time.Duration, log *zap.Logger) *Notifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{client: &http.Client{}, timeout: timeout, log: log}
}

// Notify posts p to url and waits for the response.
func (n *Notifier) Notify(ctx context.Context, url string, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification rejected: status %d", resp.StatusCode)
	}
	return nil
}

// Dispatch sends p in the background and logs the outcome.
func (n *Notifier) Dispatch(url string, p Payload) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		log := n.log.With(zap.String("task", p.Task), zap.Int("round", p.Round))
		if err := n.Notify(context.Background(), url, p); err != nil {
			log.Warn("failed to notify evaluation url", zap.String("url", url), zap.Error(err))
			return
		}
		log.Info("notified evaluation url", zap.String("url", url))
	}()
}

// Wait blocks until every dispatched notification has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
