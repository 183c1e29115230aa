// Package telemetry sends anonymous round metrics to PostHog.
package telemetry

import (
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/posthog/posthog-go"
	"go.uber.org/zap"
)

// Client is the interface for telemetry clients.
// This abstraction allows for mocking in tests and swapping implementations.
type Client interface {
	// Track sends an event asynchronously. Returns immediately without blocking.
	Track(event string, properties map[string]any)

	// Close flushes pending events and closes the client.
	Close() error
}

// Properties is a type alias for event properties.
type Properties = map[string]any

// enqueuer is the subset of the PostHog client we use.
type enqueuer interface {
	io.Closer
	Enqueue(msg posthog.Message) error
}

// PostHogClient wraps the PostHog SDK for async telemetry.
type PostHogClient struct {
	client     enqueuer
	distinctID string
	version    string
	mu         sync.RWMutex
	closed     bool
}

// ClientConfig holds configuration for initializing the telemetry client.
type ClientConfig struct {
	// APIKey is the PostHog project API key.
	APIKey string

	// Endpoint is an optional custom PostHog endpoint (for self-hosted).
	Endpoint string

	// Version is reported with every event.
	Version string

	// InstanceID identifies this deployment. A random one is generated when empty.
	InstanceID string
}

// New returns a PostHog client when enabled and configured, otherwise a NoopClient.
func New(enabled bool, cfg ClientConfig, log *zap.Logger) (Client, error) {
	if !enabled || cfg.APIKey == "" {
		return NewNoopClient(), nil
	}
	return NewPostHogClient(cfg, log)
}

// NewPostHogClient creates a new PostHog telemetry client.
func NewPostHogClient(cfg ClientConfig, log *zap.Logger) (*PostHogClient, error) {
	if log == nil {
		log = zap.NewNop()
	}

	phConfig := posthog.Config{
		BatchSize: 50,
		Interval:  5 * time.Second,
		Logger:    zapPostHogLogger{log: log.Sugar()},
	}
	if cfg.Endpoint != "" {
		phConfig.Endpoint = cfg.Endpoint
	}

	client, err := posthog.NewWithConfig(cfg.APIKey, phConfig)
	if err != nil {
		return nil, err
	}

	return newPostHogClientWithEnqueuer(client, cfg), nil
}

func newPostHogClientWithEnqueuer(enq enqueuer, cfg ClientConfig) *PostHogClient {
	id := cfg.InstanceID
	if id == "" {
		id = uuid.NewString()
	}
	return &PostHogClient{client: enq, distinctID: id, version: cfg.Version}
}

// Track enqueues an event. No-op after Close.
func (c *PostHogClient) Track(event string, properties map[string]any) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return
	}

	props := posthog.NewProperties()
	for k, v := range properties {
		props.Set(k, v)
	}
	props.Set("os", runtime.GOOS)
	props.Set("arch", runtime.GOARCH)
	props.Set("version", c.version)

	// Disable person profile processing; events stay anonymous.
	props.Set("$process_person_profile", false)

	_ = c.client.Enqueue(posthog.Capture{
		DistinctId: c.distinctID,
		Event:      event,
		Properties: props,
	})
}

// Close flushes the queue.
func (c *PostHogClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.client.Close()
}

// NoopClient is a telemetry client that does nothing.
type NoopClient struct{}

func (c *NoopClient) Track(event string, properties map[string]any) {}

func (c *NoopClient) Close() error { return nil }

// NewNoopClient returns a client that does nothing.
func NewNoopClient() *NoopClient {
	return &NoopClient{}
}

// zapPostHogLogger routes SDK transport messages to the service log at debug level.
type zapPostHogLogger struct {
	log *zap.SugaredLogger
}

func (l zapPostHogLogger) Debugf(format string, args ...interface{}) { l.log.Debugf(format, args...) }
func (l zapPostHogLogger) Logf(format string, args ...interface{})   { l.log.Debugf(format, args...) }
func (l zapPostHogLogger) Warnf(format string, args ...interface{})  { l.log.Debugf(format, args...) }
func (l zapPostHogLogger) Errorf(format string, args ...interface{}) { l.log.Warnf(format, args...) }
