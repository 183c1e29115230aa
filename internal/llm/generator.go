package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

var (
	// ErrTruncatedGeneration means the provider stopped at the output budget.
	ErrTruncatedGeneration = errors.New("generation truncated at max tokens")
	// ErrGenerationUnavailable covers transport failures, timeouts and empty replies.
	ErrGenerationUnavailable = errors.New("generation unavailable")
)

// finishReasonLength is the finish reason providers report when max tokens was hit.
const finishReasonLength = "length"

// Options are the fixed sampling parameters applied to every request.
type Options struct {
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultOptions favours deterministic output.
func DefaultOptions() Options {
	return Options{
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Timeout:     DefaultTimeout,
	}
}

// Generator sends a single instruction to a chat model and returns its raw reply.
type Generator struct {
	chat         model.BaseChatModel
	systemPrompt string
	opts         Options
	log          *zap.Logger
}

// NewGenerator wraps chat. Zero-valued options fall back to DefaultOptions.
func NewGenerator(chat model.BaseChatModel, systemPrompt string, opts Options, log *zap.Logger) *Generator {
	def := DefaultOptions()
	if opts.Temperature <= 0 {
		opts.Temperature = def.Temperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = def.MaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{chat: chat, systemPrompt: systemPrompt, opts: opts, log: log}
}

// Complete sends instruction and returns the reply text.
func (g *Generator) Complete(ctx context.Context, instruction string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	messages := []*schema.Message{
		schema.SystemMessage(g.systemPrompt),
		schema.UserMessage(instruction),
	}

	g.log.Debug("sending generation request",
		zap.Int("prompt_tokens_estimate", EstimateTokens(g.systemPrompt)+EstimateTokens(instruction)),
		zap.Int("max_tokens", g.opts.MaxTokens))

	start := time.Now()
	resp, err := g.chat.Generate(ctx, messages,
		model.WithTemperature(g.opts.Temperature),
		model.WithMaxTokens(g.opts.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}
	if resp == nil {
		return "", fmt.Errorf("%w: empty response", ErrGenerationUnavailable)
	}

	fields := []zap.Field{zap.Duration("elapsed", time.Since(start))}
	if meta := resp.ResponseMeta; meta != nil {
		fields = append(fields, zap.String("finish_reason", meta.FinishReason))
		if meta.Usage != nil {
			fields = append(fields,
				zap.Int("prompt_tokens", meta.Usage.PromptTokens),
				zap.Int("completion_tokens", meta.Usage.CompletionTokens))
		}
		if meta.FinishReason == finishReasonLength {
			g.log.Warn("generation hit the token limit", fields...)
			return "", fmt.Errorf("%w (max_tokens=%d)", ErrTruncatedGeneration, g.opts.MaxTokens)
		}
	}

	if strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("%w: empty content", ErrGenerationUnavailable)
	}

	g.log.Info("generation completed", append(fields, zap.Int("chars", len(resp.Content)))...)
	return resp.Content, nil
}
