package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatModel struct {
	reply *schema.Message
	err   error
	block bool

	gotMessages []*schema.Message
	gotOptions  *model.Options
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.gotMessages = input
	f.gotOptions = model.GetCommonOptions(&model.Options{}, opts...)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.reply, f.err
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestGenerator_Complete(t *testing.T) {
	fake := &fakeChatModel{reply: &schema.Message{
		Role:         schema.Assistant,
		Content:      `{"index.html": "<html></html>"}`,
		ResponseMeta: &schema.ResponseMeta{FinishReason: "stop"},
	}}
	g := NewGenerator(fake, "system", Options{}, nil)

	got, err := g.Complete(context.Background(), "build it")

	require.NoError(t, err)
	assert.Equal(t, `{"index.html": "<html></html>"}`, got)

	require.Len(t, fake.gotMessages, 2)
	assert.Equal(t, schema.System, fake.gotMessages[0].Role)
	assert.Equal(t, "system", fake.gotMessages[0].Content)
	assert.Equal(t, schema.User, fake.gotMessages[1].Role)
	assert.Equal(t, "build it", fake.gotMessages[1].Content)

	require.NotNil(t, fake.gotOptions.Temperature)
	require.NotNil(t, fake.gotOptions.MaxTokens)
	assert.InDelta(t, 0.3, *fake.gotOptions.Temperature, 1e-6)
	assert.Equal(t, 4000, *fake.gotOptions.MaxTokens)
}

func TestGenerator_Truncated(t *testing.T) {
	fake := &fakeChatModel{reply: &schema.Message{
		Content:      `{"index.html": "<html>`,
		ResponseMeta: &schema.ResponseMeta{FinishReason: "length"},
	}}

	got, err := NewGenerator(fake, "s", Options{}, nil).Complete(context.Background(), "x")

	assert.ErrorIs(t, err, ErrTruncatedGeneration)
	assert.Empty(t, got, "partial text must not be returned")
}

func TestGenerator_Unavailable(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeChatModel
	}{
		{name: "transport error", fake: &fakeChatModel{err: errors.New("502 bad gateway")}},
		{name: "nil reply", fake: &fakeChatModel{}},
		{name: "blank reply", fake: &fakeChatModel{reply: &schema.Message{Content: "  \n"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(tt.fake, "s", Options{}, nil).Complete(context.Background(), "x")
			assert.ErrorIs(t, err, ErrGenerationUnavailable)
		})
	}
}

func TestGenerator_Timeout(t *testing.T) {
	fake := &fakeChatModel{block: true}
	g := NewGenerator(fake, "s", Options{Timeout: 20 * time.Millisecond}, nil)

	_, err := g.Complete(context.Background(), "x")

	assert.ErrorIs(t, err, ErrGenerationUnavailable)
}
