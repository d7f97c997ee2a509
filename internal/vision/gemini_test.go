package vision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type mockGenerator struct {
	resp *genai.GenerateContentResponse
	err  error

	calls    int
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	deadline bool
}

func (m *mockGenerator) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	m.calls++
	m.model = model
	m.contents = contents
	m.config = config
	_, m.deadline = ctx.Deadline()
	return m.resp, m.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}, Role: genai.RoleModel},
		}},
	}
}

func TestNewGeminiClient_MissingKey(t *testing.T) {
	t.Parallel()

	client, err := NewGeminiClient(context.Background(), GeminiConfig{})
	require.ErrorIs(t, err, ErrMissingCredential)
	require.Nil(t, client)
}

func TestGeminiClient_Extract(t *testing.T) {
	t.Parallel()

	t.Run("builds request and cleans content", func(t *testing.T) {
		t.Parallel()

		gen := &mockGenerator{resp: textResponse("```json\n{\"finalPrice\": 152340}\n```")}
		client := NewGeminiClientWithGenerator(gen, GeminiConfig{Timeout: time.Second})

		res, err := client.Extract(context.Background(), "extract", EncodeDataURL("image/jpeg", []byte{1, 2, 3}))
		require.NoError(t, err)
		require.Equal(t, `{"finalPrice": 152340}`, res.Content)
		require.NotEmpty(t, res.Raw)

		require.Equal(t, 1, gen.calls)
		require.Equal(t, DefaultGeminiModel, gen.model)
		require.True(t, gen.deadline)
		require.Len(t, gen.contents, 1)
		parts := gen.contents[0].Parts
		require.Equal(t, "extract", parts[0].Text)
		require.Equal(t, "image/jpeg", parts[1].InlineData.MIMEType)
		require.Equal(t, []byte{1, 2, 3}, parts[1].InlineData.Data)

		require.Equal(t, SystemInstruction, gen.config.SystemInstruction.Parts[0].Text)
		require.InDelta(t, 0, *gen.config.Temperature, 0)
		require.Equal(t, int32(MaxOutputTokens), gen.config.MaxOutputTokens)
	})

	t.Run("rejects non data url before calling", func(t *testing.T) {
		t.Parallel()

		gen := &mockGenerator{}
		client := NewGeminiClientWithGenerator(gen, GeminiConfig{})

		_, err := client.Extract(context.Background(), "extract", "https://example.com/bill.png")
		require.Error(t, err)
		require.Zero(t, gen.calls)
	})

	t.Run("maps deadline to timeout", func(t *testing.T) {
		t.Parallel()

		gen := &mockGenerator{err: context.DeadlineExceeded}
		client := NewGeminiClientWithGenerator(gen, GeminiConfig{})

		_, err := client.Extract(context.Background(), "extract", EncodeDataURL("image/png", []byte{1}))
		require.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("wraps other failures as upstream", func(t *testing.T) {
		t.Parallel()

		gen := &mockGenerator{err: errors.New("quota exceeded")}
		client := NewGeminiClientWithGenerator(gen, GeminiConfig{})

		_, err := client.Extract(context.Background(), "extract", EncodeDataURL("image/png", []byte{1}))
		require.ErrorIs(t, err, ErrUpstream)
		require.Contains(t, err.Error(), "quota exceeded")
	})
}
