package quizgen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/studycoach/internal/config"
	"github.com/brightpath/studycoach/internal/llmjson"
	"github.com/brightpath/studycoach/internal/model"
	"github.com/brightpath/studycoach/pkg/anthropic"
)

type fakeClient struct {
	lastReq  anthropic.MessageRequest
	response string
	err      error
	calls    int
}

func (f *fakeClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{
		Model:   req.Model,
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.response}},
	}, nil
}

const validQuizJSON = `{
  "questions": [
    {"question": "q1", "options": ["a","b","c","d"], "correctAnswer": 0},
    {"question": "q2", "options": ["a","b","c","d"], "correctAnswer": 1},
    {"question": "q3", "options": ["a","b","c","d"], "correctAnswer": 2},
    {"question": "q4", "options": ["a","b","c","d"], "correctAnswer": 3},
    {"question": "q5", "options": ["a","b","c","d"], "correctAnswer": 0}
  ]
}`

func testLLMConfig() config.AnthropicConfig {
	return config.AnthropicConfig{
		Model:       "claude-haiku-4-5-20251001",
		MaxTokens:   2048,
		TimeoutSecs: 5,
	}
}

func TestGenerate(t *testing.T) {
	client := &fakeClient{response: validQuizJSON}
	svc := New(client, testLLMConfig(), config.QuizConfig{ChunkSize: 2000})

	quiz, err := svc.Generate(context.Background(), "Photosynthesis converts light into chemical energy.")
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 5)
	assert.Equal(t, "q1", quiz.Questions[0].Question)
	assert.Equal(t, 1, client.calls)
	assert.Contains(t, client.lastReq.Messages[0].Content, "Photosynthesis")
}

func TestGenerate_FencedResponse(t *testing.T) {
	client := &fakeClient{response: "```json\n" + validQuizJSON + "\n```"}
	svc := New(client, testLLMConfig(), config.QuizConfig{ChunkSize: 2000})

	quiz, err := svc.Generate(context.Background(), "some content")
	require.NoError(t, err)
	assert.Len(t, quiz.Questions, 5)
}

func TestGenerate_AllChunksEmbedded(t *testing.T) {
	client := &fakeClient{response: validQuizJSON}
	svc := New(client, testLLMConfig(), config.QuizConfig{ChunkSize: 10})

	text := strings.Repeat("abcdefghij", 7)
	_, err := svc.Generate(context.Background(), text)
	require.NoError(t, err)

	// Every chunk of the document reaches the prompt.
	assert.Equal(t, 7, strings.Count(client.lastReq.Messages[0].Content, "abcdefghij"))
}

func TestGenerate_MaxChunksCap(t *testing.T) {
	client := &fakeClient{response: validQuizJSON}
	svc := New(client, testLLMConfig(), config.QuizConfig{ChunkSize: 10, MaxChunks: 2})

	_, err := svc.Generate(context.Background(), strings.Repeat("0123456789", 5))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(client.lastReq.Messages[0].Content, "0123456789"))
}

func TestGenerate_EmptyDocument(t *testing.T) {
	client := &fakeClient{response: validQuizJSON}
	svc := New(client, testLLMConfig(), config.QuizConfig{ChunkSize: 2000})

	_, err := svc.Generate(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, 0, client.calls)
}

func TestGenerate_ModelFailurePropagates(t *testing.T) {
	client := &fakeClient{err: anthropic.ErrModelInvocation}
	svc := New(client, testLLMConfig(), config.QuizConfig{ChunkSize: 2000})

	_, err := svc.Generate(context.Background(), "content")
	require.Error(t, err)
	assert.True(t, errors.Is(err, anthropic.ErrModelInvocation))
}

func TestGenerate_UnparseableResponsePropagates(t *testing.T) {
	client := &fakeClient{response: "I'm sorry, I can't help with that."}
	svc := New(client, testLLMConfig(), config.QuizConfig{ChunkSize: 2000})

	_, err := svc.Generate(context.Background(), "content")
	require.Error(t, err)
	assert.True(t, errors.Is(err, llmjson.ErrResponseFormat))
}

func TestGenerate_SchemaViolationPropagates(t *testing.T) {
	client := &fakeClient{response: `{"questions": [{"question": "only one", "options": ["a","b","c","d"], "correctAnswer": 0}]}`}
	svc := New(client, testLLMConfig(), config.QuizConfig{ChunkSize: 2000})

	_, err := svc.Generate(context.Background(), "content")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrSchema))
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt([]string{"first", "second"})
	assert.Contains(t, prompt, "STRICT JSON")
	assert.Contains(t, prompt, "first\n\nsecond")
	assert.Contains(t, prompt, "correctAnswer")
}
