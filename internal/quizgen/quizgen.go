// Package quizgen turns extracted document text into a multiple-choice
// quiz via a single generative model call.
package quizgen

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/brightpath/studycoach/internal/chunk"
	"github.com/brightpath/studycoach/internal/config"
	"github.com/brightpath/studycoach/internal/llmjson"
	"github.com/brightpath/studycoach/internal/model"
	"github.com/brightpath/studycoach/pkg/anthropic"
)

// Service generates quizzes from document text. This flow is fail-closed:
// any model or parse failure propagates to the caller.
type Service struct {
	client anthropic.Client
	llm    config.AnthropicConfig
	quiz   config.QuizConfig
}

// New creates a quiz generation service.
func New(client anthropic.Client, llm config.AnthropicConfig, quiz config.QuizConfig) *Service {
	return &Service{client: client, llm: llm, quiz: quiz}
}

// Generate chunks the document text, prompts the model once, and parses
// the response into a validated quiz.
func (s *Service) Generate(ctx context.Context, text string) (*model.Quiz, error) {
	size := s.quiz.ChunkSize
	if size <= 0 {
		size = 2000
	}
	chunks := chunk.Split(text, size)
	if len(chunks) == 0 {
		return nil, eris.New("quizgen: document contains no text")
	}

	// The whole document goes into the prompt unless an operator opted in
	// to a cap; a silent cap would change quiz content unannounced.
	if s.quiz.MaxChunks > 0 && len(chunks) > s.quiz.MaxChunks {
		zap.L().Warn("quizgen: capping prompt chunks",
			zap.Int("total_chunks", len(chunks)),
			zap.Int("max_chunks", s.quiz.MaxChunks),
		)
		chunks = chunks[:s.quiz.MaxChunks]
	}

	timeout := time.Duration(s.llm.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.llm.Model,
		MaxTokens: s.llm.MaxTokens,
		Messages: []anthropic.Message{
			{Role: "user", Content: BuildPrompt(chunks)},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "quizgen: model call")
	}
	resp.Usage.Log(resp.Model, "generate-quiz")

	var quiz model.Quiz
	if err := llmjson.Unmarshal(resp.Text(), &quiz); err != nil {
		return nil, eris.Wrap(err, "quizgen: parse model response")
	}
	if err := quiz.Validate(); err != nil {
		return nil, eris.Wrap(err, "quizgen: validate quiz")
	}

	zap.L().Info("quizgen: quiz generated",
		zap.Int("chunks", len(chunks)),
		zap.Int("questions", len(quiz.Questions)),
	)
	return &quiz, nil
}
