// Package tutor generates personalized practice quizzes from a student's
// recorded weaknesses.
package tutor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/brightpath/studycoach/internal/config"
	"github.com/brightpath/studycoach/internal/llmjson"
	"github.com/brightpath/studycoach/internal/model"
	"github.com/brightpath/studycoach/internal/resilience"
	"github.com/brightpath/studycoach/internal/store"
	"github.com/brightpath/studycoach/pkg/anthropic"
)

// NoDataMessage is returned when the student has no recorded weaknesses.
// The model is never called in that case; there is nothing to tutor on.
const NoDataMessage = "no weakness data recorded for this user"

// Result is the tutor flow's fail-open envelope. On success Quiz is set.
// On a model, parse, or schema failure Error carries a diagnostic message
// and RawResponse the verbatim model output, so a broken prompt or model
// regression can be debugged from the response body alone.
type Result struct {
	Quiz        *model.TutorQuiz `json:"quiz,omitempty"`
	Error       string           `json:"error,omitempty"`
	RawResponse string           `json:"raw_response,omitempty"`
}

// Service generates tutor quizzes. Unlike the document quiz flow, this one
// is fail-open: model and parse failures become a Result envelope, not an
// error. Only relational failures surface as errors.
type Service struct {
	client anthropic.Client
	store  store.Store
	llm    config.AnthropicConfig
	retry  resilience.RetryConfig
}

// New creates a tutor quiz service.
func New(client anthropic.Client, st store.Store, llm config.AnthropicConfig) *Service {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("tutor", "weakness records")
	return &Service{client: client, store: st, llm: llm, retry: retry}
}

// Generate builds a practice quiz from the user's recorded weaknesses.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, subject string) (*Result, error) {
	records, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) ([]model.WeaknessRecord, error) {
		return s.store.WeaknessRecords(ctx, userID)
	})
	if err != nil {
		return nil, eris.Wrap(err, "tutor: load weakness records")
	}

	if len(records) == 0 {
		zap.L().Info("tutor: no weakness records",
			zap.String("user_id", userID.String()),
			zap.String("subject", subject),
		)
		return &Result{Error: NoDataMessage}, nil
	}

	weaknesses := model.FlattenWeaknesses(records)
	if weaknesses == "" {
		// Records existed but every one was an absent value.
		return &Result{Error: NoDataMessage}, nil
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
			{Role: "user", Content: BuildPrompt(subject, weaknesses)},
		},
	})
	if err != nil {
		zap.L().Error("tutor: model call failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return &Result{Error: "model call failed: " + err.Error()}, nil
	}
	resp.Usage.Log(resp.Model, "student-tutor")

	raw := resp.Text()
	var quiz model.TutorQuiz
	if err := llmjson.Unmarshal(raw, &quiz); err != nil {
		zap.L().Warn("tutor: unparseable model response",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return &Result{Error: "model returned malformed JSON", RawResponse: raw}, nil
	}
	if err := quiz.Validate(); err != nil {
		zap.L().Warn("tutor: response failed schema validation",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return &Result{Error: "model response failed validation: " + err.Error(), RawResponse: raw}, nil
	}

	zap.L().Info("tutor: quiz generated",
		zap.String("user_id", userID.String()),
		zap.String("subject", subject),
		zap.Int("weakness_records", len(records)),
	)
	return &Result{Quiz: &quiz}, nil
}
