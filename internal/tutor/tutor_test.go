package tutor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/studycoach/internal/config"
	"github.com/brightpath/studycoach/internal/model"
	"github.com/brightpath/studycoach/internal/store"
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

type fakeStore struct {
	store.Store

	records    []model.WeaknessRecord
	recordsErr error
	calls      int
}

func (f *fakeStore) WeaknessRecords(context.Context, uuid.UUID) ([]model.WeaknessRecord, error) {
	f.calls++
	return f.records, f.recordsErr
}

const validTutorJSON = `{
  "title": "Practice quiz",
  "questions": [
    {"question": "q1", "options": ["a","b","c","d"], "correctIndex": 0, "explanation": "e1", "difficulty": "easy"},
    {"question": "q2", "options": ["a","b","c","d"], "correctIndex": 1, "explanation": "e2", "difficulty": "medium"},
    {"question": "q3", "options": ["a","b","c","d"], "correctIndex": 2, "explanation": "e3", "difficulty": "hard"},
    {"question": "q4", "options": ["a","b","c","d"], "correctIndex": 3, "explanation": "e4", "difficulty": "easy"},
    {"question": "q5", "options": ["a","b","c","d"], "correctIndex": 0, "explanation": "e5", "difficulty": "medium"}
  ]
}`

func singleWeakness(label string) model.WeaknessRecord {
	return model.WeaknessRecord{Value: model.WeaknessValue{Kind: model.WeaknessSingle, Single: label}}
}

func newTestService(client *fakeClient, st *fakeStore) *Service {
	svc := New(client, st, config.AnthropicConfig{
		Model:       "claude-haiku-4-5-20251001",
		MaxTokens:   2048,
		TimeoutSecs: 5,
	})
	svc.retry.InitialBackoff = 1
	svc.retry.MaxBackoff = 1
	return svc
}

func TestGenerate(t *testing.T) {
	client := &fakeClient{response: validTutorJSON}
	st := &fakeStore{records: []model.WeaknessRecord{
		singleWeakness("fractions"),
		{Value: model.WeaknessValue{Kind: model.WeaknessMultiple, Labels: []string{"decimals", "ratios"}}},
	}}
	svc := newTestService(client, st)

	res, err := svc.Generate(context.Background(), uuid.New(), "math")
	require.NoError(t, err)
	require.NotNil(t, res.Quiz)
	assert.Empty(t, res.Error)
	assert.Len(t, res.Quiz.Questions, 5)
	assert.Equal(t, model.DifficultyEasy, res.Quiz.Questions[0].Difficulty)

	prompt := client.lastReq.Messages[0].Content
	assert.Contains(t, prompt, "math")
	assert.Contains(t, prompt, "fractions\ndecimals\nratios")
}

func TestGenerate_NoRecordsSkipsModel(t *testing.T) {
	client := &fakeClient{response: validTutorJSON}
	st := &fakeStore{}
	svc := newTestService(client, st)

	res, err := svc.Generate(context.Background(), uuid.New(), "math")
	require.NoError(t, err)
	assert.Nil(t, res.Quiz)
	assert.Equal(t, NoDataMessage, res.Error)
	assert.Equal(t, 0, client.calls)
}

func TestGenerate_AllAbsentSkipsModel(t *testing.T) {
	client := &fakeClient{response: validTutorJSON}
	st := &fakeStore{records: []model.WeaknessRecord{
		{Value: model.WeaknessValue{Kind: model.WeaknessAbsent}},
		{Value: model.WeaknessValue{Kind: model.WeaknessAbsent}},
	}}
	svc := newTestService(client, st)

	res, err := svc.Generate(context.Background(), uuid.New(), "math")
	require.NoError(t, err)
	assert.Equal(t, NoDataMessage, res.Error)
	assert.Equal(t, 0, client.calls)
}

func TestGenerate_StoreFailureIsAnError(t *testing.T) {
	client := &fakeClient{response: validTutorJSON}
	st := &fakeStore{recordsErr: errors.New("relation does not exist")}
	svc := newTestService(client, st)

	_, err := svc.Generate(context.Background(), uuid.New(), "math")
	require.Error(t, err)
	assert.Equal(t, 0, client.calls)
}

func TestGenerate_TransientStoreErrorRetried(t *testing.T) {
	client := &fakeClient{response: validTutorJSON}
	st := &fakeStore{recordsErr: errors.New("read tcp: connection reset by peer")}
	svc := newTestService(client, st)

	_, err := svc.Generate(context.Background(), uuid.New(), "math")
	require.Error(t, err)
	assert.Equal(t, 3, st.calls)
}

func TestGenerate_ModelFailureFailsOpen(t *testing.T) {
	client := &fakeClient{err: anthropic.ErrModelInvocation}
	st := &fakeStore{records: []model.WeaknessRecord{singleWeakness("fractions")}}
	svc := newTestService(client, st)

	res, err := svc.Generate(context.Background(), uuid.New(), "math")
	require.NoError(t, err)
	assert.Nil(t, res.Quiz)
	assert.Contains(t, res.Error, "model call failed")
}

func TestGenerate_MalformedResponseFailsOpen(t *testing.T) {
	client := &fakeClient{response: "Sure! Here are some questions for you."}
	st := &fakeStore{records: []model.WeaknessRecord{singleWeakness("fractions")}}
	svc := newTestService(client, st)

	res, err := svc.Generate(context.Background(), uuid.New(), "math")
	require.NoError(t, err)
	assert.Nil(t, res.Quiz)
	assert.Contains(t, res.Error, "malformed JSON")
	assert.Equal(t, "Sure! Here are some questions for you.", res.RawResponse)
}

func TestGenerate_SchemaViolationFailsOpen(t *testing.T) {
	raw := `{"questions": [{"question": "q", "options": ["a","b"], "correctIndex": 0, "explanation": "e", "difficulty": "easy"}]}`
	client := &fakeClient{response: raw}
	st := &fakeStore{records: []model.WeaknessRecord{singleWeakness("fractions")}}
	svc := newTestService(client, st)

	res, err := svc.Generate(context.Background(), uuid.New(), "math")
	require.NoError(t, err)
	assert.Nil(t, res.Quiz)
	assert.Contains(t, res.Error, "failed validation")
	assert.Equal(t, raw, res.RawResponse)
}

func TestGenerate_FencedResponseAccepted(t *testing.T) {
	client := &fakeClient{response: "```json\n" + validTutorJSON + "\n```"}
	st := &fakeStore{records: []model.WeaknessRecord{singleWeakness("fractions")}}
	svc := newTestService(client, st)

	res, err := svc.Generate(context.Background(), uuid.New(), "math")
	require.NoError(t, err)
	require.NotNil(t, res.Quiz)
	assert.Len(t, res.Quiz.Questions, 5)
}
