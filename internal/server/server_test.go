package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/studycoach/internal/doctext"
	"github.com/brightpath/studycoach/internal/llmjson"
	"github.com/brightpath/studycoach/internal/model"
	"github.com/brightpath/studycoach/internal/store"
	"github.com/brightpath/studycoach/internal/tutor"
	"github.com/brightpath/studycoach/pkg/anthropic"
)

type fakeExtractor struct {
	pages []string
	err   error
	data  []byte
}

func (f *fakeExtractor) ExtractPages(_ context.Context, data []byte) ([]string, error) {
	f.data = data
	return f.pages, f.err
}

type fakeQuizGen struct {
	quiz *model.Quiz
	err  error
	text string
}

func (f *fakeQuizGen) Generate(_ context.Context, text string) (*model.Quiz, error) {
	f.text = text
	return f.quiz, f.err
}

type fakeRecommender struct {
	tracks []model.TrackRecommendation
	err    error
	userID uuid.UUID
}

func (f *fakeRecommender) Recommend(_ context.Context, userID uuid.UUID) ([]model.TrackRecommendation, error) {
	f.userID = userID
	return f.tracks, f.err
}

type fakeTutor struct {
	result  *tutor.Result
	err     error
	userID  uuid.UUID
	subject string
}

func (f *fakeTutor) Generate(_ context.Context, userID uuid.UUID, subject string) (*tutor.Result, error) {
	f.userID = userID
	f.subject = subject
	return f.result, f.err
}

func fiveQuestions() []model.Question {
	qs := make([]model.Question, 5)
	for i := range qs {
		qs[i] = model.Question{
			Question:      "q",
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: i % 4,
		}
	}
	return qs
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	srv := New(&fakeExtractor{}, &fakeQuizGen{}, &fakeRecommender{}, &fakeTutor{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGenerateQuiz(t *testing.T) {
	ext := &fakeExtractor{pages: []string{"page one", "page two"}}
	gen := &fakeQuizGen{quiz: &model.Quiz{Questions: fiveQuestions()}}
	srv := New(ext, gen, &fakeRecommender{}, &fakeTutor{})

	body, contentType := multipartBody(t, "file", "notes.txt", "page one\fpage two")
	req := httptest.NewRequest(http.MethodPost, "/generate-quiz", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte("page one\fpage two"), ext.data)
	assert.Equal(t, "page one\npage two\n", gen.text)

	var got model.Quiz
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Questions, 5)
}

func TestGenerateQuiz_MissingFile(t *testing.T) {
	srv := New(&fakeExtractor{}, &fakeQuizGen{}, &fakeRecommender{}, &fakeTutor{})

	req := httptest.NewRequest(http.MethodPost, "/generate-quiz", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "text/plain")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateQuiz_ExtractionFailure(t *testing.T) {
	ext := &fakeExtractor{err: eris.Wrap(doctext.ErrExtraction, "binary garbage")}
	srv := New(ext, &fakeQuizGen{}, &fakeRecommender{}, &fakeTutor{})

	body, contentType := multipartBody(t, "file", "image.png", "\x89PNG")
	req := httptest.NewRequest(http.MethodPost, "/generate-quiz", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGenerateQuiz_ModelFailureIsBadGateway(t *testing.T) {
	ext := &fakeExtractor{pages: []string{"text"}}
	gen := &fakeQuizGen{err: eris.Wrap(anthropic.ErrModelInvocation, "429")}
	srv := New(ext, gen, &fakeRecommender{}, &fakeTutor{})

	body, contentType := multipartBody(t, "file", "notes.txt", "text")
	req := httptest.NewRequest(http.MethodPost, "/generate-quiz", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGenerateQuiz_UnparseableModelOutputIsBadGateway(t *testing.T) {
	ext := &fakeExtractor{pages: []string{"text"}}
	gen := &fakeQuizGen{err: eris.Wrap(llmjson.ErrResponseFormat, "not json")}
	srv := New(ext, gen, &fakeRecommender{}, &fakeTutor{})

	body, contentType := multipartBody(t, "file", "notes.txt", "text")
	req := httptest.NewRequest(http.MethodPost, "/generate-quiz", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRecommendations(t *testing.T) {
	user := uuid.New()
	recEngine := &fakeRecommender{tracks: []model.TrackRecommendation{
		{ID: uuid.New(), Title: "Algebra II", Completions: 7},
	}}
	srv := New(&fakeExtractor{}, &fakeQuizGen{}, recEngine, &fakeTutor{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recommendations/"+user.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user, recEngine.userID)

	var got []model.TrackRecommendation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Algebra II", got[0].Title)
}

func TestRecommendations_EmptyListNotNull(t *testing.T) {
	recEngine := &fakeRecommender{tracks: []model.TrackRecommendation{}}
	srv := New(&fakeExtractor{}, &fakeQuizGen{}, recEngine, &fakeTutor{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recommendations/"+uuid.NewString(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestRecommendations_BadUUID(t *testing.T) {
	srv := New(&fakeExtractor{}, &fakeQuizGen{}, &fakeRecommender{}, &fakeTutor{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recommendations/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecommendations_QueryFailure(t *testing.T) {
	recEngine := &fakeRecommender{err: eris.Wrap(store.ErrQuery, "conn refused")}
	srv := New(&fakeExtractor{}, &fakeQuizGen{}, recEngine, &fakeTutor{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recommendations/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStudentTutor(t *testing.T) {
	user := uuid.New()
	tut := &fakeTutor{result: &tutor.Result{Quiz: &model.TutorQuiz{
		Title: "Practice",
		Questions: []model.TutorQuestion{
			{Question: "q", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 0, Explanation: "e", Difficulty: model.DifficultyEasy},
		},
	}}}
	srv := New(&fakeExtractor{}, &fakeQuizGen{}, &fakeRecommender{}, tut)

	req := httptest.NewRequest(http.MethodPost, "/ai/student-tutor/"+user.String(),
		strings.NewReader(`{"subject": "  math  "}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user, tut.userID)
	assert.Equal(t, "math", tut.subject)

	var got model.TutorQuiz
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Practice", got.Title)
}

func TestStudentTutor_MissingSubject(t *testing.T) {
	tut := &fakeTutor{}
	srv := New(&fakeExtractor{}, &fakeQuizGen{}, &fakeRecommender{}, tut)

	req := httptest.NewRequest(http.MethodPost, "/ai/student-tutor/"+uuid.NewString(),
		strings.NewReader(`{"subject": "   "}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, tut.subject)
}

func TestStudentTutor_EnvelopeIs200(t *testing.T) {
	tut := &fakeTutor{result: &tutor.Result{
		Error:       "model returned malformed JSON",
		RawResponse: "Sure! Here are some questions.",
	}}
	srv := New(&fakeExtractor{}, &fakeQuizGen{}, &fakeRecommender{}, tut)

	req := httptest.NewRequest(http.MethodPost, "/ai/student-tutor/"+uuid.NewString(),
		strings.NewReader(`{"subject": "math"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "model returned malformed JSON", got["error"])
	assert.Equal(t, "Sure! Here are some questions.", got["raw_response"])
}

func TestStudentTutor_NoDataEnvelope(t *testing.T) {
	tut := &fakeTutor{result: &tutor.Result{Error: tutor.NoDataMessage}}
	srv := New(&fakeExtractor{}, &fakeQuizGen{}, &fakeRecommender{}, tut)

	req := httptest.NewRequest(http.MethodPost, "/ai/student-tutor/"+uuid.NewString(),
		strings.NewReader(`{"subject": "math"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, tutor.NoDataMessage, got["error"])
	assert.NotContains(t, got, "raw_response")
}

func TestStudentTutor_StoreFailureIs500(t *testing.T) {
	tut := &fakeTutor{err: eris.Wrap(store.ErrQuery, "relation missing")}
	srv := New(&fakeExtractor{}, &fakeQuizGen{}, &fakeRecommender{}, tut)

	req := httptest.NewRequest(http.MethodPost, "/ai/student-tutor/"+uuid.NewString(),
		strings.NewReader(`{"subject": "math"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
