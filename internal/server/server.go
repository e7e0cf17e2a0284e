// Package server exposes the study coach flows over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath/studycoach/internal/config"
	"github.com/brightpath/studycoach/internal/doctext"
	"github.com/brightpath/studycoach/internal/model"
	"github.com/brightpath/studycoach/internal/tutor"
)

// maxUploadBytes caps document uploads at 20 MiB.
const maxUploadBytes = 20 << 20

// QuizGenerator produces a quiz from extracted document text.
type QuizGenerator interface {
	Generate(ctx context.Context, text string) (*model.Quiz, error)
}

// Recommender produces peer-based track recommendations.
type Recommender interface {
	Recommend(ctx context.Context, userID uuid.UUID) ([]model.TrackRecommendation, error)
}

// TutorGenerator produces a personalized practice quiz envelope.
type TutorGenerator interface {
	Generate(ctx context.Context, userID uuid.UUID, subject string) (*tutor.Result, error)
}

// Server routes HTTP requests to the study coach services.
type Server struct {
	router    chi.Router
	extractor doctext.Extractor
	quiz      QuizGenerator
	recommend Recommender
	tutor     TutorGenerator
}

// New assembles the router and handlers.
func New(extractor doctext.Extractor, quiz QuizGenerator, rec Recommender, tut TutorGenerator) *Server {
	s := &Server{
		extractor: extractor,
		quiz:      quiz,
		recommend: rec,
		tutor:     tut,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/generate-quiz", s.handleGenerateQuiz)
	r.Get("/recommendations/{userID}", s.handleRecommendations)
	r.Post("/ai/student-tutor/{userID}", s.handleStudentTutor)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server: listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	zap.L().Info("server: shutting down")
	return srv.Shutdown(shutdownCtx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file upload")
		return
	}

	pages, err := s.extractor.ExtractPages(r.Context(), data)
	if err != nil {
		zap.L().Warn("server: extraction failed",
			zap.String("filename", header.Filename),
			zap.Error(err),
		)
		writeError(w, http.StatusUnprocessableEntity, "could not extract text from document")
		return
	}

	quiz, err := s.quiz.Generate(r.Context(), doctext.JoinPages(pages))
	if err != nil {
		writeFlowError(w, err, "quiz generation failed")
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	tracks, err := s.recommend.Recommend(r.Context(), userID)
	if err != nil {
		writeFlowError(w, err, "recommendation lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

type tutorRequest struct {
	Subject string `json:"subject"`
}

func (s *Server) handleStudentTutor(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req tutorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	subject := trimSubject(req.Subject)
	if subject == "" {
		writeError(w, http.StatusBadRequest, "subject is required")
		return
	}

	res, err := s.tutor.Generate(r.Context(), userID, subject)
	if err != nil {
		writeFlowError(w, err, "tutor quiz generation failed")
		return
	}

	// The tutor flow answers 200 whether or not the model cooperated; the
	// envelope carries the failure detail.
	if res.Quiz != nil {
		writeJSON(w, http.StatusOK, res.Quiz)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeFlowError maps service failures onto status codes: upstream model
// misbehavior reads as a bad gateway, everything else as an internal error.
func writeFlowError(w http.ResponseWriter, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case isUpstreamError(err):
		status = http.StatusBadGateway
	}
	zap.L().Error("server: "+msg, zap.Error(err))
	writeError(w, status, msg)
}
