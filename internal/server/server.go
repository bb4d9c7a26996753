// Package server exposes a tutoring controller over HTTP and streams its
// session view over a websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/session"
	"github.com/abhisek/tutorly/internal/speech"
	"github.com/abhisek/tutorly/internal/tutor"
)

// Tutor is the controller surface served over HTTP.
type Tutor interface {
	StartSession(ctx context.Context, opts tutor.SessionOptions) (tutor.SessionView, error)
	SubmitInput(text string) error
	ProcessTurn(ctx context.Context, text string) (*session.Message, error)
	SelectTopic(title string) error
	ClearSubject() error
	DismissError()
	StartRecording(src speech.AudioSource) error
	StopRecording() error
	View() tutor.SessionView
	Subscribe() (<-chan tutor.SessionView, func())
}

// Options are optional collaborators.
type Options struct {
	// Topics answers GET /api/topics. Nil disables the endpoint.
	Topics tutor.TopicSource
	// Audio is the capture device used by the recording endpoints. Nil
	// disables recording.
	Audio  speech.AudioSource
	Logger *zap.Logger
}

// Server routes HTTP requests to a Tutor.
type Server struct {
	cfg    Config
	tutor  Tutor
	topics tutor.TopicSource
	audio  speech.AudioSource
	logger *zap.Logger
	router chi.Router
}

// New creates a server for t.
func New(cfg Config, t Tutor, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		tutor:  t,
		topics: opts.Topics,
		audio:  opts.Audio,
		logger: logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", s.getSession)
		r.Post("/session", s.startSession)
		r.Post("/input", s.submitInput)
		r.Post("/turn", s.processTurn)
		r.Post("/topic", s.selectTopic)
		r.Get("/topics", s.listTopics)
		r.Delete("/subject", s.clearSubject)
		r.Post("/error/dismiss", s.dismissError)
		r.Post("/recording/start", s.startRecording)
		r.Post("/recording/stop", s.stopRecording)
	})
	r.Get("/ws/session", s.streamSession)
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.cfg.Addr,
		Handler:     s.router,
		ReadTimeout: s.cfg.ReadTimeout,
		IdleTimeout: s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

type startSessionRequest struct {
	SubjectID   string `json:"subject_id"`
	SessionType string `json:"session_type"`
	Student     struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		GradeLevel int    `json:"grade_level"`
	} `json:"student"`
}

type textRequest struct {
	Text string `json:"text"`
}

type topicRequest struct {
	Title string `json:"title"`
}

func (s *Server) getSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tutor.View())
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SubjectID) == "" {
		writeError(w, http.StatusBadRequest, "subject_id is required")
		return
	}
	if req.Student.GradeLevel < 1 || req.Student.GradeLevel > 12 {
		writeError(w, http.StatusBadRequest, "student.grade_level must be between 1 and 12")
		return
	}
	view, err := s.tutor.StartSession(r.Context(), tutor.SessionOptions{
		SubjectID:   req.SubjectID,
		SessionType: req.SessionType,
		Student: session.Student{
			ID:         req.Student.ID,
			Name:       req.Student.Name,
			GradeLevel: req.Student.GradeLevel,
		},
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) submitInput(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.tutor.SubmitInput(req.Text); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) processTurn(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.TurnTimeout)
	defer cancel()

	msg, err := s.tutor.ProcessTurn(ctx, req.Text)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) selectTopic(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if err := s.tutor.SelectTopic(req.Title); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) listTopics(w http.ResponseWriter, r *http.Request) {
	if s.topics == nil {
		writeError(w, http.StatusNotImplemented, "topic suggestions are not configured")
		return
	}
	subject := strings.ToUpper(r.URL.Query().Get("subject"))
	grade, err := strconv.Atoi(r.URL.Query().Get("grade"))
	if subject == "" || err != nil {
		writeError(w, http.StatusBadRequest, "subject and numeric grade are required")
		return
	}
	topics, err := s.topics.GetTopics(r.Context(), subject, grade)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subject": subject, "grade": grade, "topics": topics})
}

func (s *Server) clearSubject(w http.ResponseWriter, _ *http.Request) {
	if err := s.tutor.ClearSubject(); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) dismissError(w http.ResponseWriter, _ *http.Request) {
	s.tutor.DismissError()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) startRecording(w http.ResponseWriter, _ *http.Request) {
	if s.audio == nil {
		writeError(w, http.StatusNotImplemented, "audio capture is not configured")
		return
	}
	if err := s.tutor.StartRecording(s.audio); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) stopRecording(w http.ResponseWriter, _ *http.Request) {
	if err := s.tutor.StopRecording(); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// fail maps controller errors to HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var genErr *llm.ErrGenerationFailed
	switch {
	case errors.Is(err, tutor.ErrNoActiveSession),
		errors.Is(err, tutor.ErrNoSubjectSelected),
		errors.Is(err, tutor.ErrNotRecording),
		errors.Is(err, tutor.ErrTurnDiscarded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, tutor.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, tutor.ErrSpeechUnavailable):
		writeError(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, tutor.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &genErr):
		writeError(w, http.StatusBadGateway, tutor.GenerationFailedMessage)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "turn timed out")
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
