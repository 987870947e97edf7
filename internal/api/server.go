package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"expvar"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ajitpratap0/sage/internal/advisor"
	"github.com/ajitpratap0/sage/internal/assembler"
	"github.com/ajitpratap0/sage/internal/embedder"
	"github.com/ajitpratap0/sage/internal/ingest"
	"github.com/ajitpratap0/sage/internal/models"
	"github.com/ajitpratap0/sage/internal/persona"
	"github.com/ajitpratap0/sage/internal/retriever"
	"github.com/ajitpratap0/sage/internal/store"
	"github.com/ajitpratap0/sage/internal/userstore"
)

// Server is an HTTP API server that exposes the advisor and knowledge base.
type Server struct {
	advisor   *advisor.Advisor
	retriever *retriever.Retriever
	ingestor  *ingest.Ingestor
	store     store.KnowledgeStore
	users     *userstore.Store
	logger    *slog.Logger
	authToken string // empty = no auth required
}

// NewServer creates a new Server with the given dependencies.
func NewServer(
	adv *advisor.Advisor,
	ret *retriever.Retriever,
	ing *ingest.Ingestor,
	st store.KnowledgeStore,
	users *userstore.Store,
	logger *slog.Logger,
	authToken string,
) *Server {
	return &Server{
		advisor:   adv,
		retriever: ret,
		ingestor:  ing,
		store:     st,
		users:     users,
		logger:    logger,
		authToken: authToken,
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check, no auth required.
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.Handle("GET /debug/vars", s.auth(func(w http.ResponseWriter, r *http.Request) {
		expvar.Handler().ServeHTTP(w, r)
	}))

	mux.HandleFunc("POST /v1/ask", s.auth(s.handleAsk))
	mux.HandleFunc("POST /v1/ingest", s.auth(s.handleIngest))
	mux.HandleFunc("POST /v1/search", s.auth(s.handleSearch))
	mux.HandleFunc("GET /v1/status", s.auth(s.handleStatus))
	mux.HandleFunc("POST /v1/events", s.auth(s.handleAddEvent))
	mux.HandleFunc("GET /v1/events", s.auth(s.handleListEvents))

	return mux
}

// --- middleware ---

// auth wraps a handler with Bearer token authentication when authToken is set.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// --- handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// askRequest is the body accepted by POST /v1/ask.
type askRequest struct {
	Question string `json:"question"`
	Hint     string `json:"hint"`
}

// askResponse is returned by POST /v1/ask.
type askResponse struct {
	Advice     string            `json:"advice"`
	Provider   string            `json:"provider"`
	Model      string            `json:"model"`
	Attempts   int               `json:"attempts"`
	Provenance models.Provenance `json:"provenance"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		s.writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	// API requests are stateless: no session, no persisted turns.
	result, err := s.advisor.Answer(r.Context(), nil, req.Question, req.Hint)
	if err != nil {
		switch {
		case errors.Is(err, advisor.ErrAdviceUnavailable):
			s.writeError(w, http.StatusServiceUnavailable, "advice temporarily unavailable")
		case errors.Is(err, assembler.ErrContextOverflow), errors.Is(err, persona.ErrPromptTooLarge):
			s.writeError(w, http.StatusBadRequest, "question and context exceed the token budget")
		default:
			s.logger.Error("ask failed", "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to generate advice")
		}
		return
	}

	s.writeJSON(w, http.StatusOK, askResponse{
		Advice:     result.Text,
		Provider:   result.Provider,
		Model:      result.Model,
		Attempts:   result.Attempts,
		Provenance: result.Provenance,
	})
}

// ingestRequest is the body accepted by POST /v1/ingest.
type ingestRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Title  string `json:"title"`
}

// ingestResponse is returned by POST /v1/ingest.
type ingestResponse struct {
	ChunksWritten int `json:"chunks_written"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Text == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.Source == "" {
		s.writeError(w, http.StatusBadRequest, "source is required")
		return
	}

	ids, err := s.ingestor.IngestText(r.Context(), req.Text, req.Source, req.Title)
	if err != nil {
		if errors.Is(err, embedder.ErrUnavailable) {
			s.writeError(w, http.StatusServiceUnavailable, "embedding service unavailable")
			return
		}
		s.logger.Error("ingest failed", "source", req.Source, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to ingest text")
		return
	}

	s.writeJSON(w, http.StatusOK, ingestResponse{ChunksWritten: len(ids)})
}

// searchRequest is the body accepted by POST /v1/search. Source and tags
// are optional and narrow the search to matching chunks.
type searchRequest struct {
	Query  string   `json:"query"`
	Source string   `json:"source"`
	Tags   []string `json:"tags"`
}

// searchResponse is returned by POST /v1/search.
type searchResponse struct {
	Results []models.ScoredChunk `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	filter := store.SearchFilter{Source: req.Source, Tags: req.Tags}
	results, err := s.retriever.RetrieveFiltered(r.Context(), req.Query, filter)
	if err != nil {
		if errors.Is(err, embedder.ErrUnavailable) {
			s.writeError(w, http.StatusServiceUnavailable, "embedding service unavailable")
			return
		}
		s.logger.Error("search failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to search knowledge base")
		return
	}
	if results == nil {
		results = []models.ScoredChunk{}
	}

	s.writeJSON(w, http.StatusOK, searchResponse{Results: results})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("failed to get knowledge stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get status")
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// addEventRequest is the body accepted by POST /v1/events.
type addEventRequest struct {
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Category     models.EventCategory `json:"category"`
	Significance int                  `json:"significance"`
	Lessons      string               `json:"lessons"`
	OccurredAt   time.Time            `json:"occurred_at"`
}

// addEventResponse is returned by POST /v1/events.
type addEventResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req addEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		s.writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if !req.Category.IsValid() {
		s.writeError(w, http.StatusBadRequest, "invalid event category")
		return
	}
	if req.Significance == 0 {
		req.Significance = 5
	}

	id, err := s.users.AddEvent(r.Context(), models.LifeEvent{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Significance: req.Significance,
		Lessons:      req.Lessons,
		OccurredAt:   req.OccurredAt,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrInvalidEvent) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("failed to add event", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to add event")
		return
	}

	s.writeJSON(w, http.StatusOK, addEventResponse{ID: id})
}

// listEventsResponse is returned by GET /v1/events.
type listEventsResponse struct {
	Events []models.LifeEvent `json:"events"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := s.users.RecentEvents(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list events", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []models.LifeEvent{}
	}

	s.writeJSON(w, http.StatusOK, listEventsResponse{Events: events})
}

// --- helpers ---

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
