// Package api exposes the research pipeline over HTTP for the web frontend.
// Every handler answers 200 with a JSON envelope carrying its own success
// flag, so browser clients branch on the body instead of status handling.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shereeef1/meme-generator/internal/docstore"
	"github.com/shereeef1/meme-generator/internal/llm"
	"github.com/shereeef1/meme-generator/internal/news"
	"github.com/shereeef1/meme-generator/internal/research"
)

// Researcher runs brand research requests.
type Researcher interface {
	Run(ctx context.Context, req research.Request) research.Aggregate
}

// NewsProvider fetches headlines.
type NewsProvider interface {
	TopHeadlines(ctx context.Context, p news.Params) ([]news.Article, error)
}

// PromptGenerator writes content prompts from research text.
type PromptGenerator interface {
	GeneratePrompts(ctx context.Context, brand, researchText string, n int) ([]llm.Prompt, error)
}

// MemeGenerator renders memes for a caption.
type MemeGenerator interface {
	Generate(ctx context.Context, text string) ([]string, error)
}

// Config wires a Server. Researcher is required; nil optional services
// disable their routes with a JSON error instead of a 404.
type Config struct {
	Researcher Researcher
	Store      docstore.Store
	News       NewsProvider
	Prompts    PromptGenerator
	Memes      MemeGenerator
	Logger     *slog.Logger
	// RequestTimeout bounds each research run. Defaults to 3 minutes.
	RequestTimeout time.Duration
}

// Server handles the HTTP API.
type Server struct {
	cfg Config
	mux *http.ServeMux
}

// New creates the API server and registers its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Researcher == nil {
		return nil, errors.New("api: researcher is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 3 * time.Minute
	}

	s := &Server{cfg: cfg, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /api/research", s.handleResearch)
	s.mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	s.mux.HandleFunc("GET /api/documents/{id}", s.handleGetDocument)
	s.mux.HandleFunc("DELETE /api/documents/{id}", s.handleDeleteDocument)
	s.mux.HandleFunc("GET /api/news", s.handleNews)
	s.mux.HandleFunc("POST /api/prompts", s.handlePrompts)
	s.mux.HandleFunc("POST /api/memes", s.handleMemes)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	return s, nil
}

// Handler returns the server's handler chain: CORS, then request logging,
// then the routes.
func (s *Server) Handler() http.Handler {
	return s.cors(s.logRequests(s.mux))
}

// envelope is the uniform response shape.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		s.cfg.Logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, msg string) {
	s.writeJSON(w, envelope{Success: false, Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, envelope{Success: true, Data: map[string]string{"status": "ok"}})
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req research.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body")
		return
	}
	if req.BrandName == "" {
		s.writeError(w, "brand_name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	agg := s.cfg.Researcher.Run(ctx, req)
	if !agg.Success {
		s.writeJSON(w, envelope{Success: false, Error: agg.Error, Message: agg.Message, Data: agg})
		return
	}
	s.writeJSON(w, envelope{Success: true, Data: agg})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		s.writeError(w, "document storage is not configured")
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	entries, err := s.cfg.Store.List(r.Context(), limit, offset)
	if err != nil {
		s.cfg.Logger.Error("failed to list documents", "error", err)
		s.writeError(w, "failed to list documents")
		return
	}
	s.writeJSON(w, envelope{Success: true, Data: entries})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		s.writeError(w, "document storage is not configured")
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.writeError(w, "invalid document id")
		return
	}

	entry, err := s.cfg.Store.Get(r.Context(), id)
	if errors.Is(err, docstore.ErrNotFound) {
		s.writeError(w, "document not found")
		return
	}
	if err != nil {
		s.cfg.Logger.Error("failed to get document", "id", id, "error", err)
		s.writeError(w, "failed to get document")
		return
	}
	s.writeJSON(w, envelope{Success: true, Data: entry})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		s.writeError(w, "document storage is not configured")
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.writeError(w, "invalid document id")
		return
	}

	err = s.cfg.Store.Delete(r.Context(), id)
	if errors.Is(err, docstore.ErrNotFound) {
		s.writeError(w, "document not found")
		return
	}
	if err != nil {
		s.cfg.Logger.Error("failed to delete document", "id", id, "error", err)
		s.writeError(w, "failed to delete document")
		return
	}
	s.writeJSON(w, envelope{Success: true, Message: fmt.Sprintf("document %d deleted", id)})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if s.cfg.News == nil {
		s.writeError(w, "news is not configured")
		return
	}

	p := news.Params{
		Country:  r.URL.Query().Get("country"),
		Category: r.URL.Query().Get("category"),
		Query:    r.URL.Query().Get("q"),
		Limit:    queryInt(r, "limit", 10),
	}
	articles, err := s.cfg.News.TopHeadlines(r.Context(), p)
	if errors.Is(err, news.ErrQuotaExceeded) {
		s.writeError(w, "news quota exceeded, try again tomorrow")
		return
	}
	if err != nil {
		s.cfg.Logger.Error("failed to fetch news", "error", err)
		s.writeError(w, "failed to fetch news")
		return
	}

	if brand := r.URL.Query().Get("brand"); brand != "" {
		articles = news.FilterForBrand(articles, brand)
	}
	s.writeJSON(w, envelope{Success: true, Data: articles})
}

func (s *Server) handlePrompts(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Prompts == nil {
		s.writeError(w, "prompt generation is not configured")
		return
	}

	var req struct {
		BrandName    string `json:"brand_name"`
		ResearchText string `json:"research_text"`
		Count        int    `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body")
		return
	}
	if req.BrandName == "" {
		s.writeError(w, "brand_name is required")
		return
	}

	prompts, err := s.cfg.Prompts.GeneratePrompts(r.Context(), req.BrandName, req.ResearchText, req.Count)
	if err != nil {
		s.cfg.Logger.Error("failed to generate prompts", "error", err)
		s.writeError(w, "failed to generate prompts")
		return
	}
	s.writeJSON(w, envelope{Success: true, Data: prompts})
}

func (s *Server) handleMemes(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Memes == nil {
		s.writeError(w, "meme generation is not configured")
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body")
		return
	}
	if req.Text == "" {
		s.writeError(w, "text is required")
		return
	}

	memes, err := s.cfg.Memes.Generate(r.Context(), req.Text)
	if err != nil {
		s.cfg.Logger.Error("failed to generate memes", "error", err)
		s.writeError(w, "failed to generate memes")
		return
	}
	s.writeJSON(w, envelope{Success: true, Data: map[string]any{"memes": memes}})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.cfg.Logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
			"remote", r.RemoteAddr)
	})
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
