package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"site-rag/internal/index"
	"site-rag/internal/models"
	"site-rag/internal/rag"
)

const SessionCookie = "siterag_session"

// Session limits used unless WithSessionLimits overrides them.
const (
	DefaultMaxSessions = 1000
	DefaultSessionTTL  = time.Hour
)

type session struct {
	transcript *rag.Transcript
	lastUsed   time.Time
}

// Server is the web front-end: a question form, a plain-text answer
// endpoint and a health check. Every browser session has its own transcript.
// Sessions start with the first question, idle ones expire, and the least
// recently used one is evicted once maxSessions are live.
type Server struct {
	chain *rag.Chain
	store index.Store
	title string

	maxSessions int
	sessionTTL  time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewServer(chain *rag.Chain, store index.Store, title string) *Server {
	return &Server{
		chain:       chain,
		store:       store,
		title:       title,
		maxSessions: DefaultMaxSessions,
		sessionTTL:  DefaultSessionTTL,
		now:         time.Now,
		sessions:    map[string]*session{},
	}
}

// WithSessionLimits bounds the live sessions. Zero values keep the defaults.
func (s *Server) WithSessionLimits(maxSessions int, ttl time.Duration) *Server {
	if maxSessions > 0 {
		s.maxSessions = maxSessions
	}
	if ttl > 0 {
		s.sessionTTL = ttl
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// lookup returns the transcript of the request's session, if it is live.
func (s *Server) lookup(r *http.Request) (*rag.Transcript, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchLocked(c.Value)
}

func (s *Server) touchLocked(id string) (*rag.Transcript, bool) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(sess.lastUsed) > s.sessionTTL {
		delete(s.sessions, id)
		return nil, false
	}
	sess.lastUsed = now
	return sess.transcript, true
}

// session returns the caller's transcript, starting a new session when the
// cookie is missing or no longer live.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *rag.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, err := r.Cookie(SessionCookie); err == nil {
		if t, ok := s.touchLocked(c.Value); ok {
			return t
		}
	}

	now := s.now()
	s.sweepLocked(now)
	id := uuid.NewString()
	t := rag.NewTranscript()
	s.sessions[id] = &session{transcript: t, lastUsed: now}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.sessionTTL / time.Second),
	})
	return t
}

// sweepLocked drops expired sessions and then evicts least recently used
// ones until a new session fits under maxSessions.
func (s *Server) sweepLocked(now time.Time) {
	for id, sess := range s.sessions {
		if now.Sub(sess.lastUsed) > s.sessionTTL {
			delete(s.sessions, id)
		}
	}
	for len(s.sessions) > 0 && len(s.sessions) >= s.maxSessions {
		var oldest string
		var oldestAt time.Time
		for id, sess := range s.sessions {
			if oldest == "" || sess.lastUsed.Before(oldestAt) {
				oldest, oldestAt = id, sess.lastUsed
			}
		}
		log.Debug().Str("session", oldest).Msg("Evicting session")
		delete(s.sessions, oldest)
	}
}

// Session looks up a transcript by session id.
func (s *Server) Session(id string) (*rag.Transcript, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return sess.transcript, true
}

func (s *Server) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var turns []models.Turn
	if t, ok := s.lookup(r); ok {
		turns = t.Turns()
		slices.Reverse(turns)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := pageTemplate.Execute(w, struct {
		Title string
		Turns []models.Turn
	}{s.title, turns})
	if err != nil {
		log.Error().Err(err).Msg("Error rendering page")
	}
}

func (s *Server) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	question := strings.TrimSpace(r.FormValue("question"))
	if question == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}

	t := s.session(w, r)
	log.Info().Str("question", question).Msg("Answering")
	resp, err := s.chain.Ask(r.Context(), t, question)
	if err != nil {
		log.Error().Err(err).Str("question", question).Msg("Error answering question")
		status := http.StatusInternalServerError
		if errors.Is(err, index.ErrEmptyIndex) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(resp.Content))
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n, err := s.store.Count(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	s.mu.Lock()
	sessions := len(s.sessions)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"time_utc": time.Now().UTC().Format(time.RFC3339),
		"chunks":   n,
		"sessions": sessions,
	})
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.HandleRoot)
	mux.HandleFunc("/answer", s.HandleAnswer)
	mux.HandleFunc("/healthz", s.HandleHealth)
	return mux
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
