// Package http exposes the JSON API: auth, categories, transactions, the
// month calendar, savings goals, and month stats.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"kakeibo/internal/auth"
	"kakeibo/internal/log"
	"kakeibo/internal/services"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
)

type Server struct {
	http.Server

	auth   *auth.Service
	ledger *services.LedgerService
	goals  *services.GoalsService
	logger *log.Logger

	rateLimiter *rateLimiter

	// calendarCache holds rendered month views per (user, year, month).
	// Every mutation invalidates the affected months so a follow-up read
	// always reflects the write.
	calendarCache *lruCache[calendarResponse]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

func NewServer(addr string, authSvc *auth.Service, ledger *services.LedgerService, goals *services.GoalsService, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.ComponentHTTP, log.Config{})
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		auth:             authSvc,
		ledger:           ledger,
		goals:            goals,
		logger:           logger,
		rateLimiter:      newRateLimiter(),
		calendarCache:    newLRUCache[calendarResponse](200, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/auth/signup", s.middleware(s.handleSignUp))
	mux.HandleFunc("POST /api/auth/login", s.middleware(s.handleLogin))
	mux.HandleFunc("POST /api/auth/logout", s.middleware(s.withAuth(s.handleLogout)))

	mux.HandleFunc("GET /api/categories", s.middleware(s.withAuth(s.handleListCategories)))

	mux.HandleFunc("GET /api/transactions", s.middleware(s.withAuth(s.handleListTransactions)))
	mux.HandleFunc("POST /api/transactions", s.middleware(s.withAuth(s.handleCreateTransaction)))
	mux.HandleFunc("GET /api/transactions/{id}", s.middleware(s.withAuth(s.handleGetTransaction)))
	mux.HandleFunc("PUT /api/transactions/{id}", s.middleware(s.withAuth(s.handleUpdateTransaction)))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.middleware(s.withAuth(s.handleDeleteTransaction)))

	mux.HandleFunc("GET /api/calendar", s.middleware(s.withAuth(s.handleCalendar)))
	mux.HandleFunc("GET /api/stats", s.middleware(s.withAuth(s.handleStats)))

	mux.HandleFunc("GET /api/goals", s.middleware(s.withAuth(s.handleListGoals)))
	mux.HandleFunc("POST /api/goals", s.middleware(s.withAuth(s.handleCreateGoal)))
	mux.HandleFunc("GET /api/goals/{id}", s.middleware(s.withAuth(s.handleGetGoal)))
	mux.HandleFunc("PUT /api/goals/{id}", s.middleware(s.withAuth(s.handleUpdateGoal)))
	mux.HandleFunc("DELETE /api/goals/{id}", s.middleware(s.withAuth(s.handleDeleteGoal)))
	mux.HandleFunc("PUT /api/goals/{id}/active", s.middleware(s.withAuth(s.handleSetGoalActive)))

	return s
}

// middleware adds security headers, rate limiting on mutations, a request
// ID, and request logging.
func (s *Server) middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldRequestID, requestID,
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

// withAuth resolves the bearer token to a user and stores the user ID on
// the request context. Missing or stale sessions get a 401.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		session, err := s.auth.Lookup(r.Context(), token)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, session.UserID)
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// userID returns the authenticated user set by withAuth. Handlers are only
// registered behind the middleware, so a missing value is a programming
// error surfaced as zero.
func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

func calendarCacheKey(userID int64, year, month int) string {
	return fmt.Sprintf("%d:%04d-%02d", userID, year, month)
}

func (s *Server) invalidateCalendar(userID int64, year, month int) {
	s.calendarCache.Delete(calendarCacheKey(userID, year, month))
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.calendarCache.CleanExpired(); cleaned > 0 {
				s.logger.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the cleanup goroutines before draining the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
