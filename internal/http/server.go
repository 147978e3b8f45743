package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/eternalist/theprintfarm/internal/apperr"
	"github.com/eternalist/theprintfarm/internal/auth"
	"github.com/eternalist/theprintfarm/internal/config"
	"github.com/eternalist/theprintfarm/internal/metrics"
	"github.com/eternalist/theprintfarm/internal/model"
	"github.com/eternalist/theprintfarm/internal/operations"
)

const maxBodyBytes = 10 << 20

// Verifier resolves a bearer credential to an account. *auth.Verifier
// implements it.
type Verifier interface {
	Verify(ctx context.Context, token string) (model.Account, error)
}

type Server struct {
	cfg      config.Config
	ops      *operations.Service
	verifier Verifier
	limiter  *RateLimiter
	proxies  []netip.Prefix
	log      logrus.FieldLogger
}

func NewServer(cfg config.Config, ops *operations.Service, verifier Verifier, log logrus.FieldLogger) *Server {
	return &Server{
		cfg:      cfg,
		ops:      ops,
		verifier: verifier,
		limiter:  NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log),
		proxies:  parseTrustedProxies(cfg.TrustedProxies, log),
		log:      log,
	}
}

// StartCleanup prunes rate limiter state until ctx is done.
func (s *Server) StartCleanup(ctx context.Context) {
	s.limiter.StartCleanup(time.Minute, ctx.Done())
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(realIP(s.proxies))
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Handler)
		r.Use(s.queryTimeout)

		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)
		r.Post("/auth/reset-password", s.handleResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/logout", s.handleLogout)

			r.Get("/models", s.handleListModels)
			r.Get("/models/favorites/my", s.handleListFavorites)
			r.Get("/models/popular/trending", s.handleTrendingModels)
			r.Get("/models/recent/latest", s.handleRecentModels)
			r.Get("/models/tags/all", s.handleListTags)
			r.Get("/models/{id}", s.handleGetModel)
			r.Post("/models/{id}/favorite", s.handleToggleFavorite)

			r.Get("/users/profile", s.handleGetProfile)
			r.Put("/users/profile", s.handleUpdateProfile)
			r.Get("/users/makers", s.handleListMakers)
			r.Get("/users/makers/{id}", s.handleGetMaker)
			r.Get("/users/admin/all", s.handleAdminListUsers)
			r.Get("/users/admin/stats", s.handleAdminUserStats)
			r.Put("/users/admin/{id}", s.handleAdminUpdateUser)
			r.Delete("/users/admin/{id}", s.handleAdminDeleteUser)

			r.Post("/print-requests", s.handleCreatePrintRequest)
			r.Get("/print-requests", s.handleListPrintRequests)
			r.Get("/print-requests/maker/queue", s.handleMakerQueue)
			r.Get("/print-requests/stats/overview", s.handlePrintRequestStats)
			r.Get("/print-requests/{id}", s.handleGetPrintRequest)
			r.Put("/print-requests/{id}/status", s.handleTransitionPrintRequest)
			r.Delete("/print-requests/{id}", s.handleDeletePrintRequest)

			r.Post("/messages", s.handleSendMessage)
			r.Get("/messages", s.handleListMessages)
			r.Get("/messages/conversations", s.handleListConversations)
			r.Get("/messages/unread/count", s.handleUnreadCount)
			r.Get("/messages/admin/all", s.handleAdminListMessages)
			r.Get("/messages/thread/{partnerId}", s.handleGetThread)
			r.Put("/messages/thread/{partnerId}/read-all", s.handleMarkThreadRead)
			r.Put("/messages/{id}/read", s.handleMarkMessageRead)
			r.Delete("/messages/{id}", s.handleDeleteMessage)

			r.Get("/announcements", s.handleActiveAnnouncements)
			r.Get("/announcements/admin/all", s.handleAdminListAnnouncements)
			r.Post("/announcements/admin", s.handleCreateAnnouncement)
			r.Put("/announcements/admin/{id}", s.handleUpdateAnnouncement)
			r.Put("/announcements/admin/{id}/toggle", s.handleToggleAnnouncement)
			r.Delete("/announcements/admin/{id}", s.handleDeleteAnnouncement)
			r.Get("/announcements/{id}", s.handleGetAnnouncement)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})
	return r
}

// Middleware

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		account, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		ctx := auth.WithAccount(r.Context(), account, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// queryTimeout bounds the persistence work of a single request.
func (s *Server) queryTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.DBQueryTimeout <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.DBQueryTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"request_id":  middleware.GetReqID(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("http request")
	})
}

func caller(r *http.Request) model.Account {
	account, _ := auth.AccountFromContext(r.Context())
	return account
}

// Helpers

var errBodyRequired = errors.New("request body required")

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errBodyRequired
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindInvalidTransition, apperr.KindConflict,
		apperr.KindUnsupportedMaterial, apperr.KindSelfMessage:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// writeAppError renders a domain error. Internal causes are logged and never
// shown to the client.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Internal("unexpected error", err)
	}
	status := statusFor(appErr.Kind)
	if status == http.StatusInternalServerError {
		s.log.WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"path":       r.URL.Path,
		}).Error("request failed")
		writeError(w, status, "Internal server error")
		return
	}
	if appErr.Kind == apperr.KindUnsupportedMaterial {
		writeJSON(w, status, map[string]interface{}{
			"error":              appErr.Message,
			"supportedMaterials": appErr.SupportedMaterials,
		})
		return
	}
	writeError(w, status, appErr.Message)
}

// parsePage reads page and limit; bad values fall back to the operation's
// defaults.
func parsePage(r *http.Request) model.PageRequest {
	return model.PageRequest{
		Page:  parseInt(r.URL.Query().Get("page"), 1),
		Limit: parseInt(r.URL.Query().Get("limit"), 0),
	}
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func parseBool(raw string) *bool {
	if raw == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &parsed
}

// sortDesc treats anything but an explicit "asc" as descending.
func sortDesc(r *http.Request) bool {
	return !strings.EqualFold(r.URL.Query().Get("sortOrder"), "asc")
}
