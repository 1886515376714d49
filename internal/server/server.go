// Package server wires handlers, middleware and routes into an HTTP server
// with graceful shutdown. It is the composition point for the API surface.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/meetwo/meetwo-server/internal/app"
	"github.com/meetwo/meetwo-server/internal/auth"
	"github.com/meetwo/meetwo-server/internal/handler"
)

// Handlers bundles the per-domain HTTP handlers the router mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	Users    *handler.UserHandler
	Likes    *handler.LikeHandler
	Photos   *handler.PhotoHandler
	Messages *handler.MessageHandler
}

// Server owns the router and the underlying http.Server.
type Server struct {
	appCtx *app.AppContext
	http   *http.Server
}

// New assembles the router and returns a Server ready to Start.
func New(appCtx *app.AppContext, tokens *auth.TokenService, h Handlers) *Server {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(appCtx.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	requireAuth := auth.RequireAuth(tokens)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Post("/validate", h.Auth.Validate)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", h.Auth.Me)
			r.Post("/logout", h.Auth.Logout)
		})
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/", h.Users.Create)
		r.Get("/", h.Users.List)
		r.Get("/newest", h.Users.Newest)
		r.Get("/search/city/{city}", h.Users.ByCity)
		r.Get("/search/gender/{gender}", h.Users.ByGender)
		r.Get("/search/age-range", h.Users.ByAgeRange)
		r.Get("/check/username/{username}", h.Users.CheckUsername)
		r.Get("/check/email/{email}", h.Users.CheckEmail)
		r.Get("/username/{username}", h.Users.GetByUsername)
		r.Get("/{id}", h.Users.Get)
		r.Put("/{id}", h.Users.Update)
		r.Delete("/{id}", h.Users.Delete)
	})

	r.Route("/api/likes", func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/", h.Likes.Create)
		r.Delete("/", h.Likes.Remove)
		r.Get("/check-match", h.Likes.CheckMatch)
		r.Get("/check-like", h.Likes.CheckLike)
		r.Get("/top-users", h.Likes.TopUsers)
		r.Get("/given/user/{userId}", h.Likes.GivenBy)
		r.Get("/received/user/{userId}", h.Likes.ReceivedBy)
		r.Get("/matches/user/{userId}", h.Likes.Matches)
		r.Get("/stats/user/{userId}", h.Likes.Stats)
		r.Get("/recent/user/{userId}", h.Likes.Recent)
		r.Get("/liked-users/{userId}", h.Likes.LikedUsers)
		r.Delete("/user/{userId}/all", h.Likes.RemoveAll)
		r.Get("/{id}", h.Likes.Get)
		r.Delete("/{id}", h.Likes.RemoveByID)
	})

	r.Route("/api/photos", func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/", h.Photos.Upload)
		r.Post("/url", h.Photos.CreateFromURL)
		r.Get("/user/{userId}", h.Photos.ListByUser)
		r.Get("/user/{userId}/main", h.Photos.Main)
		r.Put("/user/{userId}/reorder", h.Photos.Reorder)
		r.Get("/{id}", h.Photos.Get)
		r.Put("/{id}", h.Photos.Update)
		r.Put("/{id}/set-main", h.Photos.SetMain)
		r.Delete("/{id}", h.Photos.Delete)
	})

	r.Route("/api/messages", func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/", h.Messages.Send)
		r.Get("/can-send", h.Messages.CanSend)
		r.Get("/conversation", h.Messages.Conversation)
		r.Get("/conversation/recent", h.Messages.RecentConversation)
		r.Put("/conversation/read", h.Messages.MarkConversationRead)
		r.Delete("/conversation", h.Messages.DeleteConversation)
		r.Get("/conversations/user/{userId}", h.Messages.Conversations)
		r.Get("/unread/count/conversation", h.Messages.UnreadInConversation)
		r.Get("/unread/count/{userId}", h.Messages.UnreadCount)
		r.Get("/stats/user/{userId}", h.Messages.Stats)
		r.Get("/search/user/{userId}", h.Messages.Search)
		r.Get("/recent/user/{userId}", h.Messages.Recent)
		r.Delete("/user/{userId}/all", h.Messages.DeleteAll)
		r.Get("/{id}", h.Messages.Get)
		r.Put("/{id}", h.Messages.Update)
		r.Put("/{id}/read", h.Messages.MarkRead)
		r.Delete("/{id}", h.Messages.Delete)
	})

	// Uploaded photos are served straight off disk.
	uploadDir := appCtx.Cfg.Upload.Dir
	r.Handle("/uploads/photos/*", http.StripPrefix("/uploads/photos/", http.FileServer(http.Dir(uploadDir))))

	addr := net.JoinHostPort(appCtx.Cfg.HTTP.Host, appCtx.Cfg.HTTP.Port)
	return &Server{
		appCtx: appCtx,
		http: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Addr returns the listen address the server binds to.
func (s *Server) Addr() string {
	return s.http.Addr
}

// Handler exposes the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.appCtx.Logger.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests before closing the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.appCtx.Logger.Info("http server shutting down")
	return s.http.Shutdown(ctx)
}

// requestLogger logs one line per request with method, path, status and latency.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
				"request_id", chimiddleware.GetReqID(r.Context()),
			)
		})
	}
}
