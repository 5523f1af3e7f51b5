package server

import (
	"context"
	"net/http"
	"time"

	config "example.com/minitweet/internal/init"
	"example.com/minitweet/internal/logger"
	"example.com/minitweet/internal/metrics"
	"example.com/minitweet/internal/middleware"
	"example.com/minitweet/internal/service"
	"github.com/gorilla/mux"
)

type Server struct {
	svc    *service.Service
	tokens middleware.Verifier
}

var logg = logger.New()

func New(svc *service.Service, tokens middleware.Verifier) *Server {
	return &Server{svc: svc, tokens: tokens}
}

// routes builds the router. Literal paths are registered before their {id} siblings
// so that /tweets/feed and /users/search are not captured as ids.
func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(metrics.InstrumentHandler)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	auth := middleware.JWTAuth(s.tokens)
	protected := func(h http.HandlerFunc) http.Handler { return auth(h) }
	viewer := middleware.OptionalJWTAuth(s.tokens)

	// Public endpoints
	api.HandleFunc("/auth/register", s.registerHandler).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.loginHandler).Methods(http.MethodPost)

	// Tweets
	api.Handle("/tweets/feed", protected(s.getFeedHandler)).Methods(http.MethodGet)
	api.HandleFunc("/tweets/user/{id}", s.userTweetsHandler).Methods(http.MethodGet)
	api.Handle("/tweets", protected(s.createTweetHandler)).Methods(http.MethodPost)
	api.HandleFunc("/tweets/{id}", s.getTweetHandler).Methods(http.MethodGet)
	api.Handle("/tweets/{id}", protected(s.deleteTweetHandler)).Methods(http.MethodDelete)
	api.Handle("/tweets/{id}/like", protected(s.toggleLikeHandler)).Methods(http.MethodPut)
	api.Handle("/tweets/{id}/comments", protected(s.addCommentHandler)).Methods(http.MethodPost)
	api.Handle("/tweets/{id}/comments/{commentId}", protected(s.deleteCommentHandler)).Methods(http.MethodDelete)

	// Users
	api.HandleFunc("/users/search", s.searchUsersHandler).Methods(http.MethodGet)
	api.Handle("/users/{id}", viewer(http.HandlerFunc(s.getUserHandler))).Methods(http.MethodGet)
	api.Handle("/users/{id}/follow", protected(s.followHandler)).Methods(http.MethodPut)
	api.Handle("/users/{id}/unfollow", protected(s.unfollowHandler)).Methods(http.MethodPut)

	// Activity log filled by the worker
	api.Handle("/activity", protected(s.activityHandler)).Methods(http.MethodGet)

	return r
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
// TLS is used when both a certificate and a key are configured.
func Run(ctx context.Context, svc *service.Service, tokens middleware.Verifier, cfg *config.Config) {
	s := New(svc, tokens)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second, // prevent slowloris attacks
		WriteTimeout: 10 * time.Second,
	}

	// --- Start server in a goroutine ---
	go func() {
		var err error
		if cfg.TLSEnabled() {
			logg.Info("server", "Starting HTTPS server on "+cfg.ServerAddr)
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			logg.Info("server", "Starting HTTP server on "+cfg.ServerAddr)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logg.Error("server", "Server stopped unexpectedly", err)
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	logg.Info("server", "Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server", "Error during server shutdown", err)
	} else {
		logg.Info("server", "Server stopped gracefully")
	}
}
