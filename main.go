package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/ozodbek/chatline/internal/auth"
	"github.com/ozodbek/chatline/internal/config"
	"github.com/ozodbek/chatline/internal/handlers"
	"github.com/ozodbek/chatline/internal/middleware"
	"github.com/ozodbek/chatline/internal/store/sqlstore"
	"github.com/ozodbek/chatline/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := newLogger(cfg.LogLevel)

	st, err := sqlstore.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("store error: %w", err)
	}
	defer st.Close()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenDuration)

	registry := ws.NewRegistry()
	fanout := ws.NewFanout(registry, st, log)
	wsServer := ws.NewServer(registry, fanout, st, tokens, cfg.SendBufferSize, cfg.MaxMessageSize, log)

	authHandler := &handlers.AuthHandler{Store: st, Tokens: tokens}
	chatHandler := &handlers.ChatHandler{Store: st}
	fileHandler := &handlers.FileHandler{UploadDir: cfg.UploadDir}

	r := mux.NewRouter()
	r.Use(loggingMiddleware(log))

	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	authed := r.NewRoute().Subrouter()
	authed.Use(middleware.Auth(tokens))
	authed.HandleFunc("/auth/me", authHandler.Me).Methods("GET")
	authed.HandleFunc("/chat/users/search", authHandler.SearchUsers).Methods("GET")
	authed.HandleFunc("/chat/conversations", chatHandler.CreateConversation).Methods("POST")
	authed.HandleFunc("/chat/conversations", chatHandler.GetConversations).Methods("GET")
	authed.HandleFunc("/chat/conversations/{id}", chatHandler.GetConversation).Methods("GET")
	authed.HandleFunc("/chat/conversations/{id}/messages", chatHandler.GetConversationMessages).Methods("GET")
	authed.HandleFunc("/chat/conversations/{id}/participants", chatHandler.GetParticipants).Methods("GET")
	authed.HandleFunc("/chat/messages", chatHandler.CreateMessage).Methods("POST")
	authed.HandleFunc("/files/upload", fileHandler.Upload).Methods("POST")
	authed.HandleFunc("/files/download/{filename}", fileHandler.Download).Methods("GET")

	// The websocket endpoint authenticates via query token, not the
	// Authorization header, so it sits outside the middleware.
	r.HandleFunc("/ws/chat/{conversation_id}", wsServer.ServeWS)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: cfg.Addr, Handler: r}
	errChan := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func loggingMiddleware(log *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		})
	}
}
