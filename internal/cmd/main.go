package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tandaclub/sorteo-live/internal/live"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal().Msg("JWT_SECRET environment variable is required")
	}

	port := getEnv("PORT", "8080")
	allowedOrigins := []string{"*"}

	liveCfg := live.DefaultConfig()
	liveCfg.JWTSecret = jwtSecret
	liveCfg.Connection.PingInterval = time.Duration(getEnvAsInt("PING_INTERVAL_SECONDS", 30)) * time.Second

	if path := os.Getenv("SORTEO_CONFIG"); path != "" {
		cfg, err := loadConfig(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("failed to load config")
		}
		if cfg.Server.Port != "" {
			port = cfg.Server.Port
		}
		if cfg.Gateway.PingIntervalSeconds > 0 {
			liveCfg.Connection.PingInterval = time.Duration(cfg.Gateway.PingIntervalSeconds) * time.Second
		}
		if cfg.Gateway.ShufflePauseMs > 0 {
			liveCfg.Sequencer.ShufflePause = time.Duration(cfg.Gateway.ShufflePauseMs) * time.Millisecond
		}
		if cfg.Gateway.CompletePauseMs > 0 {
			liveCfg.Sequencer.CompletePause = time.Duration(cfg.Gateway.CompletePauseMs) * time.Millisecond
		}
		if len(cfg.Gateway.AllowedOrigins) > 0 {
			allowedOrigins = cfg.Gateway.AllowedOrigins
		}
	}

	service, err := live.NewService(liveCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create live service")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go service.Start(ctx)

	mux := http.NewServeMux()
	service.RegisterRoutes(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/api/lottery/run", lotteryRunHandler(service))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           corsHandler.Handler(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("port", port).Msg("sorteo gateway listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

// lotteryRunRequest is the thin external-caller shape: the real API
// layer decides ordering and timing and posts them here verbatim.
type lotteryRunRequest struct {
	GroupID           string        `json:"groupId"`
	GroupName         string        `json:"groupName"`
	Members           []live.Member `json:"members"`
	CountdownSeconds  int           `json:"countdownSeconds"`
	AssignmentDelayMs int           `json:"assignmentDelayMs"`
}

func lotteryRunHandler(service *live.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req lotteryRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.GroupID == "" {
			http.Error(w, "groupId is required", http.StatusBadRequest)
			return
		}
		if req.CountdownSeconds <= 0 {
			req.CountdownSeconds = 10
		}
		if req.AssignmentDelayMs <= 0 {
			req.AssignmentDelayMs = 800
		}

		results, err := service.ExecuteLiveLottery(r.Context(), req.GroupID, req.GroupName,
			req.Members, req.CountdownSeconds, time.Duration(req.AssignmentDelayMs)*time.Millisecond)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error().Err(err).Str("group_id", req.GroupID).Msg("lottery run failed")
			http.Error(w, "lottery run failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	}
}
