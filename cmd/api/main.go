package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/helpchat/internal/config"
	"github.com/zhouzirui/helpchat/internal/handler"
	assistantHandler "github.com/zhouzirui/helpchat/internal/handler/assistant"
	"github.com/zhouzirui/helpchat/internal/service/assistant"
)

const unavailableAnswer = "The assistant is not configured yet. Please contact support for help with your cloud security question."

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("failed to load .env file, continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	// 初始化助手服务，未配置模型时回退到固定回复
	responder := newResponder(ctx, cfg)
	h := assistantHandler.New(responder, cfg.Assistant.Welcome, cfg.Assistant.Title)
	router := handler.NewRouter(h)

	startServer(ctx, cfg.Server, router)
}

func newResponder(ctx context.Context, cfg *config.Config) assistantHandler.Responder {
	static := assistant.Static{Answer: unavailableAnswer}

	if !cfg.AI.Enabled() {
		log.Info().Msg("ark credentials not configured, answering queries with a static reply")
		return static
	}

	rules, err := assistant.LoadRules(cfg.Assistant.RulesFile)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load reference rules, continuing without them")
	}

	inventory, err := assistant.LoadInventory(cfg.Assistant.InventoryFile)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load misconfiguration inventory, answering without it")
	}

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to create chat model, answering queries with a static reply")
		return static
	}

	svc, err := assistant.NewService(ctx, chatModel, assistant.Options{
		Rules:     rules,
		Inventory: inventory,
		ChunkSize: cfg.Assistant.ChunkSize,
		MaxTurns:  cfg.Assistant.MaxTurns,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize assistant service, answering queries with a static reply")
		return static
	}

	log.Info().Int("rules", len(rules)).Int("misconfigurations", len(inventory)).Msg("assistant service initialized")
	return svc
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("assistant backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
