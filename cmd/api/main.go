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
	"go.uber.org/zap"

	"github.com/zhouzirui/secret-keeper/backend/internal/config"
	"github.com/zhouzirui/secret-keeper/backend/internal/handler"
	"github.com/zhouzirui/secret-keeper/backend/internal/model/persona"
	"github.com/zhouzirui/secret-keeper/backend/internal/pkg/logger"
	"github.com/zhouzirui/secret-keeper/backend/internal/service/ai"
	"github.com/zhouzirui/secret-keeper/backend/internal/service/chat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	// 配置加载前没有可用的日志配置，先用开发模式输出到终端。
	bootstrap := zap.Must(zap.NewDevelopment())

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Fatal("failed to load configuration", zap.Error(err))
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		bootstrap.Fatal("failed to build logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if envErr != nil {
		log.Warn("failed to load .env file, continuing with system environment variables only", zap.Error(envErr))
	}

	provider, err := ai.NewProvider(cfg.AI)
	if err != nil {
		log.Fatal("failed to select model provider", zap.Error(err))
	}
	if cfg.AI.Credential() == "" {
		// 不中断启动：每个会话会以 failed 状态返回并展示初始化失败提示。
		log.Warn("API key is not defined; sessions will fail to initialize", zap.String("provider", cfg.AI.Provider))
	}

	personaStore := persona.NewMemoryStore(cfg.AI.Personas(persona.Seed()))
	chatService := chat.NewService(provider, personaStore, cfg.AI.Credential(), cfg.Session, log)
	defer chatService.Close()

	router := handler.NewRouter(personaStore, chatService, log)

	startServer(ctx, cfg.Server, router, log)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, log *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("Secret Keeper backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
	log.Info("server stopped")
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
