package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/yungtweek/talkie/apps/openai-bridge/internal/auth"
	"github.com/yungtweek/talkie/apps/openai-bridge/internal/config"
	grpcserver "github.com/yungtweek/talkie/apps/openai-bridge/internal/grpc"
	"github.com/yungtweek/talkie/apps/openai-bridge/internal/logger"
	"github.com/yungtweek/talkie/apps/openai-bridge/internal/metrics"
	"github.com/yungtweek/talkie/apps/openai-bridge/internal/ollama"
	"github.com/yungtweek/talkie/apps/openai-bridge/internal/openai"
	"github.com/yungtweek/talkie/apps/openai-bridge/internal/server"
	"github.com/yungtweek/talkie/apps/openai-bridge/internal/service"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()

	cmd := &cobra.Command{
		Use:           "openai-bridge",
		Short:         "OpenAI-compatible chat completions endpoint in front of a local Ollama server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}
	bindFlags(cmd.Flags(), cfg)
	return cmd
}

// bindFlags exposes every config field as a flag whose default is the
// value already loaded from the environment.
func bindFlags(fs *pflag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	fs.StringVar(&cfg.OllamaURL, "ollama-url", cfg.OllamaURL, "Ollama base URL")
	fs.IntVar(&cfg.TimeoutMs, "timeout-ms", cfg.TimeoutMs, "blocking backend call timeout in milliseconds")
	fs.StringVar(&cfg.GRPCHealthPort, "grpc-health-port", cfg.GRPCHealthPort, "gRPC health listen port (empty disables)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.BoolVar(&cfg.MetricsEnabled, "metrics", cfg.MetricsEnabled, "serve Prometheus metrics on /metrics")
}

func run(ctx context.Context, cfg *config.Config) error {
	// Initialize structured logger
	if err := logger.Init(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync()

	addr := ":" + cfg.Port

	logger.Log.Info("Starting OpenAI bridge",
		zap.String("addr", addr),
		zap.String("ollama_url", cfg.OllamaURL),
		zap.Int("timeout_ms", cfg.TimeoutMs),
		zap.String("grpc_health_port", cfg.GRPCHealthPort),
		zap.Bool("metrics", cfg.MetricsEnabled),
	)
	if cfg.APIKey == "" {
		logger.Log.Warn("OPENAI_API_KEY is not set; every request will be rejected")
	}

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector()
	}

	ollamaClient := ollama.NewClient(cfg.OllamaURL, cfg.TimeoutMs)
	chatService := service.NewChatService(ollamaClient, openai.NewTranslator(), collector)

	srv := server.New(server.Options{
		Addr:     addr,
		Verifier: auth.NewVerifier(cfg.APIKey),
		Service:  chatService,
		Pinger:   ollamaClient,
		Metrics:  collector,
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var healthSrv *grpcserver.Server
	if cfg.GRPCHealthPort != "" {
		healthSrv = grpcserver.New(":" + cfg.GRPCHealthPort)
		go func() {
			if err := healthSrv.Run(); err != nil {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Log.Info("shutting down")
	case runErr = <-errCh:
		logger.Log.Error("server exited with error", zap.Error(runErr))
	}

	if healthSrv != nil {
		healthSrv.GracefulStop()
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Log.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Log.Info("server stopped")
	return runErr
}
