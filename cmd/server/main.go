package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"helixrecruit/internal/app"
	"helixrecruit/internal/config"
	"helixrecruit/internal/server"
	"helixrecruit/internal/util"
	"helixrecruit/pkg/broadcast"
)

const defaultPortRetries = 3

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	broker, err := newBroker(cfg)
	if err != nil {
		log.Fatalf("failed to init broker: %v", err)
	}
	defer broker.Close()

	appCore, err := app.New(app.Config{
		DatabaseURL:   cfg.DatabaseURL,
		JWTSecret:     cfg.JWTSecret,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIModel:   cfg.OpenAIModel,
		HistoryLimit:  cfg.HistoryLimit,
		Broker:        broker,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	hub := broadcast.NewHub()

	httpServer, err := server.New(server.Config{
		App:                      appCore,
		Hub:                      hub,
		AllowedOrigins:           cfg.AllowedOrigins,
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		SignupRateLimitPerMinute: cfg.SignupRateLimitPerMinute,
		LoginRateLimitPerMinute:  cfg.LoginRateLimitPerMinute,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	listener, addr, err := listenWithRetry(cfg.Port, cfg.PortRetries)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	srv := &http.Server{
		Handler:     httpServer.Router(),
		ReadTimeout: 15 * time.Second,
		// WriteTimeout stays unset so the event stream can run long-lived.
		IdleTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Fan broker updates out to the local event-stream subscribers.
		if err := broker.Subscribe(ctx, hub.Broadcast); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("broker subscribe: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func newBroker(cfg config.FileConfig) (broadcast.Broker, error) {
	switch cfg.Broker {
	case config.BrokerRedis:
		return broadcast.NewRedisBroker(cfg.RedisAddr, cfg.RedisPassword, "")
	case config.BrokerAMQP:
		return broadcast.NewAMQPBroker(cfg.AMQPURL, cfg.AMQPExchange)
	default:
		return broadcast.NewMemoryBroker(), nil
	}
}

// listenWithRetry binds the configured port, stepping to the next port when
// the current one is taken, up to the retry limit.
func listenWithRetry(port string, retries int) (net.Listener, string, error) {
	if retries <= 0 {
		retries = defaultPortRetries
	}
	base, err := strconv.Atoi(port)
	if err != nil {
		return nil, "", fmt.Errorf("invalid port %q: %w", port, err)
	}
	var lastErr error
	for i := 0; i <= retries; i++ {
		addr := ":" + strconv.Itoa(base+i)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			return listener, addr, nil
		}
		lastErr = err
		if !isAddrInUse(err) {
			break
		}
		slog.Warn("port in use, trying next", "addr", addr, "err", err)
	}
	return nil, "", fmt.Errorf("bind after %d attempts: %w", retries+1, lastErr)
}

func isAddrInUse(err error) bool {
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	return errors.Is(opErr.Err, syscall.EADDRINUSE)
}
