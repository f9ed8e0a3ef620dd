package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/jewelshop/gateway"
	"github.com/example/jewelshop/pkg/auth"
	"github.com/example/jewelshop/pkg/config"
	"github.com/example/jewelshop/pkg/discovery"
	"github.com/example/jewelshop/pkg/events"
	"github.com/example/jewelshop/pkg/grpc"
	"github.com/example/jewelshop/pkg/logger"
	"github.com/example/jewelshop/pkg/order"
	"github.com/example/jewelshop/pkg/payment"
	"github.com/example/jewelshop/pkg/repository"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Error("Storefront failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	_ = log.Sync()
}

// run serves until ctx ends or a server fails, closing what it opened on the
// way out.
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting storefront",
		zap.String("name", cfg.Server.Name),
		zap.String("address", cfg.Server.Addr()))

	// Payment gateway; credentials are checked before anything is served
	gw, err := payment.NewRazorpayGateway(cfg.Payment, log)
	if err != nil {
		return fmt.Errorf("payment gateway misconfigured: %w", err)
	}

	// MongoDB
	mongoRepo, err := repository.NewMongoRepository(ctx, &cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoRepo.Close(cctx); err != nil {
			log.Warn("Failed to close MongoDB", zap.Error(err))
		}
	}()
	if err := mongoRepo.Orders().EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	// Redis
	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	defer redisRepo.Close()
	if err := redisRepo.Ping(ctx); err != nil {
		log.Warn("Redis connection failed, caching degraded", zap.Error(err))
	} else {
		log.Info("Redis connected successfully")
	}

	// Event sinks
	sinks := []events.Sink{events.NewAuditSink(mongoRepo.AuditLogs())}
	if cfg.Kafka.Enabled() {
		kafkaSink, err := events.NewKafkaSink(cfg.Kafka)
		if err != nil {
			log.Warn("Kafka unavailable, events go to the audit log only", zap.Error(err))
		} else {
			defer kafkaSink.Close()
			sinks = append(sinks, kafkaSink)
		}
	}
	dispatcher, err := events.NewDispatcher(log, sinks...)
	if err != nil {
		return fmt.Errorf("failed to start event dispatcher: %w", err)
	}
	defer func() {
		if err := dispatcher.Stop(cfg.Server.ShutdownTimeout); err != nil {
			log.Warn("Event dispatcher did not drain", zap.Error(err))
		}
	}()

	orders := order.NewService(order.Deps{
		Store:       mongoRepo.Orders(),
		Gateway:     gw,
		Cache:       redisRepo,
		Idempotency: redisRepo,
		Audit:       mongoRepo.AuditLogs(),
		Events:      dispatcher,
	}, cfg.Payment, log)

	// Users and login are optional
	tokens := auth.NewTokenManager(cfg.Auth)
	var login gateway.LoginService
	if cfg.MySQL.Enabled() {
		users, err := repository.NewUserRepository(&cfg.MySQL)
		if err != nil {
			return fmt.Errorf("failed to connect to MySQL: %w", err)
		}
		defer users.Close()

		authenticator := auth.NewAuthenticator(users, tokens, log)
		if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword != "" {
			if err := authenticator.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
				return fmt.Errorf("failed to seed admin account: %w", err)
			}
		}
		login = authenticator
	} else {
		log.Info("MySQL not configured, login endpoint disabled")
	}

	checks := map[string]gateway.Pinger{
		"mongodb": mongoRepo,
		"redis":   redisRepo,
	}

	// Service discovery
	instance := &discovery.ServiceInstance{Name: cfg.Server.Name, Host: cfg.Server.Host, Port: cfg.Server.Port}
	deregister := func(context.Context) {}
	if len(cfg.Etcd.Endpoints) > 0 {
		sd, err := discovery.NewServiceDiscovery(&cfg.Etcd, log)
		if err != nil {
			log.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		} else {
			defer sd.Close()
			if err := sd.Register(ctx, instance); err != nil {
				log.Warn("Failed to register service", zap.Error(err))
			} else {
				checks["etcd"] = sd.Check(instance)
				deregister = func(ctx context.Context) {
					if err := sd.Deregister(ctx, instance); err != nil {
						log.Error("Failed to deregister service", zap.Error(err))
					}
				}
			}
		}
	}

	// HTTP
	gwHTTP := gateway.NewGateway(cfg, log, orders, login, tokens, checks)
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           gwHTTP.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 2)
	go func() {
		log.Info("HTTP server starting", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// gRPC health
	healthServer := grpc.NewHealthServer(cfg.GRPC, mongoRepo, log)
	go healthServer.Watch(ctx)
	go func() {
		if err := healthServer.Start(); err != nil {
			serverErr <- fmt.Errorf("grpc: %w", err)
		}
	}()
	defer healthServer.Stop()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Received shutdown signal")
	case runErr = <-serverErr:
		log.Error("Server error", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	deregister(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", zap.Error(err))
	}

	log.Info("Storefront stopped")
	return runErr
}
