package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"orderconsumer/internal/api"
	"orderconsumer/internal/cache"
	"orderconsumer/internal/cache/lru_cache"
	"orderconsumer/internal/codec"
	"orderconsumer/internal/config"
	"orderconsumer/internal/db"
	"orderconsumer/internal/interfaces"
	"orderconsumer/internal/kafka"
	"orderconsumer/internal/ledger"
	"orderconsumer/internal/lookup"
	"orderconsumer/internal/routing"
	"orderconsumer/internal/server"
	"orderconsumer/internal/service"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	shutdownTimeout = 30 * time.Second
	deadLetterLimit = 10000
)

func main() {
	cfg, err := config.LoadConfig("config/config.yml")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, checks, closeStore, err := newLookupStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Lookup.Backend).Msg("Failed to initialize lookup store")
	}
	defer closeStore()

	lruCache, err := lru_cache.NewLRUCache[string, string](cfg.Cache.Capacity, cfg.Cache.TTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize LRU cache")
	}
	cacheLogger := logger.With().Str("component", "cache-manager").Logger()
	cacheManager := cache.NewManager(lruCache, store, &cacheLogger)

	apiLogger := logger.With().Str("component", "order-api").Logger()
	apiClient := api.NewClient(cfg.API, cfg.CircuitBreaker, &apiLogger)

	processorLogger := logger.With().Str("component", "item-processor").Logger()
	processor := service.NewItemProcessor(apiClient, cacheManager, cfg.Lookup, cfg.API.Path, &processorLogger)

	avroCodec, err := codec.NewAvroCodec()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Avro codec")
	}

	producerLogger := logger.With().Str("component", "kafka-producer").Logger()
	producer := kafka.NewProducer(cfg.Kafka.BrokerList(), cfg.Kafka.PublishTimeout, &producerLogger)
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close Kafka producer")
		}
	}()

	dlqLogger := logger.With().Str("component", "dead-letter-queue").Logger()
	deadLetters := kafka.NewInMemoryDeadLetterQueue(deadLetterLimit, &dlqLogger)

	retryLedger, err := ledger.NewLedger(cfg.Kafka.MaxRetryAttempts)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize retry ledger")
	}

	chain := routing.TopicChain{
		Main:  cfg.Kafka.MainTopic,
		Retry: cfg.Kafka.RetryTopic,
		Error: cfg.Kafka.ErrorTopic,
	}
	if err := chain.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid topic chain")
	}

	routingLogger := logger.With().Str("component", "router").Logger()
	gateway := routing.NewGateway(
		producer, avroCodec, deadLetters, cfg.Kafka.RetryTopic, cfg.Kafka.PublishTimeout, &routingLogger,
	)

	var gate *routing.RecoveryGate
	if cfg.Kafka.ErrorConsumer {
		gate = routing.NewRecoveryGate(cfg.Kafka.RecoveryOffset, &routingLogger)
	}
	router := routing.NewRouter(chain, processor, retryLedger, gateway, gate, deadLetters, &routingLogger)

	kafkaLogger := logger.With().Str("component", "kafka-consumer").Logger()
	registry := kafka.NewRegistry()
	if cfg.Kafka.ErrorConsumer {
		errorConsumer := kafka.NewConsumer(
			*cfg, chain.Error, router.Handler(routing.TierError), avroCodec, deadLetters, &kafkaLogger,
		)
		gate.Bind(errorConsumer)
		registry.Add(errorConsumer)
		logger.Info().
			Str("topic", chain.Error).
			Int64("recovery_offset", gate.Offset()).
			Msg("Running as error queue consumer")
	} else {
		for _, tier := range []routing.Tier{routing.TierMain, routing.TierRetry} {
			registry.Add(kafka.NewConsumer(
				*cfg, chain.Topic(tier), router.Handler(tier), avroCodec, deadLetters, &kafkaLogger,
			))
		}
	}

	serverLogger := logger.With().Str("component", "http-server").Logger()
	httpServer := server.New(cfg, server.Dependencies{
		Consumers:   registry,
		DeadLetters: deadLetters,
		Publisher:   producer,
		ReplayTopic: chain.Retry,
		Cache:       cacheManager,
		Checks:      checks,
	}, &serverLogger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.Start(); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := registry.StartAll(gctx); err != nil {
			return fmt.Errorf("Kafka consumer error: %w", err)
		}

		<-gctx.Done()
		logger.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var stopErrors []error
		if err := registry.StopAll(shutdownCtx); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop Kafka consumers: %w", err))
		}
		if err := httpServer.Stop(shutdownCtx); err != nil {
			stopErrors = append(stopErrors, err)
		}
		return errors.Join(stopErrors...)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Order consumer stopped with errors")
		return
	}
	logger.Info().Msg("Order consumer stopped")
}

// newLookupStore opens the configured entity id backend
func newLookupStore(
	ctx context.Context, cfg *config.Config,
) (interfaces.LookupStore, map[string]server.HealthCheck, func(), error) {
	switch cfg.Lookup.Backend {
	case config.LookupRedis:
		store, err := lookup.NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		checks := map[string]server.HealthCheck{"redis": store.Ping}
		return store, checks, func() { _ = store.Close() }, nil
	default:
		database, err := db.NewDBWithConfig(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		checks := map[string]server.HealthCheck{"postgres": database.Ping}
		return db.NewLookupRepo(database), checks, database.Close, nil
	}
}
