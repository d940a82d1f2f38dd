// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command meridian starts the Meridian gateway HTTP server.
//
// Configuration comes from meridian.yaml in the working directory plus
// the environment (MERIDIAN_ prefix). Provider API keys are read from
// OPENAI_API_KEY, ANTHROPIC_API_KEY and PERPLEXITY_API_KEY; providers
// whose key is absent are skipped at startup.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/meridian-ai/meridian/pkg/config"
	"github.com/meridian-ai/meridian/pkg/logging"
	"github.com/meridian-ai/meridian/services/llm"
	"github.com/meridian-ai/meridian/services/orchestrator"
	"github.com/meridian-ai/meridian/services/orchestrator/budget"
	"github.com/meridian-ai/meridian/services/orchestrator/cache"
	"github.com/meridian-ai/meridian/services/orchestrator/classifier"
	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
	"github.com/meridian-ai/meridian/services/orchestrator/router"
	"github.com/meridian-ai/meridian/services/orchestrator/routes"
)

func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("meridian-gateway")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// engineConfig maps the file configuration onto engine tuning.
func engineConfig(cfg config.Config) orchestrator.Config {
	out := orchestrator.DefaultConfig()

	out.Classifier = classifier.Thresholds{
		Medium:  cfg.Routing.ComplexityThresholds.Medium,
		Complex: cfg.Routing.ComplexityThresholds.Complex,
	}
	out.TTL = classifier.TTLPolicy{
		RealtimeMs: cfg.Cache.RealtimeTTLMs,
		DefaultMs:  cfg.Cache.TTLMs,
	}
	out.Budget = budget.Config{
		DailyLimit:       cfg.Budget.Daily.Limit,
		WeeklyLimit:      cfg.Budget.Weekly.Limit,
		MonthlyLimit:     cfg.Budget.Monthly.Limit,
		EmergencyEnabled: true,
		Thresholds: []datatypes.AlertThreshold{
			{Percentage: 50, Action: datatypes.AlertActionLog},
			{Percentage: 80, Action: datatypes.AlertActionNotify},
			{Percentage: cfg.Budget.EmergencyThreshold, Action: datatypes.AlertActionEmergencyMode},
		},
	}
	out.Cache = cache.Config{
		SimilarityThreshold: cfg.Cache.SimilarityThreshold,
		MaxEntries:          cfg.Cache.MaxEntries,
		DefaultTTL:          time.Duration(cfg.Cache.TTLMs) * time.Millisecond,
	}
	out.Router = router.Config{
		DefaultStrategy:   datatypes.Strategy(cfg.Routing.DefaultStrategy),
		CascadeMinQuality: cfg.Routing.CascadeMinQuality,
	}
	return out
}

// exportKeys copies configured provider keys into the environment the
// adapters read. Environment values win.
func exportKeys(cfg config.Config) {
	envName := map[string]string{
		"openai":     "OPENAI_API_KEY",
		"anthropic":  "ANTHROPIC_API_KEY",
		"perplexity": "PERPLEXITY_API_KEY",
	}
	for name, pc := range cfg.Providers {
		env, ok := envName[name]
		if !ok || pc.APIKey == "" || os.Getenv(env) != "" {
			continue
		}
		os.Setenv(env, pc.APIKey)
	}
}

// logLevel maps the config string onto a logging level.
func logLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	exportKeys(cfg)

	logger := logging.New(logging.Config{
		Level:   logLevel(cfg.Log.Level),
		LogDir:  cfg.Log.Dir,
		Service: "gateway",
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	otelEndpoint := cfg.Otel.Endpoint
	if otelEndpoint == "" {
		otelEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if otelEndpoint != "" {
		cleanup, err := initTracer(otelEndpoint)
		if err != nil {
			log.Fatalf("failed to setup the OTLP tracer: %v", err)
		}
		defer cleanup(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engineCfg := engineConfig(cfg)

	// The registry publishes health transitions into the hub once the
	// engine exists; wire the indirection through a late-bound func.
	var engine *orchestrator.Engine
	registry := llm.NewRegistry(func(e datatypes.HealthEvent) {
		if engine != nil {
			engine.Hub().Health.Publish(e)
		}
	})

	var adapter cache.Adapter
	if cfg.Cache.Adapter == "redis" {
		adapter, err = cache.NewRedisAdapter(ctx, cfg.Cache.Redis.Addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB)
		if err != nil {
			log.Fatalf("failed to connect to redis at %s: %v", cfg.Cache.Redis.Addr, err)
		}
		slog.Info("using redis cache adapter", "addr", cfg.Cache.Redis.Addr)
	}

	engine = orchestrator.New(engineCfg, registry, adapter)

	for name, construct := range map[string]func() (llm.Provider, error){
		"openai":     func() (llm.Provider, error) { return llm.NewOpenAIProvider(engine.Book()) },
		"anthropic":  func() (llm.Provider, error) { return llm.NewAnthropicProvider(engine.Book()) },
		"perplexity": func() (llm.Provider, error) { return llm.NewPerplexityProvider(engine.Book()) },
	} {
		p, err := construct()
		if err != nil {
			slog.Warn("provider disabled", "provider", name, "reason", err.Error())
			continue
		}
		registry.Register(p)
		slog.Info("provider enabled", "provider", name, "models", p.Models())
	}
	if len(registry.Names()) == 0 {
		slog.Warn("no providers configured; every query will fail routing")
	}

	registry.StartHealthLoop(ctx, 0)
	go engine.PruneLoop(ctx, 0)

	gin.SetMode(gin.ReleaseMode)
	ginEngine := gin.Default()
	ginEngine.Use(otelgin.Middleware("meridian-gateway"))
	routes.SetupRoutes(ginEngine, engine, routes.Options{
		CORSOrigin: cfg.Server.Cors.Origin,
		WSToken:    cfg.WS.AuthToken,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           ginEngine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("starting the meridian gateway", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown incomplete", "error", err)
	}
}
