//
// Tencent is pleased to support the open source community by making trpc-graph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-graph-go is licensed under the Apache License Version 2.0.
//
//

// Package main runs the graph REST API server.
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

	"trpc.group/trpc-go/trpc-graph-go/graph"
	"trpc.group/trpc-go/trpc-graph-go/log"
	"trpc.group/trpc-go/trpc-graph-go/runner"
	runneranthropic "trpc.group/trpc-go/trpc-graph-go/runner/anthropic"
	runneropenai "trpc.group/trpc-go/trpc-graph-go/runner/openai"
	"trpc.group/trpc-go/trpc-graph-go/server"
)

// config is read from the environment once at startup.
type config struct {
	provider string
	model    string
	addr     string
	logLevel string
}

func loadConfig() config {
	return config{
		provider: getenv("LLM_PROVIDER", runner.ProviderAnthropic),
		model:    getenv("LLM_MODEL", "claude-3-7-sonnet-latest"),
		addr:     getenv("GRAPH_SERVER_ADDR", ":8000"),
		logLevel: getenv("LOG_LEVEL", log.LevelInfo),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newRunner builds the provider-backed agent runner. API keys are read by
// the SDKs from their standard environment variables.
func newRunner(provider string) (runner.Runner, error) {
	switch provider {
	case runner.ProviderOpenAI:
		return runneropenai.New(), nil
	case runner.ProviderAnthropic:
		return runneranthropic.New(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q (expected %q or %q)",
			provider, runner.ProviderOpenAI, runner.ProviderAnthropic)
	}
}

func main() {
	cfg := loadConfig()
	log.SetLevel(cfg.logLevel)

	r, err := newRunner(cfg.provider)
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}
	rc := graph.RuntimeContext{Provider: cfg.provider, Model: cfg.model}
	srv := server.New(graph.NewStore(), r, rc)

	httpServer := &http.Server{
		Addr:    cfg.addr,
		Handler: srv.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("graph server listening on %s (provider=%s model=%s)", cfg.addr, cfg.provider, cfg.model)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}
