package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"modetex/backend/internal/cache"
	"modetex/backend/internal/config"
	"modetex/backend/internal/httpapi"
	"modetex/backend/internal/restock"
	"modetex/backend/internal/service"
	"modetex/backend/internal/store"
	"modetex/backend/internal/store/memory"
	"modetex/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var closers []io.Closer
	var repo store.Repository

	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		closers = append(closers, pg)
		repo = pg
		log.Println("using postgres store")
	} else {
		repo = memory.NewSeeded()
		log.Println("DATABASE_URL not set, using seeded in-memory store")
	}

	var cacheStore cache.Cache = cache.Noop{}
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := redisCache.Ping(ctx)
		cancel()
		if err != nil {
			log.Printf("redis unreachable (%v), falling back to no-op cache", err)
			_ = redisCache.Close()
		} else {
			cacheStore = redisCache
			closers = append(closers, redisCache)
			log.Println("redis cache enabled")
		}
	}

	svc := service.New(repo, cfg.CompanyName)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	advisor := restock.NewAdvisor(cacheStore, time.Duration(cfg.DashboardTTLSeconds)*time.Second)
	api := httpapi.New(svc, auth, advisor, cacheStore, time.Duration(cfg.DashboardTTLSeconds)*time.Second, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	for _, closer := range closers {
		if err := closer.Close(); err != nil {
			log.Printf("close failed: %v", err)
		}
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if cfg.AuthSecret == "" {
		if cfg.DatabaseURL != "" {
			return fmt.Errorf("AUTH_SECRET is required when running against a database")
		}
		log.Println("WARNING: AUTH_SECRET not set, using insecure dev default")
		return nil
	}
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be at least 32 characters")
	}
	return nil
}
