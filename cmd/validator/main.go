package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/Andrew-Costa-10114/talisman-ai/config"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/analyzer"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/api"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/deduplication"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/grading"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/groundtruth"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/polling"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/protocol"
	rediskeys "github.com/Andrew-Costa-10114/talisman-ai/pkgs/redis"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/rewards"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/workers"
)

func main() {
	// .env is optional; real deployments configure through the
	// environment directly.
	if err := godotenv.Load(); err == nil {
		log.Info("Loaded environment from .env")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	settings := config.SettingsObj

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	keyBuilder := rediskeys.NewKeyBuilder(settings.Network, settings.ValidatorHotkey)

	var redisClient *redis.Client
	if settings.RedisEnabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", settings.RedisHost, settings.RedisPort),
			Password: settings.RedisPassword,
			DB:       settings.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warnf("Redis unreachable, continuing without persistence: %v", err)
			redisClient = nil
		}
	}

	// Boundaries
	signer := protocol.NewHMACSigner(settings.ValidatorHotkey, settings.AuthSecret)
	coordinator := protocol.NewClient(protocol.Config{
		BaseURL:     settings.APIURL,
		HTTPTimeout: settings.HTTPTimeout,
		MaxAttempts: settings.MaxRetryAttempts,
		RetryBase:   settings.RetryBaseDelay,
	}, signer)

	var provider groundtruth.Provider
	if settings.GroundTruthURL != "" {
		provider = groundtruth.NewClient(settings.GroundTruthURL, settings.GroundTruthAPIKey,
			settings.HTTPTimeout, settings.MaxRetryAttempts)
	}
	analysisClient := analyzer.NewClient(settings.AnalyzerURL, settings.HTTPTimeout, settings.MaxRetryAttempts)

	// Core
	grader := grading.New(provider, analysisClient)
	rewardState := rewards.NewState(redisClient, keyBuilder)

	opts := []polling.Option{
		polling.WithMonitor(workers.NewMonitor(redisClient, keyBuilder)),
	}
	if settings.DedupEnabled {
		dedup, err := deduplication.NewDeduplicator(redisClient, keyBuilder,
			settings.DedupLocalCacheSize, settings.DedupTTL)
		if err != nil {
			log.Fatalf("Failed to create deduplicator: %v", err)
		}
		opts = append(opts, polling.WithDeduplicator(dedup))
	}

	poller := polling.NewClient(coordinator, grader, rewardState, polling.Config{
		Mode:                polling.Mode(settings.IntakeMode),
		PollInterval:        time.Duration(settings.PollSeconds) * time.Second,
		ScoresBlockInterval: settings.ScoresBlockInterval,
	}, opts...)

	var apiServer *api.Server
	if settings.APIEnabled {
		apiServer = api.NewServer(settings.ValidatorHotkey, poller, rewardState,
			settings.APIHost, settings.APIPort)
		apiServer.Start()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := poller.Run(ctx); err != nil && err != context.Canceled {
			log.Errorf("Polling loop exited: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Infof("Received signal %v, shutting down", sig)

	cancel()
	<-done

	if apiServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Warnf("Monitoring API shutdown: %v", err)
		}
	}
	if redisClient != nil {
		redisClient.Close()
	}
	log.Info("Validator stopped")
}
