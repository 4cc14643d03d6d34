package main

import (
	"context"
	"fmt"
	"os"

	// Application
	applicationPort "github.com/dreschagin/jenkins-collector/internal/application/port"
	"github.com/dreschagin/jenkins-collector/internal/application/usecase"

	// Domain
	"github.com/dreschagin/jenkins-collector/internal/domain/service"
	"github.com/dreschagin/jenkins-collector/internal/domain/valueobject"

	// Infrastructure
	redisCache "github.com/dreschagin/jenkins-collector/internal/infrastructure/cache/redis"
	"github.com/dreschagin/jenkins-collector/internal/infrastructure/influx"
	"github.com/dreschagin/jenkins-collector/internal/infrastructure/jenkins"
	natsInfra "github.com/dreschagin/jenkins-collector/internal/infrastructure/messaging/nats"

	// Shared
	"github.com/dreschagin/jenkins-collector/pkg/config"
	"github.com/dreschagin/jenkins-collector/pkg/logger"
)

func main() {
	// 1. Загружаем конфигурацию; без обязательных параметров
	// не делаем ни одного сетевого вызова
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	log := logger.New(os.Getenv("LOG_LEVEL"))
	log.Info("Starting Jenkins build collector",
		"jenkins_url", cfg.Jenkins.URL,
		"jenkins_user", cfg.Jenkins.User,
		"jenkins_instance", cfg.Jenkins.Instance,
		"influx_url", cfg.Influx.URL,
		"database", cfg.Influx.Database,
		"measurement", cfg.Influx.Measurement,
		"profile", cfg.Collector.Profile,
	)

	// 3. Dependency Injection - Infrastructure Layer

	// Jenkins reader
	jenkinsClient, err := jenkins.NewClient(jenkins.ClientConfig{
		BaseURL:        cfg.Jenkins.URL,
		Username:       cfg.Jenkins.User,
		APIToken:       cfg.Jenkins.Token,
		RequestTimeout: cfg.Jenkins.RequestTimeout,
		RateLimit:      cfg.Jenkins.RateLimit,
		RateBurst:      cfg.Jenkins.RateBurst,
	}, log)
	if err != nil {
		log.Error("Failed to initialize Jenkins client", err)
		os.Exit(1)
	}

	// InfluxDB store (writer + duplicate checker)
	encoder := influx.NewEncoder(cfg.Influx.Measurement, cfg.Collector.Profile)
	store, err := influx.NewStore(influx.StoreConfig{
		BaseURL:        cfg.Influx.URL,
		Database:       cfg.Influx.Database,
		Measurement:    cfg.Influx.Measurement,
		RequestTimeout: cfg.Influx.RequestTimeout,
	}, encoder, log)
	if err != nil {
		log.Error("Failed to initialize InfluxDB store", err)
		os.Exit(1)
	}

	// 3.5. Опциональный Redis-кэш идентичностей
	var dedupCache applicationPort.DedupCache
	if cfg.Redis.Enabled {
		cacheImpl, initErr := redisCache.NewDedupCache(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.TTL,
			log,
		)
		if initErr != nil {
			log.Warn("Failed to connect to Redis, continuing without dedup cache", "error", initErr.Error())
		} else {
			dedupCache = cacheImpl
			defer dedupCache.Close()
			log.Info("Redis dedup cache initialized", "ttl", cfg.Redis.TTL.String())
		}
	} else {
		log.Warn("Redis dedup cache is disabled")
	}

	// 3.6. Опциональный NATS publisher
	var eventPublisher applicationPort.EventPublisher
	if cfg.NATS.Enabled {
		publisherImpl, initErr := natsInfra.NewIngestionPublisher(cfg.NATS.URL, log)
		if initErr != nil {
			log.Warn("Failed to connect to NATS, continuing without event publishing", "error", initErr.Error())
		} else {
			eventPublisher = publisherImpl
			defer eventPublisher.Close()
			log.Info("NATS event publisher initialized", "url", cfg.NATS.URL)
		}
	} else {
		log.Warn("NATS event publishing is disabled")
	}

	// 4. Dependency Injection - Domain + Application Layer

	extractor := service.NewCauseExtractor()

	serverTag := ""
	if cfg.Collector.Profile == valueobject.ProfileMultiInstance {
		serverTag = cfg.Jenkins.Instance
	}

	ingestUC := usecase.NewIngestBuildsUseCase(
		jenkinsClient,
		store,
		store,
		extractor,
		dedupCache,     // может быть nil если Redis отключен
		eventPublisher, // может быть nil если NATS отключен
		usecase.IngestConfig{
			ServerTag:         serverTag,
			ExcludedViews:     cfg.Collector.ExcludedViews,
			MaxConcurrentJobs: cfg.Collector.MaxConcurrentJobs,
			EventSubject:      cfg.NATS.Subject,
		},
		log,
	)

	// 5. Выполняем один прогон
	summary, err := ingestUC.Execute(context.Background())
	if err != nil {
		log.Error("Run failed", err)
	}

	// Код выхода: 0 только если обработан хотя бы один джоб
	if summary == nil || !summary.Success() {
		os.Exit(1)
	}
}
