package container

import (
	"context"

	"folio-analytics/internal/config"
	"folio-analytics/internal/repository"
	"folio-analytics/internal/service"
	"folio-analytics/internal/service/geo"
	"folio-analytics/pkg/database"
	"folio-analytics/pkg/logger"
	"folio-analytics/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           *database.DB
	RedisClient  *redis.Client
	Repositories *repository.Repositories
	Services     *service.Services
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	db, err := database.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	// Redis is optional: without it the geo resolver memoizes in-process.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching")
		} else {
			redisClient = client
			log.Info("Redis client initialized successfully")
		}
	} else {
		log.Info("Redis URL not configured, proceeding without caching")
	}

	repos := &repository.Repositories{
		Session:    repository.NewSessionRepository(db),
		Visit:      repository.NewVisitRepository(db),
		Engagement: repository.NewEngagementRepository(db),
		Link:       repository.NewLinkRepository(db),
		Stats:      repository.NewStatsRepository(db),
	}

	geoService := geo.NewService(cfg.GeoAPIURL, cfg.GeoTimeout, redisClient, log)
	tracker := service.NewTrackerService(repos.Session, log, cfg.IdleWindow)

	services := &service.Services{
		Geo:        geoService,
		Tracker:    tracker,
		Visit:      service.NewVisitService(tracker, repos.Session, repos.Visit, geoService, log),
		Engagement: service.NewEngagementService(tracker, repos.Session, repos.Engagement, repos.Link, log),
		Reaper:     service.NewReaperService(repos.Session, repos.Visit, log, cfg.IdleWindow, cfg.ReaperInterval),
		Stats:      service.NewStatsService(repos.Stats, log, cfg.IdleWindow),
	}

	return &Container{
		Config:       cfg,
		Logger:       log,
		DB:           db,
		RedisClient:  redisClient,
		Repositories: repos,
		Services:     services,
	}, nil
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// HasRedis returns true if the Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}
