package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/user/nudge/backend/internal/config"
	"github.com/user/nudge/backend/internal/database"
	"github.com/user/nudge/backend/internal/handler"
	"github.com/user/nudge/backend/internal/jobs"
	"github.com/user/nudge/backend/internal/location"
	"github.com/user/nudge/backend/internal/metrics"
	"github.com/user/nudge/backend/internal/middleware"
	"github.com/user/nudge/backend/internal/notification"
	"github.com/user/nudge/backend/internal/notification/apns"
	"github.com/user/nudge/backend/internal/notification/fcm"
	"github.com/user/nudge/backend/internal/notification/slack"
	"github.com/user/nudge/backend/internal/pubsub"
	"github.com/user/nudge/backend/internal/repository"
	"github.com/user/nudge/backend/internal/service"
	"github.com/user/nudge/backend/internal/suggest"
	"github.com/user/nudge/backend/internal/sweep"
	"github.com/user/nudge/backend/internal/weather"
	"github.com/user/nudge/backend/pkg/jwt"
)

func main() {
	// Load .env file if it exists (for local development)
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			log.Fatal("JWT_SECRET must be set in production")
		}
		log.Printf("Warning: JWT_SECRET not set, using an insecure development secret")
		cfg.JWTSecret = "dev-only-secret"
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	jwtManager := jwt.NewManager(cfg.JWTSecret)
	hub := pubsub.NewHub()

	userRepo := repository.NewUserRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	scheduleRepo := repository.NewScheduledNotificationRepository(db)

	var slackClient *slack.Client
	if cfg.SlackWebhookURL != "" {
		slackClient = slack.NewClient(cfg.SlackWebhookURL)
		log.Printf("Slack notification client initialized")
	}

	var apnsClient *apns.Client
	if cfg.APNsConfigured() {
		apnsClient, err = apns.NewClient(apns.Config{
			KeyID:        cfg.APNsKeyID,
			TeamID:       cfg.APNsTeamID,
			PrivateKey:   cfg.APNsPrivateKey,
			BundleID:     cfg.APNsBundleID,
			IsProduction: cfg.IsProduction(),
		})
		if err != nil {
			log.Printf("Warning: APNs client not initialized: %v", err)
			apnsClient = nil
		}
	}

	var fcmClient *fcm.Client
	if cfg.FCMConfigured() {
		fcmClient, err = fcm.NewClient(context.Background(), fcm.Config{
			ProjectID:       cfg.FCMProjectID,
			CredentialsJSON: cfg.FCMPrivateKey,
		})
		if err != nil {
			log.Printf("Warning: FCM client not initialized: %v", err)
			fcmClient = nil
		}
	}
	if apnsClient == nil && fcmClient == nil {
		log.Printf("Warning: no push transport configured, alerts reach live connections only")
	}

	dispatcher := notification.NewDispatcher(apnsClient, fcmClient, deviceRepo)
	notifier := notification.NewService(scheduleRepo, dispatcher, hub)

	userService := service.NewUserService(userRepo, deviceRepo, scheduleRepo)
	services := handler.Services{
		Auth:        service.NewAuthService(userRepo, jwtManager, slackClient),
		Users:       userService,
		Reminders:   service.NewReminderService(reminderRepo, notifier, cfg.DefaultRadiusMeters),
		Sharing:     service.NewSharingService(reminderRepo, userRepo, notifier),
		Suggestions: service.NewSuggestionService(reminderRepo, userRepo, suggest.NewScoringProvider()),
		Devices:     service.NewDeviceService(deviceRepo),
	}

	var weatherProvider sweep.WeatherProvider
	if cfg.OpenWeatherAPIKey != "" {
		var upstream weather.Provider = weather.NewClient(cfg.WeatherBaseURL, cfg.OpenWeatherAPIKey)
		if rdb := connectRedis(cfg.RedisURL); rdb != nil {
			defer rdb.Close()
			upstream = weather.NewCachedProvider(upstream, rdb, cfg.WeatherCacheTTL)
			log.Printf("Weather lookups cached in Redis for %s", cfg.WeatherCacheTTL)
		}
		weatherProvider = upstream
	} else {
		log.Printf("Warning: OPENWEATHER_API_KEY not set, condition reminders will not fire")
	}

	sweeper := sweep.NewSweeper(
		reminderRepo,
		userService,
		location.NewProvider(deviceRepo, cfg.LocationMaxAge),
		weatherProvider,
		notifier,
		metrics.PrometheusRecorder{},
	)

	// slackClient may be nil; a typed nil would defeat the nil check inside the job.
	var reporter jobs.FailureReporter
	if slackClient != nil {
		reporter = slackClient
	}

	cronJobs := handler.CronJobs{
		Sweep:         jobs.NewSweepJob(reminderRepo, sweeper, reporter),
		Delivery:      jobs.NewDeliveryJob(scheduleRepo, reminderRepo, notifier),
		DeviceCleanup: jobs.NewDeviceCleanupJob(deviceRepo),
		AccountPurge:  jobs.NewAccountPurgeJob(userRepo),
	}

	var scheduler *jobs.Scheduler
	if cfg.SweepInterval > 0 {
		scheduler = startScheduler(cfg.SweepInterval, cronJobs)
	} else {
		log.Printf("In-process scheduler disabled, relying on /api/cron endpoints")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	defer rateLimiter.Stop()

	handler.New(services, cronJobs, hub, jwtManager, cfg.CronSecret, rateLimiter).Routes(r)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Starting nudge API on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if scheduler != nil {
		scheduler.Stop()
	}
}

func connectRedis(url string) *redis.Client {
	if url == "" {
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("Warning: invalid REDIS_URL, weather cache disabled: %v", err)
		return nil
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis connection failed, weather cache disabled: %v", err)
		rdb.Close()
		return nil
	}
	return rdb
}

func startScheduler(sweepInterval time.Duration, cronJobs handler.CronJobs) *jobs.Scheduler {
	scheduler := jobs.NewScheduler()

	register := func(name string, err error) {
		if err != nil {
			log.Fatalf("Failed to schedule %s: %v", name, err)
		}
	}

	_, err := scheduler.Every("sweep", sweepInterval, func(ctx context.Context) error {
		_, err := cronJobs.Sweep.RunAll(ctx)
		return err
	})
	register("sweep", err)

	_, err = scheduler.Every("delivery", time.Minute, func(ctx context.Context) error {
		_, err := cronJobs.Delivery.ProcessDue(ctx)
		return err
	})
	register("delivery", err)

	_, err = scheduler.Daily("device-cleanup", 3, 0, func(ctx context.Context) error {
		_, err := cronJobs.DeviceCleanup.CleanupStaleDevices(ctx, jobs.StaleDeviceDays)
		return err
	})
	register("device-cleanup", err)

	_, err = scheduler.Daily("account-purge", 3, 30, func(ctx context.Context) error {
		_, err := cronJobs.AccountPurge.PurgeDeletedAccounts(ctx, jobs.AccountPurgeDays)
		return err
	})
	register("account-purge", err)

	scheduler.Start()
	log.Printf("Scheduler started: sweep every %s, delivery every minute, %d jobs", sweepInterval, scheduler.Entries())
	return scheduler
}
