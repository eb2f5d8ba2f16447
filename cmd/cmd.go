package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-fitness-backend/internal/config"
	"social-fitness-backend/internal/handlers"
	"social-fitness-backend/internal/jobs"
	"social-fitness-backend/internal/middleware"
	"social-fitness-backend/internal/repository"
	"social-fitness-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Environment overrides for ${VAR} references in the config file
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), cfg.Database.Timeout)
	err = db.Ping(pingCtx)
	cancelPing()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	friendshipRepo := repository.NewFriendshipRepository(db)
	eventRepo := repository.NewEventRepository(db)
	rsvpRepo := repository.NewRSVPRepository(db)
	joinRequestRepo := repository.NewJoinRequestRepository(db)
	liveRepo := repository.NewLiveLocationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	chatRepo := repository.NewChatRepository(db)

	// Initialize services
	gate, err := notificationGate(cfg.Notifications)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid notification settings")
	}

	identity := services.NewIdentityResolver(userRepo, cfg.Auth.TokenSecret, cfg.Auth.Issuer)
	userService := services.NewUserService(userRepo)
	social := services.NewSocialGraph(friendshipRepo, userRepo)
	directory := services.NewEventDirectory(eventRepo, social)
	dispatcher := services.NewNotificationDispatcher(
		notificationRepo,
		userRepo,
		pushSender(cfg.APNs),
		gate,
		cfg.Notifications.DeliveryTimeout,
	)
	admission := services.NewAdmissionController(eventRepo, rsvpRepo, joinRequestRepo, userRepo, directory, dispatcher)
	throttle := services.NewMemoryThrottle(cfg.Live.ThrottleInterval)
	tracker := services.NewLiveSessionTracker(eventRepo, rsvpRepo, liveRepo, throttle)
	calendar := services.NewCalendarService(directory, objectStore(cfg.AWS), cfg.AWS.PresignTTL)
	hub := services.NewLiveHub()
	chat := services.NewChatService(chatRepo, rsvpRepo, userRepo, directory, hub)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	friendHandler := handlers.NewFriendHandler(social)
	eventHandler := handlers.NewEventHandler(directory, admission, calendar)
	notificationHandler := handlers.NewNotificationHandler(dispatcher)
	chatHandler := handlers.NewChatHandler(chat)
	wsHandler := handlers.NewWebSocketHandler(hub, tracker, chat, identity, cfg.Server.RequestTimeout)
	healthHandler := handlers.NewHealthHandler(db)

	// Background jobs
	cleanupJob := jobs.NewLivePointCleanupJob(
		tracker,
		throttle,
		cfg.Live.Retention,
		cfg.Live.SweepInterval,
		cfg.Database.Timeout,
	)
	cleanupJob.Start()

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler)

	r.Get("/health", healthHandler.Health)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(cfg.Server.RequestTimeout))

		// Routes open to anonymous viewers
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuthMiddleware(identity))
			r.Get("/events", eventHandler.SearchEvents)
			r.Get("/events/{event_id}", eventHandler.GetEvent)
			r.Get("/events/{event_id}/rsvps", eventHandler.ListRSVPs)
			r.Get("/events/{event_id}/ics", eventHandler.ExportCalendar)
			r.Get("/events/{event_id}/threads", chatHandler.ListThreads)
			r.Get("/events/{event_id}/threads/{thread_id}/messages", chatHandler.ListMessages)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(identity))

			r.Get("/me", userHandler.GetMe)
			r.Put("/me/push-token", userHandler.UpdatePushToken)

			r.Get("/friends", friendHandler.ListFriends)
			r.Post("/friends", friendHandler.AddFriend)
			r.Delete("/friends/{user_id}", friendHandler.RemoveFriend)

			r.Post("/events", eventHandler.CreateEvent)
			r.Patch("/events/{event_id}", eventHandler.UpdateEvent)
			r.Delete("/events/{event_id}", eventHandler.DeleteEvent)
			r.Post("/events/{event_id}/rsvp", eventHandler.SetRSVP)
			r.Post("/events/{event_id}/ics/link", eventHandler.ShareCalendar)
			r.Get("/events/{event_id}/join-requests", eventHandler.ListJoinRequests)
			r.Post("/events/{event_id}/join-requests/{request_id}/accept", eventHandler.AcceptJoinRequest)
			r.Post("/events/{event_id}/join-requests/{request_id}/reject", eventHandler.RejectJoinRequest)
			r.Post("/events/{event_id}/threads", chatHandler.CreateThread)
			r.Post("/events/{event_id}/threads/{thread_id}/messages", chatHandler.SendMessage)

			r.Get("/notifications", notificationHandler.ListNotifications)
			r.Patch("/notifications/{notification_id}/read", notificationHandler.MarkRead)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Shutdown HTTP server; hijacked WebSocket connections close with the process
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	cleanupJob.Stop()
	dispatcher.Wait()

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

// notificationGate builds the notification gate from configuration
func notificationGate(cfg config.NotificationsConfig) (services.NotificationGate, error) {
	gate := services.DefaultNotificationGate()
	gate.DailyCap = cfg.DailyCap

	loc, err := cfg.Location()
	if err != nil {
		return gate, fmt.Errorf("invalid timezone: %w", err)
	}
	gate.Location = loc

	if gate.QuietStart, err = services.ParseClockTime(cfg.QuietStart); err != nil {
		return gate, err
	}
	if gate.QuietEnd, err = services.ParseClockTime(cfg.QuietEnd); err != nil {
		return gate, err
	}

	return gate, nil
}

// pushSender returns an APNs sender, or a logging sender when APNs is not configured
func pushSender(cfg config.APNsConfig) services.PushSender {
	if cfg.KeyPath == "" {
		log.Warn().Msg("APNs not configured, push delivery disabled")
		return services.LogPushSender{}
	}

	sender, err := services.NewAPNsSender(cfg.KeyPath, cfg.KeyID, cfg.TeamID, cfg.Topic, cfg.Production)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create APNs sender")
	}
	return sender
}

// objectStore returns the S3 store for calendar links, or nil when no bucket is set
func objectStore(cfg config.AWSConfig) services.ObjectStore {
	if cfg.S3Bucket == "" {
		log.Warn().Msg("S3 bucket not configured, calendar links disabled")
		return nil
	}

	store, err := services.NewS3ObjectStore(
		context.Background(),
		cfg.Region,
		cfg.S3Bucket,
		cfg.AccessKey,
		cfg.SecretKey,
		cfg.Endpoint,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create S3 client")
	}
	return store
}
