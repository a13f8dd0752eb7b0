package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/echodesk/backend/internal/application/billing"
	crmapp "github.com/echodesk/backend/internal/application/crm"
	eventapp "github.com/echodesk/backend/internal/application/event"
	identityapp "github.com/echodesk/backend/internal/application/identity"
	socialapp "github.com/echodesk/backend/internal/application/social"
	ticketapp "github.com/echodesk/backend/internal/application/ticket"
	"github.com/echodesk/backend/internal/domain/billing"
	"github.com/echodesk/backend/internal/infrastructure/auth"
	"github.com/echodesk/backend/internal/infrastructure/cache"
	"github.com/echodesk/backend/internal/infrastructure/config"
	"github.com/echodesk/backend/internal/infrastructure/event"
	"github.com/echodesk/backend/internal/infrastructure/logger"
	"github.com/echodesk/backend/internal/infrastructure/payment"
	"github.com/echodesk/backend/internal/infrastructure/persistence"
	"github.com/echodesk/backend/internal/infrastructure/scheduler"
	"github.com/echodesk/backend/internal/infrastructure/storage"
	"github.com/echodesk/backend/internal/infrastructure/telemetry"
	"github.com/echodesk/backend/internal/interfaces/http/handler"
	"github.com/echodesk/backend/internal/interfaces/http/middleware"
	"github.com/echodesk/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/echodesk/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			EchoDesk API
//	@version		1.0
//	@description	Multi-tenant CRM backend: call logging, social inbox, tickets and subscription billing
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/echodesk/backend
//	@contact.email	support@echodesk.ge

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting EchoDesk backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection with a GORM log level derived from
	// the app log level
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// OpenTelemetry tracing, metrics and continuous profiling are
	// opt-in; when disabled the providers are no-ops.
	telemetryCtx := context.Background()
	tracerProvider, err := telemetry.NewTracerProvider(telemetryCtx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(telemetryCtx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	if cfg.Telemetry.PyroscopeEnabled {
		profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
			Enabled:           true,
			ServerAddress:     cfg.Telemetry.PyroscopeAddress,
			ApplicationName:   cfg.App.Name,
			ProfileCPU:        true,
			ProfileInuseSpace: true,
			ProfileGoroutines: true,
		}, log)
		if err != nil {
			log.Warn("Failed to start profiler", zap.Error(err))
		} else if profiler != nil {
			defer func() {
				if err := profiler.Stop(); err != nil {
					log.Error("Error stopping profiler", zap.Error(err))
				}
			}()
			// Link spans to CPU profiles so Pyroscope can filter by span_id.
			if err := tracerProvider.EnableSpanProfiles(); err != nil {
				log.Warn("Failed to enable span profiles", zap.Error(err))
			}
		}
	}

	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	var businessMetrics *telemetry.BusinessMetrics
	if cfg.Telemetry.Enabled {
		if _, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DefaultDBMetricsConfig(), log); err != nil {
			log.Warn("Failed to register database metrics", zap.Error(err))
		}

		businessMetrics, err = telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:                meterProvider.Meter("echodesk.business"),
			Logger:               log,
			SubscriptionProvider: telemetry.NewGormSubscriptionMetricsProvider(db.DB),
		})
		if err != nil {
			log.Warn("Failed to initialize business metrics", zap.Error(err))
		} else {
			businessMetrics.StartPeriodicCollection(telemetryCtx, telemetry.NewGormTenantProvider(db.DB), 5*time.Minute)
			defer businessMetrics.Stop()
		}
	}

	// Shared Redis client for the token blacklist and feature gate
	// cache. When Redis is unreachable at boot the in-memory fallbacks
	// take over; single-instance deployments lose nothing.
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	redisAvailable := rdb.Ping(pingCtx).Err() == nil
	pingCancel()

	var tokenBlacklist auth.TokenBlacklist
	var gateCache billingapp.FeatureGateCache
	if redisAvailable {
		tokenBlacklist = auth.NewRedisTokenBlacklistWithClient(rdb)
		tiered := cache.NewTieredFeatureGateCache(
			cache.NewInMemoryFeatureGateCache(0),
			cache.NewRedisFeatureGateCache(rdb, cache.WithGateLogger(log)),
			rdb, log,
		)
		if err := tiered.StartInvalidationSubscription(context.Background()); err != nil {
			log.Warn("Feature gate invalidation subscription failed", zap.Error(err))
		}
		gateCache = tiered
		log.Info("Redis connected", zap.String("addr", rdb.Options().Addr))
	} else {
		tokenBlacklist = auth.NewInMemoryTokenBlacklist()
		gateCache = cache.NewInMemoryFeatureGateCache(0)
		log.Warn("Redis unavailable, using in-memory token blacklist and gate cache")
	}

	// Idempotency store guards webhook replays and the daily cron jobs
	idemFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	)
	idemStore, err := idemFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Initialize repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	roleRepo := persistence.NewGormRoleRepository(db.DB)
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	callRepo := persistence.NewGormCallLogRepository(db.DB)
	callEventRepo := persistence.NewGormCallEventRepository(db.DB)
	recordingRepo := persistence.NewGormCallRecordingRepository(db.DB)
	clientRepo := persistence.NewGormClientRepository(db.DB)
	messageRepo := persistence.NewGormSocialMessageRepository(db.DB)
	connectionRepo := persistence.NewGormSocialConnectionRepository(db.DB)
	columnRepo := persistence.NewGormColumnRepository(db.DB)
	ticketRepo := persistence.NewGormTicketRepository(db.DB)
	commentRepo := persistence.NewGormCommentRepository(db.DB)
	packageRepo := persistence.NewGormPackageRepository(db.DB)
	orderRepo := persistence.NewGormPaymentOrderRepository(db.DB)
	registrationRepo := persistence.NewGormPendingRegistrationRepository(db.DB)
	subscriptionRepo := persistence.NewGormSubscriptionRepository(db.DB)
	usageRepo := persistence.NewGormUsageLogRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Initialize event serializer and register all event types
	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)

	// Billing aggregates write their events through the transactional
	// outbox; the processor below delivers them to the bus.
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)
	subscriptionRepo.SetOutboxEventSaver(outboxPublisher)
	orderRepo.SetOutboxEventSaver(outboxPublisher)

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Outbox processor for guaranteed event delivery
	if cfg.Event.ProcessorEnabled {
		procCfg := event.DefaultOutboxProcessorConfig()
		if cfg.Event.BatchSize > 0 {
			procCfg.BatchSize = cfg.Event.BatchSize
		}
		if cfg.Event.PollInterval > 0 {
			procCfg.PollInterval = cfg.Event.PollInterval
		}
		procCfg.CleanupEnabled = cfg.Event.CleanupEnabled
		if cfg.Event.CleanupRetention > 0 {
			procCfg.CleanupRetention = cfg.Event.CleanupRetention
		}
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, procCfg, log)
		if err := outboxProcessor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", procCfg.BatchSize),
			zap.Duration("poll_interval", procCfg.PollInterval),
		)
	}

	// BOG payment gateway
	gateway, err := payment.NewBOGAdapter(&payment.BOGConfig{
		ClientID:     cfg.Payment.BOGClientID,
		ClientSecret: cfg.Payment.BOGClientSecret,
		AuthURL:      cfg.Payment.BOGAuthURL,
		BaseURL:      cfg.Payment.BOGBaseURL,
		CallbackURL:  cfg.App.APIBaseURL + "/api/v1/webhooks/bog",
		PublicKeyPEM: cfg.Payment.BOGPublicKey,
		Timeout:      cfg.Payment.RequestTimeout,
	})
	if err != nil {
		log.Fatal("Failed to initialize BOG payment gateway", zap.Error(err))
	}

	// Recording storage: S3 (or any S3-compatible endpoint) when a
	// bucket is configured, otherwise a local stub for development
	var recordingStorage crmapp.RecordingStorage
	if cfg.Storage.Bucket != "" {
		s3Storage, err := storage.NewS3RecordingStorage(&cfg.Storage)
		if err != nil {
			log.Fatal("Failed to initialize recording storage", zap.Error(err))
		}
		recordingStorage = s3Storage
		log.Info("Recording storage ready",
			zap.String("bucket", cfg.Storage.Bucket),
			zap.String("region", cfg.Storage.Region),
		)
	} else {
		recordingStorage = storage.NewStubRecordingStorage()
		log.Warn("No storage bucket configured, recordings use the stub backend")
	}

	// Billing services. The quota service doubles as the seat limiter,
	// storage quota, message quota and feature gate for the other
	// domains.
	packageService := billingapp.NewPackageService(packageRepo, log)
	quotaService := billingapp.NewQuotaService(subscriptionRepo, packageRepo, usageRepo, log)
	featureGate := billingapp.NewCachedFeatureGate(quotaService, gateCache, log)
	checkoutService := billingapp.NewCheckoutService(billingapp.CheckoutServiceConfig{
		Gateway:    gateway,
		OrderRepo:  orderRepo,
		RegRepo:    registrationRepo,
		PkgRepo:    packageRepo,
		SubRepo:    subscriptionRepo,
		TenantRepo: tenantRepo,
		URLs: billingapp.CheckoutURLs{
			CallbackURL: cfg.App.APIBaseURL + "/api/v1/webhooks/bog",
			SuccessURL:  cfg.App.FrontendURL + "/billing/success",
			FailURL:     cfg.App.FrontendURL + "/billing/fail",
		},
		Logger: log,
	})
	paymentWebhookService := billingapp.NewPaymentWebhookService(billingapp.PaymentWebhookServiceConfig{
		Gateway:     gateway,
		OrderRepo:   orderRepo,
		SubRepo:     subscriptionRepo,
		PkgRepo:     packageRepo,
		RegRepo:     registrationRepo,
		TenantRepo:  tenantRepo,
		UserRepo:    userRepo,
		Idempotency: idemStore,
		EventBus:    eventBus,
		Logger:      log,
	})
	lifecycleService := billingapp.NewLifecycleService(billingapp.LifecycleServiceConfig{
		SubRepo:    subscriptionRepo,
		PkgRepo:    packageRepo,
		OrderRepo:  orderRepo,
		RegRepo:    registrationRepo,
		UsageRepo:  usageRepo,
		TenantRepo: tenantRepo,
		Gateway:    gateway,
		Config: billingapp.LifecycleConfig{
			RenewalLookaheadDays: cfg.Billing.RenewalLookaheadDays,
			ReminderDays:         cfg.Billing.ReminderDays,
		},
		Logger: log,
	})

	// Identity services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, roleRepo, jwtService, tokenBlacklist,
		identityapp.DefaultAuthServiceConfig(), log)
	userService := identityapp.NewUserService(userRepo, roleRepo, quotaService, log)
	roleService := identityapp.NewRoleService(roleRepo, userRepo, log)
	tenantService := identityapp.NewTenantService(tenantRepo, log)

	// CRM services
	callService := crmapp.NewCallService(callRepo, callEventRepo, clientRepo, eventBus, log)
	recordingService := crmapp.NewRecordingService(recordingRepo, callRepo, recordingStorage, quotaService, eventBus, log)
	clientService := crmapp.NewClientService(clientRepo, log)
	sipWebhookService := crmapp.NewSipWebhookService(callService, callRepo, log)

	// Storage usage is re-measured from the recording inventory
	storageSnapshotService := billingapp.NewStorageSnapshotService(
		subscriptionRepo, usageRepo, tenantRepo, recordingService, log)

	// Social services
	socialWebhookService := socialapp.NewWebhookService(socialapp.WebhookServiceConfig{
		MessageRepo:    messageRepo,
		ConnectionRepo: connectionRepo,
		Quota:          quotaService,
		EventBus:       eventBus,
		Tokens: socialapp.VerifyTokens{
			Facebook:  cfg.Social.FacebookVerifyToken,
			Instagram: cfg.Social.InstagramVerifyToken,
			WhatsApp:  cfg.Social.WhatsAppVerifyToken,
		},
		AppSecret: cfg.Social.AppSecret,
		Logger:    log,
	})
	connectionService := socialapp.NewConnectionService(connectionRepo, log)
	inboxService := socialapp.NewInboxService(messageRepo, log)

	// Ticket services
	boardService := ticketapp.NewBoardService(columnRepo, ticketRepo, log)
	ticketService := ticketapp.NewTicketService(ticketRepo, columnRepo, commentRepo, log)

	// Register event handlers for cross-context integration
	// Storage re-measurement is wrapped for idempotency because the
	// outbox processor redelivers on retry.
	recordingCompletedHandler := billingapp.NewRecordingCompletedHandler(storageSnapshotService, log)
	eventBus.Subscribe(event.NewIdempotentHandler(recordingCompletedHandler, idemStore, log))

	subscriptionChangedHandler := billingapp.NewSubscriptionChangedHandler(featureGate, log)
	eventBus.Subscribe(subscriptionChangedHandler)

	if businessMetrics != nil {
		eventBus.Subscribe(eventapp.NewBusinessMetricsHandler(businessMetrics, log))
	}

	log.Info("Event handlers registered",
		zap.Strings("recording_completed_events", recordingCompletedHandler.EventTypes()),
		zap.Strings("subscription_changed_events", subscriptionChangedHandler.EventTypes()),
	)

	// Billing job executor runs the daily maintenance jobs, guarded by
	// a per-day idempotency marker. The same executor backs both the
	// in-process scheduler and the HTTP cron endpoints.
	jobExecutor := scheduler.NewBillingJobExecutor(lifecycleService, idemStore, log)

	if cfg.Scheduler.Enabled {
		jobRepo := scheduler.NewSchedulerJobRepository(db.DB)
		cronScheduler := scheduler.NewBillingCronScheduler(scheduler.BillingCronSchedulerConfig{
			Enabled:           cfg.Scheduler.Enabled,
			DailyCronSchedule: cfg.Scheduler.DailyCronSchedule,
			JobTimeout:        cfg.Scheduler.JobTimeout,
			MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
			RetryAttempts:     cfg.Scheduler.RetryAttempts,
			RetryDelay:        cfg.Scheduler.RetryDelay,
		}, jobExecutor, jobRepo, log)
		if err := cronScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start billing cron scheduler", zap.Error(err))
		}
		defer func() {
			if err := cronScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping billing cron scheduler", zap.Error(err))
			}
		}()
		log.Info("Billing cron scheduler started",
			zap.String("schedule", cfg.Scheduler.DailyCronSchedule),
			zap.Duration("job_timeout", cfg.Scheduler.JobTimeout),
		)
	}

	// Initialize HTTP handlers
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleService)
	tenantHandler := handler.NewTenantHandler(tenantService)
	callHandler := handler.NewCallHandler(callService)
	recordingHandler := handler.NewRecordingHandler(recordingService)
	clientHandler := handler.NewClientHandler(clientService)
	sipWebhookHandler := handler.NewSipWebhookHandler(sipWebhookService)
	socialWebhookHandler := handler.NewSocialWebhookHandler(socialWebhookService)
	connectionHandler := handler.NewSocialConnectionHandler(connectionService)
	inboxHandler := handler.NewInboxHandler(inboxService)
	boardHandler := handler.NewBoardHandler(boardService)
	ticketHandler := handler.NewTicketHandler(ticketService)
	packageHandler := handler.NewPackageHandler(packageService)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService)
	usageHandler := handler.NewUsageHandler(quotaService)
	cronHandler := handler.NewCronHandler(jobExecutor)
	paymentCallbackHandler := handler.NewPaymentCallbackHandler(paymentWebhookService)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack: request ID, panic recovery, request logging,
	// security headers, CORS, body limit, optional rate limiting
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing())
		engine.Use(middleware.SpanErrorMarker())
		engine.Use(middleware.HTTPMetricsWithMeter(meterProvider.Meter("echodesk.http"), true))
	}
	if cfg.Telemetry.PyroscopeEnabled {
		engine.Use(middleware.Profiling())
	}

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// JWT authentication for API routes; public endpoints are skipped
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: tokenBlacklist,
		SkipPaths: []string{
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
			"/api/v1/billing/register",
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}

	// Swagger documentation endpoint
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, middleware.JWTAuthMiddlewareWithConfig(jwtConfig)),
		ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Inbound webhooks, no authentication. One parameterized route
	// serves all three surfaces: BOG payment callbacks, SIP telephony
	// events and the Meta platform webhooks. SIP events carry the
	// tenant in the X-Tenant-ID header.
	webhooks := engine.Group("/api/v1/webhooks")
	webhooks.Use(middleware.TenantMiddlewareWithConfig(middleware.TenantMiddlewareConfig{
		HeaderEnabled: true,
		Logger:        log,
	}))
	webhooks.GET("/:platform", socialWebhookHandler.Verify)
	webhooks.POST("/:platform", func(c *gin.Context) {
		switch c.Param("platform") {
		case "bog":
			paymentCallbackHandler.HandleCallback(c)
		case "sip":
			sipWebhookHandler.HandleEvent(c)
		default:
			socialWebhookHandler.Receive(c)
		}
	})

	// Cron trigger endpoints, guarded by a shared token instead of JWT
	cronRoutes := engine.Group("/api/v1/cron")
	cronRoutes.Use(middleware.CronToken(cfg.Cron.Token, log))
	cronRoutes.GET("/health", cronHandler.Health)
	cronRoutes.POST("/recurring-payments", cronHandler.RecurringPayments)
	cronRoutes.POST("/subscription-check", cronHandler.SubscriptionCheck)
	cronRoutes.POST("/trial-expirations", cronHandler.TrialExpirations)
	cronRoutes.POST("/registration-cleanup", cronHandler.RegistrationCleanup)
	cronRoutes.POST("/usage-retention", cronHandler.UsageRetention)

	// Public package catalog for the registration page
	engine.GET("/api/v1/billing/packages", packageHandler.ListActive)

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))
	r.Use(middleware.DataScopeMiddleware(roleRepo))

	// Authentication. Login and refresh get their own stricter rate
	// limit when enabled.
	authRoutes := router.NewDomainGroup("auth", "/auth")
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter := middleware.AuthRateLimit(
			middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow))
		authRoutes.POST("/login", authLimiter, authHandler.Login)
		authRoutes.POST("/refresh", authLimiter, authHandler.RefreshToken)
	} else {
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/refresh", authHandler.RefreshToken)
	}
	authRoutes.POST("/logout", authHandler.Logout)
	authRoutes.POST("/logout-all", authHandler.LogoutAll)
	authRoutes.GET("/me", authHandler.GetCurrentUser)
	authRoutes.PUT("/password", authHandler.ChangePassword)

	// Identity domain (users, roles, tenants). Mutating endpoints carry
	// resource:action permission guards; read endpoints stay open to any
	// authenticated user so lists and pickers keep working for agents.
	userGuard := middleware.RequireResource("user")
	roleGuard := middleware.RequireResource("role")
	tenantGuard := middleware.RequireResource("tenant")

	identityRoutes := router.NewDomainGroup("identity", "/identity")
	identityRoutes.POST("/users", userGuard, userHandler.Create)
	identityRoutes.GET("/users", userHandler.List)
	identityRoutes.GET("/users/stats/count", userHandler.Count)
	identityRoutes.GET("/users/:id", userHandler.GetByID)
	identityRoutes.PUT("/users/:id", userGuard, userHandler.Update)
	identityRoutes.DELETE("/users/:id", userGuard, userHandler.Delete)
	identityRoutes.POST("/users/:id/activate", middleware.RequirePermission("user:update"), userHandler.Activate)
	identityRoutes.POST("/users/:id/block", middleware.RequirePermission("user:update"), userHandler.Block)
	identityRoutes.POST("/users/:id/lock", middleware.RequirePermission("user:update"), userHandler.Lock)
	identityRoutes.POST("/users/:id/unlock", middleware.RequirePermission("user:update"), userHandler.Unlock)
	identityRoutes.POST("/users/:id/reset-password", middleware.RequirePermission("user:update"), userHandler.ResetPassword)
	identityRoutes.POST("/users/:id/force-logout", middleware.RequirePermission("user:update"), authHandler.ForceLogout)
	identityRoutes.PUT("/users/:id/roles", middleware.RequireAllPermissions("user:update", "role:read"), userHandler.AssignRoles)

	identityRoutes.POST("/roles", roleGuard, roleHandler.Create)
	identityRoutes.GET("/roles", roleHandler.List)
	identityRoutes.GET("/roles/system", roleHandler.GetSystemRoles)
	identityRoutes.GET("/roles/stats/count", roleHandler.Count)
	identityRoutes.GET("/roles/code/:code", roleHandler.GetByCode)
	identityRoutes.GET("/roles/:id", roleHandler.GetByID)
	identityRoutes.PUT("/roles/:id", roleGuard, roleHandler.Update)
	identityRoutes.DELETE("/roles/:id", roleGuard, roleHandler.Delete)
	identityRoutes.POST("/roles/:id/enable", middleware.RequirePermission("role:update"), roleHandler.Enable)
	identityRoutes.POST("/roles/:id/disable", middleware.RequirePermission("role:update"), roleHandler.Disable)
	identityRoutes.PUT("/roles/:id/permissions", roleGuard, roleHandler.SetPermissions)
	identityRoutes.PUT("/roles/:id/data-scopes", roleGuard, roleHandler.SetDataScopes)
	identityRoutes.GET("/permissions", roleHandler.GetPermissions)

	identityRoutes.POST("/tenants", tenantGuard, tenantHandler.Create)
	identityRoutes.GET("/tenants", tenantHandler.List)
	identityRoutes.GET("/tenants/stats", tenantHandler.GetStats)
	identityRoutes.GET("/tenants/stats/count", tenantHandler.Count)
	identityRoutes.GET("/tenants/schema/:schema", tenantHandler.GetBySchema)
	identityRoutes.GET("/tenants/:id", tenantHandler.GetByID)
	identityRoutes.PUT("/tenants/:id", tenantGuard, tenantHandler.Update)
	identityRoutes.PUT("/tenants/:id/plan", tenantGuard, tenantHandler.SetPlan)
	identityRoutes.DELETE("/tenants/:id", tenantGuard, tenantHandler.Delete)
	identityRoutes.POST("/tenants/:id/activate", middleware.RequirePermission("tenant:update"), tenantHandler.Activate)
	identityRoutes.POST("/tenants/:id/deactivate", middleware.RequirePermission("tenant:update"), tenantHandler.Deactivate)
	identityRoutes.POST("/tenants/:id/suspend", middleware.RequirePermission("tenant:update"), tenantHandler.Suspend)

	// CRM domain (calls, recordings, clients). Recording endpoints sit
	// behind the call_recording feature gate.
	recordingGate := middleware.RequireFeature(billing.FeatureCallRecording, middleware.FeatureGateConfig{
		Gate:   featureGate,
		Logger: log,
	})

	crmRoutes := router.NewDomainGroup("crm", "/crm")
	crmRoutes.POST("/calls", callHandler.Start)
	crmRoutes.GET("/calls", callHandler.List)
	crmRoutes.GET("/calls/live", callHandler.ListLive)
	crmRoutes.GET("/calls/stats", callHandler.GetStats)
	crmRoutes.GET("/calls/:id", callHandler.Get)
	crmRoutes.POST("/calls/:id/ring", callHandler.Ring)
	crmRoutes.POST("/calls/:id/answer", callHandler.Answer)
	crmRoutes.POST("/calls/:id/hold", callHandler.Hold)
	crmRoutes.POST("/calls/:id/resume", callHandler.Resume)
	crmRoutes.POST("/calls/:id/transfer", callHandler.Transfer)
	crmRoutes.POST("/calls/:id/end", callHandler.End)
	crmRoutes.POST("/calls/:id/close", callHandler.Close)
	crmRoutes.POST("/calls/:id/notes", callHandler.AddNote)
	crmRoutes.POST("/calls/:id/quality", callHandler.SetQuality)

	crmRoutes.POST("/calls/:id/recordings", recordingGate, recordingHandler.Start)
	crmRoutes.GET("/calls/:id/recordings", recordingGate, recordingHandler.ListByCall)
	crmRoutes.POST("/calls/:id/recordings/:recordingId/stop", recordingGate, recordingHandler.Stop)
	crmRoutes.POST("/recordings/:id/complete", recordingGate, recordingHandler.Complete)
	crmRoutes.POST("/recordings/:id/fail", recordingGate, recordingHandler.Fail)
	crmRoutes.GET("/recordings/:id/playback", recordingGate, recordingHandler.GetPlaybackURL)
	crmRoutes.DELETE("/recordings/:id", recordingGate, middleware.RequireAnyPermission("recording:delete", "call:update"), recordingHandler.Delete)

	crmRoutes.POST("/clients", clientHandler.Create)
	crmRoutes.GET("/clients", clientHandler.List)
	crmRoutes.GET("/clients/:id", clientHandler.Get)
	crmRoutes.PUT("/clients/:id", clientHandler.Update)
	crmRoutes.POST("/clients/:id/deactivate", clientHandler.Deactivate)
	crmRoutes.DELETE("/clients/:id", clientHandler.Delete)

	// Social domain (connected accounts, unified inbox)
	socialRoutes := router.NewDomainGroup("social", "/social")
	socialRoutes.POST("/connections", connectionHandler.Connect)
	socialRoutes.GET("/connections", connectionHandler.List)
	socialRoutes.PUT("/connections/:id/token", connectionHandler.RotateToken)
	socialRoutes.POST("/connections/:id/disconnect", connectionHandler.Disconnect)
	socialRoutes.DELETE("/connections/:id", connectionHandler.Delete)
	socialRoutes.GET("/inbox", inboxHandler.List)
	socialRoutes.GET("/inbox/stats", inboxHandler.GetStats)
	socialRoutes.GET("/inbox/:id", inboxHandler.Get)
	socialRoutes.POST("/inbox/:id/read", inboxHandler.MarkRead)

	// Ticket domain (board columns, tickets, comments)
	ticketRoutes := router.NewDomainGroup("tickets", "/tickets")
	ticketRoutes.POST("/columns", boardHandler.CreateColumn)
	ticketRoutes.GET("/columns", boardHandler.ListColumns)
	ticketRoutes.POST("/columns/reorder", boardHandler.ReorderColumns)
	ticketRoutes.PUT("/columns/:id", boardHandler.UpdateColumn)
	ticketRoutes.POST("/columns/:id/default", boardHandler.SetDefaultColumn)
	ticketRoutes.DELETE("/columns/:id", boardHandler.DeleteColumn)
	ticketRoutes.GET("/columns/:id/tickets", ticketHandler.ListByColumn)

	ticketRoutes.POST("", ticketHandler.Create)
	ticketRoutes.GET("", ticketHandler.List)
	ticketRoutes.GET("/:id", ticketHandler.Get)
	ticketRoutes.PUT("/:id", ticketHandler.Update)
	ticketRoutes.DELETE("/:id", ticketHandler.Delete)
	ticketRoutes.POST("/:id/move", ticketHandler.Move)
	ticketRoutes.POST("/:id/assign", ticketHandler.Assign)
	ticketRoutes.POST("/:id/comments", ticketHandler.AddComment)
	ticketRoutes.GET("/:id/comments", ticketHandler.ListComments)
	ticketRoutes.PUT("/comments/:commentId", ticketHandler.EditComment)

	// Billing domain (registration, checkout, packages, usage)
	billingRoutes := router.NewDomainGroup("billing", "/billing")
	billingRoutes.POST("/register", checkoutHandler.Register)
	billingRoutes.POST("/purchase", checkoutHandler.Purchase)
	billingRoutes.GET("/orders", checkoutHandler.ListOrders)
	billingRoutes.GET("/orders/:id", checkoutHandler.GetOrder)
	billingRoutes.GET("/usage", usageHandler.GetSummary)
	billingRoutes.GET("/features/:key", usageHandler.CheckFeature)
	billingRoutes.GET("/packages/all", packageHandler.ListAll)
	billingRoutes.GET("/packages/:id", packageHandler.Get)
	packageGuard := middleware.RequireResource("package")
	billingRoutes.POST("/packages", packageGuard, packageHandler.Create)
	billingRoutes.PUT("/packages/:id", packageGuard, packageHandler.Update)
	billingRoutes.POST("/packages/:id/retire", middleware.RequirePermission("package:update"), packageHandler.Retire)
	billingRoutes.POST("/packages/:id/reactivate", middleware.RequirePermission("package:update"), packageHandler.Reactivate)

	// System routes
	systemHandler := handler.NewSystemHandler()
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	// Outbox operations surface for inspecting and replaying dead letters.
	outboxService := eventapp.NewOutboxService(outboxRepo, log)
	outboxHandler := handler.NewOutboxHandler(outboxService)
	systemRoutes.GET("/outbox/stats", outboxHandler.GetStats)
	systemRoutes.GET("/outbox/dead", outboxHandler.GetDeadLetterEntries)
	systemRoutes.POST("/outbox/dead/retry-all", outboxHandler.RetryAllDeadEntries)
	systemRoutes.GET("/outbox/:id", outboxHandler.GetEntry)
	systemRoutes.POST("/outbox/:id/retry", outboxHandler.RetryDeadEntry)

	r.Register(authRoutes).
		Register(identityRoutes).
		Register(crmRoutes).
		Register(socialRoutes).
		Register(ticketRoutes).
		Register(billingRoutes).
		Register(systemRoutes)

	r.Setup()

	// Simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
