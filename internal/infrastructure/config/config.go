package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root of all runtime configuration.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Cookie    CookieConfig
	Log       LogConfig
	Event     EventConfig
	HTTP      HTTPConfig
	Scheduler SchedulerConfig
	Billing   BillingConfig
	Payment   PaymentConfig
	Social    SocialConfig
	Storage   StorageConfig
	Cron      CronConfig
	Swagger   SwaggerConfig
	Telemetry TelemetryConfig
}

// AppConfig identifies the service and where it is reachable.
type AppConfig struct {
	Name        string
	Env         string // development, testing, production
	Port        string
	FrontendURL string // base URL customers land on after checkout
	APIBaseURL  string // public base URL for webhook callbacks
}

// DatabaseConfig holds the Postgres connection and pool settings.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig drives access and refresh token issuance.
type JWTConfig struct {
	Secret                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	RefreshSecret          string
	MaxRefreshCount        int
}

// CookieConfig shapes the refresh token cookie.
type CookieConfig struct {
	Domain   string // empty = current domain
	Path     string
	Secure   bool   // must be true in production
	SameSite string // strict, lax, or none
}

// LogConfig selects log level and encoding.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// EventConfig tunes the outbox processor.
type EventConfig struct {
	ProcessorEnabled bool
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
	CleanupEnabled   bool
	CleanupRetention time.Duration
}

// HTTPConfig holds server timeouts, body limits, rate limiting and CORS.
type HTTPConfig struct {
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
	MaxHeaderBytes        int
	MaxBodySize           int64
	RateLimitEnabled      bool
	RateLimitRequests     int
	RateLimitWindow       time.Duration
	AuthRateLimitEnabled  bool // tighter limit on login and refresh endpoints
	AuthRateLimitRequests int
	AuthRateLimitWindow   time.Duration
	CORSAllowOrigins      []string
	CORSAllowMethods      []string
	CORSAllowHeaders      []string
	TrustedProxies        []string
}

// SchedulerConfig holds billing job scheduler configuration.
type SchedulerConfig struct {
	Enabled           bool
	DailyCronSchedule string
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
}

// BillingConfig holds subscription billing knobs.
type BillingConfig struct {
	RenewalLookaheadDays int // charge saved cards this many days before expiry
	ReminderDays         []int
}

// PaymentConfig holds Bank of Georgia gateway credentials.
type PaymentConfig struct {
	BOGClientID     string
	BOGClientSecret string
	BOGBaseURL      string // API base, e.g. https://api.bog.ge/payments/v1
	BOGAuthURL      string // OAuth token endpoint
	BOGPublicKey    string // PEM RSA public key for callback signatures
	RequestTimeout  time.Duration
}

// SocialConfig holds Meta webhook verification tokens.
type SocialConfig struct {
	FacebookVerifyToken  string
	InstagramVerifyToken string
	WhatsAppVerifyToken  string
	AppSecret            string // Meta app secret for payload signatures
}

// StorageConfig holds S3-compatible object storage settings for call recordings.
type StorageConfig struct {
	Endpoint        string // custom endpoint for MinIO etc., empty = AWS
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PresignExpiry   time.Duration
}

// CronConfig guards the HTTP cron trigger endpoints.
type CronConfig struct {
	Token string // shared secret, sent as X-Cron-Token or ?token=
}

// SwaggerConfig controls access to the documentation endpoint.
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool
	AllowedIPs  []string // empty = allow all
}

// TelemetryConfig holds OpenTelemetry and profiling settings.
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTEL collector, e.g. "localhost:4317"
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	Insecure          bool // non-TLS collector connection, development only
	DBTraceEnabled    bool
	DBLogFullSQL      bool // dev only, leaks data into traces otherwise
	DBSlowQueryThresh time.Duration
	PyroscopeEnabled  bool
	PyroscopeAddress  string // e.g. "http://pyroscope:4040"
}

// Load reads config.toml and the environment, fills in defaults and
// validates the result. Environment variables carry the ECHODESK_ prefix
// with dots replaced by underscores (ECHODESK_DATABASE_PASSWORD maps to
// database.password) and take precedence over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, env vars and defaults carry the config.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ECHODESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App:       appConfig(v),
		Database:  databaseConfig(v),
		Redis:     redisConfig(v),
		JWT:       jwtConfig(v),
		Cookie:    cookieConfig(v),
		Log:       logConfig(v),
		Event:     eventConfig(v),
		HTTP:      httpConfig(v),
		Scheduler: schedulerConfig(v),
		Billing:   billingConfig(v),
		Payment:   paymentConfig(v),
		Social:    socialConfig(v),
		Storage:   storageConfig(v),
		Cron:      CronConfig{Token: v.GetString("cron.token")},
		Swagger:   swaggerConfig(v),
		Telemetry: telemetryConfig(v),
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func appConfig(v *viper.Viper) AppConfig {
	return AppConfig{
		Name:        v.GetString("app.name"),
		Env:         v.GetString("app.env"),
		Port:        v.GetString("app.port"),
		FrontendURL: v.GetString("app.frontend_url"),
		APIBaseURL:  v.GetString("app.api_base_url"),
	}
}

func databaseConfig(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
		Host:            v.GetString("database.host"),
		Port:            v.GetInt("database.port"),
		User:            v.GetString("database.user"),
		Password:        v.GetString("database.password"),
		DBName:          v.GetString("database.dbname"),
		SSLMode:         v.GetString("database.sslmode"),
		MaxOpenConns:    v.GetInt("database.max_open_conns"),
		MaxIdleConns:    v.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
		ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
	}
}

func redisConfig(v *viper.Viper) RedisConfig {
	return RedisConfig{
		Host:     v.GetString("redis.host"),
		Port:     v.GetInt("redis.port"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}
}

func jwtConfig(v *viper.Viper) JWTConfig {
	return JWTConfig{
		Secret:                 v.GetString("jwt.secret"),
		AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
		RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
		Issuer:                 v.GetString("jwt.issuer"),
		RefreshSecret:          v.GetString("jwt.refresh_secret"),
		MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
	}
}

func cookieConfig(v *viper.Viper) CookieConfig {
	return CookieConfig{
		Domain:   v.GetString("cookie.domain"),
		Path:     v.GetString("cookie.path"),
		Secure:   v.GetBool("cookie.secure"),
		SameSite: v.GetString("cookie.same_site"),
	}
}

func logConfig(v *viper.Viper) LogConfig {
	return LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
		Output: v.GetString("log.output"),
	}
}

func eventConfig(v *viper.Viper) EventConfig {
	return EventConfig{
		ProcessorEnabled: v.GetBool("event.processor_enabled"),
		BatchSize:        v.GetInt("event.batch_size"),
		PollInterval:     v.GetDuration("event.poll_interval"),
		MaxRetries:       v.GetInt("event.max_retries"),
		CleanupEnabled:   v.GetBool("event.cleanup_enabled"),
		CleanupRetention: v.GetDuration("event.cleanup_retention"),
	}
}

func httpConfig(v *viper.Viper) HTTPConfig {
	return HTTPConfig{
		ReadTimeout:           v.GetDuration("http.read_timeout"),
		WriteTimeout:          v.GetDuration("http.write_timeout"),
		IdleTimeout:           v.GetDuration("http.idle_timeout"),
		MaxHeaderBytes:        v.GetInt("http.max_header_bytes"),
		MaxBodySize:           v.GetInt64("http.max_body_size"),
		RateLimitEnabled:      v.GetBool("http.rate_limit_enabled"),
		RateLimitRequests:     v.GetInt("http.rate_limit_requests"),
		RateLimitWindow:       v.GetDuration("http.rate_limit_window"),
		AuthRateLimitEnabled:  v.GetBool("http.auth_rate_limit_enabled"),
		AuthRateLimitRequests: v.GetInt("http.auth_rate_limit_requests"),
		AuthRateLimitWindow:   v.GetDuration("http.auth_rate_limit_window"),
		CORSAllowOrigins:      v.GetStringSlice("http.cors_allow_origins"),
		CORSAllowMethods:      v.GetStringSlice("http.cors_allow_methods"),
		CORSAllowHeaders:      v.GetStringSlice("http.cors_allow_headers"),
		TrustedProxies:        v.GetStringSlice("http.trusted_proxies"),
	}
}

func schedulerConfig(v *viper.Viper) SchedulerConfig {
	return SchedulerConfig{
		Enabled:           v.GetBool("scheduler.enabled"),
		DailyCronSchedule: v.GetString("scheduler.daily_cron_schedule"),
		MaxConcurrentJobs: v.GetInt("scheduler.max_concurrent_jobs"),
		JobTimeout:        v.GetDuration("scheduler.job_timeout"),
		RetryAttempts:     v.GetInt("scheduler.retry_attempts"),
		RetryDelay:        v.GetDuration("scheduler.retry_delay"),
	}
}

func billingConfig(v *viper.Viper) BillingConfig {
	return BillingConfig{
		RenewalLookaheadDays: v.GetInt("billing.renewal_lookahead_days"),
		ReminderDays:         v.GetIntSlice("billing.reminder_days"),
	}
}

func paymentConfig(v *viper.Viper) PaymentConfig {
	return PaymentConfig{
		BOGClientID:     v.GetString("payment.bog_client_id"),
		BOGClientSecret: v.GetString("payment.bog_client_secret"),
		BOGBaseURL:      v.GetString("payment.bog_base_url"),
		BOGAuthURL:      v.GetString("payment.bog_auth_url"),
		BOGPublicKey:    v.GetString("payment.bog_public_key"),
		RequestTimeout:  v.GetDuration("payment.request_timeout"),
	}
}

func socialConfig(v *viper.Viper) SocialConfig {
	return SocialConfig{
		FacebookVerifyToken:  v.GetString("social.facebook_verify_token"),
		InstagramVerifyToken: v.GetString("social.instagram_verify_token"),
		WhatsAppVerifyToken:  v.GetString("social.whatsapp_verify_token"),
		AppSecret:            v.GetString("social.app_secret"),
	}
}

func storageConfig(v *viper.Viper) StorageConfig {
	return StorageConfig{
		Endpoint:        v.GetString("storage.endpoint"),
		Region:          v.GetString("storage.region"),
		Bucket:          v.GetString("storage.bucket"),
		AccessKeyID:     v.GetString("storage.access_key_id"),
		SecretAccessKey: v.GetString("storage.secret_access_key"),
		UsePathStyle:    v.GetBool("storage.use_path_style"),
		PresignExpiry:   v.GetDuration("storage.presign_expiry"),
	}
}

func swaggerConfig(v *viper.Viper) SwaggerConfig {
	return SwaggerConfig{
		Enabled:     v.GetBool("swagger.enabled"),
		RequireAuth: v.GetBool("swagger.require_auth"),
		AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
	}
}

func telemetryConfig(v *viper.Viper) TelemetryConfig {
	return TelemetryConfig{
		Enabled:           v.GetBool("telemetry.enabled"),
		CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
		SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
		ServiceName:       v.GetString("telemetry.service_name"),
		Insecure:          v.GetBool("telemetry.insecure"),
		DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
		DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
		DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		PyroscopeEnabled:  v.GetBool("telemetry.pyroscope_enabled"),
		PyroscopeAddress:  v.GetString("telemetry.pyroscope_address"),
	}
}

// setIfZero writes def into dst when dst still holds its zero value.
// Zero means "not set" everywhere in this package, so a field explicitly
// configured to 0 or "" also receives the default.
func setIfZero[T comparable](dst *T, def T) {
	var zero T
	if *dst == zero {
		*dst = def
	}
}

func setIfEmpty[S ~[]E, E any](dst *S, def S) {
	if len(*dst) == 0 {
		*dst = def
	}
}

func (c *Config) applyDefaults() {
	setIfZero(&c.App.Name, "echodesk-backend")
	setIfZero(&c.App.Env, "development")
	setIfZero(&c.App.Port, "8080")
	setIfZero(&c.App.FrontendURL, "http://localhost:3000")
	setIfZero(&c.App.APIBaseURL, "http://localhost:8080")

	setIfZero(&c.Database.Host, "localhost")
	setIfZero(&c.Database.Port, 5432)
	setIfZero(&c.Database.User, "postgres")
	setIfZero(&c.Database.DBName, "echodesk")
	setIfZero(&c.Database.SSLMode, "disable")
	setIfZero(&c.Database.MaxOpenConns, 25)
	setIfZero(&c.Database.MaxIdleConns, 5)
	setIfZero(&c.Database.ConnMaxLifetime, 60)
	setIfZero(&c.Database.ConnMaxIdleTime, 30)

	setIfZero(&c.Redis.Host, "localhost")
	setIfZero(&c.Redis.Port, 6379)

	setIfZero(&c.JWT.AccessTokenExpiration, 15*time.Minute)
	setIfZero(&c.JWT.RefreshTokenExpiration, 168*time.Hour)
	setIfZero(&c.JWT.Issuer, "echodesk-backend")
	setIfZero(&c.JWT.MaxRefreshCount, 10)

	setIfZero(&c.Cookie.Path, "/")
	setIfZero(&c.Cookie.SameSite, "lax")

	setIfZero(&c.Log.Level, "info")
	setIfZero(&c.Log.Format, "console")
	setIfZero(&c.Log.Output, "stdout")

	setIfZero(&c.Event.BatchSize, 100)
	setIfZero(&c.Event.PollInterval, 5*time.Second)
	setIfZero(&c.Event.MaxRetries, 5)
	setIfZero(&c.Event.CleanupRetention, 168*time.Hour)

	setIfZero(&c.HTTP.ReadTimeout, 15*time.Second)
	setIfZero(&c.HTTP.WriteTimeout, 15*time.Second)
	setIfZero(&c.HTTP.IdleTimeout, 60*time.Second)
	setIfZero(&c.HTTP.MaxHeaderBytes, 1<<20)
	setIfZero(&c.HTTP.MaxBodySize, int64(10<<20))
	setIfZero(&c.HTTP.RateLimitRequests, 100)
	setIfZero(&c.HTTP.RateLimitWindow, time.Minute)
	// Auth endpoints get a much tighter budget to slow brute force.
	setIfZero(&c.HTTP.AuthRateLimitRequests, 5)
	setIfZero(&c.HTTP.AuthRateLimitWindow, time.Minute)
	// CORS origins deliberately have no "*" fallback: an empty list means
	// no cross-origin requests until explicitly configured.
	setIfEmpty(&c.HTTP.CORSAllowMethods, []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"})
	setIfEmpty(&c.HTTP.CORSAllowHeaders, []string{"Content-Type", "Authorization", "X-Request-ID", "X-Tenant-ID"})

	setIfZero(&c.Scheduler.DailyCronSchedule, "0 2 * * *")
	setIfZero(&c.Scheduler.MaxConcurrentJobs, 3)
	setIfZero(&c.Scheduler.JobTimeout, 30*time.Minute)
	setIfZero(&c.Scheduler.RetryAttempts, 3)
	setIfZero(&c.Scheduler.RetryDelay, 5*time.Minute)

	setIfZero(&c.Billing.RenewalLookaheadDays, 3)
	setIfEmpty(&c.Billing.ReminderDays, []int{7, 3})

	setIfZero(&c.Payment.BOGBaseURL, "https://api.bog.ge/payments/v1")
	setIfZero(&c.Payment.BOGAuthURL, "https://oauth2.bog.ge/auth/realms/bog/protocol/openid-connect/token")
	setIfZero(&c.Payment.RequestTimeout, 30*time.Second)

	setIfZero(&c.Storage.Region, "eu-central-1")
	setIfZero(&c.Storage.Bucket, "echodesk-recordings")
	setIfZero(&c.Storage.PresignExpiry, 15*time.Minute)

	setIfZero(&c.Telemetry.CollectorEndpoint, "localhost:4317")
	setIfZero(&c.Telemetry.SamplingRatio, 1.0)
	setIfZero(&c.Telemetry.ServiceName, "echodesk-backend")
	setIfZero(&c.Telemetry.DBSlowQueryThresh, 200*time.Millisecond)
}

func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return errors.New("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return errors.New("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if r := c.Telemetry.SamplingRatio; r < 0.0 || r > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", r)
	}
	for _, d := range c.Billing.ReminderDays {
		if d <= 0 {
			return fmt.Errorf("billing.reminder_days entries must be positive, got %d", d)
		}
	}
	if c.App.Env == "production" {
		return c.validateProduction()
	}
	return nil
}

// validateProduction rejects settings that would weaken a production
// deployment. Checks run in order and the first failure wins.
func (c *Config) validateProduction() error {
	checks := []struct {
		bad bool
		msg string
	}{
		{c.JWT.Secret == "", "jwt.secret is required in production"},
		{len(c.JWT.Secret) > 0 && len(c.JWT.Secret) < 32, "jwt.secret must be at least 32 characters in production"},
		{c.Database.Password == "", "database.password is required in production"},
		{c.Database.SSLMode == "disable", "database.sslmode cannot be 'disable' in production"},
		{!c.Cookie.Secure, "cookie.secure must be true in production (HTTPS required for secure cookies)"},
		{slices.Contains(c.HTTP.CORSAllowOrigins, "*"), "cors_allow_origins cannot be '*' in production (use specific origins)"},
		{c.Swagger.Enabled && !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0,
			"swagger endpoint must be disabled, require authentication, or have IP restriction in production"},
		{c.Telemetry.DBLogFullSQL, "telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces"},
		{c.Payment.BOGClientID == "" || c.Payment.BOGClientSecret == "", "payment.bog_client_id and payment.bog_client_secret are required in production"},
		{c.Cron.Token == "", "cron.token is required in production (cron endpoints would be open)"},
	}
	for _, check := range checks {
		if check.bad {
			return errors.New(check.msg)
		}
	}
	return nil
}

// DSN returns the Postgres connection string with user-supplied values
// URL-escaped.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}
