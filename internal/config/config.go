package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Pipeline PipelineConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for AWS-ready posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// PipelineConfig tunes the claim/cooldown machinery. All durations are
// optional; defaults applied in Validate().
type PipelineConfig struct {
	// HeartbeatInterval is how often agent UIs are expected to refresh an
	// active call session.
	HeartbeatInterval time.Duration

	// ClaimGrace is how long an abandoned call session stays claimed before
	// it is force-released.
	ClaimGrace time.Duration

	// AssignmentTTL is how long a lead assignment survives without a
	// submitted outcome before the sweeper reclaims it.
	AssignmentTTL time.Duration

	// SweepInterval is how often the assignment reclaim sweep runs.
	SweepInterval time.Duration

	// HibernationWindow is how long a lead sleeps before the reaper
	// returns it to circulation.
	HibernationWindow time.Duration

	// ReapInterval is how often the hibernation restore pass runs.
	ReapInterval time.Duration

	// MaxConcurrentSessions caps call sessions per agent (Redis-enforced).
	MaxConcurrentSessions int
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate() based on env.
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	// Duration env vars are optional; defaults applied in Validate().
	c.Pipeline.HeartbeatInterval = mustDuration("PIPELINE_HEARTBEAT_INTERVAL")
	c.Pipeline.ClaimGrace = mustDuration("PIPELINE_CLAIM_GRACE")
	c.Pipeline.AssignmentTTL = mustDuration("PIPELINE_ASSIGNMENT_TTL")
	c.Pipeline.SweepInterval = mustDuration("PIPELINE_SWEEP_INTERVAL")
	c.Pipeline.HibernationWindow = mustDuration("PIPELINE_HIBERNATION_WINDOW")
	c.Pipeline.ReapInterval = mustDuration("PIPELINE_REAP_INTERVAL")
	if v := strings.TrimSpace(os.Getenv("PIPELINE_MAX_SESSIONS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("PIPELINE_MAX_SESSIONS must be an integer, got %q", v))
		}
		c.Pipeline.MaxConcurrentSessions = n
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate applies defaults and checks cross-field constraints. Pointer
// receiver so the defaults stick.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			// Allowed values are enforced below.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}

	if c.Auth.AccessTokenTTL <= 0 {
		// Default: short-lived access tokens.
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		// Default: longer-lived refresh tokens.
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.Pipeline.HeartbeatInterval <= 0 {
		c.Pipeline.HeartbeatInterval = 15 * time.Second
	}
	if c.Pipeline.ClaimGrace <= 0 {
		c.Pipeline.ClaimGrace = 60 * time.Second
	}
	if c.Pipeline.AssignmentTTL <= 0 {
		c.Pipeline.AssignmentTTL = 30 * time.Minute
	}
	if c.Pipeline.SweepInterval <= 0 {
		c.Pipeline.SweepInterval = 10 * time.Second
	}
	if c.Pipeline.HibernationWindow <= 0 {
		c.Pipeline.HibernationWindow = 30 * 24 * time.Hour
	}
	if c.Pipeline.ReapInterval <= 0 {
		c.Pipeline.ReapInterval = time.Minute
	}
	if c.Pipeline.MaxConcurrentSessions <= 0 {
		c.Pipeline.MaxConcurrentSessions = 1
	}

	// Each timeout must be strictly shorter than the next layer up, or the
	// outer layer fires before the inner one ever can.
	if c.Pipeline.HeartbeatInterval >= c.Pipeline.ClaimGrace {
		errs = append(errs, errors.New("PIPELINE_HEARTBEAT_INTERVAL must be less than PIPELINE_CLAIM_GRACE"))
	}
	if c.Pipeline.ClaimGrace >= c.Pipeline.AssignmentTTL {
		errs = append(errs, errors.New("PIPELINE_CLAIM_GRACE must be less than PIPELINE_ASSIGNMENT_TTL"))
	}
	if c.Pipeline.AssignmentTTL >= c.Pipeline.HibernationWindow {
		errs = append(errs, errors.New("PIPELINE_ASSIGNMENT_TTL must be less than PIPELINE_HIBERNATION_WINDOW"))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
