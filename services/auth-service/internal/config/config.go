package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/vasapolrittideah/glucosense-api/shared/mailer"
)

// LinkProviderPolicy controls how linking a federated identity affects a
// user's auth provider.
type LinkProviderPolicy string

const (
	// LinkPolicyKeep never changes the auth provider on link.
	LinkPolicyKeep LinkProviderPolicy = "keep"
	// LinkPolicyAdopt switches to the federated provider for accounts
	// without a password.
	LinkPolicyAdopt LinkProviderPolicy = "adopt"
)

const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

type AuthServiceConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"auth-service"`
	HTTPAddr    string `env:"HTTP_ADDR"    envDefault:":8080"`
	GRPCAddr    string `env:"GRPC_ADDR"    envDefault:":9090"`

	MongoURI      string `env:"MONGODB_URI"      envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"glucosense"`

	Token TokenConfig

	VerificationCodeTTL       time.Duration `env:"VERIFICATION_CODE_TTL"       envDefault:"10m"`
	VerificationCodeRetention time.Duration `env:"VERIFICATION_CODE_RETENTION" envDefault:"10m"`

	RateLimit RateLimitConfig

	FirebaseProjectID  string        `env:"FIREBASE_PROJECT_ID"`
	GoogleClientIDs    []string      `env:"GOOGLE_CLIENT_IDS"    envSeparator:","`
	TokenVerifyTimeout time.Duration `env:"TOKEN_VERIFY_TIMEOUT" envDefault:"10s"`

	RequestTimeout     time.Duration      `env:"REQUEST_TIMEOUT"      envDefault:"15s"`
	LinkProviderPolicy LinkProviderPolicy `env:"LINK_PROVIDER_POLICY" envDefault:"keep"`

	Mailer mailer.Config

	ConsulAddr    string `env:"CONSUL_ADDR"`
	AdvertiseHost string `env:"ADVERTISE_HOST" envDefault:"localhost"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

type TokenConfig struct {
	Secret   string        `env:"JWT_SECRET"`
	Issuer   string        `env:"JWT_ISSUER"   envDefault:"glucosense-api"`
	Audience string        `env:"JWT_AUDIENCE" envDefault:"glucosense-app"`
	TTL      time.Duration `env:"SESSION_TTL"  envDefault:"720h"`
}

type RateLimitConfig struct {
	Backend   string        `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`
	Window    time.Duration `env:"RATE_LIMIT_WINDOW"  envDefault:"60s"`
	Max       int           `env:"RATE_LIMIT_MAX"     envDefault:"3"`
	RedisAddr string        `env:"REDIS_ADDR"`
	RedisPass string        `env:"REDIS_PASSWORD"`
	RedisDB   int           `env:"REDIS_DB"           envDefault:"0"`
}

// Load reads an optional .env file, then parses the environment.
func Load(envFiles ...string) (*AuthServiceConfig, error) {
	if err := godotenv.Load(envFiles...); err != nil && len(envFiles) > 0 {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	cfg, err := env.ParseAs[AuthServiceConfig]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse auth service config: %w", err)
	}

	cfg.GoogleClientIDs = compact(cfg.GoogleClientIDs)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings the service cannot start without.
func (c *AuthServiceConfig) Validate() error {
	var errs []error

	if c.Token.Secret == "" {
		errs = append(errs, errors.New("missing JWT_SECRET environment variable"))
	}
	if c.Token.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.VerificationCodeTTL <= 0 {
		errs = append(errs, errors.New("VERIFICATION_CODE_TTL must be positive"))
	}
	if c.FirebaseProjectID == "" && len(c.GoogleClientIDs) == 0 {
		errs = append(errs, errors.New("one of FIREBASE_PROJECT_ID or GOOGLE_CLIENT_IDS is required"))
	}

	switch c.RateLimit.Backend {
	case RateLimitBackendMemory:
	case RateLimitBackendRedis:
		if c.RateLimit.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when RATE_LIMIT_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", c.RateLimit.Backend))
	}

	switch c.LinkProviderPolicy {
	case LinkPolicyKeep, LinkPolicyAdopt:
	default:
		errs = append(errs, fmt.Errorf("unknown LINK_PROVIDER_POLICY %q", c.LinkProviderPolicy))
	}

	return errors.Join(errs...)
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
