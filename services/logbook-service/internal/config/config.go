package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type LogbookServiceConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"logbook-service"`
	HTTPAddr    string `env:"HTTP_ADDR"    envDefault:":8081"`
	GRPCAddr    string `env:"GRPC_ADDR"    envDefault:":9091"`

	MongoURI      string `env:"MONGODB_URI"      envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"glucosense"`

	JWTSecret   string `env:"JWT_SECRET"`
	JWTIssuer   string `env:"JWT_ISSUER"   envDefault:"glucosense-api"`
	JWTAudience string `env:"JWT_AUDIENCE" envDefault:"glucosense-app"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`

	ConsulAddr    string `env:"CONSUL_ADDR"`
	AdvertiseHost string `env:"ADVERTISE_HOST" envDefault:"localhost"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

func Load(envFiles ...string) (*LogbookServiceConfig, error) {
	if err := godotenv.Load(envFiles...); err != nil && len(envFiles) > 0 {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	cfg, err := env.ParseAs[LogbookServiceConfig]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse logbook service config: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("missing JWT_SECRET environment variable")
	}

	return &cfg, nil
}
