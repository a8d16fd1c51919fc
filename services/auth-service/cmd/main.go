package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/handler"
	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/glucosense-api/shared/auth"
	"github.com/vasapolrittideah/glucosense-api/shared/discovery"
	"github.com/vasapolrittideah/glucosense-api/shared/logger"
	"github.com/vasapolrittideah/glucosense-api/shared/mailer"
	"github.com/vasapolrittideah/glucosense-api/shared/metrics"
	"github.com/vasapolrittideah/glucosense-api/shared/mongodb"
	"github.com/vasapolrittideah/glucosense-api/shared/provider"
	"github.com/vasapolrittideah/glucosense-api/shared/ratelimit"
	"github.com/vasapolrittideah/glucosense-api/shared/utilities"
	"github.com/vasapolrittideah/glucosense-api/shared/validation"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var envFiles []string

	root := &cobra.Command{
		Use:           "auth-service",
		Short:         "GlucoSense authentication service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before reading the environment")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and gRPC health server",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.Load(envFiles...)
				if err != nil {
					return err
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return serve(ctx, cfg)
			},
		},
		&cobra.Command{
			Use:   "ensure-indexes",
			Short: "Create the MongoDB indexes the service relies on",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.Load(envFiles...)
				if err != nil {
					return err
				}
				return ensureIndexes(cmd.Context(), cfg)
			},
		},
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.AuthServiceConfig) error {
	log := logger.New(cfg.ServiceName, cfg.LogLevel, cfg.LogPretty)

	client, err := mongodb.Connect(ctx, cfg.MongoURI, 10*time.Second)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongodb.Disconnect(client, shutdownTimeout); err != nil {
			log.Error().Err(err).Msg("failed to disconnect from mongodb")
		}
	}()
	db := client.Database(cfg.MongoDatabase)

	userRepo := repository.NewUserMongoRepository(ctx, log, db)
	codeRepo := repository.NewVerificationCodeMongoRepository(ctx, log, db, cfg.VerificationCodeRetention)

	m, err := metrics.New(nil)
	if err != nil {
		return err
	}

	counter, closeCounter, err := newRateLimitCounter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCounter()
	limiter := ratelimit.NewLimiter(counter, "send-code:", cfg.RateLimit.Window, cfg.RateLimit.Max)

	verifier, err := newTokenVerifier(ctx, cfg, log)
	if err != nil {
		return err
	}

	sessions, err := auth.NewSessionIssuer(
		auth.NewJWTAuthenticator(cfg.Token.Audience, cfg.Token.Issuer),
		cfg.Token.Secret,
		cfg.Token.TTL,
	)
	if err != nil {
		return err
	}

	mail, err := mailer.NewMailer(cfg.Mailer, log)
	if err != nil {
		return err
	}

	v, err := validation.New()
	if err != nil {
		return err
	}

	authUsecase := usecase.NewAuthUsecase(
		log,
		userRepo,
		usecase.NewCodeIssuer(codeRepo, cfg.VerificationCodeTTL),
		usecase.NewIdentityReconciler(userRepo, cfg.LinkProviderPolicy),
		limiter,
		verifier,
		sessions,
		mail,
		m,
	)

	router := utilities.NewRouter(log, m, cfg.RequestTimeout)
	handler.NewAuthHTTPHandler(log, authUsecase, v).RegisterRoutes(router, sessions)

	grpcServer := grpc.NewServer()
	healthServer := utilities.RegisterHealthServer(grpcServer, cfg.ServiceName)
	if _, err := utilities.ServeGRPC(grpcServer, cfg.GRPCAddr, log); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}
	defer grpcServer.GracefulStop()

	if cfg.ConsulAddr != "" {
		deregister, err := registerWithConsul(cfg, log)
		if err != nil {
			return err
		}
		defer deregister()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	err = utilities.ServeHTTP(ctx, srv, shutdownTimeout, log)
	healthServer.Shutdown()
	return err
}

func newRateLimitCounter(ctx context.Context, cfg *config.AuthServiceConfig) (ratelimit.Counter, func(), error) {
	if cfg.RateLimit.Backend != config.RateLimitBackendRedis {
		return ratelimit.NewMemoryCounter(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPass,
		DB:       cfg.RateLimit.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return ratelimit.NewRedisCounter(rdb), func() { _ = rdb.Close() }, nil
}

func newTokenVerifier(
	ctx context.Context,
	cfg *config.AuthServiceConfig,
	log *zerolog.Logger,
) (provider.TokenVerifier, error) {
	httpClient := &http.Client{Timeout: cfg.TokenVerifyTimeout}

	var verifiers []provider.TokenVerifier
	if cfg.FirebaseProjectID != "" {
		verifiers = append(verifiers, provider.NewFirebaseVerifier(cfg.FirebaseProjectID, provider.FirebaseKeysURL, httpClient))
	}
	if len(cfg.GoogleClientIDs) > 0 {
		google, err := provider.NewGoogleIDTokenVerifier(ctx, cfg.GoogleClientIDs, httpClient)
		if err != nil {
			return nil, fmt.Errorf("failed to create google id token verifier: %w", err)
		}
		verifiers = append(verifiers, google)
	}

	return provider.NewChainVerifier(log, cfg.TokenVerifyTimeout, verifiers...), nil
}

func registerWithConsul(cfg *config.AuthServiceConfig, log *zerolog.Logger) (func(), error) {
	registry, err := discovery.NewRegistry(cfg.ConsulAddr, log)
	if err != nil {
		return nil, err
	}

	reg := discovery.Registration{
		Name:     cfg.ServiceName,
		Host:     cfg.AdvertiseHost,
		HTTPPort: portOf(cfg.HTTPAddr),
		GRPCPort: portOf(cfg.GRPCAddr),
		Tags:     []string{"http", "auth"},
	}
	if err := registry.Register(reg); err != nil {
		return nil, err
	}

	return func() {
		if err := registry.Deregister(reg.ID()); err != nil {
			log.Warn().Err(err).Msg("failed to deregister from consul")
		}
	}, nil
}

func ensureIndexes(ctx context.Context, cfg *config.AuthServiceConfig) error {
	log := logger.New(cfg.ServiceName, cfg.LogLevel, cfg.LogPretty)

	client, err := mongodb.Connect(ctx, cfg.MongoURI, 10*time.Second)
	if err != nil {
		return err
	}
	defer func() { _ = mongodb.Disconnect(client, shutdownTimeout) }()
	db := client.Database(cfg.MongoDatabase)

	// The constructors create the indexes and exit on failure.
	repository.NewUserMongoRepository(ctx, log, db)
	repository.NewVerificationCodeMongoRepository(ctx, log, db, cfg.VerificationCodeRetention)

	log.Info().Str("database", cfg.MongoDatabase).Msg("indexes ensured")
	return nil
}

func portOf(addr string) int {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	p, _ := strconv.Atoi(port)
	return p
}
