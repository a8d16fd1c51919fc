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

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/vasapolrittideah/glucosense-api/services/logbook-service/internal/config"
	"github.com/vasapolrittideah/glucosense-api/services/logbook-service/internal/handler"
	"github.com/vasapolrittideah/glucosense-api/services/logbook-service/internal/repository"
	"github.com/vasapolrittideah/glucosense-api/services/logbook-service/internal/usecase"
	"github.com/vasapolrittideah/glucosense-api/shared/auth"
	"github.com/vasapolrittideah/glucosense-api/shared/discovery"
	"github.com/vasapolrittideah/glucosense-api/shared/logger"
	"github.com/vasapolrittideah/glucosense-api/shared/metrics"
	"github.com/vasapolrittideah/glucosense-api/shared/mongodb"
	"github.com/vasapolrittideah/glucosense-api/shared/utilities"
	"github.com/vasapolrittideah/glucosense-api/shared/validation"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var envFiles []string

	root := &cobra.Command{
		Use:           "logbook-service",
		Short:         "GlucoSense logbook service",
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

func serve(ctx context.Context, cfg *config.LogbookServiceConfig) error {
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

	logbookRepo := repository.NewLogbookMongoRepository(ctx, log, db)
	sensorRepo := repository.NewSensorMongoRepository(ctx, log, db)

	// Only Verify is used here; the TTL applies to tokens this service never mints.
	sessions, err := auth.NewSessionIssuer(auth.NewJWTAuthenticator(cfg.JWTAudience, cfg.JWTIssuer), cfg.JWTSecret, 0)
	if err != nil {
		return err
	}

	m, err := metrics.New(nil)
	if err != nil {
		return err
	}

	v, err := validation.New()
	if err != nil {
		return err
	}

	router := utilities.NewRouter(log, m, cfg.RequestTimeout)
	handler.NewLogbookHTTPHandler(
		log,
		usecase.NewLogbookUsecase(log, logbookRepo, sensorRepo),
		usecase.NewSensorUsecase(log, sensorRepo),
		v,
	).RegisterRoutes(router, sessions)

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

func registerWithConsul(cfg *config.LogbookServiceConfig, log *zerolog.Logger) (func(), error) {
	registry, err := discovery.NewRegistry(cfg.ConsulAddr, log)
	if err != nil {
		return nil, err
	}

	reg := discovery.Registration{
		Name:     cfg.ServiceName,
		Host:     cfg.AdvertiseHost,
		HTTPPort: portOf(cfg.HTTPAddr),
		GRPCPort: portOf(cfg.GRPCAddr),
		Tags:     []string{"http", "logbook"},
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

func ensureIndexes(ctx context.Context, cfg *config.LogbookServiceConfig) error {
	log := logger.New(cfg.ServiceName, cfg.LogLevel, cfg.LogPretty)

	client, err := mongodb.Connect(ctx, cfg.MongoURI, 10*time.Second)
	if err != nil {
		return err
	}
	defer func() { _ = mongodb.Disconnect(client, shutdownTimeout) }()
	db := client.Database(cfg.MongoDatabase)

	// The constructors create the indexes and exit on failure.
	repository.NewLogbookMongoRepository(ctx, log, db)
	repository.NewSensorMongoRepository(ctx, log, db)

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
