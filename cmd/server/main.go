package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	grpcctx "github.com/dtroode/privenote-server/internal/api/grpc/context"
	grpcrouter "github.com/dtroode/privenote-server/internal/api/grpc/router"
	grpcserver "github.com/dtroode/privenote-server/internal/api/grpc/server"
	httpctx "github.com/dtroode/privenote-server/internal/api/http/context"
	httprouter "github.com/dtroode/privenote-server/internal/api/http/router"
	httpserver "github.com/dtroode/privenote-server/internal/api/http/server"
	"github.com/dtroode/privenote-server/internal/config"
	"github.com/dtroode/privenote-server/internal/janitor"
	"github.com/dtroode/privenote-server/internal/logger"
	"github.com/dtroode/privenote-server/internal/model"
	"github.com/dtroode/privenote-server/internal/observability/metrics"
	"github.com/dtroode/privenote-server/internal/repository/postgres"
	"github.com/dtroode/privenote-server/internal/repository/sqlite"
	"github.com/dtroode/privenote-server/internal/server"
	"github.com/dtroode/privenote-server/internal/service"
	miniostorage "github.com/dtroode/privenote-server/internal/storage/minio"
	s3storage "github.com/dtroode/privenote-server/internal/storage/s3"
	"github.com/dtroode/privenote-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.NewWithFormat(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	logAppVersion(logger)

	store, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to initialize note store", "driver", cfg.Database.Driver, "error", err)
	}
	defer closeStore()

	blobs, err := openBlobStorage(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize blob storage", "backend", cfg.Blob.Backend, "error", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	opts := []service.NoteOption{
		service.WithStoreTimeout(cfg.StoreTimeout),
		service.WithObserver(m),
	}
	if blobs != nil {
		opts = append(opts, service.WithBlobStorage(blobs, cfg.Notes.InlineLimit))
	}
	noteService := service.NewNote(store, logger, opts...)
	tokenManager := token.NewJWT(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)

	servers := []serverWithLayer{
		{
			server: registerHTTPServer(logger, cfg, noteService, tokenManager, registry, m),
			layer:  server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName),
		},
	}
	if cfg.GRPC.Enabled {
		servers = append(servers, serverWithLayer{
			server: registerGRPCServer(logger, noteService, tokenManager, m, fmt.Sprintf(":%s", cfg.GRPC.Port)),
			layer:  server.NewSecurityLayer(cfg.GRPC.EnableHTTPS, cfg.GRPC.CertFileName, cfg.GRPC.PrivateKeyFileName),
		})
	}

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(s serverWithLayer) {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.server.Address())
			if err := s.server.Start(s.layer); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.server.Address())
				stop()
			}
		}(s)
	}

	if cfg.Janitor.Interval > 0 {
		j := janitor.New(store, logger, cfg.Janitor.Interval, cfg.Janitor.Retention, cfg.Janitor.BatchSize,
			janitor.WithBlobStorage(blobs),
			janitor.WithRecorder(m),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.Run(ctx)
		}()
	}

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for _, s := range servers {
		if err := s.server.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.server.Address())
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

type serverWithLayer struct {
	server model.Server
	layer  model.SecurityLayer
}

func logAppVersion(logger *logger.Logger) {
	logger.Info("Build info",
		"version", buildVersion,
		"date", buildDate,
		"commit", buildCommit)
}

func openStore(ctx context.Context, cfg config.Database) (model.NoteStore, func(), error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		conn, err := postgres.NewConnection(ctx, cfg.DSN, cfg.MaxConns)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewNoteRepository(conn.DB()), func() { _ = conn.Close() }, nil
	}
}

// openBlobStorage returns nil when large ciphertexts stay inline.
func openBlobStorage(ctx context.Context, cfg *config.Config) (model.BlobStorage, error) {
	switch cfg.Blob.Backend {
	case config.BlobMinIO:
		return miniostorage.New(ctx, miniostorage.Config{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			Region:    cfg.MinIO.Region,
			UseSSL:    cfg.MinIO.UseSSL,
		})
	case config.BlobS3:
		return s3storage.New(ctx, s3storage.Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			BaseEndpoint:    cfg.S3.BaseEndpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
	default:
		return nil, nil
	}
}

func registerHTTPServer(
	logger *logger.Logger,
	cfg *config.Config,
	noteService *service.Note,
	tokenManager model.TokenManager,
	registry *prometheus.Registry,
	m *metrics.Metrics,
) *httpserver.HTTPServer {
	r := httprouter.New(noteService, noteService, tokenManager, httpctx.NewManager(), logger, httprouter.Options{
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
		RequestsPerMinute: cfg.Rate.RequestsPerMinute,
		MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
		Version:           buildVersion,
		Gatherer:          registry,
		Observer:          m,
	})

	return httpserver.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))
}

func registerGRPCServer(
	logger *logger.Logger,
	noteService *service.Note,
	tokenManager model.TokenManager,
	m *metrics.Metrics,
	addr string,
) *grpcserver.GRPCServer {
	r := grpcrouter.New(noteService, tokenManager, grpcctx.NewManager(), m, logger)

	return grpcserver.NewGRPCServer(r.Register(), addr)
}
