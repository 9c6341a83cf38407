package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"teamdir.org/internal/access"
	"teamdir.org/internal/assets"
	"teamdir.org/internal/audit"
	"teamdir.org/internal/directory"
	"teamdir.org/internal/httpapi"
	"teamdir.org/internal/obs"
	"teamdir.org/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)
	log := obs.Logger()

	dsn := os.Getenv("TEAMDIR_PG_DSN")
	if dsn == "" {
		log.Fatal().Msg("TEAMDIR_PG_DSN is required")
	}
	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer store.Close()

	secret := os.Getenv("TEAMDIR_AUTH_SECRET")
	if secret == "" {
		log.Fatal().Msg("TEAMDIR_AUTH_SECRET is required")
	}

	dir, err := directory.NewService(store)
	if err != nil {
		log.Fatal().Err(err).Msg("directory service")
	}
	acc, err := access.NewService(store, secret)
	if err != nil {
		log.Fatal().Err(err).Msg("access service")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := acc.EnsureBuiltins(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("ensure permission catalog")
	}
	cancel()

	var pipeline *assets.Pipeline
	if endpoint := os.Getenv("TEAMDIR_MINIO_ENDPOINT"); endpoint != "" {
		storage, err := assets.NewMinIOStorage(assets.MinIOConfig{
			Endpoint:      endpoint,
			AccessKey:     os.Getenv("TEAMDIR_MINIO_ACCESS_KEY"),
			SecretKey:     os.Getenv("TEAMDIR_MINIO_SECRET_KEY"),
			UseSSL:        os.Getenv("TEAMDIR_MINIO_USE_SSL") == "true",
			Region:        os.Getenv("TEAMDIR_MINIO_REGION"),
			PublicBaseURL: os.Getenv("TEAMDIR_PUBLIC_BASE_URL"),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("object storage")
		}
		pipeline, err = assets.NewPipeline(storage)
		if err != nil {
			log.Fatal().Err(err).Msg("asset pipeline")
		}
	} else {
		log.Warn().Msg("TEAMDIR_MINIO_ENDPOINT not set, uploads disabled")
	}

	recorder := audit.NewRecorder(store, log)
	probe := httpapi.ReadyProbe{DB: store.DB()}

	api := httpapi.New(dir, acc, pipeline, httpapi.UploadConfig{
		EventBucket:  envOr("TEAMDIR_EVENT_BUCKET", "event-images"),
		PhotoBucket:  envOr("TEAMDIR_PHOTO_BUCKET", "photos"),
		AvatarBucket: envOr("TEAMDIR_AVATAR_BUCKET", "avatars"),
	}, recorder, probe, version)

	srv := &http.Server{
		Addr:              envOr("TEAMDIR_HTTP_ADDR", ":8080"),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var grpcSrv *grpc.Server
	if addr := os.Getenv("TEAMDIR_GRPC_ADDR"); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			log.Fatal().Err(err).Str("addr", addr).Msg("grpc listen")
		}
		grpcSrv = grpc.NewServer()
		healthpb.RegisterHealthServer(grpcSrv, httpapi.NewHealthServer(probe))
		go func() {
			if err := grpcSrv.Serve(lis); err != nil {
				log.Error().Err(err).Msg("grpc serve")
			}
		}()
		log.Info().Str("addr", addr).Msg("grpc health listening")
	}

	log.Info().Str("addr", srv.Addr).Str("version", version).Msg("starting teamdir-api")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	log.Info().Msg("stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
