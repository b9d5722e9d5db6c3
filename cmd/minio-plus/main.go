package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lxp135/minio-plus/internal/config"
	"github.com/lxp135/minio-plus/internal/engine"
	"github.com/lxp135/minio-plus/internal/metadata"
	"github.com/lxp135/minio-plus/internal/server"
	"github.com/lxp135/minio-plus/internal/storage"
)

func Run(ctx context.Context) error {

	listen := flag.String("listen", "", "HTTP listen address")
	endpoint := flag.String("endpoint", "", "object store endpoint URL")
	backend := flag.String("backend", "", "object store client: s3 or minio")
	dbPath := flag.String("db", "", "path to the metadata database")
	partSize := flag.Int64("part-size", 0, "multipart chunk size in bytes")

	flag.Parse()

	handler := log.NewWithOptions(os.Stdout, log.Options{
		Level:           log.DebugLevel,
		TimeFormat:      time.RFC3339,
		ReportTimestamp: true,
		TimeFunction:    log.NowUTC,
		ReportCaller:    true,
	})

	slog.SetDefault(slog.New(handler))

	var opts []config.Option
	if *listen != "" {
		opts = append(opts, config.WithListenAddr(*listen))
	}
	if *endpoint != "" {
		opts = append(opts, config.WithEndpoint(*endpoint))
	}
	if *backend != "" {
		opts = append(opts, config.WithBackend(*backend))
	}
	if *dbPath != "" {
		opts = append(opts, config.WithDBPath(*dbPath))
	}
	if *partSize > 0 {
		opts = append(opts, config.WithPartSize(*partSize))
	}

	cfg := config.New(opts...)

	store, err := metadata.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open metadata store: %w", err)
	}
	defer store.Close()

	var objects storage.Client
	switch cfg.Backend {
	case config.BackendMinio:
		objects, err = storage.NewMinioClient(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Region, cfg.Secure)
	case config.BackendS3:
		objects, err = storage.NewS3Client(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Region)
	default:
		return fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return fmt.Errorf("create %s object store client: %w", cfg.Backend, err)
	}

	eng := engine.New(store, objects, engine.Options{
		PartSize:        cfg.PartSize,
		UploadExpiry:    cfg.UploadExpiry,
		DownloadExpiry:  cfg.DownloadExpiry,
		ThumbnailEnable: cfg.ThumbnailEnable,
		ThumbnailSize:   cfg.ThumbnailSize,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.NewServer(eng).Handler(),
		ReadHeaderTimeout: 20 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	eg.Go(func() error {
		slog.Info("Starting upload gateway", "addr", cfg.ListenAddr, "backend", cfg.Backend, "endpoint", cfg.Endpoint)
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	return eg.Wait()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx); err != nil {
		slog.Error("Gateway exited with error", "error", err)
		os.Exit(1)
	}
}
