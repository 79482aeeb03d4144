package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"photokiosk/internal/booth"
	"photokiosk/internal/camera"
	"photokiosk/internal/catalog"
	"photokiosk/internal/cleanup"
	"photokiosk/internal/compositor"
	"photokiosk/internal/events"
	"photokiosk/internal/logging"
	"photokiosk/internal/models"
	"photokiosk/internal/publisher"
	"photokiosk/internal/server"
	"photokiosk/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// store is what the service needs from either storage backend.
type store interface {
	catalog.FrameSource
	publisher.PhotoStore
	events.ThumbnailStore
	cleanup.Store
	UpsertFrame(ctx context.Context, f *models.Frame) error
}

func loadConfig(c *cli.Context) (*models.Config, zerolog.Logger, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logging.New(cfg.LogLevel, cfg.LogPretty), nil
}

// openStore connects to PostgreSQL, or falls back to an in-memory store
// seeded from frames_dir when no database_url is configured.
func openStore(ctx context.Context, cfg *models.Config, log zerolog.Logger) (store, func(), error) {
	if cfg.DatabaseURL != "" {
		db, err := storage.NewStorage(ctx, cfg.DatabaseURL, logging.Component(log, "storage"))
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	}

	log.Warn().Msg("database_url not set, photos are kept in memory")
	mem := storage.NewMemory()
	if err := seedFrames(ctx, mem, cfg.FramesDir); err != nil {
		return nil, nil, err
	}
	return mem, func() {}, nil
}

// seedFrames registers every PNG in dir as an active frame, ordered by file name.
func seedFrames(ctx context.Context, s store, dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return fmt.Errorf("seedFrames: %w", err)
	}
	for i, p := range paths {
		base := filepath.Base(p)
		f := &models.Frame{
			ID:           uuid.NewSHA1(uuid.NameSpaceURL, []byte(base)),
			Name:         strings.TrimSuffix(base, filepath.Ext(base)),
			ImageURL:     base,
			IsActive:     true,
			DisplayOrder: i,
		}
		if err := s.UpsertFrame(ctx, f); err != nil {
			return fmt.Errorf("seedFrames: %w", err)
		}
	}
	return nil
}

func openDevice(cfg *models.Config) (camera.Device, *camera.PushDevice, error) {
	if cfg.CameraSource == models.CameraSourceStill {
		img, err := imaging.Open(cfg.StillImage)
		if err != nil {
			return nil, nil, fmt.Errorf("open still image: %w", err)
		}
		return camera.NewStillDevice(img), nil, nil
	}
	push := camera.NewPushDevice()
	return push, push, nil
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the kiosk HTTP API, cleanup scheduler and event consumer",
		Action: func(c *cli.Context) error {
			cfg, log, err := loadConfig(c)
			if err != nil {
				return err
			}
			return serve(cfg, log)
		},
	}
}

func serve(cfg *models.Config, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, closeDB, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}
	defer closeDB()

	var emitter publisher.Emitter = events.Nop{}
	if cfg.KafkaBroker != "" {
		producer := events.NewProducer(events.NewKafkaWriter(cfg.KafkaBroker, cfg.KafkaTopic), logging.Component(log, "events"))
		defer producer.Close()
		emitter = producer

		reader := events.NewKafkaReader(cfg.KafkaBroker, cfg.KafkaTopic, cfg.KafkaGroupID)
		thumbs := events.NewThumbnailer(db, logging.Component(log, "thumbnailer"))
		go events.NewConsumer(reader, thumbs, logging.Component(log, "consumer")).Run(ctx)
	}

	device, push, err := openDevice(cfg)
	if err != nil {
		return err
	}

	var watermark *compositor.Watermark
	if cfg.WatermarkText != "" {
		if watermark, err = compositor.NewWatermark(cfg.WatermarkText); err != nil {
			return err
		}
	}

	pub := publisher.New(db, emitter, publisher.Options{
		Origin:    cfg.PublicOrigin,
		Retention: cfg.ShareRetention,
		Timeout:   cfg.PersistTimeout,
	}, logging.Component(log, "publisher"))

	kiosk := booth.New(booth.Deps{
		Catalog: catalog.NewClient(db, cfg.CatalogTimeout, logging.Component(log, "catalog")),
		Camera:  camera.NewManager(device, logging.Component(log, "camera")),
		Compositor: compositor.New(compositor.NewHTTPLoader(cfg.FramesDir), compositor.Options{
			Scale:            cfg.CaptureScale,
			FrameLoadTimeout: cfg.FrameLoadTimeout,
			Watermark:        watermark,
		}, logging.Component(log, "compositor")),
		Publisher: pub,
	}, logging.Component(log, "booth"))
	defer kiosk.Shutdown()

	if _, err := kiosk.RefreshFrames(ctx); err != nil {
		log.Warn().Err(err).Msg("starting without frames")
	}

	job := cleanup.NewJob(db, cfg.ShareRetention, logging.Component(log, "cleanup"))
	go job.Schedule(ctx, cfg.CleanupInterval)

	gin.SetMode(gin.ReleaseMode)
	srv := server.NewServer(cfg, server.Deps{
		Booth:     kiosk,
		Publisher: pub,
		Cleanup:   job,
		Device:    push,
	}, logging.Component(log, "http"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	}

	cancel()
	stopCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	return srv.Stop(stopCtx)
}

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations and exit",
		Action: func(c *cli.Context) error {
			cfg, log, err := loadConfig(c)
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("migrate: database_url is not set")
			}
			db, err := storage.NewStorage(c.Context, cfg.DatabaseURL, logging.Component(log, "storage"))
			if err != nil {
				return err
			}
			db.Close()
			log.Info().Msg("migrations applied")
			return nil
		},
	}
}

func cleanupCmd() *cli.Command {
	return &cli.Command{
		Name:  "cleanup",
		Usage: "Delete expired photos once and print the result as JSON",
		Action: func(c *cli.Context) error {
			cfg, log, err := loadConfig(c)
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("cleanup: database_url is not set")
			}
			db, err := storage.NewStorage(c.Context, cfg.DatabaseURL, logging.Component(log, "storage"))
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := cleanup.NewJob(db, cfg.ShareRetention, logging.Component(log, "cleanup")).Run(c.Context)
			if err != nil {
				res = &cleanup.Result{Success: false, Message: "Cleanup failed"}
			}
			enc := json.NewEncoder(c.App.Writer)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(res); encErr != nil {
				return encErr
			}
			return err
		},
	}
}
