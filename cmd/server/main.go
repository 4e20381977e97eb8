package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/youruser/visualapp/internal/api"
	"github.com/youruser/visualapp/internal/campaign"
	"github.com/youruser/visualapp/internal/config"
	"github.com/youruser/visualapp/internal/events"
	imagepkg "github.com/youruser/visualapp/internal/image"
	"github.com/youruser/visualapp/internal/storage"
	"github.com/youruser/visualapp/internal/util"
	"github.com/youruser/visualapp/internal/visual"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))

	viperInstance, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Cannot load config. Error: {%s}", err.Error())
	}
	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		logrus.Fatalf("Cannot parse config. Error: {%s}", err.Error())
	}
	if lvl, err := logrus.ParseLevel(cfg.Server.LogLevel); err == nil {
		logrus.SetLevel(lvl)
	}

	if err := run(cfg); err != nil {
		logrus.Fatal(err)
	}
}

func run(cfg *config.Config) error {
	// Load campaigns at startup (best-effort)
	catalog := campaign.NewCatalog(cfg.App.DataDir)
	if _, err := catalog.Reload(); err != nil {
		logrus.WithError(err).Warn("failed to load campaign CSVs at startup")
	}

	var frameCache imagepkg.AssetCache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			logrus.WithError(err).Warn("redis unreachable, frame cache disabled")
		} else {
			frameCache = storage.NewRedisFrameCache(client, cfg.Redis.FrameTTL)
		}
	}

	var visuals visual.Repository
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetConnMaxLifetime(time.Hour)

		repo := visual.NewPostgresRepository(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = repo.EnsureSchema(ctx)
		cancel()
		if err != nil {
			return err
		}
		visuals = repo
	} else {
		logrus.Warn("no postgres dsn configured, visual records are kept in memory")
		visuals = visual.NewMemoryRepository()
	}

	if err := util.EnsureDir(cfg.App.StorageDir); err != nil {
		return err
	}

	publisher := events.NewPublisher(cfg.Kafka.Brokers)
	defer publisher.Close()

	h := api.NewHandler(api.Deps{
		Catalog:     catalog,
		Frames:      imagepkg.NewFrameLoader(frameCache),
		Sessions:    imagepkg.NewSessionStore(cfg.App.SessionTTL),
		Visuals:     visuals,
		Files:       storage.NewFileStorage(cfg.App.StorageDir, cfg.App.BaseURL),
		Publisher:   publisher,
		MediaDir:    cfg.App.StorageDir,
		ExportScale: cfg.App.ExportScale,
		MaxScale:    cfg.App.MaxScale,
	})

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	api.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		logrus.Info("starting server on http://localhost:" + cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	select {
	case err := <-errc:
		return err
	case <-quit:
	}

	logrus.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
