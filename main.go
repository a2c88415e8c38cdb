package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nirmalhandloom/storebackend/cache"
	"github.com/nirmalhandloom/storebackend/catalog"
	"github.com/nirmalhandloom/storebackend/config"
	"github.com/nirmalhandloom/storebackend/controllers"
	"github.com/nirmalhandloom/storebackend/database"
	"github.com/nirmalhandloom/storebackend/dto"
	"github.com/nirmalhandloom/storebackend/events"
	"github.com/nirmalhandloom/storebackend/logger"
	"github.com/nirmalhandloom/storebackend/middleware"
	"github.com/nirmalhandloom/storebackend/notify"
	"github.com/nirmalhandloom/storebackend/payments"
	"github.com/nirmalhandloom/storebackend/storage"
	"github.com/nirmalhandloom/storebackend/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(cfg.ServiceName, cfg.LogLevel)
	slog.SetDefault(log)
	if !cfg.DotEnvLoaded {
		log.Info("no .env file found, using system environment variables")
	}

	if err := run(cfg, log); err != nil {
		log.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dto.RegisterValidators()

	client, err := database.Connect(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			log.Warn("mongo disconnect", slog.String("error", err.Error()))
		}
	}()
	log.Info("connected to mongodb", slog.String("database", cfg.Mongo.Database))

	db := client.Database(cfg.Mongo.Database)
	cols := database.OpenCollections(db)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	// seeding
	if err := utils.SeedAdminUser(ctx, cols.Users, cfg.Seed, log); err != nil {
		return err
	}
	if cfg.Seed.SeedCategories {
		if err := utils.SeedCategories(ctx, cols.Categories, cols.SubCategories, utils.DefaultCategories, log); err != nil {
			return err
		}
	}

	var store cache.Cache = cache.Noop{}
	if cfg.Redis.Enabled() {
		rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		store = cache.NewRedisCache(rdb)
		log.Info("redis cache enabled", slog.String("addr", cfg.Redis.Addr))
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.Kafka.Enabled() {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.ServiceName, log)
		log.Info("kafka events enabled", slog.String("topic", cfg.Kafka.Topic))
	}
	defer publisher.Close()

	var mailer notify.Mailer = notify.Noop{}
	if cfg.SendGrid.Enabled() {
		mailer = notify.NewSendGridMailer(cfg.SendGrid, log)
	}

	images, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	if c, ok := images.(io.Closer); ok {
		defer c.Close()
	}
	validator := storage.NewImageValidator(cfg.Storage.MaxUploadMB, cfg.Storage.MaxImages)

	engine := catalog.NewEngine(cfg.Catalog, catalog.Deps{
		Store:        catalog.NewMongoStore(cols.Products, cols.Categories, cols.SubCategories),
		Cache:        store,
		Events:       publisher,
		Images:       images,
		DefaultImage: cfg.Storage.DefaultImage,
		Logger:       log,
	})
	users := database.NewUserRepository(cols.Users)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Metrics(cfg.ServiceName))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/metrics", middleware.MetricsHandler())
	if local, ok := images.(*storage.Local); ok {
		r.Static(local.URLPrefix(), local.Dir())
	}

	controllers.RegisterRoutes(r.Group("/api"), controllers.Handlers{
		Auth: middleware.NewAuthenticator(cfg.Auth.JWTSecret, users.FindByID),
		Products: &controllers.Products{
			Engine:    engine,
			Images:    images,
			Validator: validator,
		},
		Categories: &controllers.Categories{
			Store:     database.NewCategoryRepository(cols.Categories, cols.SubCategories),
			Cache:     store,
			CacheTTL:  cfg.Catalog.CacheTTL,
			Images:    images,
			Validator: validator,
		},
		Users: &controllers.Users{
			Store:    users,
			Secret:   cfg.Auth.JWTSecret,
			TokenTTL: cfg.Auth.TokenTTL,
		},
		Orders: &controllers.Orders{
			Store:   database.NewOrderRepository(cols.Orders),
			Gateway: payments.NewRazorpay(cfg.Razorpay, log),
			Mailer:  mailer,
			Events:  publisher,
		},
		AuthLimit: middleware.RateLimit(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst, log),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
