package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/config"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/controller"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/imaging"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/infrastructure/message-queue/kafka"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/infrastructure/storage"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/infrastructure/tracing"
	catalogmw "github.com/alimikegami/point-of-sales/catalog-admin-service/internal/middleware"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/repository"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/service"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/response"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/utils"
	"github.com/go-co-op/gocron/v2"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const optimizerSweepInterval = 10 * time.Minute

type App struct {
	DB     *sqlx.DB
	Config *config.Config
	Server *echo.Echo
}

func (app *App) Start() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = logger

	if app.Server == nil {
		app.Server = echo.New()
	}
	e := app.Server
	e.HideBanner = true

	traceProvider, err := tracing.InitTracing(app.Config.TracingConfig.CollectorHost)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	defer func() {
		if err := traceProvider.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("Failed to shutdown tracing")
		}
	}()

	tracer := traceProvider.Tracer(tracing.ServiceName)

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracer.Start(c.Request().Context(), fmt.Sprintf("[%s] %s", c.Request().Method, c.Path()))
			defer span.End()

			req := c.Request()
			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	})

	// Used empty string so that metrics are not prefixed with the service name making it easier to aggregate across services
	e.Use(echoprometheus.NewMiddleware(""))
	e.Use(middleware.Recover())
	e.Use(catalogmw.Logger)

	go func() {
		metrics := echo.New()
		metrics.HideBanner = true
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(fmt.Sprintf(":%s", app.Config.MetricsPort)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start metrics server")
		}
	}()

	minioClient, err := storage.CreateMinioClient(app.Config.StorageConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create object storage client")
	}
	gateway := storage.CreateGateway(minioClient, storage.MinioReader{Client: minioClient}, app.Config.StorageConfig.Bucket, app.Config.StorageConfig.PublicURL)

	publisher, closePublisher := app.createPublisher()
	defer closePublisher()

	pipeline := imaging.CreatePipeline(app.Config.ImageConfig, app.Config.UploadConfig.ImageMaxBytes)

	productRepo := repository.CreateProductRepository(app.DB)
	userRepo := repository.CreateUserRepository(app.DB)

	productService := service.CreateProductService(productRepo, gateway, pipeline, publisher, *app.Config)
	bulkPriceService := service.CreateBulkPriceService(productRepo, publisher, *app.Config)
	uploadService := service.CreateUploadService(gateway, pipeline, publisher, *app.Config)
	optimizerService := service.CreateImageOptimizerService(gateway, pipeline)

	scheduler, err := app.startScheduler(optimizerService)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("Failed to shutdown scheduler")
		}
	}()

	g := e.Group("/api/v1")

	g.GET("/ping", func(c echo.Context) error {
		return response.WriteSuccessResponse(c, "pong", nil)
	})

	controller.CreateImageController(g, optimizerService)

	admin := g.Group("", catalogmw.IsLoggedIn(app.Config.JWTSecret))
	authorizer := catalogmw.CreateAuthorizer(userRepo)
	writeLimiter := app.writeLimiter()

	controller.CreateProductController(admin, productService, authorizer, writeLimiter)
	controller.CreatePriceController(admin, bulkPriceService, authorizer, writeLimiter)
	controller.CreateUploadController(admin, uploadService, authorizer, writeLimiter)

	if err := e.Start(fmt.Sprintf(":%s", app.Config.ServicePort)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		e.Logger.Fatal(err)
	}
}

// createPublisher falls back to dropping events when no broker is configured.
func (app *App) createPublisher() (service.EventPublisher, func()) {
	if app.Config.KafkaConfig.BrokerAddress == "" {
		log.Warn().Str("component", "createPublisher").Msg("no broker configured, catalog events are dropped")
		return kafka.NopProducer{}, func() {}
	}

	producer, err := kafka.CreateKafkaProducer(app.Config)
	if err != nil {
		log.Fatal().Err(err).Str("component", "createPublisher").Msg("Failed to connect to Kafka")
	}

	return producer, func() {
		if err := producer.Close(); err != nil {
			log.Error().Err(err).Str("component", "createPublisher").Msg("")
		}
	}
}

func (app *App) startScheduler(optimizer service.ImageOptimizerService) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(optimizerSweepInterval),
		gocron.NewTask(func() {
			removed := optimizer.SweepExpired()
			log.Info().Str("component", "SweepExpired").Int("removed", removed).Msg("optimizer cache swept")
		}),
	)
	if err != nil {
		return nil, err
	}

	scheduler.Start()
	return scheduler, nil
}

// writeLimiter throttles mutating upload and bulk endpoints per user.
func (app *App) writeLimiter() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStore(rate.Limit(app.Config.UploadConfig.RateLimit)),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if userID, _ := utils.ExtractTokenUser(c); userID != "" {
				return userID, nil
			}
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, response.ErrorResponse{Status: "error", Error: "too many requests"})
		},
	})
}

func (app *App) StopServer() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return app.Server.Shutdown(ctx)
}
