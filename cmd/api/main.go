package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/b2b-storefront-api/internal/application/ingest"
	"github.com/jhoicas/b2b-storefront-api/internal/application/usecase"
	"github.com/jhoicas/b2b-storefront-api/internal/bootstrap"
	"github.com/jhoicas/b2b-storefront-api/internal/infrastructure/postgres"
	"github.com/jhoicas/b2b-storefront-api/internal/infrastructure/redisqueue"
	"github.com/jhoicas/b2b-storefront-api/internal/infrastructure/redisstore"
	httpRouter "github.com/jhoicas/b2b-storefront-api/internal/interfaces/http"
	"github.com/jhoicas/b2b-storefront-api/pkg/config"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Bool("embedded_workers", cfg.Queue.EmbeddedWorkers).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("infraestructura")
	}
	defer infra.Close()

	if err := infra.Queue.Setup(ctx); err != nil {
		log.Fatal().Err(err).Msg("crear grupo de consumidores")
	}

	ingestSvc := ingest.NewService(infra.Queue, log)
	cartUC := usecase.NewCartUseCase(postgres.NewCartRepository(infra.Pool))
	activityUC := usecase.NewActivityLogUseCase(postgres.NewActivityLogRepository(infra.Pool))
	health := httpRouter.NewHealthHandler(cfg.App.Name, map[string]httpRouter.Check{
		"postgres": func(ctx context.Context) error { return infra.Pool.Ping(ctx) },
		"redis":    func(ctx context.Context) error { return redisqueue.Ping(ctx, infra.Redis) },
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.Ingest.MaxBodyBytes,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler(log),
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "B2B Storefront Ingestion API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ingest:     ingestSvc,
		CartUC:     cartUC,
		ActivityUC: activityUC,
		Tenants:    postgres.NewTenantRepository(infra.Pool),
		Health:     health,
		JWTSecret:  cfg.JWT.Secret,
		RateLimit:  cfg.RateLimit,
		Limiters: httpRouter.RateLimitStorages{
			Burst:  redisstore.NewStorage(infra.Redis, "ratelimit:burst:"),
			Window: redisstore.NewStorage(infra.Redis, "ratelimit:window:"),
		},
		Log: log,
	})

	// Workers embebidos: el mismo proceso drena la cola (despliegues pequeños)
	workersDone := make(chan struct{})
	if cfg.Queue.EmbeddedWorkers {
		dispatcher := infra.Dispatcher(cfg, log)
		go func() {
			defer close(workersDone)
			if err := infra.Queue.Run(ctx, dispatcher); err != nil {
				log.Error().Err(err).Msg("workers finalizados con error")
			}
		}()
	} else {
		close(workersDone)
	}

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	select {
	case <-workersDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("workers no terminaron a tiempo; los jobs en curso se reclamarán")
	}

	log.Info().Msg("aplicación detenida")
}
