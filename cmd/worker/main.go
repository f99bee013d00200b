package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/b2b-storefront-api/internal/bootstrap"
	"github.com/jhoicas/b2b-storefront-api/pkg/config"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
)

// Proceso dedicado a drenar la cola de ingesta. Se escala horizontalmente: cada réplica es
// un consumidor distinto del mismo grupo.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name + "-worker",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("infraestructura")
	}
	defer infra.Close()

	if err := infra.Queue.Run(ctx, infra.Dispatcher(cfg, log)); err != nil {
		log.Error().Err(err).Msg("workers finalizados con error")
		return
	}
	log.Info().Msg("worker detenido")
}
