package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/b2b-storefront-api/internal/infrastructure/postgres"
	"github.com/jhoicas/b2b-storefront-api/pkg/config"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplicar las migraciones SQL pendientes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("cargar configuración: %w", err)
			}
			log := logger.New(logger.Config{Env: "development", Level: "info", Service: "ingestctl"})

			pool, err := postgres.NewPool(cmd.Context(), cfg.DB)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := postgres.Migrate(cmd.Context(), pool, log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d migraciones aplicadas\n", n)
			return nil
		},
	}
}
