package main

import (
	"context"
	"fmt"
	"io"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/jhoicas/b2b-storefront-api/internal/application/tenant"
	"github.com/jhoicas/b2b-storefront-api/internal/infrastructure/redisstore"
	"github.com/jhoicas/b2b-storefront-api/pkg/config"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
)

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Operaciones sobre tiendas",
	}
	cmd.AddCommand(tenantUncacheCmd())
	return cmd
}

func tenantUncacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uncache <dominio>...",
		Short: "Quitar tiendas de la caché de resolución (tras suspenderlas o cambiar su dominio)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRedis(cmd, func(ctx context.Context, cfg *config.Config, rdb *redis.Client, _ *logger.Logger) error {
				return uncacheTenants(ctx, cmd.OutOrStdout(), redisstore.NewTenantCache(rdb, cfg.Ingest.TenantCacheTTL), args)
			})
		},
	}
}

type tenantInvalidator interface {
	Invalidate(ctx context.Context, domain string) error
}

// uncacheTenants normaliza cada dominio igual que el resolver, que es la clave de la caché.
func uncacheTenants(ctx context.Context, w io.Writer, cache tenantInvalidator, domains []string) error {
	for _, raw := range domains {
		d := tenant.NormalizeDomain(raw)
		if d == "" {
			return fmt.Errorf("dominio inválido: %q", raw)
		}
		if err := cache.Invalidate(ctx, d); err != nil {
			return fmt.Errorf("invalidar %s: %w", d, err)
		}
		fmt.Fprintf(w, "%s fuera de caché\n", d)
	}
	return nil
}
