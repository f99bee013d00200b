package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/jhoicas/b2b-storefront-api/internal/bootstrap"
	"github.com/jhoicas/b2b-storefront-api/internal/infrastructure/redisqueue"
	"github.com/jhoicas/b2b-storefront-api/pkg/config"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
)

const commandTimeout = 30 * time.Second

func dlqCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspeccionar y reencolar jobs del dead-letter",
	}
	cmd.AddCommand(dlqListCmd())
	cmd.AddCommand(dlqRequeueCmd())
	cmd.AddCommand(dlqPurgeCmd())
	cmd.AddCommand(dlqStatsCmd())
	return cmd
}

// withRedis carga la configuración, abre Redis y ejecuta fn con el cliente.
func withRedis(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, rdb *redis.Client, log *logger.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{Env: "development", Level: "warn", Service: "ingestctl"})

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	rdb, err := bootstrap.OpenRedis(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rdb.Close()
	return fn(ctx, cfg, rdb, log)
}

// withQueue como withRedis, con la cola de ingesta.
func withQueue(cmd *cobra.Command, fn func(ctx context.Context, q *redisqueue.Queue) error) error {
	return withRedis(cmd, func(ctx context.Context, cfg *config.Config, rdb *redis.Client, log *logger.Logger) error {
		return fn(ctx, redisqueue.New(rdb, redisqueue.OptionsFromConfig(cfg.Queue), log))
	})
}

func dlqListCmd() *cobra.Command {
	var limit int64
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Listar jobs del dead-letter (más viejos primero)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueue(cmd, func(ctx context.Context, q *redisqueue.Queue) error {
				jobs, err := q.DeadLetters(ctx, limit)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(jobs)
				}
				return printDeadJobs(cmd.OutOrStdout(), jobs)
			})
		},
	}
	cmd.Flags().Int64VarP(&limit, "limit", "n", 50, "Máximo de jobs a mostrar")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Salida en JSON")
	return cmd
}

func printDeadJobs(w io.Writer, jobs []redisqueue.DeadJob) error {
	if len(jobs) == 0 {
		_, err := fmt.Fprintln(w, "dead-letter vacío")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTRY\tJOB\tKIND\tATTEMPTS\tFAILED AT\tLAST ERROR")
	for _, d := range jobs {
		failedAt := "-"
		if d.Job.FailedAt != nil {
			failedAt = d.Job.FailedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			d.EntryID, d.Job.ID, d.Job.Kind, d.Job.Attempts, failedAt, truncate(d.Job.LastError, 80))
	}
	return tw.Flush()
}

func dlqRequeueCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "requeue [entry-id]",
		Short: "Devolver un job (o todos con --all) a la cola con intentos en cero",
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New("usar un entry-id o --all, no ambos")
			}
			if !all && len(args) != 1 {
				return errors.New("se requiere un entry-id o --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueue(cmd, func(ctx context.Context, q *redisqueue.Queue) error {
				if all {
					n, err := q.RequeueAll(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%d jobs reencolados\n", n)
					return nil
				}
				if err := q.Requeue(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "job %s reencolado\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Reencolar todo el dead-letter")
	return cmd
}

func dlqPurgeCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Borrar todo el dead-letter",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("purge es irreversible: confirmar con --yes")
			}
			return withQueue(cmd, func(ctx context.Context, q *redisqueue.Queue) error {
				n, err := q.Purge(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d jobs eliminados\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirmar el borrado")
	return cmd
}

func dlqStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Longitud de la cola, diferidos y dead-letter",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueue(cmd, func(ctx context.Context, q *redisqueue.Queue) error {
				s, err := q.Stats(ctx)
				if err != nil {
					return err
				}
				opts := q.Options()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "  %-28s %d\n", opts.Stream+":", s.Pending)
				fmt.Fprintf(out, "  %-28s %d\n", opts.DelayedSet+":", s.Delayed)
				fmt.Fprintf(out, "  %-28s %d\n", opts.DeadLetterStream+":", s.DeadLetter)
				return nil
			})
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
