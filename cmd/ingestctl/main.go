package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:          "ingestctl",
		Short:        "Operación de la tubería de ingesta (dead-letter, migraciones, caché de tiendas)",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(dlqCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
