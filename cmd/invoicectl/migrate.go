package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/rentals-api/internal/infrastructure/postgres"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate <up|down|version>",
	Short:     "Aplica, revierte o consulta las migraciones de PostgreSQL",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"up", "down", "version"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime(cmd)
		if err != nil {
			return err
		}
		if !cfg.DB.Enabled() {
			return errors.New("migrate requiere DATABASE_URL o DB_HOST")
		}
		m, err := postgres.NewMigrator(cfg.DB.ConnectionString(), log)
		if err != nil {
			return err
		}
		defer m.Close()

		switch args[0] {
		case "up":
			return m.Up()
		case "down":
			return m.Down()
		case "version":
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "versión %d (dirty=%t)\n", v, dirty)
			return nil
		default:
			return fmt.Errorf("subcomando desconocido %q", args[0])
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
