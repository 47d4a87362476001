package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jhoicas/rentals-api/internal/bootstrap"
	"github.com/jhoicas/rentals-api/pkg/config"
	"github.com/jhoicas/rentals-api/pkg/logger"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "invoicectl",
	Short: "Operaciones del motor de emisión de facturas y recibos",
	Long: `invoicectl usa la misma configuración que la API (variables de entorno o .env)
y trabaja directamente sobre la base de datos, sin pasar por HTTP.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute ejecuta el comando raíz y termina con código 1 si falla.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "nivel de log (trace, debug, info, warn, error)")
}

// loadRuntime carga la configuración y el logger respetando --log-level.
func loadRuntime(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("cargar configuración: %w", err)
	}
	level := cfg.App.LogLevel
	if flag, _ := cmd.Flags().GetString("log-level"); flag != "" {
		level = flag
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: level})
	return cfg, log.Zerolog(), nil
}

// withEngine arma el motor, ejecuta fn y cierra la infraestructura.
func withEngine(cmd *cobra.Command, fn func(ctx context.Context, e *bootstrap.Engine) error) error {
	cfg, log, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	engine, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Error().Err(err).Msg("cerrar infraestructura")
		}
	}()
	return fn(ctx, engine)
}
