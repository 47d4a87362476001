// Package bootstrap arma el motor de emisión a partir de la configuración: elige
// PostgreSQL o memoria, S3 o disco, Kafka o log, Redis o candado local.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/rentals-api/internal/application/billing"
	"github.com/jhoicas/rentals-api/internal/domain/repository"
	"github.com/jhoicas/rentals-api/internal/infrastructure/events"
	"github.com/jhoicas/rentals-api/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/rentals-api/internal/infrastructure/pdf"
	"github.com/jhoicas/rentals-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/rentals-api/internal/infrastructure/redis"
	"github.com/jhoicas/rentals-api/internal/infrastructure/storage"
	"github.com/jhoicas/rentals-api/pkg/config"
)

// Engine servicios del motor listos para usar.
type Engine struct {
	Compiler  *billing.Compiler
	Batch     *billing.BatchOrchestrator
	Lifecycle *billing.LifecycleController
	Sequence  *billing.SequenceService
	PDF       *billing.PDFUseCase

	closers []func() error
}

// Close libera conexiones en orden inverso al de apertura.
func (e *Engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	return errors.Join(errs...)
}

type persistence struct {
	invoices   repository.InvoiceRepository
	bookings   repository.BookingRepository
	apartments repository.ApartmentRepository
	settings   repository.SettingsRepository
	sequences  repository.SequenceRepository
	tx         billing.InvoicingTxRunner
}

// Build conecta la infraestructura indicada por cfg. Si algo falla cierra lo ya abierto.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *Engine, err error) {
	e := &Engine{}
	defer func() {
		if err != nil {
			_ = e.Close()
		}
	}()

	loc, err := cfg.Invoice.Location()
	if err != nil {
		return nil, err
	}

	p, err := e.openPersistence(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	objects, err := openStorage(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}

	var notifier billing.Notifier = events.LogNotifier{Log: log}
	if len(cfg.Kafka.Brokers) > 0 {
		kn := events.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		e.closers = append(e.closers, kn.Close)
		notifier = kn
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("eventos hacia Kafka")
	}

	var guard billing.BookingGuard = memory.NewBookingGuard()
	if cfg.Redis.Addr != "" {
		client, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, client.Close)
		guard = infraredis.NewBookingGuard(client, cfg.Invoice.GuardTTL)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("candado de emisión en Redis")
	}

	generator := infrapdf.NewMarotoPDFGenerator()
	artifacts := billing.NewPDFArtifactPipeline(generator, objects)

	e.Sequence = billing.NewSequenceService(p.sequences, p.settings, log)
	e.Compiler = billing.NewCompiler(p.tx, p.invoices, p.bookings, p.apartments, p.settings, e.Sequence,
		artifacts, notifier, guard, log, billing.CompilerConfig{
			Location:        loc,
			RollbackTimeout: cfg.Invoice.RollbackTimeout,
			NotifyTimeout:   cfg.Invoice.NotifyTimeout,
		})
	e.Lifecycle = billing.NewLifecycleController(p.tx, p.invoices, artifacts, notifier, log)
	e.Batch = billing.NewBatchOrchestrator(e.Compiler, p.invoices, log).WithConcurrency(cfg.Invoice.BatchConcurrency)
	e.PDF = billing.NewPDFUseCase(p.invoices, generator)
	return e, nil
}

func (e *Engine) openPersistence(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*persistence, error) {
	if !cfg.DB.Enabled() {
		store := memory.NewStore()
		if cfg.App.SeedFile != "" {
			seed, err := memory.LoadSeedFile(ctx, store, cfg.App.SeedFile)
			if err != nil {
				return nil, err
			}
			log.Info().Int("settings", len(seed.Settings)).Int("bookings", len(seed.Bookings)).Msg("seed cargado")
		}
		log.Warn().Msg("sin DATABASE_URL ni DB_HOST: almacenamiento en memoria")
		return &persistence{
			invoices:   memory.NewInvoiceRepository(store),
			bookings:   memory.NewBookingRepository(store),
			apartments: memory.NewApartmentRepository(store),
			settings:   memory.NewSettingsRepository(store),
			sequences:  memory.NewSequenceRepository(store),
			tx:         memory.NewTxRunner(store),
		}, nil
	}

	if cfg.DB.AutoMigrate {
		if err := Migrate(cfg.DB, log); err != nil {
			return nil, err
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	e.closers = append(e.closers, func() error { pool.Close(); return nil })
	return &persistence{
		invoices:   postgres.NewInvoiceRepository(pool),
		bookings:   postgres.NewBookingRepository(pool),
		apartments: postgres.NewApartmentRepository(pool),
		settings:   postgres.NewSettingsRepository(pool),
		sequences:  postgres.NewSequenceRepository(pool),
		tx:         postgres.NewTxRunner(pool),
	}, nil
}

// Migrate aplica las migraciones pendientes.
func Migrate(db config.DBConfig, log zerolog.Logger) error {
	m, err := postgres.NewMigrator(db.ConnectionString(), log)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}

func openStorage(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger) (billing.ObjectStorage, error) {
	switch cfg.Driver {
	case "s3":
		return storage.NewS3ObjectStorage(ctx, cfg, log)
	case "local", "":
		log.Info().Str("dir", cfg.LocalDir).Msg("PDF en disco local")
		return storage.NewLocalStorage(cfg.LocalDir)
	default:
		return nil, fmt.Errorf("STORAGE_DRIVER desconocido: %q", cfg.Driver)
	}
}
