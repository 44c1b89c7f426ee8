package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brighterbites/backend/config"
	"github.com/brighterbites/backend/models"
	"github.com/brighterbites/backend/routes"
	"github.com/brighterbites/backend/services"
	"github.com/brighterbites/backend/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  func(cmd *cobra.Command, args []string) error { return runServe() },
	}
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE:  func(cmd *cobra.Command, args []string) error { return runMigrate() },
	}

	root := &cobra.Command{
		Use:           "brighterbites",
		Short:         "Brighter Bites habit tracker backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.AddCommand(serve, migrate)
	return root
}

func boot() (config.AppConfig, error) {
	cfg := config.Load()
	if err := utils.InitLogger(cfg); err != nil {
		return cfg, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

func runMigrate() error {
	cfg, err := boot()
	if err != nil {
		return err
	}
	defer utils.Logger.Sync()

	db, err := config.OpenDatabase(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := config.Migrate(db, true, models.All()...); err != nil {
		return err
	}
	utils.Sugar.Infof("schema migrated (%s)", cfg.DBDriver)
	return nil
}

func runServe() error {
	cfg, err := boot()
	if err != nil {
		return err
	}
	defer utils.Logger.Sync()

	db := config.InitDatabase(models.All()...)

	opts := services.Options{
		Logger:             utils.Logger.Named("records"),
		ResyncMode:         cfg.ResyncMode,
		CalendarWindowDays: cfg.CalendarWindowDays,
		CalendarMaxDays:    cfg.CalendarMaxDays,
	}
	// only set when non-nil so the interface does not hold a typed nil
	if cache := utils.NewRecordCache(utils.GetRedis(), time.Duration(cfg.CacheTTLSeconds)*time.Second); cache != nil {
		opts.Cache = cache
	}
	records := services.NewRecordService(db, opts)

	r := routes.SetupRouter(db, records)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var rolloverDone <-chan struct{}
	if cfg.RolloverEnabled {
		rolloverDone = services.StartDailyRollover(ctx, records, time.Duration(cfg.RolloverIntervalMinutes)*time.Minute)
	}

	utils.Logger.Info("starting server",
		zap.String("port", cfg.AppPort),
		zap.String("db", cfg.DBDriver),
		zap.String("resync_mode", cfg.ResyncMode),
		zap.Bool("cache", opts.Cache != nil),
		zap.Bool("rollover", cfg.RolloverEnabled))

	return utils.GraceServer(":"+cfg.AppPort, r, func() {
		cancel()
		if rolloverDone != nil {
			<-rolloverDone
		}
	})
}
