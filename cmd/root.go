package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/cppla/gympoints/config"
	"github.com/cppla/gympoints/services"
	"github.com/cppla/gympoints/store"
	"github.com/cppla/gympoints/utils"
)

const programName = "gympoints"

var globalFlags = struct {
	configFile string
	debug      bool
}{}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "Gym check-in rewards: streaks, points, referrals and prizes",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().
		StringVar(&globalFlags.configFile, "config", filepath.Join("config", "config.json"), "path to config file")
	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFrom(globalFlags.configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if globalFlags.debug {
			cfg.LogLevel = "debug"
		}
		config.Set(cfg)
		return utils.InitLogger(cfg)
	}

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(migrateCommand())
	rootCmd.AddCommand(sweepCommand())
	rootCmd.AddCommand(prizesCommand())
	rootCmd.AddCommand(adminTokenCommand())
	rootCmd.AddCommand(memberCommand())
	rootCmd.AddCommand(leaderboardCommand())
	return rootCmd
}

// newService wires the rewards engine over an open database.
func newService(db *gorm.DB, cfg config.AppConfig, opts ...services.Option) (*services.RewardsService, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	opts = append([]services.Option{services.WithLocation(loc)}, opts...)
	return services.NewRewardsService(store.NewGormStore(db), services.RulesFromConfig(cfg), opts...), nil
}

// openEngine opens and migrates the configured database for one-shot commands.
// The returned func closes the connection.
func openEngine(cfg config.AppConfig) (*gorm.DB, *services.RewardsService, func(), error) {
	db, err := config.OpenDatabase(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect database: %w", err)
	}
	closer := func() { closeDB(db) }
	if err := config.Migrate(db); err != nil {
		closer()
		return nil, nil, nil, err
	}
	svc, err := newService(db, cfg, services.WithLogger(utils.Logger))
	if err != nil {
		closer()
		return nil, nil, nil, err
	}
	return db, svc, closer, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func leaderboardTTL(cfg config.AppConfig) time.Duration {
	return time.Duration(cfg.LeaderboardCacheTTLSec) * time.Second
}
