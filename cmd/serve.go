package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/cppla/gympoints/config"
	"github.com/cppla/gympoints/routes"
	"github.com/cppla/gympoints/services"
	"github.com/cppla/gympoints/utils"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the nightly streak sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			if err := cfg.Validate(); err != nil {
				return err
			}
			// Configure max processes with our logger wrapper, toss undo func
			if _, err := maxprocs.Set(maxprocs.Logger(utils.Sugar.Infof)); err != nil {
				utils.Sugar.Warnf("maxprocs: %v", err)
			}

			db := config.InitDatabase()
			svc, err := newService(db, cfg,
				services.WithLogger(utils.Logger),
				services.WithLeaderboardCache(utils.NewLeaderboardCache(), leaderboardTTL(cfg)),
			)
			if err != nil {
				return err
			}

			sweeper, err := services.NewStreakSweeper(svc, cfg.StreakSweepSchedule)
			if err != nil {
				return fmt.Errorf("invalid streak sweep schedule %q: %w", cfg.StreakSweepSchedule, err)
			}
			sweeper.Start()

			r := routes.SetupRouter(db, svc, utils.NewSessionStore())

			utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
			return utils.GraceServer(":"+cfg.AppPort, r,
				sweeper.Stop,
				utils.CloseRedis,
				func() { closeDB(db) },
			)
		},
	}
}

func migrateCommand() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			db, _, closer, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer closer()
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			if !seed && !cfg.SeedPrizes {
				return nil
			}
			n, err := config.SeedPrizes(db)
			if err != nil {
				return fmt.Errorf("seed prizes: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d prizes\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "insert the default prize catalogue when empty")
	return cmd
}

func sweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Reset the streaks of members who missed a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, closer, err := openEngine(config.Get())
			if err != nil {
				return err
			}
			defer closer()
			n, err := svc.SweepStaleStreaks(cmd.Context(), svc.Today())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %d streaks\n", n)
			return nil
		},
	}
}
