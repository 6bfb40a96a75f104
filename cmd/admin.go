package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cppla/gympoints/config"
	"github.com/cppla/gympoints/models"
	"github.com/cppla/gympoints/services"
	"github.com/cppla/gympoints/utils"
)

func prizesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prizes",
		Short: "Manage the prize catalogue",
	}
	cmd.AddCommand(prizesListCommand())
	cmd.AddCommand(prizesAddCommand())
	cmd.AddCommand(prizesSeedCommand())
	cmd.AddCommand(redemptionStatusCommand())
	return cmd
}

func prizesListCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List prizes, cheapest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, closer, err := openEngine(config.Get())
			if err != nil {
				return err
			}
			defer closer()
			var prizes []models.Prize
			if all {
				prizes, err = svc.AllPrizes(cmd.Context())
			} else {
				prizes, err = svc.Prizes(cmd.Context())
			}
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPOINTS\tAVAILABLE")
			for _, p := range prizes {
				fmt.Fprintf(w, "%d\t%s\t%d\t%t\n", p.ID, p.Name, p.Points, p.Available)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include unavailable prizes")
	return cmd
}

func prizesAddCommand() *cobra.Command {
	var (
		in          services.PrizeInput
		unavailable bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a prize to the catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, closer, err := openEngine(config.Get())
			if err != nil {
				return err
			}
			defer closer()
			if unavailable {
				off := false
				in.Available = &off
			}
			p, err := svc.CreatePrize(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created prize %d: %s (%d points)\n", p.ID, p.Name, p.Points)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "prize name")
	cmd.Flags().StringVar(&in.Description, "description", "", "prize description")
	cmd.Flags().IntVar(&in.Points, "points", 0, "points required to redeem")
	cmd.Flags().BoolVar(&unavailable, "unavailable", false, "hide the prize from members")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("points")
	return cmd
}

func prizesSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the default catalogue when no prizes exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, closer, err := openEngine(config.Get())
			if err != nil {
				return err
			}
			defer closer()
			n, err := config.SeedPrizes(db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d prizes\n", n)
			return nil
		},
	}
}

func redemptionStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fulfil <redemption-id> <completed|cancelled>",
		Short: "Complete or cancel a pending redemption",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid redemption id %q", args[0])
			}
			_, svc, closer, err := openEngine(config.Get())
			if err != nil {
				return err
			}
			defer closer()
			r, err := svc.UpdateRedemptionStatus(cmd.Context(), uint(id), models.RedemptionStatus(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "redemption %d (%s) is now %s\n", r.ID, r.Code, r.Status)
			return nil
		},
	}
}

func adminTokenCommand() *cobra.Command {
	var (
		subject string
		hours   int
	)
	cmd := &cobra.Command{
		Use:   "admin-token",
		Short: "Issue a bearer token for the /admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if hours <= 0 {
				hours = cfg.AdminTokenHours
			}
			token, err := utils.GenerateToken(subject, utils.RoleAdmin, time.Duration(hours)*time.Hour)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "front-desk", "staff identifier stored in the token")
	cmd.Flags().IntVar(&hours, "hours", 0, "token lifetime in hours (default ADMIN_TOKEN_HOURS)")
	return cmd
}
