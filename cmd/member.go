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
	"github.com/cppla/gympoints/session"
)

var sessionFile string

// memberSlot resolves the file holding the signed-in member for this terminal.
func memberSlot(cfg config.AppConfig) (*session.FileSlot, error) {
	path := sessionFile
	if path == "" {
		path = cfg.SessionFile
	}
	if path == "" {
		p, err := session.DefaultFilePath()
		if err != nil {
			return nil, fmt.Errorf("resolve session file: %w", err)
		}
		path = p
	}
	return session.NewFileSlot(path), nil
}

// withMember opens the engine and the session slot and runs fn.
func withMember(cmd *cobra.Command, fn func(svc *services.RewardsService, slot *session.FileSlot) error) error {
	cfg := config.Get()
	slot, err := memberSlot(cfg)
	if err != nil {
		return err
	}
	_, svc, closer, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer closer()
	return fn(svc, slot)
}

func memberCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Member actions from the front-desk terminal",
	}
	cmd.PersistentFlags().StringVar(&sessionFile, "session-file", "", "file remembering the signed-in member (default SESSION_FILE or the user config dir)")
	cmd.AddCommand(memberRegisterCommand())
	cmd.AddCommand(memberLoginCommand())
	cmd.AddCommand(memberLogoutCommand())
	cmd.AddCommand(memberWhoamiCommand())
	cmd.AddCommand(memberCheckInCommand())
	cmd.AddCommand(memberRedeemCommand())
	cmd.AddCommand(memberHistoryCommand())
	return cmd
}

func memberRegisterCommand() *cobra.Command {
	var (
		in  services.RegisterInput
		ref string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a member and sign them in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ref != "" {
				if email, ok := services.ReferrerFromURL(ref); ok {
					in.ReferrerEmail = email
				} else {
					in.ReferrerEmail = ref
				}
			}
			return withMember(cmd, func(svc *services.RewardsService, slot *session.FileSlot) error {
				m, err := svc.Register(cmd.Context(), slot, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "welcome %s (member %d), you have %d points\n", m.Name, m.ID, m.Points)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "full name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&in.Address, "address", "", "postal address")
	cmd.Flags().StringVar(&ref, "ref", "", "referrer email or referral link")
	return cmd
}

func memberLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in as an existing member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMember(cmd, func(svc *services.RewardsService, slot *session.FileSlot) error {
				m, err := svc.Login(cmd.Context(), slot, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (member %d)\n", m.Name, m.ID)
				return nil
			})
		},
	}
}

func memberLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the signed-in member",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMember(cmd, func(svc *services.RewardsService, slot *session.FileSlot) error {
				if err := svc.Logout(cmd.Context(), slot); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "signed out")
				return nil
			})
		},
	}
}

func memberWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in member's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMember(cmd, func(svc *services.RewardsService, slot *session.FileSlot) error {
				m, err := svc.Current(cmd.Context(), slot)
				if err != nil {
					return err
				}
				rank, err := svc.MemberRank(cmd.Context(), m.ID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintf(w, "Member\t%d\n", m.ID)
				fmt.Fprintf(w, "Name\t%s\n", m.Name)
				fmt.Fprintf(w, "Email\t%s\n", m.Email)
				fmt.Fprintf(w, "Points\t%d\n", m.Points)
				fmt.Fprintf(w, "Level\t%d\n", m.Level)
				fmt.Fprintf(w, "Streak\t%d (%s)\n", m.Streak, services.Classify(m.Streak))
				if next, days, ok := services.NextTier(m.Streak); ok {
					fmt.Fprintf(w, "Next tier\t%s in %d days\n", next, days)
				}
				fmt.Fprintf(w, "Rank\t%d\n", rank)
				fmt.Fprintf(w, "Check-ins\t%d\n", m.TotalCheckIns)
				fmt.Fprintf(w, "Referral link\t%s\n", services.ReferralLink(config.Get().PublicBaseURL, m.Email))
				return w.Flush()
			})
		},
	}
}

func memberCheckInCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "checkin",
		Short: "Record today's visit for the signed-in member",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMember(cmd, func(svc *services.RewardsService, slot *session.FileSlot) error {
				m, err := svc.Current(cmd.Context(), slot)
				if err != nil {
					return err
				}
				res, err := svc.CheckIn(cmd.Context(), m.ID, time.Time{})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "+%d points, streak %d (%s), total %d\n",
					res.PointsEarned, res.Member.Streak, res.Tier, res.Member.Points)
				return nil
			})
		},
	}
}

func memberRedeemCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "redeem <prize-id>",
		Short: "Spend points on a prize",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prizeID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid prize id %q", args[0])
			}
			return withMember(cmd, func(svc *services.RewardsService, slot *session.FileSlot) error {
				m, err := svc.Current(cmd.Context(), slot)
				if err != nil {
					return err
				}
				res, err := svc.Redeem(cmd.Context(), m.ID, uint(prizeID), time.Time{})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "code %s valid until %s, %d points left\n",
					res.Code, res.Expiry.Format(models.CheckInDateLayout), res.Member.Points)
				return nil
			})
		},
	}
}

func memberHistoryCommand() *cobra.Command {
	var (
		redemptions bool
		limit       int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent check-ins or redemptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMember(cmd, func(svc *services.RewardsService, slot *session.FileSlot) error {
				m, err := svc.Current(cmd.Context(), slot)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				if redemptions {
					items, err := svc.RedemptionHistory(cmd.Context(), m.ID)
					if err != nil {
						return err
					}
					fmt.Fprintln(w, "ID\tPRIZE\tPOINTS\tSTATUS\tCODE\tDATE")
					for _, r := range items {
						name := strconv.FormatUint(uint64(r.PrizeID), 10)
						if r.Prize != nil {
							name = r.Prize.Name
						}
						fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n", r.ID, name, r.PointsSpent, r.Status, r.Code,
							r.CreatedAt.Format(models.CheckInDateLayout))
					}
					return w.Flush()
				}
				items, err := svc.CheckInHistory(cmd.Context(), m.ID, limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "DATE\tPOINTS\tSTREAK")
				for _, c := range items {
					fmt.Fprintf(w, "%s\t%d\t%d\n", c.CheckInDate, c.PointsEarned, c.StreakAtTime)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&redemptions, "redemptions", false, "show redemptions instead of check-ins")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum check-ins to show")
	return cmd
}

func leaderboardCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top members by points",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, closer, err := openEngine(config.Get())
			if err != nil {
				return err
			}
			defer closer()
			board, err := svc.Leaderboard(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tNAME\tPOINTS\tLEVEL\tTIER")
			for _, e := range board {
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n", e.Rank, e.Name, e.Points, e.Level, e.Tier)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of members to show")
	return cmd
}
