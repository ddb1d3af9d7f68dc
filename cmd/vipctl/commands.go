package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vipclub/config"
	"vipclub/internal/auth"
)

func tokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Manage the VIP token pool",
	}

	generate := &cobra.Command{
		Use:   "generate",
		Short: "Add fresh tokens to the pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt("count")
			e, err := openEnv()
			if err != nil {
				return err
			}
			codes, err := e.svc.Tokens.Generate(operatorID, n)
			if err != nil {
				return err
			}
			if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
				for _, c := range codes {
					fmt.Fprintln(cmd.OutOrStdout(), c)
				}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "generated %d tokens\n", len(codes))
			return nil
		},
	}
	generate.Flags().IntP("count", "n", 100, "Number of tokens to generate")
	generate.Flags().BoolP("quiet", "q", false, "Do not print the generated codes")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show pool counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			s, err := e.svc.Tokens.Stats()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Token pool")
			fmt.Fprintln(out, strings.Repeat("=", 24))
			fmt.Fprintf(out, "  Total:     %d\n", s.Total)
			fmt.Fprintf(out, "  Used:      %d\n", s.Used)
			fmt.Fprintf(out, "  Reserved:  %d\n", s.Reserved)
			fmt.Fprintf(out, "  Available: %d\n", s.Available)
			return nil
		},
	}

	cmd.AddCommand(generate, stats)
	return cmd
}

func grantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant [user-id]",
		Short: "Extend a user's VIP access",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")
			e, err := openEnv()
			if err != nil {
				return err
			}
			ent, err := e.svc.Entitlements.Grant(operatorID, args[0], days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is VIP until %s\n", args[0], expiryString(ent.ExpiresAt))
			return nil
		},
	}
	cmd.Flags().IntP("days", "d", 30, "Days of access to add")
	return cmd
}

func revokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke [user-id]",
		Short: "Remove a user's VIP access",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			if err := e.svc.Entitlements.Revoke(operatorID, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked VIP for %s\n", args[0])
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [external-id]",
		Short: "Re-run settlement for a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Gateway.Timeout+5*time.Second)
			defer cancel()
			st, err := e.svc.Payments.Reconcile(ctx, operatorID, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "status:               %s\n", st.Status)
			fmt.Fprintf(out, "token:                %s\n", valueOrDefault(st.Token, "-"))
			fmt.Fprintf(out, "needs reconciliation: %t\n", st.NeedsReconciliation)
			return nil
		},
	}
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator profiles",
	}
	promote := &cobra.Command{
		Use:   "promote [user-id]",
		Short: "Give a user admin rights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			demote, _ := cmd.Flags().GetBool("demote")
			e, err := openEnv()
			if err != nil {
				return err
			}
			return e.svc.Profiles.SetAdmin(args[0], !demote)
		},
	}
	promote.Flags().Bool("demote", false, "Remove admin rights instead")

	list := &cobra.Command{
		Use:   "list",
		Short: "List administrators",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			admins, err := e.svc.Profiles.ListAdmins()
			if err != nil {
				return err
			}
			for _, p := range admins {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.ID, valueOrDefault(p.Email, "-"))
			}
			return nil
		},
	}
	cmd.AddCommand(promote, list)
	return cmd
}

// devTokenCmd mints an access token signed with the local JWT secret, for
// exercising the API without the hosted auth provider.
func devTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev-token [user-id]",
		Short: "Print a signed access token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Server.Env == "production" {
				return fmt.Errorf("dev-token is disabled in production")
			}
			tok, err := auth.GenerateAccessToken(&cfg.JWT, args[0], email, "authenticated")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringP("email", "e", "", "Email claim")
	return cmd
}

func expiryString(t *time.Time) string {
	if t == nil {
		return "forever"
	}
	return t.Format(time.RFC3339)
}

func valueOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
