package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newRootCmd(load envLoader) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "pronos-admin",
		Short:         "Back-office commands for the pronos platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")

	withEnv := func(run func(cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			e, err := load(configPath)
			if err != nil {
				return fmt.Errorf("load environment: %w", err)
			}
			return run(cmd, e, args)
		}
	}

	rootCmd.AddCommand(
		newApproveCmd(withEnv),
		newRejectCmd(withEnv),
		newExpireCmd(withEnv),
		newCheckAdminCmd(withEnv),
	)
	return rootCmd
}

type envRunner func(run func(cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error

func newApproveCmd(withEnv envRunner) *cobra.Command {
	var adminEmail string

	cmd := &cobra.Command{
		Use:     "approve <payment-id>",
		Short:   "Approve a pending payment and activate the subscription",
		Args:    cobra.ExactArgs(1),
		Example: `  pronos-admin approve 42 --admin admin@fixedpronos.com`,
		RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
			id, err := parsePaymentID(args[0])
			if err != nil {
				return err
			}
			adminID, err := resolveAdmin(e, adminEmail)
			if err != nil {
				return err
			}

			result, err := e.payments.Approve(cmd.Context(), id, adminID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "payment %d approved\n", result.PaymentID)
			fmt.Fprintf(out, "  user:    %d\n", result.UserID)
			fmt.Fprintf(out, "  plan:    %s\n", result.Plan)
			fmt.Fprintf(out, "  period:  %s -> %s\n", result.PeriodStart, result.PeriodEnd)
			if result.ReferrerID != nil {
				fmt.Fprintf(out, "  commission: %d to user %d\n", result.Commission, *result.ReferrerID)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&adminEmail, "admin", "", "email of the approving admin (must be whitelisted)")
	_ = cmd.MarkFlagRequired("admin")
	return cmd
}

func newRejectCmd(withEnv envRunner) *cobra.Command {
	var (
		adminEmail string
		reason     string
	)

	cmd := &cobra.Command{
		Use:   "reject <payment-id>",
		Short: "Reject a pending payment",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
			id, err := parsePaymentID(args[0])
			if err != nil {
				return err
			}
			adminID, err := resolveAdmin(e, adminEmail)
			if err != nil {
				return err
			}

			if err := e.payments.Reject(cmd.Context(), id, adminID, reason); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "payment %d rejected\n", id)
			return nil
		}),
	}
	cmd.Flags().StringVar(&adminEmail, "admin", "", "email of the rejecting admin (must be whitelisted)")
	cmd.Flags().StringVar(&reason, "reason", "", "reason appended to the payment notes")
	_ = cmd.MarkFlagRequired("admin")
	return cmd
}

func newExpireCmd(withEnv envRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Mark lapsed active subscriptions as expired",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, e *env, _ []string) error {
			n, err := e.subscriptions.ExpireOverdue(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d subscription(s) expired\n", n)
			return nil
		}),
	}
}

func newCheckAdminCmd(withEnv envRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "check-admin <email>",
		Short: "Report whether an email is on the admin whitelist",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
			if e.policy.IsAdmin(args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is an admin\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is NOT an admin\n", args[0])
			return nil
		}),
	}
}

func parsePaymentID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid payment id %q", raw)
	}
	return id, nil
}

// resolveAdmin 邮箱必须在白名单中且对应一个已注册用户
func resolveAdmin(e *env, email string) (int64, error) {
	if !e.policy.IsAdmin(email) {
		return 0, fmt.Errorf("%s is not on the admin whitelist", email)
	}
	user, err := e.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("no user registered with email %s", email)
		}
		return 0, err
	}
	return user.ID, nil
}
