package main

import (
	"github.com/spf13/cobra"
)

var premiumOn bool

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Inspect and adjust usage quotas",
}

var quotaShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the quota of an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := requireAccount()
		if err != nil {
			return err
		}
		rt, err := openToolkit(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		q, err := rt.services.Quota.CheckEligibility(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), q)
	},
}

var quotaResetCmd = &cobra.Command{
	Use:     "reset",
	Short:   "Restore the initial trial allowance",
	Example: `  fluencrctl quota reset --account 5f0c... --operator alice`,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := requireAccount()
		if err != nil {
			return err
		}
		actor, err := operatorActor()
		if err != nil {
			return err
		}
		rt, err := openToolkit(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		q, err := rt.services.Quota.AdminReset(cmd.Context(), actor, id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), q)
	},
}

var quotaPremiumCmd = &cobra.Command{
	Use:   "premium",
	Short: "Grant or revoke unlimited usage",
	Example: `  fluencrctl quota premium --account 5f0c... --operator alice --on
  fluencrctl quota premium --account 5f0c... --operator alice --on=false`,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := requireAccount()
		if err != nil {
			return err
		}
		actor, err := operatorActor()
		if err != nil {
			return err
		}
		rt, err := openToolkit(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		q, err := rt.services.Quota.GrantPremium(cmd.Context(), actor, id, premiumOn)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), q)
	},
}

func init() {
	for _, c := range []*cobra.Command{quotaShowCmd, quotaResetCmd, quotaPremiumCmd} {
		c.Flags().StringVar(&accountID, "account", "", "account UUID")
		_ = c.MarkFlagRequired("account")
	}
	for _, c := range []*cobra.Command{quotaResetCmd, quotaPremiumCmd} {
		c.Flags().StringVar(&operator, "operator", "", "operator name recorded in the audit trail")
		_ = c.MarkFlagRequired("operator")
	}
	quotaPremiumCmd.Flags().BoolVar(&premiumOn, "on", true, "premium flag value")

	quotaCmd.AddCommand(quotaShowCmd, quotaResetCmd, quotaPremiumCmd)
	rootCmd.AddCommand(quotaCmd)
}
