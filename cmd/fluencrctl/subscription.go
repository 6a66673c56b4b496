package main

import (
	"fluencr-service/internal/domain/audit"

	"github.com/spf13/cobra"
)

var auditLimit int

var subscriptionCmd = &cobra.Command{
	Use:   "subscription",
	Short: "Inspect subscriptions and derived entitlements",
}

var subscriptionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the subscription and feature set of an account",
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

		view, err := rt.services.Entitlement.Current(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), view)
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List recent audit events for an account",
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

		events, err := rt.services.Audit.List(cmd.Context(), audit.ListFilters{AccountID: id, Limit: auditLimit})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), events)
	},
}

func init() {
	subscriptionShowCmd.Flags().StringVar(&accountID, "account", "", "account UUID")
	_ = subscriptionShowCmd.MarkFlagRequired("account")
	subscriptionCmd.AddCommand(subscriptionShowCmd)

	auditCmd.Flags().StringVar(&accountID, "account", "", "account UUID")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "maximum number of events")
	_ = auditCmd.MarkFlagRequired("account")

	rootCmd.AddCommand(subscriptionCmd, auditCmd)
}
