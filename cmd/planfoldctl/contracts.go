package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	contractsCmd := &cobra.Command{Use: "contracts", Short: "Contract operations"}

	var orgID, serviceID, plan string
	subscribeCmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Subscribe an organization to a service plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			if serviceID == "" || plan == "" {
				return fmt.Errorf("--service and --plan required")
			}
			payload := map[string]interface{}{"serviceId": serviceID, "planName": plan}
			if orgID != "" {
				payload["orgId"] = orgID
			}
			return call(newClient().R().SetBody(payload).Post("/contracts"))
		},
	}
	subscribeCmd.Flags().StringVarP(&orgID, "org", "o", "", "Organization ID (implicit for org keys)")
	subscribeCmd.Flags().StringVarP(&serviceID, "service", "s", "", "Service ID (required)")
	subscribeCmd.Flags().StringVarP(&plan, "plan", "p", "", "Plan name (required)")
	contractsCmd.AddCommand(subscribeCmd)

	var listOrg string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List an organization's contracts",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := newClient().R()
			if listOrg != "" {
				req.SetQueryParam("orgId", listOrg)
			}
			return call(req.Get("/contracts"))
		},
	}
	listCmd.Flags().StringVarP(&listOrg, "org", "o", "", "Organization ID (implicit for org keys)")
	contractsCmd.AddCommand(listCmd)

	contractsCmd.AddCommand(&cobra.Command{
		Use:   "terminate CONTRACT_ID",
		Short: "Terminate a contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(newClient().R().Delete("/contracts/" + args[0]))
		},
	})

	var evalOrg string
	evalCmd := &cobra.Command{
		Use:   "evaluate SERVICE_ID FEATURE",
		Short: "Resolve a feature value through the active contract",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := newClient().R()
			if evalOrg != "" {
				req.SetQueryParam("orgId", evalOrg)
			}
			return call(req.Get("/evaluation/services/" + args[0] + "/features/" + args[1]))
		},
	}
	evalCmd.Flags().StringVarP(&evalOrg, "org", "o", "", "Organization ID (implicit for org keys)")
	contractsCmd.AddCommand(evalCmd)

	rootCmd.AddCommand(contractsCmd)
}
