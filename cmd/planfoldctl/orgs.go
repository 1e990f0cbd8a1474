package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	orgsCmd := &cobra.Command{Use: "orgs", Short: "Organization operations"}

	var name, webhook string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an organization owned by the calling user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name required")
			}
			payload := map[string]interface{}{"name": name}
			if webhook != "" {
				payload["webhookUrl"] = webhook
			}
			return call(newClient().R().SetBody(payload).Post("/organizations"))
		},
	}
	createCmd.Flags().StringVarP(&name, "name", "n", "", "Organization name (required)")
	createCmd.Flags().StringVarP(&webhook, "webhook", "w", "", "Webhook URL for contract events")
	_ = createCmd.MarkFlagRequired("name")
	orgsCmd.AddCommand(createCmd)

	orgsCmd.AddCommand(&cobra.Command{
		Use:   "get ORG_ID",
		Short: "Get an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(newClient().R().Get("/organizations/" + args[0]))
		},
	})

	var memberRole string
	addMemberCmd := &cobra.Command{
		Use:   "add-member ORG_ID USERNAME",
		Short: "Enroll a user in an organization",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{"username": args[1], "role": memberRole}
			return call(newClient().R().SetBody(payload).Post("/organizations/" + args[0] + "/members"))
		},
	}
	addMemberCmd.Flags().StringVarP(&memberRole, "role", "r", "EVALUATOR", "Org role: ADMIN, MANAGER or EVALUATOR")
	orgsCmd.AddCommand(addMemberCmd)

	orgsCmd.AddCommand(&cobra.Command{
		Use:   "remove-member ORG_ID USERNAME",
		Short: "Remove a member from an organization",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(newClient().R().Delete("/organizations/" + args[0] + "/members/" + args[1]))
		},
	})

	var keyName, keyScope string
	issueKeyCmd := &cobra.Command{
		Use:   "issue-key ORG_ID",
		Short: "Issue an organization API key; prints the raw key once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{"name": keyName, "scope": keyScope}
			return call(newClient().R().SetBody(payload).Post("/organizations/" + args[0] + "/keys"))
		},
	}
	issueKeyCmd.Flags().StringVarP(&keyName, "name", "n", "", "Key name")
	issueKeyCmd.Flags().StringVarP(&keyScope, "scope", "s", "EVALUATION", "Key scope: ALL, MANAGEMENT or EVALUATION")
	orgsCmd.AddCommand(issueKeyCmd)

	orgsCmd.AddCommand(&cobra.Command{
		Use:   "revoke-key ORG_ID KEY",
		Short: "Revoke an organization API key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(newClient().R().Delete("/organizations/" + args[0] + "/keys/" + args[1]))
		},
	})

	rootCmd.AddCommand(orgsCmd)
}
