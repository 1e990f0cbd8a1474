package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	usersCmd := &cobra.Command{Use: "users", Short: "User operations"}

	var username, email, role string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user (admin key required); prints the new personal API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || email == "" {
				return fmt.Errorf("--username and --email required")
			}
			payload := map[string]interface{}{"username": username, "email": email}
			if role != "" {
				payload["role"] = role
			}
			return call(newClient().R().SetBody(payload).Post("/users"))
		},
	}
	createCmd.Flags().StringVarP(&username, "username", "u", "", "Username (required)")
	createCmd.Flags().StringVarP(&email, "email", "e", "", "Email (required)")
	createCmd.Flags().StringVarP(&role, "role", "r", "", "Global role: ADMIN or USER (default USER)")
	_ = createCmd.MarkFlagRequired("username")
	usersCmd.AddCommand(createCmd)

	usersCmd.AddCommand(&cobra.Command{
		Use:   "get USERNAME",
		Short: "Get a user by username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(newClient().R().Get("/users/" + args[0]))
		},
	})

	usersCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users (admin key required)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(newClient().R().Get("/users"))
		},
	})

	usersCmd.AddCommand(&cobra.Command{
		Use:   "delete USERNAME",
		Short: "Delete a user (admin key required)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(newClient().R().Delete("/users/" + args[0]))
		},
	})

	rootCmd.AddCommand(usersCmd)
}
