package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	servicesCmd := &cobra.Command{Use: "services", Short: "Service catalog operations"}

	var file string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a catalog entry from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file required")
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var payload map[string]interface{}
			if err := json.Unmarshal(raw, &payload); err != nil {
				return fmt.Errorf("service definition must be a JSON object: %w", err)
			}
			return call(newClient().R().SetBody(payload).Post("/services"))
		},
	}
	createCmd.Flags().StringVarP(&file, "file", "f", "", "Path to service definition JSON (required)")
	_ = createCmd.MarkFlagRequired("file")
	servicesCmd.AddCommand(createCmd)

	servicesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List catalog services",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(newClient().R().Get("/services"))
		},
	})

	servicesCmd.AddCommand(&cobra.Command{
		Use:   "get SERVICE_ID",
		Short: "Get a catalog service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(newClient().R().Get("/services/" + args[0]))
		},
	})

	rootCmd.AddCommand(servicesCmd)
}
