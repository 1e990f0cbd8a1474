package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiFlag string
	keyFlag string
	rootCmd = &cobra.Command{
		Use:   "planfoldctl",
		Short: "CLI client for the platform service REST API",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "Platform service base URL")
	rootCmd.PersistentFlags().StringVarP(&keyFlag, "key", "k", os.Getenv("PLANFOLD_API_KEY"), "API key (usr_ or org_); defaults to PLANFOLD_API_KEY")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
