package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"metalwatch/pkg/metalwatch"
)

// Version information set at build time.
var version = "dev"

func main() {
	var serverURL string

	rootCmd := &cobra.Command{
		Use:           "metalwatch-cli",
		Short:         "Inspect and manage a running metalwatch-server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := "http://127.0.0.1:8080"
	if v := os.Getenv("METALWATCH_URL"); v != "" {
		defaultURL = v
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultURL, "metalwatch-server base URL")

	client := func() *metalwatch.Client {
		return metalwatch.NewClient(serverURL)
	}

	rootCmd.AddCommand(
		listCmd(client),
		showCmd(client),
		hideCmd(client),
		addCmd(client),
		removeCmd(client),
		refreshCmd(client),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
