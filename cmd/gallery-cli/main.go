// Package main implements gallery-cli, a command-line client for the gallery
// server plus a few commands that work directly on a local gallery directory.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"chartgallery/internal/api"
	"chartgallery/pkg/galleryclient"
)

var (
	// serverURL is the base URL of the gallery HTTP server
	serverURL string
	// grpcAddr is the gRPC health address; empty skips the gRPC probe
	grpcAddr string
	version  = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gallery-cli",
	Short: "CLI for the forecast chart gallery",
	Long: `gallery-cli generates, lists and deletes forecast charts through a running
gallery-server, and can rebuild or populate a gallery directory locally.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000", "gallery server URL")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(versionCmd)

	healthCmd.Flags().StringVar(&grpcAddr, "grpc", "", "also probe the gRPC health service at this address")
}

func client() *galleryclient.Client {
	return galleryclient.NewClient(serverURL)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "gallery-cli %s\n", version)
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check gallery server health",
	Long: `Check the health of the gallery HTTP server and, with --grpc, of its gRPC
health service.

Examples:
  gallery-cli health
  gallery-cli health --grpc localhost:9000`,
	RunE: runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	if err := client().Health(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "http %s: ok\n", serverURL)

	if grpcAddr != "" {
		status, err := api.Check(ctx, grpcAddr)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "grpc %s: %s\n", grpcAddr, status)
	}
	return nil
}
