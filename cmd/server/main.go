// Command docudir serves the document store API and runs its
// maintenance tasks.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var configFile string

var rootCmd = &cobra.Command{
	Use:          "docudir",
	Short:        "Multi-tenant document store",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), configFile)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), configFile)
		if err != nil {
			return err
		}
		defer a.Close()

		a.logger.Info("Database schema is up to date")
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare file metadata with stored blobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		fix, _ := cmd.Flags().GetBool("fix")

		a, err := newApp(cmd.Context(), configFile)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.files.Reconcile(cmd.Context(), fix)
		if err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

var pruneTokensCmd = &cobra.Command{
	Use:   "prune-tokens",
	Short: "Delete expired entries from the token revocation list",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), configFile)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.auth.PruneRevoked(cmd.Context())
		if err != nil {
			return fmt.Errorf("prune revoked tokens: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d expired tokens\n", n)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.Flags().Bool("fix", false, "Move stray blobs to the site trash")
	rootCmd.AddCommand(pruneTokensCmd)
}
