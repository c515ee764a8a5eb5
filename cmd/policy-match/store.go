// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

// --- load ---

var loadCmd = &cobra.Command{
	Use:   "load FILE...",
	Short: "Load policies from YAML or JSON seed files",
	Long: `Load reads lists of policy rows from YAML or JSON files and writes
them to the database in one transaction. Rows may use the feed's own field
names (공고명, pbancNm, aplyPd, ...). Missing region and industry are
inferred from the title, hashtags, and conditions. Rows with an id replace
the stored record.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLoad,
}

func runLoad(cmd *cobra.Command, args []string) error {
	store, err := openStore(loadConfig(), true)
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = store.Load(context.Background(), args, cmd.OutOrStdout())
	return err
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all policies to YAML or JSON",
	Long: `Export writes every stored policy to a file that load accepts, so a
database can be rebuilt from the export.`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")

	store, err := openStore(loadConfig(), false)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	var n int
	switch format {
	case "yaml", "":
		if out == "" {
			out = filepath.Join("data", "export.yaml")
		}
		n, err = store.ExportYAML(ctx, out)
	case "json":
		if out == "" {
			out = filepath.Join("data", "export.json")
		}
		n, err = store.ExportJSON(ctx, out)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d policies to %s\n", n, out)
	return nil
}

// --- reindex ---

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the full-text index from the policies table",
	Long: `Reindex rebuilds the full-text projection of every policy. Writes keep
the index in sync on their own; reindex repairs databases edited outside
policy-match.`,
	RunE: runReindex,
}

func runReindex(cmd *cobra.Command, args []string) error {
	store, err := openStore(loadConfig(), true)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Reindex(ctx); err != nil {
		return err
	}
	n, err := store.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reindexed %d policies\n", n)
	return nil
}

func init() {
	exportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	exportCmd.Flags().String("out", "", "output file (default data/export.yaml or data/export.json)")

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(reindexCmd)
}
