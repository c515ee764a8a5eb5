// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/policy-match/internal/match"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search policies with strict full-text matching",
	Long: `Search expands the query with synonyms and requires every term to
match. With no query, region and industry filters alone select policies.
When nothing matches, the newest policies are listed instead.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("region", "", "filter by region (e.g. 서울)")
	searchCmd.Flags().String("industry", "", "filter by industry (e.g. 제조업)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	region, _ := cmd.Flags().GetString("region")
	industry, _ := cmd.Flags().GetString("industry")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(loadConfig(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.pipeline.Search(context.Background(), match.SearchRequest{
		Query:    strings.Join(args, " "),
		Region:   region,
		Industry: industry,
	})
	if err != nil {
		return err
	}
	return formatSearchOutput(cmd.OutOrStdout(), res, jsonOutput)
}
