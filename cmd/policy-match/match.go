// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/policy-match/internal/match"
)

var matchCmd = &cobra.Command{
	Use:   "match [query]",
	Short: "Rank the best policies for a business",
	Long: `Match recalls a wide pool of candidate policies, asks the configured
ranking service to pick the best top-K for the business described by
--context, and fills any gap from the pool and then the newest policies.
Ranking failures fall back to recall order.`,
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().String("context", "", "description of the business (required)")
	matchCmd.Flags().String("region", "", "filter by region")
	matchCmd.Flags().String("industry", "", "filter by industry")
	matchCmd.Flags().Int("top-k", 0, "number of results (0 = use default)")
	matchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	userContext, _ := cmd.Flags().GetString("context")
	if strings.TrimSpace(userContext) == "" {
		return fmt.Errorf("--context is required: describe the business to match")
	}
	region, _ := cmd.Flags().GetString("region")
	industry, _ := cmd.Flags().GetString("industry")
	topK, _ := cmd.Flags().GetInt("top-k")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(loadConfig(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.pipeline.Match(context.Background(), match.Request{
		Query:       strings.Join(args, " "),
		Region:      region,
		Industry:    industry,
		UserContext: userContext,
		TopK:        topK,
	})
	if err != nil {
		return err
	}
	return formatMatchOutput(cmd.OutOrStdout(), res, jsonOutput)
}
