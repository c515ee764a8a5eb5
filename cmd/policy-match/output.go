// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/policy-match/internal/match"
)

func formatSearchOutput(w io.Writer, res match.SearchResponse, jsonOutput bool) error {
	if jsonOutput {
		return writeIndented(w, res)
	}

	fmt.Fprintf(w, "%s  (tier: %s)\n", res.SearchType, res.Tier)
	if res.EnhancedQuery != res.OriginalQuery {
		fmt.Fprintf(w, "query: %s\n", res.EnhancedQuery)
	}
	if len(res.Items) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-6s  %-40s  %-8s  %-10s  %s\n",
		"Rank", "ID", "Title", "Region", "Industry", "Period")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for i, r := range res.Items {
		fmt.Fprintf(w, "%-4d  %-6d  %-40s  %-8s  %-10s  %s\n",
			i+1, r.ID, clip(r.Title, 40), clip(r.Region, 8), clip(r.Industry, 10), r.Period)
	}
	fmt.Fprintf(w, "\n%d results\n", len(res.Items))
	return nil
}

func formatMatchOutput(w io.Writer, res match.Response, jsonOutput bool) error {
	if jsonOutput {
		return writeIndented(w, res)
	}

	fmt.Fprintf(w, "%s  (tier: %s)\n", res.SearchType, res.Tier)
	if len(res.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-5s  %-6s  %-40s  %s\n", "Rank", "Score", "ID", "Title", "Reason")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for i, r := range res.Results {
		score := "-"
		if r.Score != nil {
			score = fmt.Sprintf("%.1f", *r.Score)
		}
		fmt.Fprintf(w, "%-4d  %-5s  %-6d  %-40s  %s\n", i+1, score, r.ID, clip(r.Title, 40), r.Reason)
		if r.URL != "" {
			fmt.Fprintf(w, "%19s%s\n", "", r.URL)
		}
	}
	fmt.Fprintf(w, "\n%d results\n", len(res.Results))
	return nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// clip shortens s to n runes, marking the cut with "...".
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
