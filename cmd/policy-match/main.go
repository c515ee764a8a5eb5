// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the policy-match CLI. It serves the
// HTTP API and runs search, matching, and store maintenance locally.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/policy-match/internal/logger"
	"github.com/pdiddy/policy-match/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds API keys loaded from the secrets directory at startup.
	loadedSecrets secrets.Secrets

	// log is the root logger, built once flags and config are read.
	log = zerolog.Nop()
)

// rootCmd is the base command for the policy-match CLI.
var rootCmd = &cobra.Command{
	Use:   "policy-match",
	Short: "Match small businesses to government support policies",
	Long: `policy-match finds government support policies for a small business.
A request recalls candidate policies from a SQLite full-text index, asks a
language model to pick and justify the best few, and always returns exactly
top-K results, falling back to deterministic ranking when the model fails.

Use serve to run the HTTP API, search and match to query locally, and load,
export, and reindex to maintain the policy database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log = logger.New(logConfig(), os.Stderr)

		dir := viper.GetString("secrets_dir")
		s, err := secrets.Load(dir, log)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			log.Debug().Strs("keys", keys).Str("dir", dir).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./policy-match.yaml or ~/.config/policy-match/config.yaml)")
	pf.String("db", "", "policy database path (default db/soho.db)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.Bool("log-pretty", false, "human-readable log output")
	pf.String("secrets-dir", "", "directory holding API key files (default .secrets)")

	mustBind("store.path", pf.Lookup("db"))
	mustBind("log.level", pf.Lookup("log-level"))
	mustBind("log.pretty", pf.Lookup("log-pretty"))
	mustBind("secrets_dir", pf.Lookup("secrets-dir"))

	setDefaults()
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("policy-match")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "policy-match"))
		}
	}

	viper.SetEnvPrefix("POLICY_MATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
