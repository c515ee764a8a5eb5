// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/policy-match/internal/candidate"
	"github.com/pdiddy/policy-match/internal/recall"
	"github.com/pdiddy/policy-match/internal/rerank"
	"github.com/pdiddy/policy-match/internal/secrets"
	"github.com/pdiddy/policy-match/internal/server"
	"github.com/pdiddy/policy-match/pkg/types"
)

const defaultDBPath = "db/soho.db"

func setDefaults() {
	viper.SetDefault("store.path", defaultDBPath)
	viper.SetDefault("secrets_dir", secrets.DefaultDir)

	viper.SetDefault("ranker.backend", string(types.RankerOpenAI))
	viper.SetDefault("ranker.timeout", rerank.DefaultTimeout)
	viper.SetDefault("ranker.max_retries", 1)
	viper.SetDefault("ranker.max_candidates", rerank.DefaultMaxCandidates)
	viper.SetDefault("ranker.temperature", 0.2)
	viper.SetDefault("ranker.max_tokens", 800)

	viper.SetDefault("match.top_k", rerank.DefaultTopK)
	viper.SetDefault("match.recall_limit", recall.DefaultLimit)
	viper.SetDefault("match.search_limit", 50)
	viper.SetDefault("match.max_terms", 6)
	viper.SetDefault("match.url_template", candidate.DefaultURLTemplate)

	viper.SetDefault("server.addr", server.DefaultAddr)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 60*time.Second)

	viper.SetDefault("log.level", "info")
}

// mustBind binds a flag to a viper key. Flag names are fixed at init, so
// a failure is a programming error.
func mustBind(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func logConfig() types.LogConfig {
	return types.LogConfig{
		Level:  viper.GetString("log.level"),
		Pretty: viper.GetBool("log.pretty"),
	}
}

// loadConfig assembles the typed configuration from viper. The ranking
// API key comes from config or environment first, then the secrets
// directory.
func loadConfig() types.Config {
	backend := types.RankerBackend(viper.GetString("ranker.backend"))
	apiKey := viper.GetString("ranker.api_key")
	if apiKey == "" {
		apiKey = loadedSecrets.APIKey(backend)
	}

	return types.Config{
		Store: types.StoreConfig{
			Path: viper.GetString("store.path"),
		},
		Ranker: types.RankerConfig{
			Backend:       backend,
			Model:         viper.GetString("ranker.model"),
			APIKey:        apiKey,
			BaseURL:       viper.GetString("ranker.base_url"),
			Timeout:       viper.GetDuration("ranker.timeout"),
			MaxRetries:    viper.GetInt("ranker.max_retries"),
			MaxCandidates: viper.GetInt("ranker.max_candidates"),
			Temperature:   viper.GetFloat64("ranker.temperature"),
			MaxTokens:     viper.GetInt("ranker.max_tokens"),
		},
		Match: types.MatchConfig{
			TopK:        viper.GetInt("match.top_k"),
			RecallLimit: viper.GetInt("match.recall_limit"),
			SearchLimit: viper.GetInt("match.search_limit"),
			MaxTerms:    viper.GetInt("match.max_terms"),
			URLTemplate: viper.GetString("match.url_template"),
		},
		Server: types.ServerConfig{
			Addr:         viper.GetString("server.addr"),
			ReadTimeout:  viper.GetDuration("server.read_timeout"),
			WriteTimeout: viper.GetDuration("server.write_timeout"),
		},
		Log: logConfig(),
	}
}
