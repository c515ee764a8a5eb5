package types

import "time"

// StoreConfig holds settings for the policy database.
type StoreConfig struct {
	// Path is the SQLite database file (e.g. "db/soho.db").
	Path string `json:"path" yaml:"path"`

	// ReadOnly opens the database without write access. The serving path
	// always runs read-only; load and reindex need write access.
	ReadOnly bool `json:"read_only" yaml:"read_only"`
}

// RankerBackend identifies the external ranking service.
type RankerBackend string

const (
	RankerOpenAI   RankerBackend = "openai"
	RankerClaude   RankerBackend = "claude"
	RankerDisabled RankerBackend = "none"
)

// RankerConfig holds settings for the re-ranking stage.
type RankerConfig struct {
	// Backend selects the ranking service: openai, claude, or none.
	Backend RankerBackend `json:"backend" yaml:"backend"`

	// Model is the model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the ranking service.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the service endpoint. Empty uses the default.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Timeout bounds one ranking call including retries (default 20s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxRetries is the number of retry attempts for failed calls (default 1).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// MaxCandidates caps the candidates sent per call (default and maximum 40).
	MaxCandidates int `json:"max_candidates" yaml:"max_candidates"`

	// Temperature is the sampling temperature (default 0.2).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxTokens caps the response length (default 800).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// MatchConfig holds settings for the recall and merge stages.
type MatchConfig struct {
	// TopK is the default number of match results (default 3).
	TopK int `json:"top_k" yaml:"top_k"`

	// RecallLimit caps the recall pool for matching (default 80).
	RecallLimit int `json:"recall_limit" yaml:"recall_limit"`

	// SearchLimit caps strict search results (default 50).
	SearchLimit int `json:"search_limit" yaml:"search_limit"`

	// MaxTerms caps the free-text terms used by recall (default 6).
	MaxTerms int `json:"max_terms" yaml:"max_terms"`

	// URLTemplate builds a link from a policy's NoticeID when no URL is
	// stored. It must contain one %s verb.
	URLTemplate string `json:"url_template" yaml:"url_template"`
}

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	// Addr is the listen address (default ":3000").
	Addr string `json:"addr" yaml:"addr"`

	// ReadTimeout and WriteTimeout bound a single request.
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level"`

	// Pretty switches to human-readable console output.
	Pretty bool `json:"pretty" yaml:"pretty"`
}

// Config groups all stage configurations.
type Config struct {
	Store  StoreConfig  `json:"store" yaml:"store"`
	Ranker RankerConfig `json:"ranker" yaml:"ranker"`
	Match  MatchConfig  `json:"match" yaml:"match"`
	Server ServerConfig `json:"server" yaml:"server"`
	Log    LogConfig    `json:"log" yaml:"log"`
}
