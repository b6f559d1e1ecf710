// Package config holds all peerloop configuration. A single YAML file
// configures the LLM provider, the engine's tuning constants, the safety
// term list, storage paths, and logging.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all peerloop configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM provider for reply generation
	LLM LLMConfig `yaml:"llm"`

	// Orchestration tuning
	Engine EngineConfig `yaml:"engine"`

	// Safety classifier
	Safety SafetyConfig `yaml:"safety"`

	// SQLite persistence (read-only from the engine's perspective)
	Store StoreConfig `yaml:"store"`

	// Persona/knowledge/resource catalogs
	Catalog CatalogConfig `yaml:"catalog"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the text generator.
type LLMConfig struct {
	Provider  string `yaml:"provider"` // genai, scripted
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	Timeout   string `yaml:"timeout"`
}

// EngineConfig holds the orchestration tuning constants. The probability and
// delay values are empirically tuned "feel" values, so they live here rather
// than as hard-coded invariants.
type EngineConfig struct {
	// Context assembly
	HistoryWindow       int `yaml:"history_window"`        // turns of transcript injected into prompts
	GeneralKnowledgeCap int `yaml:"general_knowledge_cap"` // max general-tier knowledge matches per query
	MinTokenLength      int `yaml:"min_token_length"`      // words at or below this length are ignored

	// Responder selection
	CoachSubstitutionRate float64 `yaml:"coach_substitution_rate"` // chance the coach replaces a random peer
	WelcomePeersMin       int     `yaml:"welcome_peers_min"`       // min peers in the welcome sequence
	WelcomePeersMax       int     `yaml:"welcome_peers_max"`       // max peers in the welcome sequence

	// Single-reply delay bands (uniform draw per band, mimics typing time)
	ShortReplyChars      int `yaml:"short_reply_chars"`
	MediumReplyChars     int `yaml:"medium_reply_chars"`
	ShortDelayMinMillis  int `yaml:"short_delay_min_millis"`
	ShortDelayMaxMillis  int `yaml:"short_delay_max_millis"`
	MediumDelayMinMillis int `yaml:"medium_delay_min_millis"`
	MediumDelayMaxMillis int `yaml:"medium_delay_max_millis"`
	LongDelayMinMillis   int `yaml:"long_delay_min_millis"`
	LongDelayMaxMillis   int `yaml:"long_delay_max_millis"`

	// Welcome-sequence staggering
	WelcomeCoachDelayMinMillis int `yaml:"welcome_coach_delay_min_millis"`
	WelcomeCoachDelayMaxMillis int `yaml:"welcome_coach_delay_max_millis"`
	WelcomePeerBaseMillis      int `yaml:"welcome_peer_base_millis"`
	WelcomePeerStepMillis      int `yaml:"welcome_peer_step_millis"`
	WelcomePeerJitterMillis    int `yaml:"welcome_peer_jitter_millis"`

	// Proactive-nudge deduplication window
	NudgeDedupeWindow string `yaml:"nudge_dedupe_window"`
}

// SafetyConfig configures the risk-term classifier. ExtraTerms extend the
// built-in list; they never replace it.
type SafetyConfig struct {
	ExtraTerms []string `yaml:"extra_terms"`
}

// StoreConfig configures SQLite persistence.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// CatalogConfig configures the persona/knowledge/resource catalogs.
type CatalogConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"` // hot-reload catalogs on file change
}

// LoggingConfig configures the categorized debug logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Directory  string          `yaml:"directory"`
	Categories map[string]bool `yaml:"categories"`
	JSONFormat bool            `yaml:"json_format"`
}

// DefaultConfig returns the default configuration. Delay and probability
// values match the tuned originals.
func DefaultConfig() *Config {
	return &Config{
		Name:    "peerloop",
		Version: "0.3.0",

		LLM: LLMConfig{
			Provider:  "genai",
			Model:     "gemini-2.0-flash",
			MaxTokens: 512,
			Timeout:   "60s",
		},

		Engine: EngineConfig{
			HistoryWindow:       10,
			GeneralKnowledgeCap: 3,
			MinTokenLength:      3,

			CoachSubstitutionRate: 0.30,
			WelcomePeersMin:       2,
			WelcomePeersMax:       3,

			ShortReplyChars:      30,
			MediumReplyChars:     80,
			ShortDelayMinMillis:  1500,
			ShortDelayMaxMillis:  2500,
			MediumDelayMinMillis: 2500,
			MediumDelayMaxMillis: 4000,
			LongDelayMinMillis:   4000,
			LongDelayMaxMillis:   6000,

			WelcomeCoachDelayMinMillis: 5000,
			WelcomeCoachDelayMaxMillis: 10000,
			WelcomePeerBaseMillis:      30000,
			WelcomePeerStepMillis:      45000,
			WelcomePeerJitterMillis:    30000,

			NudgeDedupeWindow: "20h",
		},

		Store: StoreConfig{
			DatabasePath: "data/peerloop.db",
		},

		Catalog: CatalogConfig{
			Dir:   "catalog",
			Watch: false,
		},

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
			Directory: "logs",
		},
	}
}

// Load reads configuration from a YAML file, layered over the defaults.
// A missing file is not an error: the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides lets environment variables win over file values for
// credentials, so API keys stay out of checked-in config.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("PEERLOOP_API_KEY"); key != "" {
		c.LLM.APIKey = key
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = key
	}
}

// LLMTimeout parses the LLM timeout, falling back to 60s on bad input.
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// NudgeWindow parses the nudge dedupe window, falling back to 20h.
func (c *EngineConfig) NudgeWindow() time.Duration {
	d, err := time.ParseDuration(c.NudgeDedupeWindow)
	if err != nil || d <= 0 {
		return 20 * time.Hour
	}
	return d
}

// Validate checks the tuning constants for values the scheduler and
// selector cannot work with.
func (c *Config) Validate() error {
	e := c.Engine
	if e.WelcomePeersMin < 1 || e.WelcomePeersMax < e.WelcomePeersMin {
		return fmt.Errorf("invalid welcome peer bounds [%d,%d]", e.WelcomePeersMin, e.WelcomePeersMax)
	}
	if e.CoachSubstitutionRate < 0 || e.CoachSubstitutionRate > 1 {
		return fmt.Errorf("coach_substitution_rate %v out of [0,1]", e.CoachSubstitutionRate)
	}
	bands := [][2]int{
		{e.ShortDelayMinMillis, e.ShortDelayMaxMillis},
		{e.MediumDelayMinMillis, e.MediumDelayMaxMillis},
		{e.LongDelayMinMillis, e.LongDelayMaxMillis},
		{e.WelcomeCoachDelayMinMillis, e.WelcomeCoachDelayMaxMillis},
	}
	for _, b := range bands {
		if b[0] < 0 || b[1] < b[0] {
			return fmt.Errorf("invalid delay band [%d,%d]", b[0], b[1])
		}
	}
	// Welcome delays stay non-decreasing only while the jitter ceiling
	// stays at or below the step, and the first peer slot stays at or
	// above the coach's ceiling.
	if e.WelcomePeerJitterMillis < 0 || e.WelcomePeerJitterMillis > e.WelcomePeerStepMillis {
		return fmt.Errorf("welcome_peer_jitter_millis %d out of [0, welcome_peer_step_millis %d]",
			e.WelcomePeerJitterMillis, e.WelcomePeerStepMillis)
	}
	if e.WelcomePeerBaseMillis < e.WelcomeCoachDelayMaxMillis {
		return fmt.Errorf("welcome_peer_base_millis %d below welcome_coach_delay_max_millis %d",
			e.WelcomePeerBaseMillis, e.WelcomeCoachDelayMaxMillis)
	}
	if e.HistoryWindow < 1 {
		return fmt.Errorf("history_window must be positive, got %d", e.HistoryWindow)
	}
	return nil
}
