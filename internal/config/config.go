package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       App       `mapstructure:"app"`
	AI        AI        `mapstructure:"ai"`
	Pipeline  Pipeline  `mapstructure:"pipeline"`
	Relevance Relevance `mapstructure:"relevance"`
	Store     Store     `mapstructure:"store"`
	Personas  Personas  `mapstructure:"personas"`
	KEV       KEV       `mapstructure:"kev"`
}

// App holds general application configuration.
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// AI holds completion/embedding provider configuration.
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration.
type GeminiConfig struct {
	APIKey              string  `mapstructure:"api_key"`
	Model               string  `mapstructure:"model"`
	EmbeddingModel      string  `mapstructure:"embedding_model"`
	EmbeddingDimensions int32   `mapstructure:"embedding_dimensions"`
	Timeout             string  `mapstructure:"timeout"`
	MaxTokens           int32   `mapstructure:"max_tokens"`
	Temperature         float32 `mapstructure:"temperature"`
}

// Pipeline holds chunking, throttling, and retry tunables.
type Pipeline struct {
	ChunkSize        int     `mapstructure:"chunk_size"`
	ChunkOverlap     int     `mapstructure:"chunk_overlap"`
	SummaryMaxTokens int32   `mapstructure:"summary_max_tokens"`
	RequestsPerSec   float64 `mapstructure:"requests_per_sec"`
	CallTimeout      string  `mapstructure:"call_timeout"`
	RetryAttempts    int     `mapstructure:"retry_attempts"`
	RetryBaseDelay   string  `mapstructure:"retry_base_delay"`
	PrefixRetrySize  int     `mapstructure:"prefix_retry_size"`
	GlossaryTopK     int     `mapstructure:"glossary_top_k"`
}

// Relevance is the single canonical threshold surface for score
// calibration, labeling, and the gate. One set per deployment.
type Relevance struct {
	CalibrationPower float64            `mapstructure:"calibration_power"`
	MinScore         float64            `mapstructure:"min_score"`
	Buckets          map[string]float64 `mapstructure:"buckets"` // label -> lower bound
}

// Store holds local persistence configuration.
type Store struct {
	Path string `mapstructure:"path"`
}

// Personas holds persona/glossary store configuration. Backend selects the
// adapter: "astra", "pgvector", or "catalog".
type Personas struct {
	Backend            string `mapstructure:"backend"`
	AstraEndpoint      string `mapstructure:"astra_endpoint"`
	AstraToken         string `mapstructure:"astra_token"`
	PersonaCollection  string `mapstructure:"persona_collection"`
	GlossaryCollection string `mapstructure:"glossary_collection"`
	PostgresDSN        string `mapstructure:"postgres_dsn"`
}

// KEV holds CISA Known Exploited Vulnerabilities feed configuration.
type KEV struct {
	FeedURL string `mapstructure:"feed_url"`
	Timeout string `mapstructure:"timeout"`
}

var globalConfig *Config

// Load loads the configuration from .env, the config file, environment
// variables, and defaults, in ascending precedence of env over file.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".personabrief")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// Reset clears the cached configuration. Tests use it to reload with
// different settings.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

func setDefaults() {
	// App defaults
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.data_dir", ".personabrief")

	// AI defaults
	viper.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("ai.gemini.embedding_model", "gemini-embedding-001")
	viper.SetDefault("ai.gemini.embedding_dimensions", 1536)
	viper.SetDefault("ai.gemini.timeout", "30s")
	viper.SetDefault("ai.gemini.max_tokens", 8192)
	viper.SetDefault("ai.gemini.temperature", 0.3)

	// Pipeline defaults
	viper.SetDefault("pipeline.chunk_size", 3072)
	viper.SetDefault("pipeline.chunk_overlap", 256)
	viper.SetDefault("pipeline.summary_max_tokens", 500)
	viper.SetDefault("pipeline.requests_per_sec", 0.5)
	viper.SetDefault("pipeline.call_timeout", "60s")
	viper.SetDefault("pipeline.retry_attempts", 3)
	viper.SetDefault("pipeline.retry_base_delay", "1s")
	viper.SetDefault("pipeline.prefix_retry_size", 3072)
	viper.SetDefault("pipeline.glossary_top_k", 5)

	// Relevance defaults: one canonical threshold set per deployment
	viper.SetDefault("relevance.calibration_power", 2.0)
	viper.SetDefault("relevance.min_score", 0.4)
	viper.SetDefault("relevance.buckets", map[string]float64{
		"Poor":      0.0,
		"Fair":      0.4,
		"Moderate":  0.6,
		"Good":      0.8,
		"Excellent": 0.95,
	})

	// Store defaults
	viper.SetDefault("store.path", ".personabrief/personabrief.db")

	// Persona store defaults
	viper.SetDefault("personas.backend", "catalog")
	viper.SetDefault("personas.persona_collection", "persona_vectors")
	viper.SetDefault("personas.glossary_collection", "glossary_vectors")

	// KEV defaults
	viper.SetDefault("kev.feed_url", "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json")
	viper.SetDefault("kev.timeout", "30s")
}

func bindEnvironmentVariables() {
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("personas.astra_endpoint", []string{
		"ASTRA_DB_API_ENDPOINT",
		"ASTRA_ENDPOINT",
	})

	bindEnvKeys("personas.astra_token", []string{
		"ASTRA_DB_APPLICATION_TOKEN",
		"ASTRA_TOKEN",
	})

	bindEnvKeys("personas.postgres_dsn", []string{
		"PERSONABRIEF_POSTGRES_DSN",
		"DATABASE_URL",
	})
}

func bindEnvKeys(configKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if err := viper.BindEnv(configKey, envKey); err == nil {
			if os.Getenv(envKey) != "" {
				break
			}
		}
	}
}

func validateConfig(config *Config) error {
	p := config.Pipeline
	if p.ChunkSize <= 0 {
		return fmt.Errorf("pipeline.chunk_size must be positive, got %d", p.ChunkSize)
	}
	if p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		return fmt.Errorf("pipeline.chunk_overlap must satisfy 0 <= overlap < chunk_size, got %d", p.ChunkOverlap)
	}

	r := config.Relevance
	if r.MinScore < 0 || r.MinScore > 1 {
		return fmt.Errorf("relevance.min_score must be in [0,1], got %f", r.MinScore)
	}
	for label, bound := range r.Buckets {
		if bound < 0 || bound > 1 {
			return fmt.Errorf("relevance bucket %q bound must be in [0,1], got %f", label, bound)
		}
	}

	switch config.Personas.Backend {
	case "catalog", "":
	case "astra":
		if config.Personas.AstraEndpoint == "" || config.Personas.AstraToken == "" {
			return fmt.Errorf("personas.backend=astra requires astra_endpoint and astra_token")
		}
	case "pgvector":
		if config.Personas.PostgresDSN == "" {
			return fmt.Errorf("personas.backend=pgvector requires postgres_dsn")
		}
	default:
		return fmt.Errorf("unknown personas.backend %q (expected catalog, astra, or pgvector)", config.Personas.Backend)
	}

	return nil
}
