package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Quote provider names accepted by QUOTE_PROVIDER
const (
	QuoteProviderAuto         = "auto"
	QuoteProviderFMP          = "fmp"
	QuoteProviderAlpaca       = "alpaca"
	QuoteProviderAlphaVantage = "alphavantage"
	QuoteProviderMock         = "mock"
)

// Analysis provider names accepted by ANALYSIS_PROVIDER
const (
	AnalysisProviderGemini  = "gemini"
	AnalysisProviderOpenAI  = "openai"
	AnalysisProviderBedrock = "bedrock"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Generative model configurations
	Gemini  GeminiConfig
	OpenAI  OpenAIConfig
	Bedrock BedrockConfig

	// Market data configurations
	FMP          FMPConfig
	Alpaca       AlpacaConfig
	AlphaVantage AlphaVantageConfig
	NewsAPI      NewsAPIConfig

	// Quote selection and caching
	Quotes QuotesConfig

	// Analysis configuration
	Analysis AnalysisConfig

	// DCF calculator defaults
	DCF DCFConfig

	// Settings store
	Settings SettingsConfig

	// Portfolio seed behaviour
	Portfolio PortfolioConfig

	// Logging
	Log LogConfig

	// HTTP configuration
	HTTP HTTPConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey string
	Model  string
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	// BaseURL points at an OpenAI-compatible endpoint; empty uses the public API
	BaseURL string
}

// BedrockConfig holds AWS Bedrock configuration
type BedrockConfig struct {
	Region           string
	ModelID          string
	MaxTokens        int
	AnthropicVersion string
}

// AlpacaConfig holds Alpaca API configuration
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	DataURL   string // market data host, empty for the SDK default
}

// AlphaVantageConfig holds Alpha Vantage API configuration
type AlphaVantageConfig struct {
	APIKey string
}

// NewsAPIConfig holds NewsAPI configuration
type NewsAPIConfig struct {
	APIKey string
}

// FMPConfig holds Financial Modeling Prep API configuration
type FMPConfig struct {
	APIKey string
}

// QuotesConfig controls which quote provider is used and how quotes are cached
type QuotesConfig struct {
	Provider        string // auto, fmp, alpaca, alphavantage or mock
	CacheTTLSeconds int
	RefreshSchedule string // cron expression, empty disables background refresh
	RequestsPerMin  int
}

// AnalysisConfig holds AI analysis configuration
type AnalysisConfig struct {
	Provider         string // gemini, openai or bedrock
	TimeoutSeconds   int
	ConcurrencyLimit int
	NewsContext      bool
}

// DCFConfig holds calculator defaults, in percent
type DCFConfig struct {
	DefaultGrowth   float64
	DefaultTerminal float64
	DefaultDiscount float64
}

// SettingsConfig locates the encrypted settings file
type SettingsConfig struct {
	Dir        string
	Passphrase string
}

// PortfolioConfig holds portfolio bootstrap options
type PortfolioConfig struct {
	SeedDefaultPositions bool
}

// LogConfig holds logging options
type LogConfig struct {
	Format string // json or text
	Level  string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port                  int
	CORSAllowedOrigins    string
	RequestTimeoutSeconds int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  getEnvString("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		OpenAI: OpenAIConfig{
			APIKey:    os.Getenv("OPENAI_API_KEY"),
			Model:     getEnvString("OPENAI_MODEL", "gpt-4o"),
			MaxTokens: getEnvInt("OPENAI_MAX_TOKENS", 4096),
			BaseURL:   os.Getenv("OPENAI_BASE_URL"),
		},
		Bedrock: BedrockConfig{
			Region:           getEnvString("AWS_REGION", "us-east-1"),
			ModelID:          os.Getenv("BEDROCK_MODEL_ID"),
			MaxTokens:        getEnvInt("BEDROCK_MAX_TOKENS", 4096),
			AnthropicVersion: getEnvString("BEDROCK_ANTHROPIC_VERSION", "bedrock-2023-05-31"),
		},
		FMP: FMPConfig{
			APIKey: os.Getenv("FMP_API_KEY"),
		},
		Alpaca: AlpacaConfig{
			APIKey:    os.Getenv("ALPACA_API_KEY"),
			APISecret: os.Getenv("ALPACA_API_SECRET"),
			DataURL:   os.Getenv("ALPACA_DATA_URL"),
		},
		AlphaVantage: AlphaVantageConfig{
			APIKey: os.Getenv("ALPHA_VANTAGE_API_KEY"),
		},
		NewsAPI: NewsAPIConfig{
			APIKey: os.Getenv("NEWS_API_KEY"),
		},
		Quotes: QuotesConfig{
			Provider:        strings.ToLower(getEnvString("QUOTE_PROVIDER", QuoteProviderAuto)),
			CacheTTLSeconds: getEnvInt("QUOTE_CACHE_TTL_SECONDS", 60),
			RefreshSchedule: os.Getenv("QUOTE_REFRESH_SCHEDULE"),
			RequestsPerMin:  getEnvInt("QUOTE_REQUESTS_PER_MINUTE", 60),
		},
		Analysis: AnalysisConfig{
			Provider:         strings.ToLower(getEnvString("ANALYSIS_PROVIDER", AnalysisProviderGemini)),
			TimeoutSeconds:   getEnvInt("ANALYSIS_TIMEOUT_SECONDS", 60),
			ConcurrencyLimit: getEnvInt("ANALYSIS_CONCURRENCY_LIMIT", 2),
			NewsContext:      getEnvBool("ANALYSIS_NEWS_CONTEXT", true),
		},
		DCF: DCFConfig{
			DefaultGrowth:   getEnvFloatUnbounded("DCF_DEFAULT_GROWTH", 15),
			DefaultTerminal: getEnvFloatUnbounded("DCF_DEFAULT_TERMINAL", 3),
			DefaultDiscount: getEnvFloatUnbounded("DCF_DEFAULT_DISCOUNT", 8.5),
		},
		Settings: SettingsConfig{
			Dir:        os.Getenv("SETTINGS_DIR"),
			Passphrase: os.Getenv("SETTINGS_PASSPHRASE"),
		},
		Portfolio: PortfolioConfig{
			SeedDefaultPositions: getEnvBool("SEED_DEFAULT_POSITIONS", true),
		},
		Log: LogConfig{
			Format: strings.ToLower(getEnvString("LOG_FORMAT", "text")),
			Level:  getEnvString("LOG_LEVEL", "info"),
		},
		HTTP: HTTPConfig{
			Port:                  getEnvInt("HTTP_PORT", 8080),
			CORSAllowedOrigins:    getEnvString("CORS_ALLOWED_ORIGINS", "*"),
			RequestTimeoutSeconds: getEnvInt("REQUEST_TIMEOUT_SECONDS", 90),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Quotes.Provider {
	case QuoteProviderAuto, QuoteProviderFMP, QuoteProviderAlpaca, QuoteProviderAlphaVantage, QuoteProviderMock:
	default:
		return fmt.Errorf("QUOTE_PROVIDER must be one of auto, fmp, alpaca, alphavantage, mock, got %q", c.Quotes.Provider)
	}

	switch c.Analysis.Provider {
	case AnalysisProviderGemini, AnalysisProviderOpenAI, AnalysisProviderBedrock:
	default:
		return fmt.Errorf("ANALYSIS_PROVIDER must be one of gemini, openai, bedrock, got %q", c.Analysis.Provider)
	}

	if c.Analysis.TimeoutSeconds <= 0 {
		return fmt.Errorf("ANALYSIS_TIMEOUT_SECONDS must be positive, got %d", c.Analysis.TimeoutSeconds)
	}
	if c.Analysis.ConcurrencyLimit <= 0 {
		return fmt.Errorf("ANALYSIS_CONCURRENCY_LIMIT must be positive, got %d", c.Analysis.ConcurrencyLimit)
	}
	if c.Quotes.CacheTTLSeconds <= 0 {
		return fmt.Errorf("QUOTE_CACHE_TTL_SECONDS must be positive, got %d", c.Quotes.CacheTTLSeconds)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	// The calculator defaults must themselves be a valid DCF input
	if c.DCF.DefaultDiscount <= c.DCF.DefaultTerminal {
		return fmt.Errorf("DCF_DEFAULT_DISCOUNT (%.2f) must be greater than DCF_DEFAULT_TERMINAL (%.2f)",
			c.DCF.DefaultDiscount, c.DCF.DefaultTerminal)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}

	return nil
}

// ResolveQuoteProvider returns the concrete quote provider for the configured mode.
// In auto mode the first configured provider wins: fmp, alpaca, alphavantage, then mock.
func (c *Config) ResolveQuoteProvider() string {
	if c.Quotes.Provider != QuoteProviderAuto && c.Quotes.Provider != "" {
		return c.Quotes.Provider
	}
	switch {
	case c.HasFMP():
		return QuoteProviderFMP
	case c.HasAlpaca():
		return QuoteProviderAlpaca
	case c.HasAlphaVantage():
		return QuoteProviderAlphaVantage
	default:
		return QuoteProviderMock
	}
}

// HasDatabase returns true if database configuration is available
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasGemini returns true if Gemini configuration is available
func (c *Config) HasGemini() bool {
	return c.Gemini.APIKey != ""
}

// HasOpenAI returns true if OpenAI configuration is available
func (c *Config) HasOpenAI() bool {
	return c.OpenAI.APIKey != ""
}

// HasBedrock returns true if a Bedrock model has been chosen
func (c *Config) HasBedrock() bool {
	return c.Bedrock.ModelID != ""
}

// HasAlpaca returns true if Alpaca configuration is available
func (c *Config) HasAlpaca() bool {
	return c.Alpaca.APIKey != "" && c.Alpaca.APISecret != ""
}

// HasAlphaVantage returns true if Alpha Vantage configuration is available
func (c *Config) HasAlphaVantage() bool {
	return c.AlphaVantage.APIKey != ""
}

// HasNewsAPI returns true if NewsAPI configuration is available
func (c *Config) HasNewsAPI() bool {
	return c.NewsAPI.APIKey != ""
}

// HasFMP returns true if Financial Modeling Prep configuration is available
func (c *Config) HasFMP() bool {
	return c.FMP.APIKey != ""
}

// IsProduction reports whether logs should be emitted as JSON
func (c *Config) IsProduction() bool {
	return c.Log.Format == "json"
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatUnbounded(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		OpenAI: OpenAIConfig{
			Model:     "gpt-4o",
			MaxTokens: 4096,
		},
		Bedrock: BedrockConfig{
			Region:           "us-east-1",
			MaxTokens:        4096,
			AnthropicVersion: "bedrock-2023-05-31",
		},
		Quotes: QuotesConfig{
			Provider:        QuoteProviderMock,
			CacheTTLSeconds: 60,
			RequestsPerMin:  60,
		},
		Analysis: AnalysisConfig{
			Provider:         AnalysisProviderGemini,
			TimeoutSeconds:   60,
			ConcurrencyLimit: 2,
		},
		DCF: DCFConfig{
			DefaultGrowth:   15,
			DefaultTerminal: 3,
			DefaultDiscount: 8.5,
		},
		Portfolio: PortfolioConfig{
			SeedDefaultPositions: true,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		HTTP: HTTPConfig{
			Port:                  8080,
			CORSAllowedOrigins:    "*",
			RequestTimeoutSeconds: 90,
		},
	}
}
