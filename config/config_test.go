package config

import (
	"os"
	"testing"
)

// saveEnv saves current environment variables for restoration
func saveEnv(t *testing.T, keys []string) map[string]string {
	t.Helper()
	saved := make(map[string]string)
	for _, key := range keys {
		saved[key] = os.Getenv(key)
	}
	return saved
}

// restoreEnv restores previously saved environment variables
func restoreEnv(t *testing.T, saved map[string]string) {
	t.Helper()
	for key, val := range saved {
		if val == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, val)
		}
	}
}

// clearEnv clears environment variables
func clearEnv(t *testing.T, keys []string) {
	t.Helper()
	for _, key := range keys {
		os.Unsetenv(key)
	}
}

var allEnvKeys = []string{
	"DATABASE_URL",
	"GEMINI_API_KEY",
	"GEMINI_MODEL",
	"OPENAI_API_KEY",
	"OPENAI_MODEL",
	"AWS_REGION",
	"BEDROCK_MODEL_ID",
	"BEDROCK_MAX_TOKENS",
	"FMP_API_KEY",
	"ALPACA_API_KEY",
	"ALPACA_API_SECRET",
	"ALPACA_DATA_URL",
	"ALPHA_VANTAGE_API_KEY",
	"NEWS_API_KEY",
	"QUOTE_PROVIDER",
	"QUOTE_CACHE_TTL_SECONDS",
	"QUOTE_REFRESH_SCHEDULE",
	"ANALYSIS_PROVIDER",
	"ANALYSIS_TIMEOUT_SECONDS",
	"ANALYSIS_CONCURRENCY_LIMIT",
	"DCF_DEFAULT_GROWTH",
	"DCF_DEFAULT_TERMINAL",
	"DCF_DEFAULT_DISCOUNT",
	"SEED_DEFAULT_POSITIONS",
	"LOG_FORMAT",
	"LOG_LEVEL",
	"HTTP_PORT",
	"CORS_ALLOWED_ORIGINS",
}

func TestLoad_Defaults(t *testing.T) {
	saved := saveEnv(t, allEnvKeys)
	defer restoreEnv(t, saved)
	clearEnv(t, allEnvKeys)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with defaults failed: %v", err)
	}

	if cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Errorf("expected Gemini.Model='gemini-2.5-flash', got %s", cfg.Gemini.Model)
	}
	if cfg.Quotes.Provider != QuoteProviderAuto {
		t.Errorf("expected Quotes.Provider=auto, got %s", cfg.Quotes.Provider)
	}
	if cfg.Quotes.CacheTTLSeconds != 60 {
		t.Errorf("expected CacheTTLSeconds=60, got %d", cfg.Quotes.CacheTTLSeconds)
	}
	if cfg.Analysis.Provider != AnalysisProviderGemini {
		t.Errorf("expected Analysis.Provider=gemini, got %s", cfg.Analysis.Provider)
	}
	if cfg.Analysis.ConcurrencyLimit != 2 {
		t.Errorf("expected ConcurrencyLimit=2, got %d", cfg.Analysis.ConcurrencyLimit)
	}
	if cfg.DCF.DefaultGrowth != 15 || cfg.DCF.DefaultTerminal != 3 || cfg.DCF.DefaultDiscount != 8.5 {
		t.Errorf("unexpected DCF defaults: %+v", cfg.DCF)
	}
	if !cfg.Portfolio.SeedDefaultPositions {
		t.Error("expected SeedDefaultPositions=true")
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected HTTP.Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.CORSAllowedOrigins != "*" {
		t.Errorf("expected CORSAllowedOrigins='*', got %s", cfg.HTTP.CORSAllowedOrigins)
	}
	if cfg.Alpaca.DataURL != "" {
		t.Errorf("expected empty Alpaca.DataURL, got %s", cfg.Alpaca.DataURL)
	}
	if cfg.IsProduction() {
		t.Error("expected text logging by default")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	saved := saveEnv(t, allEnvKeys)
	defer restoreEnv(t, saved)
	clearEnv(t, allEnvKeys)

	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("GEMINI_API_KEY", "gem-key")
	os.Setenv("FMP_API_KEY", "fmp-key")
	os.Setenv("QUOTE_PROVIDER", "ALPACA")
	os.Setenv("QUOTE_REFRESH_SCHEDULE", "@every 5m")
	os.Setenv("ANALYSIS_PROVIDER", "openai")
	os.Setenv("ANALYSIS_CONCURRENCY_LIMIT", "5")
	os.Setenv("DCF_DEFAULT_GROWTH", "20")
	os.Setenv("SEED_DEFAULT_POSITIONS", "false")
	os.Setenv("LOG_FORMAT", "json")
	os.Setenv("HTTP_PORT", "9090")
	os.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with custom values failed: %v", err)
	}

	if cfg.Database.URL != "postgres://localhost/test" {
		t.Errorf("expected Database.URL='postgres://localhost/test', got %s", cfg.Database.URL)
	}
	if cfg.Gemini.APIKey != "gem-key" {
		t.Errorf("expected Gemini.APIKey='gem-key', got %s", cfg.Gemini.APIKey)
	}
	if cfg.Quotes.Provider != QuoteProviderAlpaca {
		t.Errorf("expected provider to be lower-cased to alpaca, got %s", cfg.Quotes.Provider)
	}
	if cfg.Quotes.RefreshSchedule != "@every 5m" {
		t.Errorf("expected RefreshSchedule='@every 5m', got %s", cfg.Quotes.RefreshSchedule)
	}
	if cfg.Analysis.Provider != AnalysisProviderOpenAI {
		t.Errorf("expected Analysis.Provider=openai, got %s", cfg.Analysis.Provider)
	}
	if cfg.Analysis.ConcurrencyLimit != 5 {
		t.Errorf("expected ConcurrencyLimit=5, got %d", cfg.Analysis.ConcurrencyLimit)
	}
	if cfg.DCF.DefaultGrowth != 20 {
		t.Errorf("expected DefaultGrowth=20, got %f", cfg.DCF.DefaultGrowth)
	}
	if cfg.Portfolio.SeedDefaultPositions {
		t.Error("expected SeedDefaultPositions=false")
	}
	if !cfg.IsProduction() {
		t.Error("expected json logging")
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected HTTP.Port=9090, got %d", cfg.HTTP.Port)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown quote provider", func(c *Config) { c.Quotes.Provider = "yahoo" }},
		{"unknown analysis provider", func(c *Config) { c.Analysis.Provider = "llama" }},
		{"zero timeout", func(c *Config) { c.Analysis.TimeoutSeconds = 0 }},
		{"zero concurrency", func(c *Config) { c.Analysis.ConcurrencyLimit = 0 }},
		{"zero cache ttl", func(c *Config) { c.Quotes.CacheTTLSeconds = 0 }},
		{"port out of range", func(c *Config) { c.HTTP.Port = 70000 }},
		{"discount equal to terminal", func(c *Config) { c.DCF.DefaultDiscount = 3 }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewTestConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_TestConfigIsValid(t *testing.T) {
	if err := NewTestConfig().Validate(); err != nil {
		t.Errorf("NewTestConfig should validate, got %v", err)
	}
}

func TestLoad_InvalidNumbersUseDefaults(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
	}{
		{"negative timeout", "ANALYSIS_TIMEOUT_SECONDS", "-5"},
		{"zero concurrency", "ANALYSIS_CONCURRENCY_LIMIT", "0"},
		{"non-numeric ttl", "QUOTE_CACHE_TTL_SECONDS", "soon"},
		{"non-numeric growth", "DCF_DEFAULT_GROWTH", "fast"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved := saveEnv(t, allEnvKeys)
			defer restoreEnv(t, saved)
			clearEnv(t, allEnvKeys)

			os.Setenv(tt.envKey, tt.envVal)

			if _, err := Load(); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestResolveQuoteProvider(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"auto without keys is mock", func(c *Config) {}, QuoteProviderMock},
		{"auto prefers fmp", func(c *Config) {
			c.FMP.APIKey = "f"
			c.Alpaca.APIKey, c.Alpaca.APISecret = "a", "s"
			c.AlphaVantage.APIKey = "av"
		}, QuoteProviderFMP},
		{"auto falls to alpaca", func(c *Config) {
			c.Alpaca.APIKey, c.Alpaca.APISecret = "a", "s"
			c.AlphaVantage.APIKey = "av"
		}, QuoteProviderAlpaca},
		{"auto falls to alphavantage", func(c *Config) {
			c.AlphaVantage.APIKey = "av"
		}, QuoteProviderAlphaVantage},
		{"explicit provider wins", func(c *Config) {
			c.Quotes.Provider = QuoteProviderAlphaVantage
			c.FMP.APIKey = "f"
		}, QuoteProviderAlphaVantage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewTestConfig()
			cfg.Quotes.Provider = QuoteProviderAuto
			tt.modify(cfg)
			if got := cfg.ResolveQuoteProvider(); got != tt.want {
				t.Errorf("ResolveQuoteProvider() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHasDatabase(t *testing.T) {
	cfg := &Config{}
	if cfg.HasDatabase() {
		t.Error("expected HasDatabase() to return false for empty URL")
	}

	cfg.Database.URL = "postgres://localhost/test"
	if !cfg.HasDatabase() {
		t.Error("expected HasDatabase() to return true for non-empty URL")
	}
}

func TestHasAlpaca(t *testing.T) {
	cfg := &Config{}
	if cfg.HasAlpaca() {
		t.Error("expected HasAlpaca() to return false for empty config")
	}

	cfg.Alpaca.APIKey = "key"
	if cfg.HasAlpaca() {
		t.Error("expected HasAlpaca() to return false without secret")
	}

	cfg.Alpaca.APISecret = "secret"
	if !cfg.HasAlpaca() {
		t.Error("expected HasAlpaca() to return true for complete config")
	}
}

func TestHasKeys(t *testing.T) {
	cfg := &Config{}
	if cfg.HasGemini() || cfg.HasOpenAI() || cfg.HasBedrock() || cfg.HasFMP() || cfg.HasAlphaVantage() || cfg.HasNewsAPI() {
		t.Error("expected all Has* to be false for empty config")
	}

	cfg.Gemini.APIKey = "g"
	cfg.OpenAI.APIKey = "o"
	cfg.Bedrock.ModelID = "anthropic.claude-3-sonnet"
	cfg.FMP.APIKey = "f"
	cfg.AlphaVantage.APIKey = "a"
	cfg.NewsAPI.APIKey = "n"
	if !cfg.HasGemini() || !cfg.HasOpenAI() || !cfg.HasBedrock() || !cfg.HasFMP() || !cfg.HasAlphaVantage() || !cfg.HasNewsAPI() {
		t.Error("expected all Has* to be true once keys are set")
	}
}

func TestGetEnvString(t *testing.T) {
	key := "TEST_GET_ENV_STRING"
	defer os.Unsetenv(key)

	os.Unsetenv(key)
	if got := getEnvString(key, "default"); got != "default" {
		t.Errorf("expected 'default', got %s", got)
	}

	os.Setenv(key, "custom")
	if got := getEnvString(key, "default"); got != "custom" {
		t.Errorf("expected 'custom', got %s", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_GET_ENV_INT"
	defer os.Unsetenv(key)

	os.Unsetenv(key)
	if got := getEnvInt(key, 42); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}

	os.Setenv(key, "100")
	if got := getEnvInt(key, 42); got != 100 {
		t.Errorf("expected 100, got %d", got)
	}

	os.Setenv(key, "invalid")
	if got := getEnvInt(key, 42); got != 42 {
		t.Errorf("expected 42 for invalid value, got %d", got)
	}

	os.Setenv(key, "0")
	if got := getEnvInt(key, 42); got != 42 {
		t.Errorf("expected 42 for zero value, got %d", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_GET_ENV_BOOL"
	defer os.Unsetenv(key)

	os.Unsetenv(key)
	if got := getEnvBool(key, true); !got {
		t.Error("expected default true")
	}

	os.Setenv(key, "false")
	if got := getEnvBool(key, true); got {
		t.Error("expected false")
	}

	os.Setenv(key, "maybe")
	if got := getEnvBool(key, true); !got {
		t.Error("expected default for unparsable value")
	}
}

func TestGetEnvFloatUnbounded(t *testing.T) {
	key := "TEST_GET_ENV_FLOAT"
	defer os.Unsetenv(key)

	os.Unsetenv(key)
	if got := getEnvFloatUnbounded(key, 8.5); got != 8.5 {
		t.Errorf("expected 8.5, got %f", got)
	}

	os.Setenv(key, "-2.5")
	if got := getEnvFloatUnbounded(key, 8.5); got != -2.5 {
		t.Errorf("expected -2.5, got %f", got)
	}
}
