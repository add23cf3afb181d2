package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"portfolio-tracker/observability"
)

// ServiceName identifies a provider whose credentials can be stored.
type ServiceName string

const (
	ServiceGemini       ServiceName = "gemini"
	ServiceOpenAI       ServiceName = "openai"
	ServiceBedrock      ServiceName = "bedrock"
	ServiceFMP          ServiceName = "fmp"
	ServiceAlpaca       ServiceName = "alpaca"
	ServiceAlphaVantage ServiceName = "alpha_vantage"
	ServiceNewsAPI      ServiceName = "newsapi"
)

// DefaultDirName is created under the home directory when no dir is given.
const DefaultDirName = ".portfolio-tracker"

const settingsFile = "settings.enc"

var (
	ErrUnknownService = errors.New("unknown service")
	ErrInvalidConfig  = errors.New("invalid api key config")
)

// AllServices lists services in display order.
func AllServices() []ServiceName {
	return []ServiceName{ServiceGemini, ServiceOpenAI, ServiceBedrock, ServiceFMP, ServiceAlpaca, ServiceAlphaVantage, ServiceNewsAPI}
}

// ParseServiceName accepts only known services.
func ParseServiceName(s string) (ServiceName, error) {
	for _, svc := range AllServices() {
		if string(svc) == s {
			return svc, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownService, s)
}

// APIKeyConfig is the stored configuration for one service.
type APIKeyConfig struct {
	ServiceName ServiceName `json:"service_name"`
	APIKey      string      `json:"api_key,omitempty"`
	APISecret   string      `json:"api_secret,omitempty"` // Alpaca
	BaseURL     string      `json:"base_url,omitempty"`
	Region      string      `json:"region,omitempty"`   // Bedrock
	ModelID     string      `json:"model_id,omitempty"` // Gemini, OpenAI, Bedrock
}

// IsConfigured reports whether the service has what it needs to be used.
func (c *APIKeyConfig) IsConfigured() bool {
	if c == nil {
		return false
	}
	switch c.ServiceName {
	case ServiceAlpaca:
		return c.APIKey != "" && c.APISecret != ""
	case ServiceBedrock:
		return c.ModelID != ""
	default:
		return c.APIKey != ""
	}
}

// Settings is the decrypted file content.
type Settings struct {
	APIKeys map[ServiceName]*APIKeyConfig `json:"api_keys"`
}

// MaskedAPIKeyConfig is safe to send to the browser.
type MaskedAPIKeyConfig struct {
	ServiceName  ServiceName `json:"service_name"`
	DisplayName  string      `json:"display_name"`
	Description  string      `json:"description"`
	APIKey       string      `json:"api_key,omitempty"`
	APISecret    string      `json:"api_secret,omitempty"`
	BaseURL      string      `json:"base_url,omitempty"`
	Region       string      `json:"region,omitempty"`
	ModelID      string      `json:"model_id,omitempty"`
	IsConfigured bool        `json:"is_configured"`
}

// Store keeps API keys in an encrypted file so they can be changed at runtime
// without editing the environment.
type Store struct {
	mu       sync.RWMutex
	filePath string
	settings *Settings
	crypto   *Crypto
}

// NewStore opens (or prepares) the settings file in dataDir. A file that
// cannot be read is logged and replaced by empty settings on the next save.
func NewStore(dataDir, passphrase string) (*Store, error) {
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, DefaultDirName)
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}

	store := &Store{
		filePath: filepath.Join(dataDir, settingsFile),
		crypto:   NewCrypto(passphrase),
		settings: newDefaultSettings(),
	}

	if err := store.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		observability.Warn("failed to load settings, starting empty", "path", store.filePath, "error", err)
	}

	return store, nil
}

func newDefaultSettings() *Settings {
	return &Settings{APIKeys: make(map[ServiceName]*APIKeyConfig)}
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	decrypted, err := s.crypto.Decrypt(data)
	if err != nil {
		return err
	}

	settings := newDefaultSettings()
	if err := json.Unmarshal(decrypted, settings); err != nil {
		return fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if settings.APIKeys == nil {
		settings.APIKeys = make(map[ServiceName]*APIKeyConfig)
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	return nil
}

// save must be called with s.mu held.
func (s *Store) save() error {
	data, err := json.Marshal(s.settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	encrypted, err := s.crypto.Encrypt(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt settings: %w", err)
	}

	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, encrypted, 0o600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}

// GetAPIKey returns a copy of the stored config, or nil.
func (s *Store) GetAPIKey(service ServiceName) *APIKeyConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cfg, ok := s.settings.APIKeys[service]; ok {
		c := *cfg
		return &c
	}
	return nil
}

// SetAPIKey stores and persists config. Blank secret fields keep the values
// already stored, so a masked form can be resubmitted.
func (s *Store) SetAPIKey(cfg *APIKeyConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if _, err := ParseServiceName(string(cfg.ServiceName)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := *cfg
	if prev, ok := s.settings.APIKeys[c.ServiceName]; ok {
		if c.APIKey == "" {
			c.APIKey = prev.APIKey
		}
		if c.APISecret == "" {
			c.APISecret = prev.APISecret
		}
	}
	s.settings.APIKeys[c.ServiceName] = &c
	return s.save()
}

func (s *Store) DeleteAPIKey(service ServiceName) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.settings.APIKeys, service)
	return s.save()
}

// GetMaskedSettings returns every known service with secrets masked.
func (s *Store) GetMaskedSettings() []MaskedAPIKeyConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]MaskedAPIKeyConfig, 0, len(AllServices()))
	for _, service := range AllServices() {
		masked := MaskedAPIKeyConfig{
			ServiceName: service,
			DisplayName: ServiceDisplayName(service),
			Description: ServiceDescription(service),
		}
		if cfg, ok := s.settings.APIKeys[service]; ok {
			masked.APIKey = maskString(cfg.APIKey)
			masked.APISecret = maskString(cfg.APISecret)
			masked.BaseURL = cfg.BaseURL
			masked.Region = cfg.Region
			masked.ModelID = cfg.ModelID
			masked.IsConfigured = cfg.IsConfigured()
		}
		result = append(result, masked)
	}
	return result
}

func (s *Store) IsConfigured(service ServiceName) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.APIKeys[service].IsConfigured()
}

// maskString keeps the last four characters.
func maskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func ServiceDisplayName(service ServiceName) string {
	switch service {
	case ServiceGemini:
		return "Google Gemini"
	case ServiceOpenAI:
		return "OpenAI"
	case ServiceBedrock:
		return "AWS Bedrock"
	case ServiceFMP:
		return "Financial Modeling Prep"
	case ServiceAlpaca:
		return "Alpaca Markets"
	case ServiceAlphaVantage:
		return "Alpha Vantage"
	case ServiceNewsAPI:
		return "NewsAPI"
	default:
		return string(service)
	}
}

func ServiceDescription(service ServiceName) string {
	switch service {
	case ServiceGemini:
		return "Portfolio analysis with Google Search grounding"
	case ServiceOpenAI:
		return "Alternative model for portfolio analysis"
	case ServiceBedrock:
		return "Claude on AWS for portfolio analysis (credentials from the AWS chain)"
	case ServiceFMP:
		return "Batch quotes and EPS for the DCF calculator"
	case ServiceAlpaca:
		return "Latest trade prices from Alpaca market data"
	case ServiceAlphaVantage:
		return "Quotes and company overview EPS"
	case ServiceNewsAPI:
		return "Headlines added to the analysis prompt"
	default:
		return ""
	}
}
