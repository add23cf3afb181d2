package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ValidationResult is the outcome of a connectivity probe.
type ValidationResult struct {
	Service  ServiceName   `json:"service"`
	Valid    bool          `json:"valid"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration_ms"`
}

// Endpoints are the probe targets. Tests point them at an httptest server.
type Endpoints struct {
	Gemini       string
	OpenAI       string
	FMP          string
	Alpaca       string
	AlphaVantage string
	NewsAPI      string
}

// DefaultEndpoints are the public API hosts.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Gemini:       "https://generativelanguage.googleapis.com",
		OpenAI:       "https://api.openai.com",
		FMP:          "https://financialmodelingprep.com",
		Alpaca:       "https://data.alpaca.markets",
		AlphaVantage: "https://www.alphavantage.co",
		NewsAPI:      "https://newsapi.org",
	}
}

// Validator makes one cheap authenticated request per service.
type Validator struct {
	client    *http.Client
	endpoints Endpoints
}

func NewValidator() *Validator {
	return NewValidatorWithEndpoints(DefaultEndpoints(), nil)
}

func NewValidatorWithEndpoints(endpoints Endpoints, client *http.Client) *Validator {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Validator{client: client, endpoints: endpoints}
}

// ValidateAPIKey probes the service. Probe failures are reported in the
// result; the error return is only for a nil config.
func (v *Validator) ValidateAPIKey(ctx context.Context, cfg *APIKeyConfig) (*ValidationResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	start := time.Now()
	result := &ValidationResult{Service: cfg.ServiceName}

	var err error
	switch cfg.ServiceName {
	case ServiceGemini:
		err = v.validateGemini(ctx, cfg)
	case ServiceOpenAI:
		err = v.validateOpenAI(ctx, cfg)
	case ServiceBedrock:
		err = validateBedrock(cfg)
	case ServiceFMP:
		err = v.validateFMP(ctx, cfg)
	case ServiceAlpaca:
		err = v.validateAlpaca(ctx, cfg)
	case ServiceAlphaVantage:
		err = v.validateAlphaVantage(ctx, cfg)
	case ServiceNewsAPI:
		err = v.validateNewsAPI(ctx, cfg)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownService, cfg.ServiceName)
	}

	result.Duration = time.Since(start)
	if err != nil {
		result.Message = err.Error()
	} else {
		result.Valid = true
		result.Message = "Connection successful"
	}
	return result, nil
}

var errKeyRequired = errors.New("API key is required")

// probe issues a GET and maps auth and status failures to errors.
func (v *Validator) probe(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, vals := range header {
		for _, val := range vals {
			req.Header.Add(k, val)
		}
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, errors.New("invalid API credentials")
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return resp, nil
}

func (v *Validator) probeAndClose(ctx context.Context, rawURL string, header http.Header) error {
	resp, err := v.probe(ctx, rawURL, header)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func (v *Validator) validateGemini(ctx context.Context, cfg *APIKeyConfig) error {
	if cfg.APIKey == "" {
		return errKeyRequired
	}
	return v.probeAndClose(ctx, strings.TrimSuffix(v.endpoints.Gemini, "/")+"/v1beta/models?pageSize=1",
		http.Header{"X-Goog-Api-Key": {cfg.APIKey}})
}

func (v *Validator) validateOpenAI(ctx context.Context, cfg *APIKeyConfig) error {
	if cfg.APIKey == "" {
		return errKeyRequired
	}
	return v.probeAndClose(ctx, strings.TrimSuffix(v.endpoints.OpenAI, "/")+"/v1/models",
		http.Header{"Authorization": {"Bearer " + cfg.APIKey}})
}

// validateBedrock only checks the stored fields; credentials come from the
// AWS chain and are exercised on first use.
func validateBedrock(cfg *APIKeyConfig) error {
	if cfg.ModelID == "" {
		return errors.New("model ID is required")
	}
	if cfg.Region == "" {
		return errors.New("region is required")
	}
	return nil
}

func (v *Validator) validateFMP(ctx context.Context, cfg *APIKeyConfig) error {
	if cfg.APIKey == "" {
		return errKeyRequired
	}
	q := url.Values{"apikey": {cfg.APIKey}}
	return v.probeAndClose(ctx, strings.TrimSuffix(v.endpoints.FMP, "/")+"/api/v3/quote-short/AAPL?"+q.Encode(), nil)
}

func (v *Validator) validateAlpaca(ctx context.Context, cfg *APIKeyConfig) error {
	if cfg.APIKey == "" {
		return errKeyRequired
	}
	if cfg.APISecret == "" {
		return errors.New("API secret is required")
	}

	base := cfg.BaseURL
	if base == "" {
		base = v.endpoints.Alpaca
	}
	return v.probeAndClose(ctx, strings.TrimSuffix(base, "/")+"/v2/stocks/AAPL/trades/latest", http.Header{
		"APCA-API-KEY-ID":     {cfg.APIKey},
		"APCA-API-SECRET-KEY": {cfg.APISecret},
	})
}

func (v *Validator) validateAlphaVantage(ctx context.Context, cfg *APIKeyConfig) error {
	if cfg.APIKey == "" {
		return errKeyRequired
	}

	q := url.Values{"function": {"GLOBAL_QUOTE"}, "symbol": {"IBM"}, "apikey": {cfg.APIKey}}
	resp, err := v.probe(ctx, strings.TrimSuffix(v.endpoints.AlphaVantage, "/")+"/query?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	// a throttling "Note" still proves the key is accepted
	if msg, ok := body["Error Message"].(string); ok {
		return fmt.Errorf("API error: %s", msg)
	}
	if msg, ok := body["Information"].(string); ok {
		return fmt.Errorf("API error: %s", msg)
	}
	return nil
}

func (v *Validator) validateNewsAPI(ctx context.Context, cfg *APIKeyConfig) error {
	if cfg.APIKey == "" {
		return errKeyRequired
	}
	return v.probeAndClose(ctx, strings.TrimSuffix(v.endpoints.NewsAPI, "/")+"/v2/everything?q=stocks&pageSize=1",
		http.Header{"X-Api-Key": {cfg.APIKey}})
}
