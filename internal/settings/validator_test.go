package settings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestValidator(t *testing.T, handler http.HandlerFunc) *Validator {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewValidatorWithEndpoints(Endpoints{
		Gemini:       server.URL,
		OpenAI:       server.URL,
		FMP:          server.URL,
		Alpaca:       server.URL,
		AlphaVantage: server.URL,
		NewsAPI:      server.URL,
	}, server.Client())
}

func TestValidatorNilConfig(t *testing.T) {
	if _, err := NewValidator().ValidateAPIKey(context.Background(), nil); err == nil {
		t.Error("ValidateAPIKey(nil) should return error")
	}
}

func TestValidatorUnknownService(t *testing.T) {
	result, err := NewValidator().ValidateAPIKey(context.Background(), &APIKeyConfig{ServiceName: "unknown", APIKey: "x"})
	if err != nil {
		t.Fatalf("ValidateAPIKey() error = %v", err)
	}
	if result.Valid {
		t.Error("unknown service should not be valid")
	}
}

func TestValidatorMissingAPIKey(t *testing.T) {
	v := NewValidator()

	for _, svc := range []ServiceName{ServiceGemini, ServiceOpenAI, ServiceFMP, ServiceAlpaca, ServiceAlphaVantage, ServiceNewsAPI} {
		t.Run(string(svc), func(t *testing.T) {
			result, err := v.ValidateAPIKey(context.Background(), &APIKeyConfig{ServiceName: svc})
			if err != nil {
				t.Fatalf("ValidateAPIKey() error = %v", err)
			}
			if result.Valid || result.Message == "" {
				t.Errorf("expected invalid result with message, got %+v", result)
			}
		})
	}
}

func TestValidatorAlpacaMissingSecret(t *testing.T) {
	result, _ := NewValidator().ValidateAPIKey(context.Background(), &APIKeyConfig{ServiceName: ServiceAlpaca, APIKey: "AK"})
	if result.Valid || !strings.Contains(result.Message, "secret") {
		t.Errorf("expected secret error, got %+v", result)
	}
}

func TestValidatorBedrock(t *testing.T) {
	v := NewValidator()
	ctx := context.Background()

	ok, _ := v.ValidateAPIKey(ctx, &APIKeyConfig{ServiceName: ServiceBedrock, ModelID: "anthropic.claude-3", Region: "us-east-1"})
	if !ok.Valid {
		t.Errorf("expected valid bedrock config, got %+v", ok)
	}
	bad, _ := v.ValidateAPIKey(ctx, &APIKeyConfig{ServiceName: ServiceBedrock, Region: "us-east-1"})
	if bad.Valid {
		t.Error("bedrock without model should be invalid")
	}
}

func TestValidatorProbes(t *testing.T) {
	var gotPath, gotAuth string
	v := newTestValidator(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization") + r.Header.Get("X-Api-Key") + r.Header.Get("X-Goog-Api-Key") +
			r.Header.Get("APCA-API-KEY-ID") + r.URL.Query().Get("apikey")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})

	tests := []struct {
		cfg      APIKeyConfig
		wantPath string
		wantAuth string
	}{
		{APIKeyConfig{ServiceName: ServiceGemini, APIKey: "g"}, "/v1beta/models", "g"},
		{APIKeyConfig{ServiceName: ServiceOpenAI, APIKey: "o"}, "/v1/models", "Bearer o"},
		{APIKeyConfig{ServiceName: ServiceFMP, APIKey: "f"}, "/api/v3/quote-short/AAPL", "f"},
		{APIKeyConfig{ServiceName: ServiceAlpaca, APIKey: "a", APISecret: "s"}, "/v2/stocks/AAPL/trades/latest", "a"},
		{APIKeyConfig{ServiceName: ServiceAlphaVantage, APIKey: "av"}, "/query", "av"},
		{APIKeyConfig{ServiceName: ServiceNewsAPI, APIKey: "n"}, "/v2/everything", "n"},
	}

	for _, tt := range tests {
		t.Run(string(tt.cfg.ServiceName), func(t *testing.T) {
			cfg := tt.cfg
			result, err := v.ValidateAPIKey(context.Background(), &cfg)
			if err != nil {
				t.Fatalf("ValidateAPIKey() error = %v", err)
			}
			if !result.Valid {
				t.Fatalf("expected valid, got %q", result.Message)
			}
			if gotPath != tt.wantPath {
				t.Errorf("path = %q, want %q", gotPath, tt.wantPath)
			}
			if gotAuth != tt.wantAuth {
				t.Errorf("credential = %q, want %q", gotAuth, tt.wantAuth)
			}
		})
	}
}

func TestValidatorUnauthorized(t *testing.T) {
	v := newTestValidator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	result, _ := v.ValidateAPIKey(context.Background(), &APIKeyConfig{ServiceName: ServiceOpenAI, APIKey: "bad"})
	if result.Valid || result.Message != "invalid API credentials" {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestValidatorAlphaVantageErrorBody(t *testing.T) {
	v := newTestValidator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Error Message": "the parameter apikey is invalid or missing"}`))
	})

	result, _ := v.ValidateAPIKey(context.Background(), &APIKeyConfig{ServiceName: ServiceAlphaVantage, APIKey: "bad"})
	if result.Valid || !strings.Contains(result.Message, "apikey is invalid") {
		t.Errorf("unexpected result %+v", result)
	}
}
