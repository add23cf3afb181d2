package settings

import (
	appconfig "portfolio-tracker/config"
)

// ApplyTo overlays stored credentials on cfg. Stored values win over the
// environment; empty fields leave the environment value in place.
func (s *Store) ApplyTo(cfg *appconfig.Config) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for service, c := range s.settings.APIKeys {
		switch service {
		case ServiceGemini:
			setIf(&cfg.Gemini.APIKey, c.APIKey)
			setIf(&cfg.Gemini.Model, c.ModelID)
		case ServiceOpenAI:
			setIf(&cfg.OpenAI.APIKey, c.APIKey)
			setIf(&cfg.OpenAI.Model, c.ModelID)
		case ServiceBedrock:
			setIf(&cfg.Bedrock.Region, c.Region)
			setIf(&cfg.Bedrock.ModelID, c.ModelID)
		case ServiceFMP:
			setIf(&cfg.FMP.APIKey, c.APIKey)
		case ServiceAlpaca:
			setIf(&cfg.Alpaca.APIKey, c.APIKey)
			setIf(&cfg.Alpaca.APISecret, c.APISecret)
			setIf(&cfg.Alpaca.DataURL, c.BaseURL)
		case ServiceAlphaVantage:
			setIf(&cfg.AlphaVantage.APIKey, c.APIKey)
		case ServiceNewsAPI:
			setIf(&cfg.NewsAPI.APIKey, c.APIKey)
		}
	}
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
