package app

import (
	"context"

	"portfolio-tracker/internal/settings"
	"portfolio-tracker/observability"
)

// Settings lists every service with secrets masked.
func (a *App) Settings() ([]settings.MaskedAPIKeyConfig, error) {
	if a.settings == nil {
		return nil, ErrSettingsDisabled
	}
	return a.settings.GetMaskedSettings(), nil
}

// SaveAPIKey stores the config and rebuilds providers so it takes effect.
func (a *App) SaveAPIKey(ctx context.Context, cfg *settings.APIKeyConfig) error {
	if a.settings == nil {
		return ErrSettingsDisabled
	}
	if err := a.settings.SetAPIKey(cfg); err != nil {
		return err
	}

	observability.Info("api key saved", "service", cfg.ServiceName)
	a.RebuildProviders(ctx)
	return nil
}

// DeleteAPIKey removes a stored config and falls back to the environment.
func (a *App) DeleteAPIKey(ctx context.Context, service settings.ServiceName) error {
	if a.settings == nil {
		return ErrSettingsDisabled
	}
	if err := a.settings.DeleteAPIKey(service); err != nil {
		return err
	}

	observability.Info("api key deleted", "service", service)
	a.RebuildProviders(ctx)
	return nil
}

// TestAPIKey probes a service. Blank secret fields are filled from the
// stored config so a saved key can be re-tested from the masked form.
func (a *App) TestAPIKey(ctx context.Context, cfg *settings.APIKeyConfig) (*settings.ValidationResult, error) {
	if a.settings == nil || a.validator == nil {
		return nil, ErrSettingsDisabled
	}
	if cfg == nil {
		return a.validator.ValidateAPIKey(ctx, nil)
	}

	probe := *cfg
	if stored := a.settings.GetAPIKey(cfg.ServiceName); stored != nil {
		if probe.APIKey == "" {
			probe.APIKey = stored.APIKey
		}
		if probe.APISecret == "" {
			probe.APISecret = stored.APISecret
		}
	}
	return a.validator.ValidateAPIKey(ctx, &probe)
}
