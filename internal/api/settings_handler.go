package api

import (
	"net/http"

	"portfolio-tracker/internal/settings"
	"portfolio-tracker/models"
	"portfolio-tracker/templates/components"
	"portfolio-tracker/templates/partials"

	"github.com/go-chi/chi/v5"
)

// APIKeyRequest is a settings update. Blank secrets keep the stored values.
type APIKeyRequest struct {
	ServiceName string `json:"service_name" validate:"required,max=32"`
	APIKey      string `json:"api_key" validate:"max=512"`
	APISecret   string `json:"api_secret" validate:"max=512"`
	BaseURL     string `json:"base_url" validate:"omitempty,url"`
	Region      string `json:"region" validate:"max=64"`
	ModelID     string `json:"model_id" validate:"max=256"`
}

func (req APIKeyRequest) config() (*settings.APIKeyConfig, error) {
	name, err := settings.ParseServiceName(req.ServiceName)
	if err != nil {
		return nil, err
	}
	return &settings.APIKeyConfig{
		ServiceName: name,
		APIKey:      req.APIKey,
		APISecret:   req.APISecret,
		BaseURL:     req.BaseURL,
		Region:      req.Region,
		ModelID:     req.ModelID,
	}, nil
}

func (h *Handler) decodeAPIKey(r *http.Request, req *APIKeyRequest) error {
	return h.decode(r, req, func(form func(string) string) error {
		if req.ServiceName == "" {
			req.ServiceName = form("service_name")
		}
		req.APIKey = form("api_key")
		req.APISecret = form("api_secret")
		req.BaseURL = form("base_url")
		req.Region = form("region")
		req.ModelID = form("model_id")
		return nil
	})
}

// HandleGetSettings returns masked API key settings
func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	masked, err := h.app.Settings()
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.SettingsForm(masked, false), r)
		return
	}

	h.jsonResponse(w, masked)
}

// HandleUpdateAPIKey saves a single service configuration and rebuilds providers
func (h *Handler) HandleUpdateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req APIKeyRequest
	if err := h.decodeAPIKey(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}

	cfg, err := req.config()
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	if err := h.app.SaveAPIKey(r.Context(), cfg); err != nil {
		h.fail(w, r, err, "")
		return
	}

	if isHTMXRequest(r) {
		masked, _ := h.app.Settings()
		h.htmlResponse(w, components.Func(func(hw *components.Writer) {
			hw.Render(components.Notification(models.Success(settings.ServiceDisplayName(cfg.ServiceName) + " settings saved.")))
			hw.Render(partials.SettingsForm(masked, true))
		}), r)
		return
	}

	h.jsonResponse(w, map[string]string{"status": "saved", "service": string(cfg.ServiceName)})
}

// HandleTestAPIKey probes a service with the posted or stored credentials
func (h *Handler) HandleTestAPIKey(w http.ResponseWriter, r *http.Request) {
	req := APIKeyRequest{ServiceName: chi.URLParam(r, "service")}
	if r.ContentLength != 0 {
		if err := h.decodeAPIKey(r, &req); err != nil {
			h.fail(w, r, err, "")
			return
		}
		// the path names the service
		req.ServiceName = chi.URLParam(r, "service")
	}

	cfg, err := req.config()
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	result, err := h.app.TestAPIKey(r.Context(), cfg)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.ServiceStatus(*result), r)
		return
	}

	h.jsonResponse(w, result)
}

// HandleDeleteAPIKey removes an API key configuration
func (h *Handler) HandleDeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	service, err := settings.ParseServiceName(chi.URLParam(r, "service"))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	if err := h.app.DeleteAPIKey(r.Context(), service); err != nil {
		h.fail(w, r, err, "")
		return
	}

	if isHTMXRequest(r) {
		masked, _ := h.app.Settings()
		h.htmlResponse(w, partials.SettingsForm(masked, false), r)
		return
	}

	h.jsonResponse(w, map[string]string{"status": "deleted", "service": string(service)})
}
