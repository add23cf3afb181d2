package partials

import (
	"github.com/a-h/templ"

	"portfolio-tracker/internal/settings"
	c "portfolio-tracker/templates/components"
)

// SettingsForm lists every service with its masked credentials. Blank
// secret fields keep the stored values.
func SettingsForm(services []settings.MaskedAPIKeyConfig, oob bool) templ.Component {
	return c.Func(func(h *c.Writer) {
		h.Raw(`<div id="settings" class="card"`)
		if oob {
			h.Attr("hx-swap-oob", "true")
		}
		h.Raw(`><h2>API Keys</h2>`)
		for _, s := range services {
			name := string(s.ServiceName)
			h.Raw(`<form class="service-form" hx-post="/api/settings" hx-swap="none"`)
			h.Attr("id", "service-"+name)
			h.Raw(`><h3>`)
			h.Text(s.DisplayName)
			if s.IsConfigured {
				h.Raw(` <span class="badge configured">configured</span>`)
			}
			h.Raw(`</h3><p class="description">`)
			h.Text(s.Description)
			h.Raw(`</p><input type="hidden" name="service_name"`)
			h.Attr("value", name)
			h.Raw(`>`)

			if s.ServiceName != settings.ServiceBedrock {
				h.Raw(`<label>API key <input name="api_key" type="password" autocomplete="off"`)
				h.Attr("placeholder", s.APIKey)
				h.Raw(`></label>`)
			}
			if s.ServiceName == settings.ServiceAlpaca {
				h.Raw(`<label>API secret <input name="api_secret" type="password" autocomplete="off"`)
				h.Attr("placeholder", s.APISecret)
				h.Raw(`></label><label>Data URL <input name="base_url"`)
				h.Attr("value", s.BaseURL)
				h.Raw(`></label>`)
			}
			if s.ServiceName == settings.ServiceBedrock {
				h.Raw(`<label>Region <input name="region"`)
				h.Attr("value", s.Region)
				h.Raw(`></label><label>Model ID <input name="model_id"`)
				h.Attr("value", s.ModelID)
				h.Raw(`></label>`)
			}

			h.Raw(`<div class="actions"><button type="submit">Save</button>`)
			h.Raw(`<button type="button" hx-swap="innerHTML" hx-include="closest form"`)
			h.Attr("hx-post", "/api/settings/"+name+"/test")
			h.Attr("hx-target", "#status-"+name)
			h.Raw(`>Test</button>`)
			if s.IsConfigured {
				h.Raw(`<button type="button" class="danger" hx-target="#settings" hx-swap="outerHTML" hx-confirm="Remove these credentials?"`)
				h.Attr("hx-delete", "/api/settings/"+name)
				h.Raw(`>Remove</button>`)
			}
			h.Raw(`<span class="service-status"`)
			h.Attr("id", "status-"+name)
			h.Raw(`></span></div></form>`)
		}
		h.Raw(`</div>`)
	})
}

// ServiceStatus is the outcome of a credential test.
func ServiceStatus(r settings.ValidationResult) templ.Component {
	return c.Func(func(h *c.Writer) {
		if r.Valid {
			h.Raw(`<span class="status-ok">`)
		} else {
			h.Raw(`<span class="status-failed">`)
		}
		h.Text(r.Message)
		h.Raw(`</span>`)
	})
}
