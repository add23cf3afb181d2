package components

import (
	"github.com/a-h/templ"

	"portfolio-tracker/models"
)

// ErrorState is the inline error block used by htmx error responses.
func ErrorState(message string) templ.Component {
	return Func(func(h *Writer) {
		h.Raw(`<div class="error-state" role="alert"><p>`)
		h.Text(message)
		h.Raw(`</p></div>`)
	})
}

// Notification renders a toast into the notification area.
func Notification(n models.Notification) templ.Component {
	return Func(func(h *Writer) {
		if n.Message == "" {
			h.Raw(`<div id="notification" class="notification"></div>`)
			return
		}
		h.Raw(`<div id="notification" hx-swap-oob="true" class="notification`)
		h.Text(" notification-" + string(n.Level))
		h.Raw(`" role="status" data-dismiss-after="4000">`)
		h.Text(n.Message)
		h.Raw(`</div>`)
	})
}

// KPICard is one headline figure on the dashboard.
func KPICard(label, value, detail, tone string) templ.Component {
	return Func(func(h *Writer) {
		h.Raw(`<div class="kpi-card">`)
		h.Raw(`<span class="kpi-label">`)
		h.Text(label)
		h.Raw(`</span><span class="kpi-value`)
		if tone != "" {
			h.Text(" " + tone)
		}
		h.Raw(`">`)
		h.Text(value)
		h.Raw(`</span>`)
		if detail != "" {
			h.Raw(`<span class="kpi-detail`)
			if tone != "" {
				h.Text(" " + tone)
			}
			h.Raw(`">`)
			h.Text(detail)
			h.Raw(`</span>`)
		}
		h.Raw(`</div>`)
	})
}
