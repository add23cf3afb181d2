// Package templates renders the dashboard page. Fragments returned by the
// htmx endpoints live in templates/partials.
package templates

import (
	"github.com/a-h/templ"

	"portfolio-tracker/config"
	"portfolio-tracker/internal/settings"
	"portfolio-tracker/models"
	c "portfolio-tracker/templates/components"
	"portfolio-tracker/templates/partials"
)

// IndexData is everything the first page render needs.
type IndexData struct {
	Snapshot    *models.PortfolioSnapshot
	Performance models.Performance
	History     []models.TransactionRecord
	DCF         config.DCFConfig
	// Settings is nil when the settings store is disabled
	Settings []settings.MaskedAPIKeyConfig
}

// Index is the full dashboard page.
func Index(data IndexData) templ.Component {
	return c.Func(func(h *c.Writer) {
		h.Raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">` +
			`<meta name="viewport" content="width=device-width, initial-scale=1">` +
			`<title>Portfolio Tracker</title>` +
			`<script src="https://unpkg.com/htmx.org@2.0.4"></script>` +
			`<script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.7/dist/chart.umd.min.js"></script>` +
			`<style>` + stylesheet + `</style></head><body>`)
		h.Render(Header())
		h.Raw(`<main>`)
		h.Render(c.Notification(models.Notification{}))
		h.Render(partials.Dashboard(data.Snapshot, data.Performance, data.History, false))
		h.Raw(`<div class="tools">`)
		h.Render(partials.TransactionForm())
		h.Render(partials.UploadForm())
		h.Render(partials.DCFCalculator(data.DCF))
		h.Render(partials.AnalysisPanel())
		h.Raw(`</div>`)
		if data.Settings != nil {
			h.Raw(`<details class="settings-panel"><summary>Settings</summary>`)
			h.Render(partials.SettingsForm(data.Settings, false))
			h.Raw(`</details>`)
		}
		h.Raw(`</main><script>` + chartScript + `</script></body></html>`)
	})
}

// Header is the page banner.
func Header() templ.Component {
	return c.Func(func(h *c.Writer) {
		h.Raw(`<header class="site-header"><h1>Portfolio Tracker</h1>` +
			`<button hx-get="/api/portfolio" hx-target="#dashboard" hx-swap="outerHTML">Refresh quotes</button>` +
			`</header>`)
	})
}

const stylesheet = `
body{font-family:system-ui,sans-serif;margin:0;background:#f5f6f8;color:#1d2330}
.site-header{display:flex;justify-content:space-between;align-items:center;padding:1rem 2rem;background:#1d2330;color:#fff}
main{padding:1.5rem 2rem;display:grid;gap:1.5rem}
.card{background:#fff;border-radius:8px;padding:1rem 1.25rem;box-shadow:0 1px 3px rgba(0,0,0,.08)}
.kpi-grid,.distribution-grid,.tools{display:grid;gap:1rem;grid-template-columns:repeat(auto-fit,minmax(240px,1fr))}
.charts{display:grid;gap:1rem}
.gain{color:#0a8a4a}.loss{color:#c62828}
.fallback{font-style:italic}
table{width:100%;border-collapse:collapse}th,td{padding:.4rem .6rem;text-align:right}th:first-child,td:first-child{text-align:left}
.warning-banner{background:#fff4e5;border:1px solid #f0b45b;padding:.6rem 1rem;border-radius:6px}
.notification-success{background:#e7f6ec;padding:.6rem 1rem;border-radius:6px}
.notification-error{background:#fdecea;padding:.6rem 1rem;border-radius:6px}
.htmx-indicator{display:none}.htmx-request .htmx-indicator,.htmx-request.htmx-indicator{display:inline}
`

// chartScript draws every canvas carrying data-chart and redraws after
// htmx swaps in a new dashboard.
const chartScript = `
(function(){
  var charts = {};
  function parse(el, name){ try { return JSON.parse(el.dataset[name] || "[]"); } catch (e) { return []; } }
  function draw(root){
    (root || document).querySelectorAll("canvas[data-chart]").forEach(function(el){
      if (charts[el.id]) { charts[el.id].destroy(); }
      var labels = parse(el, "labels");
      var cfg;
      if (el.dataset.chart === "line") {
        cfg = {type: "line", data: {labels: labels, datasets: [
          {label: "Portfolio", data: parse(el, "portfolio"), borderColor: "#3b6fd8", tension: .3},
          {label: "S&P 500", data: parse(el, "benchmark"), borderColor: "#9aa3b2", tension: .3}
        ]}};
      } else {
        cfg = {type: "doughnut", data: {labels: labels, datasets: [{data: parse(el, "values")}]},
          options: {plugins: {legend: {display: false}}}};
      }
      charts[el.id] = new Chart(el, cfg);
    });
  }
  document.addEventListener("DOMContentLoaded", function(){ draw(); });
  document.body.addEventListener("htmx:afterSettle", function(e){ draw(e.detail.elt); });
  document.body.addEventListener("htmx:oobAfterSwap", function(e){ draw(e.detail.target); });
})();
`
