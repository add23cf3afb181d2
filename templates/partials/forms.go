package partials

import (
	"github.com/a-h/templ"

	"portfolio-tracker/models"
	c "portfolio-tracker/templates/components"
)

// TransactionForm records a buy or a sell. The response is made of
// out-of-band swaps only.
func TransactionForm() templ.Component {
	return c.Func(func(h *c.Writer) {
		h.Raw(`<form id="transaction-form" class="card" hx-post="/api/transactions" hx-swap="none">` +
			`<h2>Record Transaction</h2>` +
			`<label>Ticker <input name="ticker" required maxlength="12" autocomplete="off"></label>` +
			`<label>Shares <input name="shares" type="number" step="any" min="0" required></label>` +
			`<label>Price <input name="price" type="number" step="any" min="0" required></label>` +
			`<div class="side-buttons">` +
			`<button type="submit" name="side" value="buy" class="buy">Buy</button>` +
			`<button type="submit" name="side" value="sell" class="sell">Sell</button>` +
			`</div></form>`)
	})
}

// UploadForm posts an xlsx workbook and links the export.
func UploadForm() templ.Component {
	return c.Func(func(h *c.Writer) {
		h.Raw(`<form id="upload-form" class="card" hx-post="/api/positions/import" hx-encoding="multipart/form-data" hx-swap="none">` +
			`<h2>Portfolio File</h2>` +
			`<input type="file" name="file" accept=".xlsx,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" required>` +
			`<button type="submit">Upload</button> ` +
			`<a class="button" href="/api/positions/export" download>Download</a>` +
			`</form>`)
	})
}

// AnalysisPanel holds the trigger button and the result target.
func AnalysisPanel() templ.Component {
	return c.Func(func(h *c.Writer) {
		h.Raw(`<div class="card analysis-panel"><h2>AI Analysis</h2>` +
			`<button hx-post="/api/analysis" hx-target="#analysis-result" hx-swap="outerHTML" hx-indicator="#analysis-spinner">Analyze Portfolio</button>` +
			`<span id="analysis-spinner" class="htmx-indicator">Analyzing&hellip;</span>` +
			`<div id="analysis-result"></div></div>`)
	})
}

// AnalysisResult renders model commentary. HTML comes from the markdown
// renderer, which escapes raw HTML in the model output.
func AnalysisResult(a models.Analysis) templ.Component {
	return c.Func(func(h *c.Writer) {
		h.Raw(`<div id="analysis-result"`)
		if a.Fallback {
			h.Attr("class", "analysis fallback")
		} else {
			h.Attr("class", "analysis")
		}
		h.Raw(`>`)
		if a.HTML != "" {
			h.Raw(a.HTML)
		} else {
			for _, p := range a.Paragraphs {
				h.Raw(`<p>`)
				h.Text(p)
				h.Raw(`</p>`)
			}
		}
		h.Raw(`<p class="meta">`)
		h.Text(a.Provider)
		h.Raw(` &middot; `)
		h.Text(a.GeneratedAt.Format("Jan 2, 2006 15:04"))
		h.Raw(`</p></div>`)
	})
}
