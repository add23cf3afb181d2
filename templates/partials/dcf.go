package partials

import (
	"strconv"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"

	"portfolio-tracker/config"
	"portfolio-tracker/internal/app"
	c "portfolio-tracker/templates/components"
)

func rate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// DCFCalculator is the valuation form prefilled with the configured
// defaults. EPS is optional; a blank EPS is looked up by ticker.
func DCFCalculator(defaults config.DCFConfig) templ.Component {
	return c.Func(func(h *c.Writer) {
		h.Raw(`<form id="dcf-form" class="card" hx-post="/api/valuation/dcf" hx-target="#dcf-result" hx-swap="outerHTML">` +
			`<h2>DCF Calculator</h2>` +
			`<label>Ticker <input name="ticker" maxlength="12" autocomplete="off"></label>` +
			`<label>EPS <input name="eps" type="number" step="any" placeholder="look up"></label>`)
		h.Raw(`<label>Growth % <input name="growth_rate" type="number" step="any" required`)
		h.Attr("value", rate(defaults.DefaultGrowth))
		h.Raw(`></label><label>Terminal % <input name="terminal_growth" type="number" step="any" required`)
		h.Attr("value", rate(defaults.DefaultTerminal))
		h.Raw(`></label><label>Discount % <input name="discount_rate" type="number" step="any" required`)
		h.Attr("value", rate(defaults.DefaultDiscount))
		h.Raw(`></label><button type="submit">Calculate</button>` +
			`<div id="dcf-result"></div></form>`)
	})
}

// DCFResult shows intrinsic value and, when priced, the margin of safety.
func DCFResult(r *app.ValuationReport) templ.Component {
	return c.Func(func(h *c.Writer) {
		h.Raw(`<div id="dcf-result" class="dcf-result">`)
		if r.Input.Ticker != "" {
			h.Raw(`<h3>`)
			h.Text(r.Input.Ticker)
			h.Raw(`</h3>`)
		}
		h.Raw(`<dl><dt>Intrinsic value</dt><dd class="intrinsic">`)
		h.Text(c.MoneyFloat(r.IntrinsicValue))
		h.Raw(`</dd><dt>EPS</dt><dd>`)
		h.Text(c.MoneyFloat(r.Input.EPS))
		h.Raw(` <small>(`)
		h.Text(r.EPSSource)
		h.Raw(`)</small></dd>`)
		if r.CurrentPrice != nil {
			h.Raw(`<dt>Price</dt><dd>`)
			h.Text(c.MoneyFloat(*r.CurrentPrice))
			h.Raw(`</dd>`)
		}
		if r.MarginOfSafety != nil {
			mos := decimal.NewFromFloat(*r.MarginOfSafety)
			h.Raw(`<dt>Margin of safety</dt><dd`)
			h.Attr("class", c.Tone(mos))
			h.Raw(`>`)
			h.Text(c.SignedPercent(mos))
			h.Raw(`</dd>`)
		}
		h.Raw(`<dt>PV of 10 years</dt><dd>`)
		h.Text(c.MoneyFloat(r.SumPresentValue))
		h.Raw(`</dd><dt>PV of terminal value</dt><dd>`)
		h.Text(c.MoneyFloat(r.DiscountedTerminalValue))
		h.Raw(`</dd></dl><details><summary>Projection</summary><table><thead><tr><th>Year</th><th>EPS</th><th>Present value</th></tr></thead><tbody>`)
		for _, p := range r.Projections {
			h.Raw(`<tr><td>`)
			h.Text(strconv.Itoa(p.Year))
			h.Raw(`</td><td>`)
			h.Text(c.MoneyFloat(p.EPS))
			h.Raw(`</td><td>`)
			h.Text(c.MoneyFloat(p.PresentValue))
			h.Raw(`</td></tr>`)
		}
		h.Raw(`</tbody></table></details></div>`)
	})
}
