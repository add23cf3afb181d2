package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"portfolio-tracker/config"
	"portfolio-tracker/internal/app"
	"portfolio-tracker/models"
	"portfolio-tracker/observability"
	"portfolio-tracker/templates"
	"portfolio-tracker/templates/components"
	"portfolio-tracker/templates/partials"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	// maxUploadBytes caps a workbook upload
	maxUploadBytes = 10 << 20
	// defaultHistoryLimit is used when the limit parameter is absent
	defaultHistoryLimit = 50
	xlsxContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.\-]+$`)

// Handler handles HTTP API requests
type Handler struct {
	app      *app.App
	cfg      *config.Config
	validate *validator.Validate
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, cfg *config.Config) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	// ticker matches a normalised symbol: upper-case letters, digits, dots and dashes
	_ = v.RegisterValidation("ticker", func(fl validator.FieldLevel) bool {
		return tickerPattern.MatchString(models.NormalizeTicker(fl.Field().String()))
	})
	return &Handler{app: application, cfg: cfg, validate: v}
}

// HandleIndex serves the dashboard page
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := templates.IndexData{
		Snapshot:    h.app.Snapshot(ctx),
		Performance: h.app.Performance(),
		History:     h.app.History(defaultHistoryLimit),
		DCF:         h.cfg.DCF,
	}
	if masked, err := h.app.Settings(); err == nil {
		data.Settings = masked
	}
	h.htmlResponse(w, templates.Index(data), r)
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.app.Health(r.Context()))
}

// PortfolioResponse is the JSON body of GET /api/portfolio
type PortfolioResponse struct {
	*models.PortfolioSnapshot
	Count int `json:"count"`
}

// HandleGetPortfolio returns the priced portfolio with totals and distributions
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	snap := h.app.Snapshot(r.Context())

	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.Dashboard(snap, h.app.Performance(), h.app.History(defaultHistoryLimit), false), r)
		return
	}

	h.jsonResponse(w, PortfolioResponse{PortfolioSnapshot: snap, Count: len(snap.Positions)})
}

// HandleGetPositions returns priced positions
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	snap := h.app.Snapshot(r.Context())

	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.PositionsTable(snap.Positions), r)
		return
	}

	h.jsonResponse(w, snap.Positions)
}

// ImportResponse is the JSON body of a successful upload
type ImportResponse struct {
	Message     string `json:"message"`
	Sheet       string `json:"sheet"`
	Positions   int    `json:"positions"`
	Skipped     int    `json:"skipped"`
	Performance bool   `json:"performance"`
}

// HandleImportPositions replaces the book with an uploaded xlsx workbook
func (h *Handler) HandleImportPositions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, _, err := r.FormFile("file")
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: a file field is required", errBadRequest), app.UploadFailureMessage)
		return
	}
	defer file.Close()

	res, err := h.app.Import(r.Context(), file)
	if err != nil {
		h.fail(w, r, err, app.UploadFailureMessage)
		return
	}

	if isHTMXRequest(r) {
		h.htmlResponse(w, h.dashboardUpdate(r.Context(), models.Success(app.UploadSuccessMessage)), r)
		return
	}

	h.jsonResponse(w, ImportResponse{
		Message:     app.UploadSuccessMessage,
		Sheet:       res.Sheet,
		Positions:   len(res.Positions),
		Skipped:     res.Skipped,
		Performance: res.Performance != nil,
	})
}

// HandleExportPositions downloads the book as an xlsx workbook
func (h *Handler) HandleExportPositions(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.app.Export(&buf); err != nil {
		observability.WithError(err).Error("workbook export failed")
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="portfolio.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

// TransactionRequest is a buy or sell as posted by the dashboard or a client.
// Positivity of shares and price is enforced by the book.
type TransactionRequest struct {
	Ticker string          `json:"ticker" validate:"required,max=12,ticker"`
	Shares decimal.Decimal `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Side   string          `json:"side" validate:"required,oneof=buy sell"`
}

func (req *TransactionRequest) normalize() {
	req.Side = strings.ToLower(strings.TrimSpace(req.Side))
}

// HandleCreateTransaction applies a buy or sell
func (h *Handler) HandleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := h.decode(r, &req, func(form func(string) string) error {
		req.Ticker = form("ticker")
		req.Side = form("side")
		var err error
		if req.Shares, err = parseDecimal(form("shares"), "shares"); err != nil {
			return err
		}
		req.Price, err = parseDecimal(form("price"), "price")
		return err
	}); err != nil {
		h.fail(w, r, err, "")
		return
	}

	rec, err := h.app.ApplyTransaction(r.Context(), models.Transaction{
		Ticker: req.Ticker,
		Shares: req.Shares,
		Price:  req.Price,
		Side:   models.TradeSide(req.Side),
	})
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	if isHTMXRequest(r) {
		h.htmlResponse(w, h.dashboardUpdate(r.Context(), models.Success(transactionMessage(rec))), r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(rec)
}

func transactionMessage(rec *models.TransactionRecord) string {
	verb := "Bought"
	if rec.Side == models.TradeSideSell {
		verb = "Sold"
	}
	return fmt.Sprintf("%s %s %s at %s.", verb, components.Shares(rec.Shares), rec.Ticker, components.Money(rec.Price))
}

// HandleGetTransactions returns recent transactions, newest first
func (h *Handler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	limit := h.ParseLimitParam(r, defaultHistoryLimit)
	if limit > app.HistoryLimit {
		limit = app.HistoryLimit
	}
	history := h.app.History(limit)

	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.TransactionHistory(history), r)
		return
	}

	h.jsonResponse(w, history)
}

// HandleGetPerformance returns the performance series
func (h *Handler) HandleGetPerformance(w http.ResponseWriter, r *http.Request) {
	perf := h.app.Performance()

	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.PerformanceChart(perf), r)
		return
	}

	h.jsonResponse(w, perf)
}

// HandleGetDistribution returns the category, sector and market-cap breakdowns
func (h *Handler) HandleGetDistribution(w http.ResponseWriter, r *http.Request) {
	dists := h.app.Distributions(r.Context())

	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.DistributionCharts(dists), r)
		return
	}

	h.jsonResponse(w, dists)
}

// HandleGetQuotes looks up prices for a comma-separated ticker list
func (h *Handler) HandleGetQuotes(w http.ResponseWriter, r *http.Request) {
	tickers := strings.FieldsFunc(r.URL.Query().Get("tickers"), func(c rune) bool {
		return c == ',' || c == ' '
	})
	for _, t := range tickers {
		if err := h.validate.Var(t, "max=12,ticker"); err != nil {
			h.fail(w, r, fmt.Errorf("%w: invalid ticker %q", errBadRequest, t), "")
			return
		}
	}

	quotes, err := h.app.Quotes(r.Context(), tickers)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.QuotesTable(quotes), r)
		return
	}

	h.jsonResponse(w, quotes)
}

// HandleAnalysis runs the AI portfolio review. A failed model call still
// answers 200 with the fallback text.
func (h *Handler) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.app.Analyze(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.AnalysisResult(analysis), r)
		return
	}

	h.jsonResponse(w, analysis)
}

// DCFRequest holds valuation assumptions in percent. Missing rates take the
// configured defaults; a missing EPS is looked up by ticker.
type DCFRequest struct {
	Ticker         string   `json:"ticker" validate:"omitempty,max=12,ticker"`
	EPS            *float64 `json:"eps"`
	GrowthRate     *float64 `json:"growth_rate" validate:"omitempty,gt=-100"`
	TerminalGrowth *float64 `json:"terminal_growth" validate:"omitempty,gt=-100"`
	DiscountRate   *float64 `json:"discount_rate" validate:"omitempty,gt=-100"`
}

// HandleDCF estimates intrinsic value with the two-stage DCF
func (h *Handler) HandleDCF(w http.ResponseWriter, r *http.Request) {
	var req DCFRequest
	if err := h.decode(r, &req, func(form func(string) string) error {
		req.Ticker = form("ticker")
		var err error
		if req.EPS, err = parseOptionalFloat(form("eps"), "eps"); err != nil {
			return err
		}
		if req.GrowthRate, err = parseOptionalFloat(form("growth_rate"), "growth rate"); err != nil {
			return err
		}
		if req.TerminalGrowth, err = parseOptionalFloat(form("terminal_growth"), "terminal growth"); err != nil {
			return err
		}
		req.DiscountRate, err = parseOptionalFloat(form("discount_rate"), "discount rate")
		return err
	}); err != nil {
		h.fail(w, r, err, "")
		return
	}

	report, err := h.app.Valuate(r.Context(), app.ValuationRequest{
		Ticker:         req.Ticker,
		EPS:            req.EPS,
		GrowthRate:     orDefault(req.GrowthRate, h.cfg.DCF.DefaultGrowth),
		TerminalGrowth: orDefault(req.TerminalGrowth, h.cfg.DCF.DefaultTerminal),
		DiscountRate:   orDefault(req.DiscountRate, h.cfg.DCF.DefaultDiscount),
	})
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.DCFResult(report), r)
		return
	}

	h.jsonResponse(w, report)
}

// dashboardUpdate is a notification plus an out-of-band dashboard refresh
func (h *Handler) dashboardUpdate(ctx context.Context, n models.Notification) templComponent {
	return components.Func(func(hw *components.Writer) {
		hw.Render(components.Notification(n))
		hw.Render(partials.Dashboard(h.app.Snapshot(ctx), h.app.Performance(), h.app.History(defaultHistoryLimit), true))
	})
}

// Helper functions

// isHTMXRequest checks if the request is from HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// templComponent matches the templ.Component interface
type templComponent interface {
	Render(ctx context.Context, w io.Writer) error
}

// htmlResponse renders a templ component as HTML
func (h *Handler) htmlResponse(w http.ResponseWriter, component templComponent, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		observability.WithError(err).Error("template render failed", "path", r.URL.Path)
	}
}

// htmlError answers an htmx request with an error notification. The status
// stays 200 so htmx processes the swap; HX-Reswap keeps the request's own
// target untouched.
func (h *Handler) htmlError(w http.ResponseWriter, message string, r *http.Request) {
	w.Header().Set("HX-Reswap", "none")
	h.htmlResponse(w, components.Notification(models.Failure(message)), r)
}

// fail maps err to a status and writes it in the caller's format. A non-empty
// prefix is shown ahead of the error text.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, prefix string) {
	status, message := statusFor(err)
	if prefix != "" {
		message = prefix + " " + message
	}
	if status >= http.StatusInternalServerError {
		observability.WithContext(r.Context()).Error("request failed", "error", err, "path", r.URL.Path, "status", status)
	}

	if isHTMXRequest(r) {
		h.htmlError(w, message, r)
		return
	}
	h.jsonError(w, message, status)
}

// decode fills dst from a JSON body, or from form values through fromForm,
// then validates it.
func (h *Handler) decode(r *http.Request, dst any, fromForm func(form func(string) string) error) error {
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return fmt.Errorf("%w: invalid JSON request", errBadRequest)
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return fmt.Errorf("%w: failed to parse form", errBadRequest)
		}
		if err := fromForm(r.FormValue); err != nil {
			return err
		}
	}

	if n, ok := dst.(interface{ normalize() }); ok {
		n.normalize()
	}
	if err := h.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func parseDecimal(s, field string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s must be a number", errBadRequest, field)
	}
	return d, nil
}

func parseOptionalFloat(s, field string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", errBadRequest, field)
	}
	return &f, nil
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// ParseLimitParam parses the limit query parameter
func (h *Handler) ParseLimitParam(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return defaultLimit
}

// jsonResponse encodes before writing so an unencodable value still yields
// an error response rather than an empty 200.
func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		observability.WithError(err).Error("failed to encode response", "type", fmt.Sprintf("%T", data))
		h.jsonError(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = buf.WriteTo(w)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// validationError turns validator output into a readable bad request
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		case "ticker":
			msgs = append(msgs, fe.Field()+" is not a valid symbol")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return fmt.Errorf("%w: %s", errBadRequest, strings.Join(msgs, "; "))
}
