package api

import (
	"errors"
	"net/http"

	"portfolio-tracker/importer"
	"portfolio-tracker/internal/app"
	"portfolio-tracker/internal/settings"
	"portfolio-tracker/portfolio"
	"portfolio-tracker/services"
	"portfolio-tracker/valuation"
)

// errBadRequest marks request decoding and validation failures
var errBadRequest = errors.New("bad request")

var badRequestErrors = []error{
	errBadRequest,
	portfolio.ErrInvalidTransaction,
	portfolio.ErrInsufficientShares,
	valuation.ErrInvalidInput,
	valuation.ErrDiscountNotAboveTerminal,
	importer.ErrInvalidWorkbook,
	importer.ErrMissingColumn,
	importer.ErrInvalidRow,
	importer.ErrNoPositions,
	app.ErrNoTickers,
	app.ErrTooManyTickers,
	settings.ErrUnknownService,
	settings.ErrInvalidConfig,
}

// statusFor picks the HTTP status for err and the message shown to the
// user. EPS failures wrap the provider error and are matched before the
// generic upstream cases.
func statusFor(err error) (int, string) {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, err.Error()
		}
	}

	var apiErr *services.APIError
	switch {
	case errors.Is(err, app.ErrAnalysisBusy):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, valuation.ErrEPSUnavailable) && errors.Is(err, services.ErrNotConfigured):
		return http.StatusServiceUnavailable, valuation.ErrEPSUnavailable.Error()
	case errors.Is(err, valuation.ErrEPSUnavailable) && errors.Is(err, services.ErrNoData):
		return http.StatusNotFound, valuation.ErrEPSUnavailable.Error()
	case errors.Is(err, valuation.ErrEPSUnavailable):
		return http.StatusBadGateway, valuation.ErrEPSUnavailable.Error()
	case errors.Is(err, services.ErrNotConfigured), errors.Is(err, app.ErrSettingsDisabled):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, services.ErrNoData):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrProviderUnavailable), errors.As(err, &apiErr):
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
