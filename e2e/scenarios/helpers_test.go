//go:build e2e
// +build e2e

package scenarios

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"portfolio-tracker/e2e"
	"portfolio-tracker/importer"
	"portfolio-tracker/models"
)

func setup(t *testing.T) *e2e.TestHarness {
	t.Helper()

	harness := e2e.NewTestHarness(t)
	if err := harness.Setup(); err != nil {
		t.Fatalf("failed to setup test harness: %v", err)
	}
	t.Cleanup(harness.Teardown)
	return harness
}

func decodeJSON(t *testing.T, resp *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", resp.Body.String(), err)
	}
}

func workbook(t *testing.T, positions ...models.Position) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := importer.Export(&buf, positions, nil); err != nil {
		t.Fatalf("failed to build workbook: %v", err)
	}
	return buf.Bytes()
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
