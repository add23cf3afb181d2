package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDimension_Of(t *testing.T) {
	pos := Position{Category: "FinTech", Sector: "Financials", MarketCap: "Small"}

	tests := []struct {
		dim  Dimension
		want string
	}{
		{DimensionCategory, "FinTech"},
		{DimensionSector, "Financials"},
		{DimensionMarketCap, "Small"},
		{Dimension("unknown"), ""},
	}
	for _, tt := range tests {
		if got := tt.dim.Of(pos); got != tt.want {
			t.Errorf("%s.Of() = %q, want %q", tt.dim, got, tt.want)
		}
	}
}

func TestDimension_Title(t *testing.T) {
	if DimensionMarketCap.Title() != "Market Cap" {
		t.Errorf("Title() = %q, want 'Market Cap'", DimensionMarketCap.Title())
	}
	if len(Dimensions) != 3 {
		t.Errorf("expected 3 dimensions, got %d", len(Dimensions))
	}
}

func TestDistribution_LabelsAndValues(t *testing.T) {
	d := Distribution{
		Dimension: DimensionSector,
		Buckets: []Bucket{
			{Label: "Technology", Value: decimal.NewFromFloat(1500.5)},
			{Label: "Financials", Value: decimal.NewFromInt(200)},
		},
	}

	labels := d.Labels()
	if len(labels) != 2 || labels[0] != "Technology" || labels[1] != "Financials" {
		t.Errorf("Labels() = %v", labels)
	}

	values := d.Values()
	if len(values) != 2 || values[0] != 1500.5 || values[1] != 200 {
		t.Errorf("Values() = %v", values)
	}
}

func TestNotificationBuilders(t *testing.T) {
	ok := Success("Portfolio uploaded successfully!")
	if ok.Level != NotificationSuccess {
		t.Errorf("Success level = %v", ok.Level)
	}

	bad := Failure("Not enough shares to sell.")
	if bad.Level != NotificationError || bad.Message != "Not enough shares to sell." {
		t.Errorf("Failure() = %+v", bad)
	}
}
