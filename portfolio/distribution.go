package portfolio

import (
	"strings"

	"github.com/shopspring/decimal"

	"portfolio-tracker/models"
)

// UnclassifiedLabel is used for positions with an empty label
const UnclassifiedLabel = "Unclassified"

// Distribute groups current value by the dimension's label. Buckets keep the
// order in which labels first appear; percentages are 0 when the total is 0.
func Distribute(priced []models.PricedPosition, dim models.Dimension) models.Distribution {
	dist := models.Distribution{Dimension: dim, Buckets: []models.Bucket{}}
	index := make(map[string]int)
	total := decimal.Zero

	for _, p := range priced {
		label := strings.TrimSpace(dim.Of(p.Position))
		if label == "" {
			label = UnclassifiedLabel
		}
		i, ok := index[label]
		if !ok {
			i = len(dist.Buckets)
			index[label] = i
			dist.Buckets = append(dist.Buckets, models.Bucket{Label: label, Value: decimal.Zero})
		}
		dist.Buckets[i].Value = dist.Buckets[i].Value.Add(p.CurrentValue)
		total = total.Add(p.CurrentValue)
	}

	for i := range dist.Buckets {
		dist.Buckets[i].Percent = percentOf(dist.Buckets[i].Value, total)
	}

	return dist
}

// AllDistributions returns the category, sector and market-cap breakdowns
func AllDistributions(priced []models.PricedPosition) []models.Distribution {
	out := make([]models.Distribution, 0, len(models.Dimensions))
	for _, dim := range models.Dimensions {
		out = append(out, Distribute(priced, dim))
	}
	return out
}
