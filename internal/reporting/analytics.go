package reporting

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"solsub-admin/internal/models"
)

// AnalyticsMonths is the length of the analytics series.
const AnalyticsMonths = 6

// AnalyticsPoint is one month of the dashboard chart. It serializes flat:
// per-cluster revenue appears as extra keys next to the fixed ones.
type AnalyticsPoint struct {
	Key           string
	Month         string
	Revenue       decimal.Decimal
	Payments      int
	Subscriptions int
	Clusters      map[string]decimal.Decimal
}

var reservedAnalyticsKeys = map[string]struct{}{
	"month": {}, "revenue": {}, "payments": {}, "subscriptions": {},
}

func (p AnalyticsPoint) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(p.Clusters)+4)
	for name, amount := range p.Clusters {
		if _, reserved := reservedAnalyticsKeys[name]; reserved {
			continue
		}
		out[name] = amount
	}
	out["month"] = p.Month
	out["revenue"] = p.Revenue
	out["payments"] = p.Payments
	out["subscriptions"] = p.Subscriptions
	return json.Marshal(out)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// AnalyticsWindow returns the first instant of the series and the first
// instant after it.
func AnalyticsWindow(now time.Time) (since, until time.Time) {
	current := monthStart(now)
	return current.AddDate(0, -(AnalyticsMonths - 1), 0), current.AddDate(0, 1, 0)
}

// AnalyticsSeries builds the six calendar months ending with the month of
// now, oldest first. Revenue and payment counts cover completed payments;
// subscriptions counts identifiers whose validity ends within the month.
func AnalyticsSeries(now time.Time, payments []models.Payment, matchIDs []models.MatchID, index *ClusterIndex) []AnalyticsPoint {
	since, _ := AnalyticsWindow(now)

	points := make([]AnalyticsPoint, AnalyticsMonths)
	byKey := make(map[string]*AnalyticsPoint, AnalyticsMonths)
	for i := range points {
		m := since.AddDate(0, i, 0)
		points[i] = AnalyticsPoint{
			Key:      m.Format(monthLayout),
			Month:    m.Format("Jan"),
			Revenue:  decimal.Zero,
			Clusters: map[string]decimal.Decimal{},
		}
		byKey[points[i].Key] = &points[i]
	}

	for i := range payments {
		p := &payments[i]
		if !p.IsCompleted() {
			continue
		}
		point, ok := byKey[p.PaymentDate.In(now.Location()).Format(monthLayout)]
		if !ok {
			continue
		}
		amount := p.AmountDecimal()
		point.Revenue = point.Revenue.Add(amount)
		point.Payments++
		if name, ok := index.Resolve(p.APIKey); ok {
			point.Clusters[name] = point.Clusters[name].Add(amount)
		}
	}

	for i := range matchIDs {
		v := matchIDs[i].ValidTill
		if v == nil {
			continue
		}
		if point, ok := byKey[v.In(now.Location()).Format(monthLayout)]; ok {
			point.Subscriptions++
		}
	}

	return points
}
