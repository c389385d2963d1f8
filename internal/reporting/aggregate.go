package reporting

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"solsub-admin/internal/models"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
	emptyCell   = "-"
)

func init() {
	// JSON consumers chart these values; emit numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return emptyCell
	}
	return t.Format(dateLayout)
}

// DashboardStats are the headline numbers on the home page.
type DashboardStats struct {
	UserCount           int64           `json:"user_count"`
	ActiveMatchIDs      int64           `json:"active_match_ids"`
	ClusterCount        int             `json:"cluster_count"`
	TotalRevenue        decimal.Decimal `json:"total_revenue"`
	TrialConversionRate float64         `json:"trial_conversion_rate"`
}

// TrialConversionRate is the share of trial identifiers that were paid
// after creation, in percent. Non-trial identifiers are ignored.
func TrialConversionRate(matchIDs []models.MatchID) float64 {
	trials, converted := 0, 0
	for i := range matchIDs {
		if !matchIDs[i].IsTrial {
			continue
		}
		trials++
		if matchIDs[i].Converted() {
			converted++
		}
	}
	if trials == 0 {
		return 0
	}
	return float64(converted) / float64(trials) * 100
}

// DistinctClusterNames returns embedded cluster names in first-seen order.
func DistinctClusterNames(users []models.UserProfile) []string {
	seen := make(map[string]struct{})
	names := []string{}
	for _, u := range users {
		for _, cl := range u.Clusters {
			if _, ok := seen[cl.ClusterName]; ok {
				continue
			}
			seen[cl.ClusterName] = struct{}{}
			names = append(names, cl.ClusterName)
		}
	}
	return names
}

// CompletedRevenue sums the amounts of completed payments.
func CompletedRevenue(payments []models.Payment) decimal.Decimal {
	total := decimal.Zero
	for i := range payments {
		if payments[i].IsCompleted() {
			total = total.Add(payments[i].AmountDecimal())
		}
	}
	return total
}

// CountActive counts identifiers whose validity ends strictly after now.
func CountActive(now time.Time, matchIDs []models.MatchID) int64 {
	var n int64
	for i := range matchIDs {
		if v := matchIDs[i].ValidTill; v != nil && v.After(now) {
			n++
		}
	}
	return n
}

// ComputeDashboardStats aggregates the home page numbers from full collections.
func ComputeDashboardStats(now time.Time, users []models.UserProfile, matchIDs []models.MatchID, payments []models.Payment) DashboardStats {
	return DashboardStats{
		UserCount:           int64(len(users)),
		ActiveMatchIDs:      CountActive(now, matchIDs),
		ClusterCount:        len(DistinctClusterNames(users)),
		TotalRevenue:        CompletedRevenue(payments),
		TrialConversionRate: TrialConversionRate(matchIDs),
	}
}

type UserRow struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	CreatedAt      string `json:"created_at"`
	ClusterCount   int    `json:"cluster_count"`
	HasBankDetails bool   `json:"has_bank_details"`
}

func UserRows(users []models.UserProfile) []UserRow {
	rows := make([]UserRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, UserRow{
			ID:             u.UserID,
			Username:       u.Username,
			Email:          u.Email,
			CreatedAt:      formatDate(u.CreatedAt),
			ClusterCount:   len(u.Clusters),
			HasBankDetails: u.BankDetails != nil,
		})
	}
	return rows
}

type PaymentRow struct {
	ID          string          `json:"id"`
	MatchID     string          `json:"match_id"`
	ClusterName *string         `json:"cluster_name"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	Date        string          `json:"date"`
	UserEmail   string          `json:"user_email"`
}

// Cluster returns the resolved cluster name or "-".
func (r PaymentRow) Cluster() string {
	if r.ClusterName == nil {
		return emptyCell
	}
	return *r.ClusterName
}

func PaymentRows(payments []models.Payment, index *ClusterIndex) []PaymentRow {
	rows := make([]PaymentRow, 0, len(payments))
	for i := range payments {
		p := &payments[i]
		row := PaymentRow{
			ID:        p.PaymentID,
			MatchID:   p.MatchID,
			Amount:    p.AmountDecimal(),
			Status:    p.Status,
			Date:      formatDate(&p.PaymentDate),
			UserEmail: p.UserEmail,
		}
		if name, ok := index.Resolve(p.APIKey); ok {
			row.ClusterName = &name
		}
		rows = append(rows, row)
	}
	return rows
}

type MatchIDRow struct {
	ID          string `json:"id"`
	ClusterName string `json:"cluster_name"`
	CreatedOn   string `json:"created_on"`
	LastPaidOn  string `json:"last_paid_on"`
	ValidTill   string `json:"valid_till"`
	IsTrial     bool   `json:"is_trial"`
	Status      string `json:"status"`
}

func MatchIDRows(now time.Time, matchIDs []models.MatchID) []MatchIDRow {
	rows := make([]MatchIDRow, 0, len(matchIDs))
	for i := range matchIDs {
		m := &matchIDs[i]
		rows = append(rows, MatchIDRow{
			ID:          m.MatchID,
			ClusterName: m.ClusterName,
			CreatedOn:   formatDate(&m.CreatedOn),
			LastPaidOn:  formatDate(m.LastPaidOn),
			ValidTill:   formatDate(m.ValidTill),
			IsTrial:     m.IsTrial,
			Status:      m.Status(now),
		})
	}
	return rows
}

type ClusterRow struct {
	Name                string          `json:"name"`
	Price               decimal.Decimal `json:"price"`
	TimelineDays        int             `json:"timeline_days"`
	TrialPeriod         int             `json:"trial_period"`
	MatchIDType         string          `json:"match_id_type"`
	ActiveSubscriptions int64           `json:"active_subscriptions"`
	APIKey              string          `json:"api_key,omitempty"`
}

// ClusterRows lists one row per distinct embedded cluster name; the first
// occurrence in store order supplies the terms. Active subscriptions count
// identifiers of that cluster whose validity ends strictly after now.
func ClusterRows(now time.Time, users []models.UserProfile, matchIDs []models.MatchID, includeAPIKeys bool) []ClusterRow {
	active := make(map[string]int64)
	for i := range matchIDs {
		if v := matchIDs[i].ValidTill; v != nil && v.After(now) {
			active[matchIDs[i].ClusterName]++
		}
	}

	seen := make(map[string]struct{})
	rows := []ClusterRow{}
	for _, u := range users {
		for _, cl := range u.Clusters {
			if _, dup := seen[cl.ClusterName]; dup {
				continue
			}
			seen[cl.ClusterName] = struct{}{}

			row := ClusterRow{
				Name:                cl.ClusterName,
				Price:               cl.Price(),
				TimelineDays:        cl.TimelineDays,
				TrialPeriod:         cl.TrialPeriod,
				MatchIDType:         cl.MatchIDType,
				ActiveSubscriptions: active[cl.ClusterName],
			}
			if includeAPIKeys {
				row.APIKey = cl.APIKey
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// ClusterPerformance is revenue and payment count for one cluster.
type ClusterPerformance struct {
	Name    string          `json:"name"`
	Revenue decimal.Decimal `json:"revenue"`
	Count   int             `json:"count"`
}

type MonthAmount struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// Reports backs the reports page.
type Reports struct {
	MonthlyRevenue      []MonthAmount        `json:"monthly_revenue"`
	ClusterPerformance  []ClusterPerformance `json:"cluster_performance"`
	UserGrowth          []MonthCount         `json:"user_growth"`
	TotalRevenue        decimal.Decimal      `json:"total_revenue"`
	CompletedPayments   int                  `json:"completed_payments"`
	UnattributedRevenue decimal.Decimal      `json:"unattributed_revenue"`
	UnattributedCount   int                  `json:"unattributed_count"`
}

// BuildReports groups completed payments by month and by resolved cluster,
// and users by signup month. Months are taken in loc. Payments whose API key
// resolves to no cluster count toward the totals but not toward any cluster.
func BuildReports(users []models.UserProfile, payments []models.Payment, index *ClusterIndex, loc *time.Location) Reports {
	revenue := make(map[string]decimal.Decimal)
	perCluster := make(map[string]*ClusterPerformance)
	r := Reports{TotalRevenue: decimal.Zero, UnattributedRevenue: decimal.Zero}

	for i := range payments {
		p := &payments[i]
		if !p.IsCompleted() {
			continue
		}
		amount := p.AmountDecimal()
		r.TotalRevenue = r.TotalRevenue.Add(amount)
		r.CompletedPayments++

		if !p.PaymentDate.IsZero() {
			key := p.PaymentDate.In(loc).Format(monthLayout)
			revenue[key] = revenue[key].Add(amount)
		}

		name, ok := index.Resolve(p.APIKey)
		if !ok {
			r.UnattributedRevenue = r.UnattributedRevenue.Add(amount)
			r.UnattributedCount++
			continue
		}
		perf, ok := perCluster[name]
		if !ok {
			perf = &ClusterPerformance{Name: name, Revenue: decimal.Zero}
			perCluster[name] = perf
		}
		perf.Revenue = perf.Revenue.Add(amount)
		perf.Count++
	}

	growth := make(map[string]int)
	for _, u := range users {
		if u.CreatedAt == nil || u.CreatedAt.IsZero() {
			continue
		}
		growth[u.CreatedAt.In(loc).Format(monthLayout)]++
	}

	for _, month := range sortedKeys(revenue) {
		r.MonthlyRevenue = append(r.MonthlyRevenue, MonthAmount{Month: month, Amount: revenue[month]})
	}
	for _, month := range sortedKeys(growth) {
		r.UserGrowth = append(r.UserGrowth, MonthCount{Month: month, Count: growth[month]})
	}
	for _, perf := range perCluster {
		r.ClusterPerformance = append(r.ClusterPerformance, *perf)
	}
	sort.Slice(r.ClusterPerformance, func(i, j int) bool {
		a, b := r.ClusterPerformance[i], r.ClusterPerformance[j]
		if !a.Revenue.Equal(b.Revenue) {
			return a.Revenue.GreaterThan(b.Revenue)
		}
		return a.Name < b.Name
	})

	return r
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
