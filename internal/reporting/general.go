package reporting

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "solsub-admin/internal/errors"
	"solsub-admin/internal/models"
)

type ReportType string

const (
	ReportSummary   ReportType = "summary"
	ReportDetailed  ReportType = "detailed"
	ReportFinancial ReportType = "financial"
)

func (t ReportType) Title() string {
	switch t {
	case ReportDetailed:
		return "Detailed Payment Report"
	case ReportFinancial:
		return "Financial Report"
	default:
		return "Summary Report"
	}
}

// DateRange is a trailing window ending at the time a report is built.
type DateRange struct {
	Key   string
	Label string
	Days  int // zero means unbounded
}

var dateRanges = map[string]DateRange{
	"7d":   {Key: "7d", Label: "Last 7 days", Days: 7},
	"30d":  {Key: "30d", Label: "Last 30 days", Days: 30},
	"90d":  {Key: "90d", Label: "Last 90 days", Days: 90},
	"365d": {Key: "365d", Label: "Last 365 days", Days: 365},
	"all":  {Key: "all", Label: "All time"},
}

const defaultDateRange = "30d"

// ReportTypes lists the report types in menu order.
func ReportTypes() []ReportType {
	return []ReportType{ReportSummary, ReportDetailed, ReportFinancial}
}

// DateRanges lists the selectable windows from shortest to unbounded.
func DateRanges() []DateRange {
	return []DateRange{dateRanges["7d"], dateRanges["30d"], dateRanges["90d"], dateRanges["365d"], dateRanges["all"]}
}

// ParseReportType defaults to the summary report.
func ParseReportType(value string) (ReportType, error) {
	switch t := ReportType(value); t {
	case "":
		return ReportSummary, nil
	case ReportSummary, ReportDetailed, ReportFinancial:
		return t, nil
	}
	return "", apperrors.WithDetails(apperrors.ErrInvalidReportType,
		fmt.Sprintf("report_type must be one of summary, detailed, financial; got %q", value), nil)
}

// ParseDateRange defaults to the last 30 days.
func ParseDateRange(value string) (DateRange, error) {
	if value == "" {
		value = defaultDateRange
	}
	r, ok := dateRanges[value]
	if !ok {
		return DateRange{}, apperrors.WithDetails(apperrors.ErrInvalidDateRange,
			fmt.Sprintf("date_range must be one of 7d, 30d, 90d, 365d, all; got %q", value), nil)
	}
	return r, nil
}

// Since returns the start of the window, or nil when unbounded.
func (r DateRange) Since(now time.Time) *time.Time {
	if r.Days == 0 {
		return nil
	}
	s := now.AddDate(0, 0, -r.Days)
	return &s
}

type Metric struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// GeneralReport is the data behind the downloadable summary, detailed and
// financial reports.
type GeneralReport struct {
	Type        ReportType
	Range       DateRange
	GeneratedAt time.Time

	Metrics  []Metric
	Payments []PaymentRow

	MonthlyRevenue      []MonthAmount
	ClusterRevenue      []ClusterPerformance
	TotalRevenue        decimal.Decimal
	UnattributedRevenue decimal.Decimal
	UnattributedCount   int
}

// ReportData is everything a general report may draw on. Payments must
// already be limited to the report's date range.
type ReportData struct {
	Users    []models.UserProfile
	MatchIDs []models.MatchID
	Payments []models.Payment
	Index    *ClusterIndex
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// BuildGeneralReport assembles the report of the given type.
func BuildGeneralReport(t ReportType, r DateRange, now time.Time, data ReportData) GeneralReport {
	rep := GeneralReport{Type: t, Range: r, GeneratedAt: now, TotalRevenue: decimal.Zero, UnattributedRevenue: decimal.Zero}

	switch t {
	case ReportDetailed:
		rep.Payments = PaymentRows(data.Payments, data.Index)
		for i := range data.Payments {
			if data.Payments[i].IsCompleted() {
				rep.TotalRevenue = rep.TotalRevenue.Add(data.Payments[i].AmountDecimal())
			}
		}
	case ReportFinancial:
		agg := BuildReports(nil, data.Payments, data.Index, now.Location())
		rep.MonthlyRevenue = agg.MonthlyRevenue
		rep.ClusterRevenue = agg.ClusterPerformance
		rep.TotalRevenue = agg.TotalRevenue
		rep.UnattributedRevenue = agg.UnattributedRevenue
		rep.UnattributedCount = agg.UnattributedCount
	default:
		rep.Metrics = summaryMetrics(r, now, data)
		rep.TotalRevenue = CompletedRevenue(data.Payments)
	}
	return rep
}

func summaryMetrics(r DateRange, now time.Time, data ReportData) []Metric {
	since := r.Since(now)
	newUsers := 0
	for _, u := range data.Users {
		if u.CreatedAt == nil {
			continue
		}
		if since == nil || !u.CreatedAt.Before(*since) {
			newUsers++
		}
	}

	byStatus := map[string]int{}
	for i := range data.Payments {
		byStatus[data.Payments[i].Status]++
	}

	return []Metric{
		{Name: "Total users", Value: fmt.Sprint(len(data.Users))},
		{Name: "New users", Value: fmt.Sprint(newUsers)},
		{Name: "Clusters", Value: fmt.Sprint(len(DistinctClusterNames(data.Users)))},
		{Name: "Active match IDs", Value: fmt.Sprint(CountActive(now, data.MatchIDs))},
		{Name: "Trial conversion rate", Value: fmt.Sprintf("%.1f%%", TrialConversionRate(data.MatchIDs))},
		{Name: "Completed payments", Value: fmt.Sprint(byStatus[models.PaymentCompleted])},
		{Name: "Pending payments", Value: fmt.Sprint(byStatus[models.PaymentPending])},
		{Name: "Failed payments", Value: fmt.Sprint(byStatus[models.PaymentFailed])},
		{Name: "Revenue", Value: money(CompletedRevenue(data.Payments))},
	}
}
