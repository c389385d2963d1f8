package reporting

import (
	"fmt"
	"time"

	"solsub-admin/internal/models"
	"solsub-admin/internal/pdf"
)

// PDF filename prefixes.
const (
	StatementFilePrefix = "cluster_report"
	GeneralFilePrefix   = "report"
)

var paymentColumns = []pdf.Column{
	{Header: "Payment ID", Weight: 2},
	{Header: "Match ID", Weight: 2},
	{Header: "Cluster", Weight: 1.5},
	{Header: "Date", Weight: 1.2},
	{Header: "Status", Weight: 1.1},
	{Header: "Amount", Weight: 1.1, Align: pdf.AlignRight},
}

var clusterRevenueColumns = []pdf.Column{
	{Header: "Cluster", Weight: 3},
	{Header: "Payments", Weight: 1, Align: pdf.AlignRight},
	{Header: "Revenue", Weight: 1.5, Align: pdf.AlignRight},
}

// Document renders the statement as a printable document.
func (s ClusterOwnerStatement) Document(now time.Time) *pdf.Document {
	meta := []pdf.KV{
		{Key: "User ID", Value: s.UserID},
		{Key: "Username", Value: s.Username},
		{Key: "Email", Value: s.Email},
		{Key: "Month", Value: s.Month},
	}
	if s.Bank != nil {
		meta = append(meta,
			pdf.KV{Key: "Bank", Value: s.Bank.BankName},
			pdf.KV{Key: "Account number", Value: s.Bank.AccountNumber},
			pdf.KV{Key: "IFSC code", Value: s.Bank.IFSCCode},
		)
	}

	payments := pdf.Table{
		Title: "Payments",
		Columns: []pdf.Column{
			{Header: "Payment ID", Weight: 2},
			{Header: "Match ID", Weight: 2},
			{Header: "Cluster", Weight: 1.5},
			{Header: "Date", Weight: 1.2},
			{Header: "Amount", Weight: 1.1, Align: pdf.AlignRight},
		},
		Total: []string{"Total", "", "", "", money(s.Total)},
		Empty: "No completed payments this month.",
	}
	for _, r := range s.Rows {
		payments.Rows = append(payments.Rows, []string{r.PaymentID, r.MatchID, r.ClusterName, r.Date, money(r.Amount)})
	}

	subtotals := pdf.Table{Title: "By cluster", Columns: clusterRevenueColumns}
	for _, c := range s.Subtotals {
		subtotals.Rows = append(subtotals.Rows, []string{c.Name, fmt.Sprint(c.Count), money(c.Revenue)})
	}
	subtotals.Total = []string{"Total", fmt.Sprint(len(s.Rows)), money(s.Total)}

	return &pdf.Document{
		Title:       "Cluster Owner Statement",
		Subtitle:    fmt.Sprintf("%s, %s", s.Username, s.Month),
		Meta:        meta,
		Sections:    []pdf.Table{payments, subtotals},
		GeneratedAt: now,
	}
}

// Document renders the report as a printable document.
func (r GeneralReport) Document() *pdf.Document {
	doc := &pdf.Document{
		Title:    r.Type.Title(),
		Subtitle: r.Range.Label,
		Meta: []pdf.KV{
			{Key: "Report type", Value: string(r.Type)},
			{Key: "Date range", Value: r.Range.Label},
		},
		GeneratedAt: r.GeneratedAt,
	}

	switch r.Type {
	case ReportDetailed:
		t := pdf.Table{Title: "Payments", Columns: paymentColumns, Empty: "No payments in range."}
		completed := 0
		for _, p := range r.Payments {
			t.Rows = append(t.Rows, []string{p.ID, p.MatchID, p.Cluster(), p.Date, p.Status, money(p.Amount)})
			if p.Status == models.PaymentCompleted {
				completed++
			}
		}
		t.Total = []string{"Completed revenue", "", "", "", fmt.Sprint(completed), money(r.TotalRevenue)}
		doc.Sections = append(doc.Sections, t)

	case ReportFinancial:
		monthly := pdf.Table{
			Title: "Monthly revenue",
			Columns: []pdf.Column{
				{Header: "Month", Weight: 3},
				{Header: "Revenue", Weight: 1.5, Align: pdf.AlignRight},
			},
			Total: []string{"Total", money(r.TotalRevenue)},
		}
		for _, m := range r.MonthlyRevenue {
			monthly.Rows = append(monthly.Rows, []string{m.Month, money(m.Amount)})
		}

		clusters := pdf.Table{Title: "Revenue by cluster", Columns: clusterRevenueColumns}
		count := 0
		for _, c := range r.ClusterRevenue {
			clusters.Rows = append(clusters.Rows, []string{c.Name, fmt.Sprint(c.Count), money(c.Revenue)})
			count += c.Count
		}
		if r.UnattributedCount > 0 {
			clusters.Rows = append(clusters.Rows, []string{"Unattributed", fmt.Sprint(r.UnattributedCount), money(r.UnattributedRevenue)})
			count += r.UnattributedCount
		}
		clusters.Total = []string{"Total", fmt.Sprint(count), money(r.TotalRevenue)}
		doc.Sections = append(doc.Sections, monthly, clusters)

	default:
		t := pdf.Table{
			Title: "Key metrics",
			Columns: []pdf.Column{
				{Header: "Metric", Weight: 3},
				{Header: "Value", Weight: 2, Align: pdf.AlignRight},
			},
		}
		for _, m := range r.Metrics {
			t.Rows = append(t.Rows, []string{m.Name, m.Value})
		}
		doc.Sections = append(doc.Sections, t)
	}
	return doc
}
