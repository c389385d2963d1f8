package reporting

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "solsub-admin/internal/errors"
	"solsub-admin/internal/models"
)

// StatementRow is one settled payment on a cluster owner statement.
type StatementRow struct {
	PaymentID   string          `json:"payment_id"`
	MatchID     string          `json:"match_id"`
	ClusterName string          `json:"cluster_name"`
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	PayerEmail  string          `json:"payer_email"`
}

// ClusterOwnerStatement lists what one user's clusters earned in a month.
type ClusterOwnerStatement struct {
	UserID    string               `json:"user_id"`
	Username  string               `json:"username"`
	Email     string               `json:"email"`
	Month     string               `json:"month"`
	Bank      *models.BankDetails  `json:"bank_details,omitempty"`
	Rows      []StatementRow       `json:"rows"`
	Subtotals []ClusterPerformance `json:"subtotals"`
	Total     decimal.Decimal      `json:"total"`
}

// ParseMonth parses a YYYY-MM value into the first instant of that month.
// An empty value selects the month of now.
func ParseMonth(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return monthStart(now), nil
	}
	m, err := time.ParseInLocation(monthLayout, value, now.Location())
	if err != nil {
		return time.Time{}, apperrors.WithDetails(apperrors.ErrValidationFailed,
			fmt.Sprintf("month must be formatted YYYY-MM, got %q", value), err)
	}
	return m, nil
}

// BuildClusterOwnerStatement keeps the completed payments dated within
// [month, month+1) whose API key belongs to one of the user's clusters.
func BuildClusterOwnerStatement(user *models.UserProfile, month time.Time, payments []models.Payment) ClusterOwnerStatement {
	owned := NewClusterIndex([]models.UserProfile{*user})
	start := monthStart(month)
	end := start.AddDate(0, 1, 0)

	st := ClusterOwnerStatement{
		UserID:   user.UserID,
		Username: user.Username,
		Email:    user.Email,
		Month:    start.Format(monthLayout),
		Bank:     user.BankDetails,
		Rows:     []StatementRow{},
		Total:    decimal.Zero,
	}

	sub := make(map[string]*ClusterPerformance)
	for i := range payments {
		p := &payments[i]
		if !p.IsCompleted() || p.PaymentDate.Before(start) || !p.PaymentDate.Before(end) {
			continue
		}
		name, ok := owned.Resolve(p.APIKey)
		if !ok {
			continue
		}
		amount := p.AmountDecimal()
		paid := p.PaymentDate.In(start.Location())
		st.Rows = append(st.Rows, StatementRow{
			PaymentID:   p.PaymentID,
			MatchID:     p.MatchID,
			ClusterName: name,
			Date:        formatDate(&paid),
			Amount:      amount,
			PayerEmail:  p.UserEmail,
		})
		st.Total = st.Total.Add(amount)

		perf, ok := sub[name]
		if !ok {
			perf = &ClusterPerformance{Name: name, Revenue: decimal.Zero}
			sub[name] = perf
		}
		perf.Revenue = perf.Revenue.Add(amount)
		perf.Count++
	}

	for _, name := range sortedKeys(sub) {
		st.Subtotals = append(st.Subtotals, *sub[name])
	}
	return st
}
