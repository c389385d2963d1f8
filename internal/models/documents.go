package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Document collections.
const (
	CollectionUsers    = "users"
	CollectionMatchIDs = "match_ids"
	CollectionPayments = "payments"
)

// Identifier issuance modes for embedded cluster subscriptions.
const (
	MatchIDTypeAdminGenerated = "admin_generated"
	MatchIDTypeUserCreated    = "user_created"
)

// Payment statuses as stored in the document store.
const (
	PaymentPending   = "Pending"
	PaymentCompleted = "Completed"
	PaymentFailed    = "Failed"
)

// Derived match identifier statuses.
const (
	StatusTrialActive = "Trial Active"
	StatusPaidActive  = "Paid Active"
	StatusInactive    = "Inactive"
)

// Bounds on embedded cluster subscriptions.
const (
	MinTimelineDays = 1
	MaxTimelineDays = 30
	MaxTrialPeriod  = 7
)

type BankDetails struct {
	BankName      string `bson:"bank_name,omitempty" json:"bank_name"`
	AccountNumber string `bson:"account_number,omitempty" json:"account_number"`
	IFSCCode      string `bson:"ifsc_code,omitempty" json:"ifsc_code"`
	BranchName    string `bson:"branch_name,omitempty" json:"branch_name"`
}

// ClusterDetails is a cluster subscription embedded in a user profile.
type ClusterDetails struct {
	ClusterName  string  `bson:"cluster_name" json:"cluster_name"`
	ClusterPrice float64 `bson:"cluster_price" json:"cluster_price"`
	TimelineDays int     `bson:"timeline_days" json:"timeline_days"`
	APIKey       string  `bson:"api_key,omitempty" json:"api_key"`
	MatchIDType  string  `bson:"match_id_type" json:"match_id_type"`
	TrialPeriod  int     `bson:"trial_period" json:"trial_period"`
}

// Price returns the subscription price rounded to cents.
func (d ClusterDetails) Price() decimal.Decimal {
	return decimal.NewFromFloat(d.ClusterPrice).Round(2)
}

type UserProfile struct {
	UserID      string           `bson:"user_id" json:"user_id"`
	Email       string           `bson:"email" json:"email"`
	Username    string           `bson:"username" json:"username"`
	CreatedAt   *time.Time       `bson:"created_at,omitempty" json:"created_at"`
	BankDetails *BankDetails     `bson:"bank_details,omitempty" json:"bank_details,omitempty"`
	Clusters    []ClusterDetails `bson:"clusters" json:"clusters"`
}

// APIKeys returns the API keys of the user's embedded clusters.
func (u *UserProfile) APIKeys() []string {
	keys := make([]string, 0, len(u.Clusters))
	for _, cl := range u.Clusters {
		if cl.APIKey != "" {
			keys = append(keys, cl.APIKey)
		}
	}
	return keys
}

// MatchID is a subscription identifier issued for a cluster.
type MatchID struct {
	MatchID     string     `bson:"match_id" json:"match_id"`
	ClusterName string     `bson:"cluster_name" json:"cluster_name"`
	CreatedOn   time.Time  `bson:"created_on" json:"created_on"`
	LastPaidOn  *time.Time `bson:"last_paid_on" json:"last_paid_on"`
	ValidTill   *time.Time `bson:"valid_till" json:"valid_till"`
	IsTrial     bool       `bson:"is_trial" json:"is_trial"`
}

// IsActive reports whether the identifier is valid at now (inclusive).
func (m *MatchID) IsActive(now time.Time) bool {
	return m.ValidTill != nil && !now.After(*m.ValidTill)
}

// Status derives the display status at now.
func (m *MatchID) Status(now time.Time) string {
	switch {
	case !m.IsActive(now):
		return StatusInactive
	case m.IsTrial:
		return StatusTrialActive
	default:
		return StatusPaidActive
	}
}

// Converted reports whether a trial identifier was paid after creation.
func (m *MatchID) Converted() bool {
	return m.LastPaidOn != nil && m.LastPaidOn.After(m.CreatedOn)
}

type Payment struct {
	PaymentID   string    `bson:"payment_id" json:"payment_id"`
	MatchID     string    `bson:"match_id" json:"match_id"`
	APIKey      string    `bson:"api_key" json:"api_key"`
	Amount      float64   `bson:"amount" json:"amount"`
	Status      string    `bson:"status" json:"status"`
	PaymentDate time.Time `bson:"payment_date" json:"payment_date"`
	UserEmail   string    `bson:"user_email,omitempty" json:"user_email,omitempty"`
}

// AmountDecimal returns the amount rounded to cents.
func (p *Payment) AmountDecimal() decimal.Decimal {
	return decimal.NewFromFloat(p.Amount).Round(2)
}

// IsCompleted reports whether the payment settled.
func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentCompleted
}
