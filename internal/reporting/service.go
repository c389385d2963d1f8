package reporting

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"solsub-admin/internal/docstore"
	apperrors "solsub-admin/internal/errors"
	"solsub-admin/internal/models"
)

// Service loads documents from the store and aggregates them for the
// dashboard views.
type Service struct {
	store docstore.Store
	now   func() time.Time
}

func NewService(store docstore.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

func (s *Service) Now() time.Time {
	return s.now()
}

func storeError(op string, err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.WithDetails(apperrors.ErrStoreUnavailable, op, err)
}

// Dashboard computes the home page numbers.
func (s *Service) Dashboard(ctx context.Context) (DashboardStats, error) {
	now := s.now()
	var (
		stats    DashboardStats
		users    []models.UserProfile
		trials   []models.MatchID
		payments []models.Payment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = s.store.ListUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.ActiveMatchIDs, err = s.store.CountMatchIDs(gctx, docstore.MatchIDFilter{ValidAfter: &now})
		return err
	})
	g.Go(func() (err error) {
		trials, err = s.store.ListMatchIDs(gctx, docstore.MatchIDFilter{Trial: docstore.Bool(true)})
		return err
	})
	g.Go(func() (err error) {
		payments, err = s.store.ListPayments(gctx, docstore.PaymentFilter{Status: models.PaymentCompleted})
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardStats{}, storeError("load dashboard", err)
	}

	stats.UserCount = int64(len(users))
	stats.ClusterCount = len(DistinctClusterNames(users))
	stats.TotalRevenue = CompletedRevenue(payments)
	stats.TrialConversionRate = TrialConversionRate(trials)
	return stats, nil
}

func (s *Service) Users(ctx context.Context) ([]UserRow, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, storeError("list users", err)
	}
	return UserRows(users), nil
}

// Payments lists every payment with its cluster resolved through the
// embedded subscriptions of all users.
func (s *Service) Payments(ctx context.Context) ([]PaymentRow, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, storeError("list users", err)
	}
	payments, err := s.store.ListPayments(ctx, docstore.PaymentFilter{})
	if err != nil {
		return nil, storeError("list payments", err)
	}
	return PaymentRows(payments, NewClusterIndex(users)), nil
}

func (s *Service) MatchIDs(ctx context.Context) ([]MatchIDRow, error) {
	ids, err := s.store.ListMatchIDs(ctx, docstore.MatchIDFilter{})
	if err != nil {
		return nil, storeError("list match ids", err)
	}
	return MatchIDRows(s.now(), ids), nil
}

func (s *Service) Clusters(ctx context.Context, includeAPIKeys bool) ([]ClusterRow, error) {
	now := s.now()
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, storeError("list users", err)
	}
	active, err := s.store.ListMatchIDs(ctx, docstore.MatchIDFilter{ValidAfter: &now})
	if err != nil {
		return nil, storeError("list match ids", err)
	}
	return ClusterRows(now, users, active, includeAPIKeys), nil
}

func (s *Service) Reports(ctx context.Context) (Reports, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return Reports{}, storeError("list users", err)
	}
	payments, err := s.store.ListPayments(ctx, docstore.PaymentFilter{Status: models.PaymentCompleted})
	if err != nil {
		return Reports{}, storeError("list payments", err)
	}
	return BuildReports(users, payments, NewClusterIndex(users), s.now().Location()), nil
}

func (s *Service) Analytics(ctx context.Context) ([]AnalyticsPoint, error) {
	now := s.now()
	since, until := AnalyticsWindow(now)

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, storeError("list users", err)
	}
	payments, err := s.store.ListPayments(ctx, docstore.PaymentFilter{
		Status: models.PaymentCompleted,
		Since:  &since,
		Until:  &until,
	})
	if err != nil {
		return nil, storeError("list payments", err)
	}
	ids, err := s.store.ListMatchIDs(ctx, docstore.MatchIDFilter{})
	if err != nil {
		return nil, storeError("list match ids", err)
	}
	return AnalyticsSeries(now, payments, ids, NewClusterIndex(users)), nil
}

// UserDetail is the JSON shape of a single user lookup.
type UserDetail struct {
	ID          string                  `json:"id"`
	Username    string                  `json:"username"`
	Email       string                  `json:"email"`
	CreatedAt   string                  `json:"created_at"`
	BankDetails *models.BankDetails     `json:"bank_details,omitempty"`
	Clusters    []models.ClusterDetails `json:"clusters"`
}

func (s *Service) findUser(ctx context.Context, userID string) (*models.UserProfile, error) {
	user, err := s.store.FindUser(ctx, userID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, storeError("find user", err)
	}
	return user, nil
}

// UserDetail returns apperrors.ErrUserNotFound for unknown ids.
func (s *Service) UserDetail(ctx context.Context, userID string) (*UserDetail, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	clusters := user.Clusters
	if clusters == nil {
		clusters = []models.ClusterDetails{}
	}
	return &UserDetail{
		ID:          user.UserID,
		Username:    user.Username,
		Email:       user.Email,
		CreatedAt:   formatDate(user.CreatedAt),
		BankDetails: user.BankDetails,
		Clusters:    clusters,
	}, nil
}

// ClusterOwnerStatement builds the monthly statement for one user. month is
// YYYY-MM; empty selects the current month.
func (s *Service) ClusterOwnerStatement(ctx context.Context, userID, month string) (ClusterOwnerStatement, error) {
	now := s.now()
	start, err := ParseMonth(month, now)
	if err != nil {
		return ClusterOwnerStatement{}, err
	}
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return ClusterOwnerStatement{}, err
	}

	var payments []models.Payment
	if keys := user.APIKeys(); len(keys) > 0 {
		end := start.AddDate(0, 1, 0)
		payments, err = s.store.ListPayments(ctx, docstore.PaymentFilter{
			Status:  models.PaymentCompleted,
			Since:   &start,
			Until:   &end,
			APIKeys: keys,
		})
		if err != nil {
			return ClusterOwnerStatement{}, storeError("list payments", err)
		}
	}
	return BuildClusterOwnerStatement(user, start, payments), nil
}

// GeneralReport builds a summary, detailed or financial report over a
// trailing date range.
func (s *Service) GeneralReport(ctx context.Context, reportType, dateRange string) (GeneralReport, error) {
	t, err := ParseReportType(reportType)
	if err != nil {
		return GeneralReport{}, err
	}
	r, err := ParseDateRange(dateRange)
	if err != nil {
		return GeneralReport{}, err
	}
	now := s.now()

	var data ReportData
	data.Users, err = s.store.ListUsers(ctx)
	if err != nil {
		return GeneralReport{}, storeError("list users", err)
	}
	data.Index = NewClusterIndex(data.Users)

	filter := docstore.PaymentFilter{Since: r.Since(now)}
	if t == ReportFinancial {
		filter.Status = models.PaymentCompleted
	}
	data.Payments, err = s.store.ListPayments(ctx, filter)
	if err != nil {
		return GeneralReport{}, storeError("list payments", err)
	}
	if t == ReportSummary {
		data.MatchIDs, err = s.store.ListMatchIDs(ctx, docstore.MatchIDFilter{})
		if err != nil {
			return GeneralReport{}, storeError("list match ids", err)
		}
	}
	return BuildGeneralReport(t, r, now, data), nil
}
