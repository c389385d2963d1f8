package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solsub-admin/internal/docstore"
	"solsub-admin/internal/docstore/docstoretest"
	"solsub-admin/internal/models"
)

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func daysFromNow(d int) *time.Time {
	t := fixedNow.AddDate(0, 0, d)
	return &t
}

func fixtureStore() *docstoretest.MemoryStore {
	joined := fixedNow.AddDate(0, -2, 0)
	return docstoretest.New().
		AddUsers(
			models.UserProfile{
				UserID:    "u1",
				Email:     "alice@example.com",
				Username:  "alice",
				CreatedAt: &joined,
				BankDetails: &models.BankDetails{
					BankName:      "First Bank",
					AccountNumber: "000123",
					IFSCCode:      "FB0001",
					BranchName:    "Main",
				},
				Clusters: []models.ClusterDetails{
					{ClusterName: "alpha", ClusterPrice: 49.99, TimelineDays: 30, APIKey: "key-alpha", MatchIDType: models.MatchIDTypeAdminGenerated},
				},
			},
			models.UserProfile{UserID: "u2", Email: "bob@example.com", Username: "bob"},
		).
		AddMatchIDs(
			models.MatchID{MatchID: "m1", ClusterName: "alpha", CreatedOn: *daysFromNow(-20), LastPaidOn: daysFromNow(-5), ValidTill: daysFromNow(25), IsTrial: true},
		).
		AddPayments(
			models.Payment{PaymentID: "p1", MatchID: "m1", APIKey: "key-alpha", Amount: 49.99, Status: models.PaymentCompleted, PaymentDate: *daysFromNow(-5), UserEmail: "payer@example.com"},
			models.Payment{PaymentID: "p2", MatchID: "m9", APIKey: "key-gone", Amount: 10, Status: models.PaymentCompleted, PaymentDate: *daysFromNow(-4)},
		)
}

func setup(t *testing.T) (*gin.Engine, *docstoretest.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := fixtureStore()
	prevStore, prevClock := docstore.Default, Clock
	docstore.Default = store
	Clock = func() time.Time { return fixedNow }
	t.Cleanup(func() {
		docstore.Default, Clock = prevStore, prevClock
	})

	r := gin.New()
	r.GET("/", HandleDashboard)
	r.GET("/users/", HandleUsers)
	r.GET("/payments/", HandlePayments)
	r.GET("/match-ids/", HandleMatchIDs)
	r.GET("/clusters/", HandleClusters)
	r.GET("/reports/", HandleReports)
	r.GET("/reports/cluster-owner/", HandleClusterOwnerReport)
	r.GET("/reports/generate/", HandleGenerateReport)
	r.GET("/api/analytics/", HandleAnalyticsData)
	r.GET("/api/clusters/", HandleClusterData)
	r.GET("/api/users/:user_id/", HandleUserDetail)
	return r, store
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestPages(t *testing.T) {
	r, _ := setup(t)

	tests := []struct {
		path     string
		contains string
	}{
		{"/", "Dashboard"},
		{"/users/", "alice@example.com"},
		{"/payments/", "p1"},
		{"/match-ids/", "m1"},
		{"/clusters/", "key-alpha"},
		{"/reports/", "summary"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(r, tt.path)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}
}

func TestPages_StoreFailure(t *testing.T) {
	r, store := setup(t)
	store.Err = errors.New("connection refused")

	for _, path := range []string{"/", "/users/", "/payments/", "/match-ids/", "/clusters/", "/reports/"} {
		w := get(r, path)
		assert.Equal(t, http.StatusInternalServerError, w.Code, path)
		assert.NotContains(t, w.Body.String(), "connection refused", path)
	}
}

func TestClusterOwnerReport_Page(t *testing.T) {
	r, _ := setup(t)

	w := get(r, "/reports/cluster-owner/?user_id=u1&month=2026-03")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.Contains(t, body, "Statement: alice")
	assert.Contains(t, body, "First Bank")
	assert.Contains(t, body, "49.99")
}

func TestClusterOwnerReport_JSON(t *testing.T) {
	r, _ := setup(t)

	w := get(r, "/reports/cluster-owner/?user_id=u1&format=json")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success   bool `json:"success"`
		Statement struct {
			Month string          `json:"month"`
			Total decimal.Decimal `json:"total"`
			Rows  []struct {
				PaymentID string `json:"payment_id"`
			} `json:"rows"`
		} `json:"statement"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "2026-03", resp.Statement.Month)
	assert.True(t, decimal.RequireFromString("49.99").Equal(resp.Statement.Total))
	require.Len(t, resp.Statement.Rows, 1, "payments for keys the user does not own are excluded")
}

func TestClusterOwnerReport_PDF(t *testing.T) {
	r, _ := setup(t)

	w := get(r, "/reports/cluster-owner/?user_id=u1&month=2026-03&format=pdf")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="cluster_report_20260315_120000.pdf"`, w.Header().Get("Content-Disposition"))
	assert.True(t, len(w.Body.Bytes()) > 5 && string(w.Body.Bytes()[:5]) == "%PDF-")
}

func TestClusterOwnerReport_Errors(t *testing.T) {
	r, _ := setup(t)

	assert.Equal(t, http.StatusBadRequest, get(r, "/reports/cluster-owner/").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/reports/cluster-owner/?user_id=u1&month=March").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/reports/cluster-owner/?user_id=nobody").Code)

	w := get(r, "/reports/cluster-owner/?user_id=nobody&format=json")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "USER_NOT_FOUND")
}

func TestGenerateReport(t *testing.T) {
	r, _ := setup(t)

	for _, reportType := range []string{"summary", "detailed", "financial"} {
		t.Run(reportType, func(t *testing.T) {
			w := get(r, "/reports/generate/?report_type="+reportType+"&date_range=30d")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
			assert.Equal(t, `attachment; filename="report_20260315_120000.pdf"`, w.Header().Get("Content-Disposition"))
		})
	}

	assert.Equal(t, http.StatusBadRequest, get(r, "/reports/generate/?report_type=bogus").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/reports/generate/?report_type=summary&date_range=2w").Code)
}

func TestAnalyticsData(t *testing.T) {
	r, _ := setup(t)

	w := get(r, "/api/analytics/")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 6)
}

func TestClusterData_OmitsAPIKeys(t *testing.T) {
	r, _ := setup(t)

	w := get(r, "/api/clusters/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alpha")
	assert.NotContains(t, w.Body.String(), "key-alpha")
}

func TestUserDetail(t *testing.T) {
	r, _ := setup(t)

	w := get(r, "/api/users/u1/")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool `json:"success"`
		User    struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "alice@example.com", resp.User.Email)

	w = get(r, "/api/users/missing/")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"User not found"}`, w.Body.String())
}

func TestAPI_StoreFailure(t *testing.T) {
	r, store := setup(t)
	store.Err = errors.New("connection refused")

	for _, path := range []string{"/api/analytics/", "/api/clusters/", "/api/users/u1/"} {
		w := get(r, path)
		assert.Equal(t, http.StatusInternalServerError, w.Code, path)
		assert.Contains(t, w.Body.String(), "STORE_UNAVAILABLE", path)
	}
}
