package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"solsub-admin/internal/models"
)

func TestMatchIDQuery(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, bson.M{}, matchIDQuery(MatchIDFilter{}))
	assert.Equal(t, bson.M{
		"cluster_name": "alpha",
		"is_trial":     true,
		"valid_till":   bson.M{"$gt": now},
	}, matchIDQuery(MatchIDFilter{ClusterName: "alpha", Trial: Bool(true), ValidAfter: &now}))
}

func TestAddClusterFilter(t *testing.T) {
	assert.Equal(t, bson.M{
		"user_id":               "u1",
		"clusters.cluster_name": bson.M{"$ne": "alpha"},
	}, addClusterFilter("u1", "alpha"))
}

func TestPaymentQuery(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := since.AddDate(0, 1, 0)

	q := paymentQuery(PaymentFilter{Status: models.PaymentCompleted, Since: &since, Until: &until, APIKeys: []string{"k1"}})
	assert.Equal(t, bson.M{
		"status":       models.PaymentCompleted,
		"payment_date": bson.M{"$gte": since, "$lt": until},
		"api_key":      bson.M{"$in": []string{"k1"}},
	}, q)

	assert.Equal(t, bson.M{"payment_date": bson.M{"$gte": since}}, paymentQuery(PaymentFilter{Since: &since}))
}

func TestMatchIDFilter_Matches(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)

	active := models.MatchID{ClusterName: "alpha", ValidTill: &later, IsTrial: true}
	noExpiry := models.MatchID{ClusterName: "alpha"}

	assert.True(t, MatchIDFilter{}.Matches(&active))
	assert.True(t, MatchIDFilter{ValidAfter: &now}.Matches(&active))
	assert.False(t, MatchIDFilter{ValidAfter: &later}.Matches(&active), "valid_till must be strictly after")
	assert.False(t, MatchIDFilter{ValidAfter: &now}.Matches(&noExpiry))
	assert.False(t, MatchIDFilter{ClusterName: "beta"}.Matches(&active))
	assert.False(t, MatchIDFilter{Trial: Bool(false)}.Matches(&active))
}

func TestPaymentFilter_Matches(t *testing.T) {
	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	p := models.Payment{Status: models.PaymentCompleted, PaymentDate: day, APIKey: "k1"}

	since := day
	until := day
	assert.True(t, PaymentFilter{Since: &since}.Matches(&p), "since is inclusive")
	assert.False(t, PaymentFilter{Until: &until}.Matches(&p), "until is exclusive")
	assert.False(t, PaymentFilter{Status: models.PaymentFailed}.Matches(&p))
	assert.True(t, PaymentFilter{APIKeys: []string{"k0", "k1"}}.Matches(&p))
	assert.False(t, PaymentFilter{APIKeys: []string{"k0"}}.Matches(&p))
}
