package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"solsub-admin/internal/config"
	"solsub-admin/internal/models"
)

// MongoStore implements Store on MongoDB.
type MongoStore struct {
	client         *mongo.Client
	users          *mongo.Collection
	matchIDs       *mongo.Collection
	payments       *mongo.Collection
	requestTimeout time.Duration
}

// NewMongoStore connects to MongoDB and verifies the primary is reachable.
func NewMongoStore(cfg config.MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo uri not configured")
	}
	if cfg.Database == "" {
		return nil, errors.New("mongo database not configured")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	client, err := connectMongoClient(cfg.AppName, cfg.URI, timeout)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	db := client.Database(cfg.Database)
	logrus.WithField("database", cfg.Database).Info("Document store connected")

	return &MongoStore{
		client:         client,
		users:          db.Collection(models.CollectionUsers),
		matchIDs:       db.Collection(models.CollectionMatchIDs),
		payments:       db.Collection(models.CollectionPayments),
		requestTimeout: timeout,
	}, nil
}

func connectMongoClient(appName, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout+2*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetAppName(appName).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.requestTimeout)
}

// EnsureIndexes creates the lookup indexes the dashboard relies on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*s.requestTimeout)
	defer cancel()

	specs := []struct {
		coll    *mongo.Collection
		indexes []mongo.IndexModel
	}{
		{s.users, []mongo.IndexModel{
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetName("uniq_user_id").SetUnique(true)},
			{Keys: bson.D{{Key: "clusters.api_key", Value: 1}}, Options: options.Index().SetName("idx_clusters_api_key")},
			{Keys: bson.D{{Key: "clusters.cluster_name", Value: 1}}, Options: options.Index().SetName("idx_clusters_cluster_name")},
		}},
		{s.matchIDs, []mongo.IndexModel{
			{Keys: bson.D{{Key: "match_id", Value: 1}}, Options: options.Index().SetName("uniq_match_id").SetUnique(true)},
			{Keys: bson.D{{Key: "cluster_name", Value: 1}, {Key: "valid_till", Value: 1}}, Options: options.Index().SetName("idx_cluster_valid_till")},
		}},
		{s.payments, []mongo.IndexModel{
			{Keys: bson.D{{Key: "payment_id", Value: 1}}, Options: options.Index().SetName("uniq_payment_id").SetUnique(true)},
			{Keys: bson.D{{Key: "match_id", Value: 1}}, Options: options.Index().SetName("idx_match_id")},
			{Keys: bson.D{{Key: "payment_date", Value: -1}}, Options: options.Index().SetName("idx_payment_date_desc")},
			{Keys: bson.D{{Key: "api_key", Value: 1}}, Options: options.Index().SetName("idx_api_key")},
		}},
	}

	for _, spec := range specs {
		if _, err := spec.coll.Indexes().CreateMany(ctx, spec.indexes); err != nil {
			return fmt.Errorf("create indexes on %s: %w", spec.coll.Name(), err)
		}
	}
	return nil
}

func (s *MongoStore) ListUsers(ctx context.Context) ([]models.UserProfile, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	users := []models.UserProfile{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (s *MongoStore) CountUsers(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.users.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *MongoStore) FindUser(ctx context.Context, userID string) (*models.UserProfile, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var user models.UserProfile
	err := s.users.FindOne(ctx, bson.M{"user_id": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", userID, err)
	}
	return &user, nil
}

func (s *MongoStore) ClusterNameExists(ctx context.Context, clusterName string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.users.CountDocuments(ctx, bson.M{"clusters.cluster_name": clusterName}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check cluster name: %w", err)
	}
	return n > 0, nil
}

// AddUserCluster appends an embedded cluster subscription. Names held by
// other users are rejected by a read before the write; the update itself only
// guards against the target user already holding the name, so two concurrent
// calls for different users can still both succeed.
func (s *MongoStore) AddUserCluster(ctx context.Context, userID string, cluster models.ClusterDetails) error {
	exists, err := s.ClusterNameExists(ctx, cluster.ClusterName)
	if err != nil {
		return err
	}
	if exists {
		return ErrClusterNameTaken
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.users.UpdateOne(ctx,
		addClusterFilter(userID, cluster.ClusterName),
		bson.M{"$push": bson.M{"clusters": cluster}},
	)
	if err != nil {
		return fmt.Errorf("add cluster to user %s: %w", userID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// addClusterFilter matches the target user only while that user does not
// already hold name.
func addClusterFilter(userID, name string) bson.M {
	return bson.M{"user_id": userID, "clusters.cluster_name": bson.M{"$ne": name}}
}

func matchIDQuery(f MatchIDFilter) bson.M {
	q := bson.M{}
	if f.ClusterName != "" {
		q["cluster_name"] = f.ClusterName
	}
	if f.Trial != nil {
		q["is_trial"] = *f.Trial
	}
	if f.ValidAfter != nil {
		q["valid_till"] = bson.M{"$gt": *f.ValidAfter}
	}
	return q
}

func (s *MongoStore) ListMatchIDs(ctx context.Context, filter MatchIDFilter) ([]models.MatchID, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.matchIDs.Find(ctx, matchIDQuery(filter), options.Find().SetSort(bson.D{{Key: "created_on", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find match ids: %w", err)
	}
	ids := []models.MatchID{}
	if err := cur.All(ctx, &ids); err != nil {
		return nil, fmt.Errorf("decode match ids: %w", err)
	}
	return ids, nil
}

func (s *MongoStore) CountMatchIDs(ctx context.Context, filter MatchIDFilter) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.matchIDs.CountDocuments(ctx, matchIDQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("count match ids: %w", err)
	}
	return n, nil
}

func paymentQuery(f PaymentFilter) bson.M {
	q := bson.M{}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.Since != nil || f.Until != nil {
		dateQ := bson.M{}
		if f.Since != nil {
			dateQ["$gte"] = *f.Since
		}
		if f.Until != nil {
			dateQ["$lt"] = *f.Until
		}
		q["payment_date"] = dateQ
	}
	if len(f.APIKeys) > 0 {
		q["api_key"] = bson.M{"$in": f.APIKeys}
	}
	return q
}

func (s *MongoStore) ListPayments(ctx context.Context, filter PaymentFilter) ([]models.Payment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.payments.Find(ctx, paymentQuery(filter), options.Find().SetSort(bson.D{{Key: "payment_date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find payments: %w", err)
	}
	payments := []models.Payment{}
	if err := cur.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("decode payments: %w", err)
	}
	return payments, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
