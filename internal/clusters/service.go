package clusters

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"solsub-admin/internal/docstore"
	apperrors "solsub-admin/internal/errors"
	"solsub-admin/internal/metrics"
	"solsub-admin/internal/models"
)

const defaultTimelineDays = 30

// Input carries the editable fields of a cluster configuration.
type Input struct {
	Name         string
	ClusterID    string
	Price        decimal.Decimal
	TimelineDays int
	TrialPeriod  int
}

func validationError(msg string) error {
	return apperrors.WithDetails(apperrors.ErrValidationFailed, msg, nil)
}

func (in *Input) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.ClusterID = strings.TrimSpace(in.ClusterID)
	in.Price = in.Price.Round(2)
}

// Validate checks the field constraints of a cluster configuration.
func (in Input) Validate() error {
	switch {
	case in.Name == "":
		return validationError("cluster_name is required")
	case len(in.Name) > 255:
		return validationError("cluster_name must be at most 255 characters")
	case in.ClusterID == "":
		return validationError("cluster_id is required")
	case len(in.ClusterID) > 100:
		return validationError("cluster_id must be at most 100 characters")
	case in.Price.IsNegative():
		return validationError("cluster_price must not be negative")
	case in.TimelineDays < 1:
		return validationError("timeline_days must be at least 1")
	case in.TrialPeriod < 0:
		return validationError("trial_period must not be negative")
	}
	return nil
}

func conflictError(field, value string) error {
	return apperrors.WithDetails(apperrors.ErrClusterConflict, fmt.Sprintf("%s %q is already in use", field, value), nil)
}

// checkUnique rejects a name or external id held by another configuration.
func checkUnique(db *gorm.DB, in Input, exceptID uint) error {
	var existing models.Cluster
	q := db.Where("cluster_name = ? OR cluster_id = ?", in.Name, in.ClusterID)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.WithDetails(apperrors.ErrStoreUnavailable, "check cluster uniqueness", err)
	}
	if existing.Name == in.Name {
		return conflictError("cluster_name", in.Name)
	}
	return conflictError("cluster_id", in.ClusterID)
}

func translateWriteError(err error, in Input) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return conflictError("cluster_name or cluster_id", in.Name)
	}
	return apperrors.WithDetails(apperrors.ErrStoreUnavailable, "write cluster", err)
}

// Create validates in and stores a new configuration. The API key is
// assigned by the model's create hook.
func Create(db *gorm.DB, in Input) (*models.Cluster, error) {
	if in.TimelineDays == 0 {
		in.TimelineDays = defaultTimelineDays
	}
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := checkUnique(db, in, 0); err != nil {
		return nil, err
	}

	cluster := models.Cluster{
		Name:         in.Name,
		ClusterID:    in.ClusterID,
		Price:        in.Price,
		TimelineDays: in.TimelineDays,
		TrialPeriod:  in.TrialPeriod,
	}
	if err := db.Create(&cluster).Error; err != nil {
		return nil, translateWriteError(err, in)
	}
	metrics.APIKeysGenerated.Inc()

	logrus.WithFields(logrus.Fields{
		"cluster":    cluster.Name,
		"cluster_id": cluster.ClusterID,
	}).Info("Cluster configuration created")
	return &cluster, nil
}

func Get(db *gorm.DB, id uint) (*models.Cluster, error) {
	var cluster models.Cluster
	err := db.First(&cluster, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrClusterNotFound
	}
	if err != nil {
		return nil, apperrors.WithDetails(apperrors.ErrStoreUnavailable, "load cluster", err)
	}
	return &cluster, nil
}

func List(db *gorm.DB) ([]models.Cluster, error) {
	clusters := []models.Cluster{}
	if err := db.Order("cluster_name ASC").Find(&clusters).Error; err != nil {
		return nil, apperrors.WithDetails(apperrors.ErrStoreUnavailable, "list clusters", err)
	}
	return clusters, nil
}

// Patch holds optional changes to a configuration. The API key is not
// editable.
type Patch struct {
	Name         *string
	ClusterID    *string
	Price        *decimal.Decimal
	TimelineDays *int
	TrialPeriod  *int
}

func (p Patch) apply(c *models.Cluster) Input {
	in := Input{
		Name:         c.Name,
		ClusterID:    c.ClusterID,
		Price:        c.Price,
		TimelineDays: c.TimelineDays,
		TrialPeriod:  c.TrialPeriod,
	}
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.ClusterID != nil {
		in.ClusterID = *p.ClusterID
	}
	if p.Price != nil {
		in.Price = *p.Price
	}
	if p.TimelineDays != nil {
		in.TimelineDays = *p.TimelineDays
	}
	if p.TrialPeriod != nil {
		in.TrialPeriod = *p.TrialPeriod
	}
	return in
}

// Update applies p to the configuration with the given id.
func Update(db *gorm.DB, id uint, p Patch) (*models.Cluster, error) {
	cluster, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	in := p.apply(cluster)
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := checkUnique(db, in, cluster.ID); err != nil {
		return nil, err
	}

	err = db.Model(cluster).Updates(map[string]interface{}{
		"cluster_name":  in.Name,
		"cluster_id":    in.ClusterID,
		"cluster_price": in.Price,
		"timeline_days": in.TimelineDays,
		"trial_period":  in.TrialPeriod,
	}).Error
	if err != nil {
		return nil, translateWriteError(err, in)
	}
	return Get(db, id)
}

func Delete(db *gorm.DB, id uint) error {
	res := db.Delete(&models.Cluster{}, id)
	if res.Error != nil {
		return apperrors.WithDetails(apperrors.ErrStoreUnavailable, "delete cluster", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrClusterNotFound
	}
	return nil
}

func findByExternalID(db *gorm.DB, clusterID string) (*models.Cluster, error) {
	var cluster models.Cluster
	err := db.Where("cluster_id = ?", clusterID).First(&cluster).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrClusterNotFound
	}
	if err != nil {
		return nil, apperrors.WithDetails(apperrors.ErrStoreUnavailable, "load cluster", err)
	}
	return &cluster, nil
}

// Subscription builds the embedded subscription a user receives for
// cluster and checks it against the document bounds.
func Subscription(cluster *models.Cluster, matchIDType string) (models.ClusterDetails, error) {
	if matchIDType == "" {
		matchIDType = models.MatchIDTypeAdminGenerated
	}
	if matchIDType != models.MatchIDTypeAdminGenerated && matchIDType != models.MatchIDTypeUserCreated {
		return models.ClusterDetails{}, validationError(fmt.Sprintf("match_id_type must be %s or %s", models.MatchIDTypeAdminGenerated, models.MatchIDTypeUserCreated))
	}
	if cluster.TimelineDays < models.MinTimelineDays || cluster.TimelineDays > models.MaxTimelineDays {
		return models.ClusterDetails{}, validationError(fmt.Sprintf("timeline_days must be between %d and %d", models.MinTimelineDays, models.MaxTimelineDays))
	}
	if cluster.TrialPeriod < 0 || cluster.TrialPeriod > models.MaxTrialPeriod {
		return models.ClusterDetails{}, validationError(fmt.Sprintf("trial_period must be between 0 and %d", models.MaxTrialPeriod))
	}

	return models.ClusterDetails{
		ClusterName:  cluster.Name,
		ClusterPrice: cluster.Price.InexactFloat64(),
		TimelineDays: cluster.TimelineDays,
		APIKey:       cluster.APIKey,
		MatchIDType:  matchIDType,
		TrialPeriod:  cluster.TrialPeriod,
	}, nil
}

// AttachToUser embeds the configuration with external id clusterID in the
// user's profile. A cluster name may be held by one user only.
func AttachToUser(ctx context.Context, db *gorm.DB, store docstore.Store, userID, clusterID, matchIDType string) (*models.ClusterDetails, error) {
	cluster, err := findByExternalID(db, clusterID)
	if err != nil {
		return nil, err
	}
	sub, err := Subscription(cluster, matchIDType)
	if err != nil {
		return nil, err
	}

	err = store.AddUserCluster(ctx, userID, sub)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return nil, apperrors.ErrUserNotFound
	case errors.Is(err, docstore.ErrClusterNameTaken):
		return nil, conflictError("cluster_name", sub.ClusterName)
	case err != nil:
		return nil, apperrors.WithDetails(apperrors.ErrStoreUnavailable, "attach cluster", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"cluster": sub.ClusterName,
	}).Info("Cluster attached to user")
	return &sub, nil
}
