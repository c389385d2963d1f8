package reporting

import "solsub-admin/internal/models"

// ClusterIndex maps API keys to the name of the embedded cluster that owns
// them. It is built once per request instead of scanning every user profile
// for each payment.
type ClusterIndex struct {
	byKey map[string]string
}

// NewClusterIndex indexes the embedded clusters of users. When two
// subscriptions share a key the first one in store order wins.
func NewClusterIndex(users []models.UserProfile) *ClusterIndex {
	idx := &ClusterIndex{byKey: make(map[string]string)}
	for _, u := range users {
		for _, cl := range u.Clusters {
			if cl.APIKey == "" {
				continue
			}
			if _, ok := idx.byKey[cl.APIKey]; !ok {
				idx.byKey[cl.APIKey] = cl.ClusterName
			}
		}
	}
	return idx
}

// Resolve returns the cluster name for apiKey.
func (i *ClusterIndex) Resolve(apiKey string) (string, bool) {
	if i == nil {
		return "", false
	}
	name, ok := i.byKey[apiKey]
	return name, ok
}

// Len returns the number of indexed keys.
func (i *ClusterIndex) Len() int {
	if i == nil {
		return 0
	}
	return len(i.byKey)
}
