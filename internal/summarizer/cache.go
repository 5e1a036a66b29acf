package summarizer

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketSummaries = []byte("summaries")

// CachedResult is a stored summarization outcome keyed by repository
// URL.
type CachedResult struct {
	Owner         string    `json:"owner"`
	Repo          string    `json:"repo"`
	Stars         int64     `json:"stars"`
	LatestVersion string    `json:"latest_version"`
	Summary       string    `json:"summary"`
	CoolFacts     []string  `json:"cool_facts"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// Cache stores summarization results in BoltDB so repeated requests for
// the same repository skip the GitHub round trips.
type Cache struct {
	db  *bolt.DB
	ttl time.Duration
}

// NewCache creates the summaries bucket on the provided BoltDB instance.
func NewCache(db *bolt.DB, ttl time.Duration) (*Cache, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSummaries)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create summaries bucket: %w", err)
	}
	return &Cache{db: db, ttl: ttl}, nil
}

// Get returns the cached result for the URL, or nil when absent or
// older than the TTL.
func (c *Cache) Get(url string) (*CachedResult, error) {
	var result *CachedResult

	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSummaries).Get([]byte(url))
		if data == nil {
			return nil
		}
		var r CachedResult
		if err := json.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("failed to unmarshal cached summary: %w", err)
		}
		if time.Since(r.FetchedAt) > c.ttl {
			return nil
		}
		result = &r
		return nil
	})
	return result, err
}

// Put stores the result for the URL, stamping FetchedAt when unset.
func (c *Cache) Put(url string, result *CachedResult) error {
	if result.FetchedAt.IsZero() {
		result.FetchedAt = time.Now()
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}
		return tx.Bucket(bucketSummaries).Put([]byte(url), data)
	})
}
