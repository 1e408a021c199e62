package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"signalsift/types"

	"github.com/redis/go-redis/v9"
)

const (
	itemKeyPrefix    = "signalsift:item:"
	batchIndexPrefix = "signalsift:batch:"
	clusterKeyPrefix = "signalsift:cluster:"
)

// RecordStore persists processed items and clusters in Redis so scored
// batches survive restarts and the retrieval layer can serve historic
// corpora. Values are JSON blobs keyed by id, with a per-batch set as the
// index.
type RecordStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRecordStoreFromEnv creates a RecordStore using REDIS_ADDR, REDIS_PASS
// and RECORD_TTL_SECONDS.
func NewRecordStoreFromEnv() (*RecordStore, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	ttl := 7 * 24 * time.Hour
	if t := os.Getenv("RECORD_TTL_SECONDS"); t != "" {
		var secs int
		if _, err := fmt.Sscanf(t, "%d", &secs); err == nil && secs > 0 {
			ttl = time.Duration(secs) * time.Second
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASS"),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RecordStore{client: client, ttl: ttl}, nil
}

// NewRecordStoreWithClient creates a RecordStore around an existing client.
// Used by tests and callers that manage the connection themselves.
func NewRecordStoreWithClient(client *redis.Client, ttl time.Duration) *RecordStore {
	return &RecordStore{client: client, ttl: ttl}
}

// Close closes the underlying Redis client
func (s *RecordStore) Close() error {
	return s.client.Close()
}

// SaveBatch writes every item and cluster of a processed batch and indexes
// the item ids under the batch key.
func (s *RecordStore) SaveBatch(ctx context.Context, result *types.BatchResult) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pipe := s.client.TxPipeline()
	batchKey := batchIndexPrefix + result.BatchID

	for _, item := range result.Items {
		blob, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshaling item %s: %w", item.ID, err)
		}
		pipe.Set(ctx, itemKeyPrefix+item.ID, blob, s.ttl)
		pipe.SAdd(ctx, batchKey, item.ID)
	}
	for _, cluster := range result.Clusters {
		blob, err := json.Marshal(cluster)
		if err != nil {
			return fmt.Errorf("marshaling cluster %s: %w", cluster.ID, err)
		}
		pipe.Set(ctx, clusterKeyPrefix+cluster.ID, blob, s.ttl)
	}
	pipe.Expire(ctx, batchKey, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("persisting batch %s: %w", result.BatchID, err)
	}
	return nil
}

// GetItem fetches one item by id. Returns (nil, nil) when the key is
// missing or expired.
func (s *RecordStore) GetItem(ctx context.Context, id string) (*types.ContentItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	blob, err := s.client.Get(ctx, itemKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching item %s: %w", id, err)
	}

	var item types.ContentItem
	if err := json.Unmarshal(blob, &item); err != nil {
		return nil, fmt.Errorf("decoding item %s: %w", id, err)
	}
	return &item, nil
}

// BatchItems fetches every surviving item of one batch. Expired items are
// skipped silently.
func (s *RecordStore) BatchItems(ctx context.Context, batchID string) ([]*types.ContentItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ids, err := s.client.SMembers(ctx, batchIndexPrefix+batchID).Result()
	if err != nil {
		return nil, fmt.Errorf("listing batch %s: %w", batchID, err)
	}

	items := make([]*types.ContentItem, 0, len(ids))
	for _, id := range ids {
		item, err := s.GetItem(ctx, id)
		if err != nil {
			return nil, err
		}
		if item != nil {
			items = append(items, item)
		}
	}
	return items, nil
}

// GetCluster fetches one cluster by id. Returns (nil, nil) when missing.
func (s *RecordStore) GetCluster(ctx context.Context, id string) (*types.ContentCluster, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	blob, err := s.client.Get(ctx, clusterKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching cluster %s: %w", id, err)
	}

	var cluster types.ContentCluster
	if err := json.Unmarshal(blob, &cluster); err != nil {
		return nil, fmt.Errorf("decoding cluster %s: %w", id, err)
	}
	return &cluster, nil
}
