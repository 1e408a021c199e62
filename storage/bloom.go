package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"signalsift/types"

	"github.com/redis/go-redis/v9"
)

// BloomConfig configures RedisBloom connection and key
type BloomConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
	Key      string // redis key for bloom filter
	TTL      time.Duration
	// Capacity sets the initial BF.RESERVE capacity (number of items)
	Capacity int
	// ErrorRate sets the desired false positive probability (e.g. 0.001)
	ErrorRate float64
	// If true, BF.RESERVE NONSCALING flag will be used
	NonScaling bool
}

// SeenFilter is a Redis-backed Bloom filter over item fingerprints. It
// prefilters cross-batch repeats before the embedding-based clustering pass
// runs; a positive answer may be a false positive, a negative never is.
type SeenFilter struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewSeenFilterFromEnv creates a SeenFilter using environment variables
// REDIS_ADDR, REDIS_PASS, BLOOM_KEY (optional), BLOOM_TTL_SECONDS (optional)
func NewSeenFilterFromEnv() (*SeenFilter, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	pass := os.Getenv("REDIS_PASS")
	key := os.Getenv("BLOOM_KEY")
	if key == "" {
		key = "signalsift:items:bloom"
	}
	ttl := 24 * time.Hour
	if t := os.Getenv("BLOOM_TTL_SECONDS"); t != "" {
		if secs, err := strconv.Atoi(t); err == nil && secs > 0 {
			ttl = time.Duration(secs) * time.Second
		}
	}

	capacity := 100000
	if c := os.Getenv("BLOOM_CAPACITY"); c != "" {
		if v, err := strconv.Atoi(c); err == nil && v > 0 {
			capacity = v
		}
	}
	errorRate := 0.001
	if e := os.Getenv("BLOOM_ERROR_RATE"); e != "" {
		if v, err := strconv.ParseFloat(e, 64); err == nil && v > 0 {
			errorRate = v
		}
	}
	nonScaling := false
	if ns := os.Getenv("BLOOM_NONSCALING"); ns != "" {
		if b, err := strconv.ParseBool(ns); err == nil {
			nonScaling = b
		}
	}

	cfg := BloomConfig{Addr: addr, Password: pass, DB: 0, Key: key, TTL: ttl, Capacity: capacity, ErrorRate: errorRate, NonScaling: nonScaling}
	return NewSeenFilter(cfg)
}

// NewSeenFilter creates a SeenFilter and verifies connectivity
func NewSeenFilter(cfg BloomConfig) (*SeenFilter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	sf := &SeenFilter{client: client, key: cfg.Key, ttl: cfg.TTL}

	// Reserve the filter up front when it doesn't exist yet. If the
	// RedisBloom module is missing or BF.RESERVE fails, BF.ADD may still
	// auto-create the filter, so the error is not fatal.
	exists, err := client.Exists(ctx, cfg.Key).Result()
	if err == nil && exists == 0 {
		args := []interface{}{cfg.Key, fmt.Sprintf("%f", cfg.ErrorRate), cfg.Capacity}
		if cfg.NonScaling {
			args = append(args, "NONSCALING")
		}
		_ = client.Do(ctx, append([]interface{}{"BF.RESERVE"}, args...)...).Err()
	}

	return sf, nil
}

// Close closes the underlying Redis client
func (f *SeenFilter) Close() error {
	return f.client.Close()
}

// Exists checks if the fingerprint is present in the bloom filter.
// Uses the RedisBloom BF.EXISTS command.
func (f *SeenFilter) Exists(fingerprint string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := f.client.Do(ctx, "BF.EXISTS", f.key, fingerprint).Result()
	if err != nil {
		return false, err
	}

	switch v := res.(type) {
	case int64:
		return v == 1, nil
	case string:
		return v == "1", nil
	default:
		return false, fmt.Errorf("unexpected BF.EXISTS response type %T: %v", res, res)
	}
}

// Add inserts the fingerprint into the bloom filter and refreshes the key
// TTL, so the filter stays alive for `ttl` after the most recent insert.
func (f *SeenFilter) Add(fingerprint string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := f.client.Do(ctx, "BF.ADD", f.key, fingerprint).Err(); err != nil {
		return err
	}
	if err := f.client.Expire(ctx, f.key, f.ttl).Err(); err != nil {
		return err
	}
	return nil
}

// Fingerprint normalizes the item's URL and title and returns a SHA-256 hex hash.
// Normalization steps:
// - URL: remove fragment, remove common tracking query params (utm_*, fbclid), lowercase host
// - Title: collapse whitespace and lowercase
// The result is sha256(normalizedURL + "|" + normalizedTitle)
func Fingerprint(item *types.ContentItem) (string, error) {
	if item == nil {
		return "", fmt.Errorf("nil item")
	}

	normURL := normalizeURL(item.URL)
	normTitle := normalizeTitle(item.Title)

	combined := normURL + "|" + normTitle

	h := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(h[:]), nil
}

func normalizeTitle(t string) string {
	t = strings.TrimSpace(t)
	t = strings.ToLower(t)
	fields := strings.Fields(t)
	return strings.Join(fields, " ")
}

func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	out := u.String()
	if strings.HasSuffix(out, "/") {
		out = strings.TrimRight(out, "/")
	}
	return out
}
