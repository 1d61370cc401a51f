package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/response"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency key
	IdempotencyKeyHeader = "X-Idempotency-Key"
	// ContextKeyIdempotencyKey is the context key for idempotency key
	ContextKeyIdempotencyKey = "idempotency_key"
	// DefaultIdempotencyTTL keeps completed bulk responses long enough to
	// absorb client retries after a dropped connection
	DefaultIdempotencyTTL = 10 * time.Minute
	// DefaultProcessingTTL bounds how long an in-flight marker blocks a key
	DefaultProcessingTTL = 60 * time.Second
	// IdempotencyKeyPrefix is the Redis key prefix for idempotency records
	IdempotencyKeyPrefix = "idempotency:"
)

// IdempotencyStatus represents the status of an idempotency record
type IdempotencyStatus string

const (
	StatusProcessing IdempotencyStatus = "processing"
	StatusCompleted  IdempotencyStatus = "completed"
)

// IdempotencyRecord stores the state of an idempotent request
type IdempotencyRecord struct {
	Key          string            `json:"key"`
	Status       IdempotencyStatus `json:"status"`
	RequestHash  string            `json:"request_hash"`
	ResponseCode int               `json:"response_code"`
	ResponseBody string            `json:"response_body"`
	CreatedAt    time.Time         `json:"created_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
}

// RedisClient is the subset of Redis operations the middleware needs
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// IdempotencyConfig holds configuration for idempotency middleware
type IdempotencyConfig struct {
	Redis RedisClient
	// TTL for completed records
	TTL time.Duration
	// ProcessingTTL for in-flight records
	ProcessingTTL time.Duration
	// Required rejects requests that carry no key
	Required bool
}

// DefaultIdempotencyConfig returns default configuration with an optional key
func DefaultIdempotencyConfig(redis RedisClient) *IdempotencyConfig {
	return &IdempotencyConfig{
		Redis:         redis,
		TTL:           DefaultIdempotencyTTL,
		ProcessingTTL: DefaultProcessingTTL,
	}
}

// IdempotencyMiddleware replays the first completed response for a repeated
// X-Idempotency-Key. Requests without a key pass straight through unless the
// key is required. Redis failures fail open.
func IdempotencyMiddleware(config *IdempotencyConfig) gin.HandlerFunc {
	if config.TTL == 0 {
		config.TTL = DefaultIdempotencyTTL
	}
	if config.ProcessingTTL == 0 {
		config.ProcessingTTL = DefaultProcessingTTL
	}
	store := &idempotencyStore{rdb: config.Redis}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		switch {
		case key == "" && config.Required:
			c.AbortWithStatusJSON(http.StatusBadRequest, response.Error("MISSING_IDEMPOTENCY_KEY", "X-Idempotency-Key header is required"))
			return
		case key == "" || config.Redis == nil:
			c.Next()
			return
		}

		c.Set(ContextKeyIdempotencyKey, key)
		fingerprint := fingerprintRequest(c)
		ctx := c.Request.Context()

		existing, err := store.get(ctx, key)
		if err != nil {
			c.Next()
			return
		}
		if existing != nil {
			replay(c, existing, fingerprint)
			return
		}

		record := &IdempotencyRecord{
			Key:         key,
			Status:      StatusProcessing,
			RequestHash: fingerprint,
			CreatedAt:   time.Now(),
		}
		claimed, err := store.claim(ctx, record, config.ProcessingTTL)
		if err != nil {
			c.Next()
			return
		}
		if !claimed {
			// A concurrent request with the same key got there first
			if existing, _ = store.get(ctx, key); existing != nil {
				replay(c, existing, fingerprint)
				return
			}
		}

		rw := &capturingWriter{ResponseWriter: c.Writer, status: http.StatusOK}
		c.Writer = rw
		c.Next()

		// Server failures are not remembered so the client can retry
		bg := context.Background()
		if rw.status >= http.StatusInternalServerError {
			store.release(bg, key)
			return
		}
		now := time.Now()
		record.Status = StatusCompleted
		record.ResponseCode = rw.status
		record.ResponseBody = rw.body.String()
		record.CompletedAt = &now
		_ = store.save(bg, record, config.TTL)
	}
}

func replay(c *gin.Context, record *IdempotencyRecord, fingerprint string) {
	switch {
	case record.RequestHash != fingerprint:
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, response.Error("IDEMPOTENCY_KEY_REUSED", "Idempotency key already used with different request"))
	case record.Status == StatusProcessing:
		c.AbortWithStatusJSON(http.StatusConflict, response.Error("REQUEST_IN_PROGRESS", "A request with this idempotency key is already being processed"))
	default:
		c.Header("X-Idempotent-Replay", "true")
		c.Data(record.ResponseCode, "application/json; charset=utf-8", []byte(record.ResponseBody))
		c.Abort()
	}
}

// capturingWriter tees the response body so it can be stored for replay
type capturingWriter struct {
	gin.ResponseWriter
	body   bytes.Buffer
	status int
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// fingerprintRequest hashes method, path and body, restoring the body for
// the handler. Uploaded CSV files are part of the body, so a retried import
// with a different file is caught as key reuse.
func fingerprintRequest(c *gin.Context) string {
	var body []byte
	if c.Request.Body != nil {
		body, _ = io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
	}
	return hashRequest(c.Request.Method, c.Request.URL.Path, body)
}

func hashRequest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// idempotencyStore keeps records as JSON under IdempotencyKeyPrefix
type idempotencyStore struct {
	rdb RedisClient
}

// get returns nil, nil when no record exists
func (s *idempotencyStore) get(ctx context.Context, key string) (*IdempotencyRecord, error) {
	raw, err := s.rdb.Get(ctx, IdempotencyKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record IdempotencyRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// claim writes the in-flight record only if the key is free
func (s *idempotencyStore) claim(ctx context.Context, record *IdempotencyRecord, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return false, err
	}
	return s.rdb.SetNX(ctx, IdempotencyKeyPrefix+record.Key, string(data), ttl).Result()
}

func (s *idempotencyStore) save(ctx context.Context, record *IdempotencyRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, IdempotencyKeyPrefix+record.Key, string(data), ttl).Err()
}

func (s *idempotencyStore) release(ctx context.Context, key string) {
	_ = s.rdb.Del(ctx, IdempotencyKeyPrefix+key).Err()
}
