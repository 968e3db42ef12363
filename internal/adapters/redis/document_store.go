package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"gitlab.com/timkado/api/forum-service/internal/domain"
	"gitlab.com/timkado/api/forum-service/pkg/rediskeys"
)

const maxUpdateAttempts = 16

// DocumentStoreAdapter implements domain.DocumentStore on Redis. Each
// document is a JSON string under rediskeys.DocumentKey and every collection
// keeps a set of its ids. Queries scan the collection and filter in process.
type DocumentStoreAdapter struct {
	redisClient *redis.Client
	logger      domain.Logger
}

// NewDocumentStoreAdapter creates a new instance of DocumentStoreAdapter.
func NewDocumentStoreAdapter(redisClient *redis.Client, logger domain.Logger) *DocumentStoreAdapter {
	if redisClient == nil {
		panic("redisClient cannot be nil in NewDocumentStoreAdapter")
	}
	if logger == nil {
		panic("logger cannot be nil in NewDocumentStoreAdapter")
	}
	return &DocumentStoreAdapter{redisClient: redisClient, logger: logger}
}

// Get implements domain.DocumentStore.
func (a *DocumentStoreAdapter) Get(ctx context.Context, collection, id string) (domain.Document, error) {
	key := rediskeys.DocumentKey(collection, id)
	raw, err := a.redisClient.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Document{}, fmt.Errorf("document %s/%s: %w", collection, id, domain.ErrNotFound)
	}
	if err != nil {
		a.logger.Error(ctx, "Failed to get document from Redis", "key", key, "error", err.Error())
		return domain.Document{}, fmt.Errorf("redis GET for document key '%s' failed: %w", key, err)
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return domain.Document{}, fmt.Errorf("document key '%s': %w", key, err)
	}
	return domain.Document{ID: id, Fields: fields}, nil
}

// List implements domain.DocumentStore.
func (a *DocumentStoreAdapter) List(ctx context.Context, collection string) ([]domain.Document, error) {
	indexKey := rediskeys.CollectionIndexKey(collection)
	ids, err := a.redisClient.SMembers(ctx, indexKey).Result()
	if err != nil {
		a.logger.Error(ctx, "Failed to read collection index from Redis", "key", indexKey, "error", err.Error())
		return nil, fmt.Errorf("redis SMEMBERS for index key '%s' failed: %w", indexKey, err)
	}
	docs := make([]domain.Document, 0, len(ids))
	if len(ids) == 0 {
		return docs, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = rediskeys.DocumentKey(collection, id)
	}
	values, err := a.redisClient.MGet(ctx, keys...).Result()
	if err != nil {
		a.logger.Error(ctx, "Failed to read documents from Redis", "collection", collection, "error", err.Error())
		return nil, fmt.Errorf("redis MGET for collection '%s' failed: %w", collection, err)
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// Deleted between SMEMBERS and MGET.
			continue
		}
		fields, err := decodeFields([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("document key '%s': %w", keys[i], err)
		}
		docs = append(docs, domain.Document{ID: ids[i], Fields: fields})
	}
	domain.SortDocuments(docs)
	return docs, nil
}

// Query implements domain.DocumentStore.
func (a *DocumentStoreAdapter) Query(ctx context.Context, collection, field string, op domain.QueryOp, value any) ([]domain.Document, error) {
	want, err := domain.NormalizeValue(value)
	if err != nil {
		return nil, err
	}
	all, err := a.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	matched := make([]domain.Document, 0)
	for _, doc := range all {
		if doc.Fields.Matches(field, op, want) {
			matched = append(matched, doc)
		}
	}
	return matched, nil
}

// Create implements domain.DocumentStore.
func (a *DocumentStoreAdapter) Create(ctx context.Context, collection string, data domain.Fields) (string, error) {
	fields, err := domain.EncodeFields(data)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document for collection '%s': %w", collection, err)
	}
	id := uuid.NewString()
	key := rediskeys.DocumentKey(collection, id)
	_, err = a.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, raw, 0)
		pipe.SAdd(ctx, rediskeys.CollectionIndexKey(collection), id)
		return nil
	})
	if err != nil {
		a.logger.Error(ctx, "Failed to create document in Redis", "key", key, "error", err.Error())
		return "", fmt.Errorf("redis MULTI create for document key '%s' failed: %w", key, err)
	}
	a.logger.Debug(ctx, "Document created", "key", key)
	return id, nil
}

// Update implements domain.DocumentStore. The read-merge-write runs under
// WATCH so a concurrent writer forces a retry instead of a lost update.
func (a *DocumentStoreAdapter) Update(ctx context.Context, collection, id string, partial domain.Fields) error {
	normalized, err := domain.EncodeFields(partial)
	if err != nil {
		return err
	}
	key := rediskeys.DocumentKey(collection, id)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("document %s/%s: %w", collection, id, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("redis GET for document key '%s' failed: %w", key, err)
		}
		current, err := decodeFields(raw)
		if err != nil {
			return fmt.Errorf("document key '%s': %w", key, err)
		}
		merged, err := json.Marshal(current.Merge(normalized))
		if err != nil {
			return fmt.Errorf("failed to marshal document key '%s': %w", key, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, merged, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err = a.redisClient.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
		a.logger.Debug(ctx, "Document changed during update, retrying", "key", key, "attempt", attempt)
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		a.logger.Error(ctx, "Failed to update document in Redis", "key", key, "error", err.Error())
		return fmt.Errorf("redis WATCH update for document key '%s' failed: %w", key, err)
	}
	return err
}

// Delete implements domain.DocumentStore.
func (a *DocumentStoreAdapter) Delete(ctx context.Context, collection, id string) error {
	key := rediskeys.DocumentKey(collection, id)
	_, err := a.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SRem(ctx, rediskeys.CollectionIndexKey(collection), id)
		return nil
	})
	if err != nil {
		a.logger.Error(ctx, "Failed to delete document from Redis", "key", key, "error", err.Error())
		return fmt.Errorf("redis MULTI delete for document key '%s' failed: %w", key, err)
	}
	return nil
}

func decodeFields(raw []byte) (domain.Fields, error) {
	var fields domain.Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return fields, nil
}
