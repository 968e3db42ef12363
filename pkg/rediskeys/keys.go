package rediskeys

import (
	"fmt"
	"strings"

	"gitlab.com/timkado/api/forum-service/pkg/crypto"
)

// ItemLockKey generates the key of the per-item lock guarding vote toggles.
func ItemLockKey(collection, id string) string {
	return fmt.Sprintf("vote_lock:%s:%s", collection, id)
}

// UserEmailLockKey generates the key of the lock serializing user creation per email.
// The email is hashed so that addresses never appear in lock keys.
func UserEmailLockKey(email string) string {
	return fmt.Sprintf("user_email_lock:%s", crypto.Sha256Hex(strings.ToLower(email)))
}

// DocumentKey generates the Redis key holding one JSON document.
func DocumentKey(collection, id string) string {
	return fmt.Sprintf("doc:%s:%s", collection, id)
}

// CollectionIndexKey generates the Redis set key listing the ids of a collection.
func CollectionIndexKey(collection string) string {
	return fmt.Sprintf("docs:%s", collection)
}

// CacheKey generates the Redis key under which a read-through cache entry is stored.
func CacheKey(key string) string {
	return fmt.Sprintf("cache:%s", key)
}
