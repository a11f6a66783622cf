package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrKeyNotFound is returned by Get for keys that were never written or were
// removed.
var ErrKeyNotFound = errors.New("storage: key not found")

// Persisted client-state keys of a shell session.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
	KeyPermissions  = "permissions"
	KeyCart         = "cart"
)

// SessionKeys lists the identity keys removed on logout or session teardown.
var SessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser, KeyPermissions}

// Storage is the external key-value store holding client state. Every write
// and delete raises an eventbus.StorageChanged signal.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Del(ctx context.Context, keys ...string) error
}

// SessionKey scopes name to the session sid.
func SessionKey(sid, name string) string {
	return fmt.Sprintf("session:%s:%s", sid, name)
}

// SessionKeysFor returns the scoped versions of names for sid.
func SessionKeysFor(sid string, names ...string) []string {
	keys := make([]string, 0, len(names))
	for _, name := range names {
		keys = append(keys, SessionKey(sid, name))
	}
	return keys
}

// ParseSessionKey splits a scoped key back into session id and name.
func ParseSessionKey(key string) (sid, name string, ok bool) {
	rest, found := strings.CutPrefix(key, "session:")
	if !found {
		return "", "", false
	}
	idx := strings.LastIndex(rest, ":")
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}
