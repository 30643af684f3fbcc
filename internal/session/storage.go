package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.etcd.io/bbolt"

	"certgen/frontend/internal/config"
)

const (
	tokenKey = "token"
	userKey  = "user"
)

var sessionBucket = []byte("session")

// Snapshot is the persisted pair. User holds the JSON-encoded user record.
type Snapshot struct {
	Token string
	User  []byte
}

func (s Snapshot) empty() bool {
	return s.Token == "" && len(s.User) == 0
}

func (s Snapshot) complete() bool {
	return s.Token != "" && len(s.User) > 0
}

// Storage is durable client-side storage for the session pair. Save and
// Clear write both keys together.
type Storage interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Clear(ctx context.Context) error
	Close() error
}

// BoltStorage keeps the session in a local bbolt file.
type BoltStorage struct {
	db *bbolt.DB
}

func OpenBolt(path string) (*BoltStorage, error) {
	if path == "" {
		return nil, errors.New("session path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStorage{db: db}, nil
}

func (b *BoltStorage) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(sessionBucket)
		if bucket == nil {
			return nil
		}
		if v := bucket.Get([]byte(tokenKey)); v != nil {
			snap.Token = string(v)
		}
		if v := bucket.Get([]byte(userKey)); v != nil {
			snap.User = append([]byte(nil), v...)
		}
		return nil
	})
	return snap, err
}

func (b *BoltStorage) Save(ctx context.Context, snap Snapshot) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(sessionBucket)
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(tokenKey), []byte(snap.Token)); err != nil {
			return err
		}
		return bucket.Put([]byte(userKey), snap.User)
	})
}

func (b *BoltStorage) Clear(ctx context.Context) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(sessionBucket)
		if bucket == nil {
			return nil
		}
		if err := bucket.Delete([]byte(tokenKey)); err != nil {
			return err
		}
		return bucket.Delete([]byte(userKey))
	})
}

func (b *BoltStorage) Close() error {
	return b.db.Close()
}

// RedisStorage keeps the session under <prefix>:token and <prefix>:user, for
// shells that run on more than one host.
type RedisStorage struct {
	client *redis.Client
	prefix string
	owned  bool
}

func NewRedisStorage(client *redis.Client, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = "certgen:session"
	}
	return &RedisStorage{client: client, prefix: prefix}
}

func (r *RedisStorage) key(name string) string {
	return fmt.Sprintf("%s:%s", r.prefix, name)
}

func (r *RedisStorage) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	token, err := r.client.Get(ctx, r.key(tokenKey)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return snap, err
	}
	snap.Token = token
	user, err := r.client.Get(ctx, r.key(userKey)).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return snap, err
	}
	snap.User = user
	return snap, nil
}

func (r *RedisStorage) Save(ctx context.Context, snap Snapshot) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(tokenKey), snap.Token, 0)
		pipe.Set(ctx, r.key(userKey), snap.User, 0)
		return nil
	})
	return err
}

func (r *RedisStorage) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key(tokenKey), r.key(userKey)).Err()
}

// Close closes the redis client only when the storage created it.
func (r *RedisStorage) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}

// MemoryStorage is process-local.
type MemoryStorage struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Load(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{Token: m.snap.Token, User: append([]byte(nil), m.snap.User...)}, nil
}

func (m *MemoryStorage) Save(ctx context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = Snapshot{Token: snap.Token, User: append([]byte(nil), snap.User...)}
	return nil
}

func (m *MemoryStorage) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = Snapshot{}
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

// NewStorage builds the backend named by cfg.SessionBackend. The redis
// backend is pinged before it is returned.
func NewStorage(ctx context.Context, cfg config.Config) (Storage, error) {
	switch cfg.SessionBackend {
	case config.SessionBolt, "":
		return OpenBolt(cfg.SessionPath)
	case config.SessionMemory:
		return NewMemoryStorage(), nil
	case config.SessionRedis:
		client, err := newRedisClient(cfg)
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		storage := NewRedisStorage(client, cfg.SessionRedisPrefix)
		storage.owned = true
		return storage, nil
	default:
		return nil, &config.Error{Code: config.ErrInvalidSessionKind, Key: "SESSION_BACKEND", Value: cfg.SessionBackend}
	}
}

func newRedisClient(cfg config.Config) (*redis.Client, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	if cfg.RedisAddr == "" {
		return nil, errors.New("redis_not_configured")
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}), nil
}
