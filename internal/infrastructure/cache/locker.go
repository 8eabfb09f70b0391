package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/erp-api/internal/application/inventory"
	"github.com/jhoicas/erp-api/internal/domain"
)

var (
	_ inventory.Locker = (*RedisLocker)(nil)
	_ inventory.Locker = (*LocalLocker)(nil)
)

// RedisLocker lock distribuido: una sola instancia de la API ejecuta la sección a la vez.
type RedisLocker struct {
	client *redislock.Client
}

// NewRedisLocker construye el locker sobre un cliente Redis ya conectado.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(client)}
}

// Acquire obtiene el lock sin reintentos; domain.ErrConflict si otro proceso lo tiene.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, domain.ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}, nil
}

// LocalLocker lock en proceso con TTL, para despliegues sin Redis.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time // clave → vencimiento
	nowFn func() time.Time
}

// NewLocalLocker construye el locker en memoria.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]time.Time), nowFn: time.Now}
}

// Acquire obtiene el lock si está libre o vencido.
func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.nowFn()
	if exp, ok := l.held[key]; ok && now.Before(exp) {
		return nil, domain.ErrConflict
	}
	exp := now.Add(ttl)
	l.held[key] = exp
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		// Solo libera si sigue siendo el mismo lock (no vencido y retomado por otro).
		if cur, ok := l.held[key]; ok && cur.Equal(exp) {
			delete(l.held, key)
		}
		return nil
	}, nil
}
