package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/ports"
)

// ErrConflict is returned by Update when the flags changed during the transaction.
var ErrConflict = errors.New("flags modified concurrently")

// FlagStore implements ports.FlagStore on a Redis hash.
//
// Update runs under WATCH on the hash and commits with MULTI/EXEC, so a concurrent
// writer makes it fail with ErrConflict instead of losing a write.
type FlagStore struct {
	client *backend.Client
	prefix string
}

var _ ports.FlagStore = (*FlagStore)(nil)

type Option func(*FlagStore)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *FlagStore) {
		s.prefix = prefix
	}
}

// New creates a new Redis flag store with options.
func New(address, password string, db int, opts ...Option) *FlagStore {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis flag store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *FlagStore {
	store := &FlagStore{
		client: client,
		prefix: "cadence:",
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client returns the underlying client, e.g. to share it with a Locker.
func (s *FlagStore) Client() *backend.Client { return s.client }

func (s *FlagStore) hashKey() string {
	return s.prefix + "flags"
}

// View runs fn against the current flags.
func (s *FlagStore) View(ctx context.Context, fn func(ports.FlagReader) error) error {
	return fn(&reader{cmd: s.client, hash: s.hashKey()})
}

// Update runs fn with staged writes and applies them atomically when fn succeeds.
func (s *FlagStore) Update(ctx context.Context, fn func(ports.FlagWriter) error) error {
	var fnErr error
	err := s.client.Watch(ctx, func(tx *backend.Tx) error {
		w := &writer{
			reader: reader{cmd: tx, hash: s.hashKey()},
			saved:  make(map[string]domain.Flag),
			gone:   make(map[string]bool),
		}
		if fnErr = fn(w); fnErr != nil {
			return fnErr
		}
		if len(w.saved) == 0 && len(w.gone) == 0 {
			return nil
		}
		_, err := tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			for key := range w.gone {
				pipe.HDel(ctx, w.hash, key)
			}
			for key, flag := range w.saved {
				data, err := json.Marshal(flag)
				if err != nil {
					return fmt.Errorf("failed to marshal flag %s: %w", key, err)
				}
				pipe.HSet(ctx, w.hash, key, data)
			}
			return nil
		})
		return err
	}, s.hashKey())

	switch {
	case fnErr != nil:
		return fnErr
	case errors.Is(err, backend.TxFailedErr):
		return ErrConflict
	case err != nil:
		return fmt.Errorf("failed to update flags in redis: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (s *FlagStore) Close() error {
	return s.client.Close()
}

// hashReader is the read surface shared by *backend.Client and *backend.Tx.
type hashReader interface {
	HGet(ctx context.Context, key, field string) *backend.StringCmd
	HGetAll(ctx context.Context, key string) *backend.MapStringStringCmd
}

type reader struct {
	cmd  hashReader
	hash string
}

func (r *reader) Lookup(ctx context.Context, key string) (*domain.Flag, error) {
	val, err := r.cmd.HGet(ctx, r.hash, key).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrFlagNotFound
		}
		return nil, fmt.Errorf("failed to get flag from redis: %w", err)
	}
	return decodeFlag(key, val)
}

func (r *reader) List(ctx context.Context, prefix string) ([]domain.Flag, error) {
	all, err := r.cmd.HGetAll(ctx, r.hash).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list flags from redis: %w", err)
	}
	out := make([]domain.Flag, 0)
	for key, val := range all {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		flag, err := decodeFlag(key, val)
		if err != nil {
			return nil, err
		}
		out = append(out, *flag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

type writer struct {
	reader
	saved map[string]domain.Flag
	gone  map[string]bool
}

func (w *writer) Lookup(ctx context.Context, key string) (*domain.Flag, error) {
	if flag, ok := w.saved[key]; ok {
		return &flag, nil
	}
	if w.gone[key] {
		return nil, domain.ErrFlagNotFound
	}
	return w.reader.Lookup(ctx, key)
}

func (w *writer) List(ctx context.Context, prefix string) ([]domain.Flag, error) {
	stored, err := w.reader.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Flag, 0, len(stored))
	for _, f := range stored {
		if _, ok := w.saved[f.Key]; !ok && !w.gone[f.Key] {
			out = append(out, f)
		}
	}
	for key, f := range w.saved {
		if strings.HasPrefix(key, prefix) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (w *writer) Save(ctx context.Context, flag domain.Flag) error {
	delete(w.gone, flag.Key)
	w.saved[flag.Key] = flag
	return nil
}

func (w *writer) Delete(ctx context.Context, key string) error {
	delete(w.saved, key)
	w.gone[key] = true
	return nil
}

func decodeFlag(key, val string) (*domain.Flag, error) {
	var flag domain.Flag
	if err := json.Unmarshal([]byte(val), &flag); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flag %s: %w", key, err)
	}
	flag.Key = key
	return &flag, nil
}
