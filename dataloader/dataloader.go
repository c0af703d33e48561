// Package dataloader batches key lookups against a DbSet. Callers that need
// many records by key, such as the authors of a page of posts, issue one
// SELECT ... WHERE key IN (...) instead of one query per key and get the
// records back in key order.
//
//	batch := dataloader.Batch(
//	    func() *dawnorm.DbSet[Author, *Author] { return Authors(client) },
//	    func(a *Author) int64 { return a.ID },
//	)
//	loader := dataloader.New(batch)
//	authors, errs := loader.LoadMany(ctx, authorIDs)
package dataloader

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/syssam/dawnorm"
)

// ErrNotFound is reported for a key that matched no row.
var ErrNotFound = errors.New("dataloader: record not found")

// KeyFunc extracts a key from a record.
type KeyFunc[K comparable, V any] func(V) K

// BatchFunc loads the records of keys. The results are in key order and
// both slices have the length of keys.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, []error)

// Load reads the records of keys through set, which must have a single key
// column, and returns them in key order. A key without a row gets a nil
// record and ErrNotFound. When the query fails every key gets its error.
// Duplicate keys are queried once.
func Load[T any, P dawnorm.EntityPtr[T], K comparable](ctx context.Context, set *dawnorm.DbSet[T, P], keys []K, keyFn KeyFunc[K, *T]) ([]*T, []error) {
	if len(keys) == 0 {
		return nil, nil
	}
	seen := make(map[K]struct{}, len(keys))
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		args = append(args, k)
	}
	records, err := set.FilterByKeys(args...).ToList(ctx)
	if err != nil {
		errs := make([]error, len(keys))
		for i := range errs {
			errs[i] = err
		}
		return make([]*T, len(keys)), errs
	}
	return OrderByKeys(keys, records, keyFn)
}

// Batch returns a BatchFunc running Load on a fresh set from newSet.
func Batch[T any, P dawnorm.EntityPtr[T], K comparable](newSet func() *dawnorm.DbSet[T, P], keyFn KeyFunc[K, *T]) BatchFunc[K, *T] {
	return func(ctx context.Context, keys []K) ([]*T, []error) {
		return Load(ctx, newSet(), keys, keyFn)
	}
}

// OrderByKeys reorders values to match keys. Missing values are zero with
// ErrNotFound at their index.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// GroupByKey groups values by key, for one-to-many lookups such as the
// posts of several authors.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderGroupsByKeys returns the group of each key in key order.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = groups[key]
	}
	return result
}

type entry[V any] struct {
	value V
	err   error
}

// Loader memoizes a BatchFunc for the lifetime of one request. It is safe
// for concurrent use.
type Loader[K comparable, V any] struct {
	batch BatchFunc[K, V]

	mu    sync.Mutex
	cache map[K]entry[V]
}

// New returns a Loader backed by batch.
func New[K comparable, V any](batch BatchFunc[K, V]) *Loader[K, V] {
	return &Loader[K, V]{batch: batch, cache: make(map[K]entry[V])}
}

// Load returns the value of one key.
func (l *Loader[K, V]) Load(ctx context.Context, key K) (V, error) {
	values, errs := l.LoadMany(ctx, []K{key})
	return values[0], errs[0]
}

// LoadMany returns the values of keys in order. Only keys not seen before
// reach the batch function, in a single call. Failed lookups are not
// cached.
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) ([]V, []error) {
	values := make([]V, len(keys))
	errs := make([]error, len(keys))

	l.mu.Lock()
	var missing []K
	for _, k := range keys {
		if _, ok := l.cache[k]; !ok && !slices.Contains(missing, k) {
			missing = append(missing, k)
		}
	}
	l.mu.Unlock()

	fetched := make(map[K]entry[V], len(missing))
	if len(missing) > 0 {
		vs, es := l.batch(ctx, missing)
		l.mu.Lock()
		for i, k := range missing {
			e := entry[V]{value: vs[i], err: es[i]}
			fetched[k] = e
			if e.err == nil || errors.Is(e.err, ErrNotFound) {
				l.cache[k] = e
			}
		}
		l.mu.Unlock()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for i, k := range keys {
		e, ok := fetched[k]
		if !ok {
			e = l.cache[k]
		}
		values[i], errs[i] = e.value, e.err
	}
	return values, errs
}

// Prime stores value for key, replacing any cached entry.
func (l *Loader[K, V]) Prime(key K, value V) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[key] = entry[V]{value: value}
}

// Clear forgets the entries of keys.
func (l *Loader[K, V]) Clear(keys ...K) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, k := range keys {
		delete(l.cache, k)
	}
}

type ctxKey struct{}

// WithLoaders stores a request's loaders in ctx.
func WithLoaders[T any](ctx context.Context, loaders T) context.Context {
	return context.WithValue(ctx, ctxKey{}, loaders)
}

// For returns the loaders stored by WithLoaders, or the zero T.
func For[T any](ctx context.Context) T {
	v, _ := ctx.Value(ctxKey{}).(T)
	return v
}
